// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package proximity

import (
	_ "embed"
	"fmt"
)

//go:embed categories.toml
var defaultCatalog []byte

// DefaultCatalogConfig returns the built-in configuration: the default knobs
// plus the bundled category catalog.
func DefaultCatalogConfig() (*Config, error) {
	cfg, err := ParseConfig(defaultCatalog)
	if err != nil {
		return nil, fmt.Errorf("default catalog: %w", err)
	}

	return cfg, nil
}

// DefaultCatalog returns the raw TOML of the bundled catalog, useful as a
// starting point for a custom one.
func DefaultCatalog() []byte {
	out := make([]byte, len(defaultCatalog))
	copy(out, defaultCatalog)

	return out
}
