// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package proximity

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
candidate_limit = 2
language = "es"
travel_mode = "walking"

[distance]
window_delay = "2s"

[details]
interval = "500ms"

[[categories]]
name = "doctor"
display_name = "Médico"
keywords = ["doctor"]
initial_radius = 500
max_radius = 4000
min_items = 3

[[categories]]
name = "supermarket"
keywords = ["supermarket", "grocery_or_supermarket"]
text = "almacén"
initial_radius = 300
max_radius = 2000
min_items = 5
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.CandidateLimit)
	assert.Equal(t, "walking", cfg.TravelMode)
	assert.Equal(t, 2*time.Second, cfg.Distance.WindowDelay.Std())
	assert.Equal(t, DefaultChunkSize, cfg.Distance.ChunkSize, "defaults are kept")
	assert.Equal(t, 500*time.Millisecond, cfg.Details.Interval.Std())
	assert.Equal(t, DefaultDetailsAttempts, cfg.Details.RetryAttempts)

	require.Len(t, cfg.Categories, 2)
	assert.Equal(t, "Médico", cfg.Categories[0].Label())
	assert.Equal(t, "supermarket", cfg.Categories[1].Label())
	assert.Equal(t, []string{"supermarket", "grocery_or_supermarket"}, cfg.Categories[1].SearchKeywords)
	assert.Equal(t, "almacén", cfg.Categories[1].SearchText)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Categories, 2)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"no categories", `candidate_limit = 3`},
		{"missing name", `
[[categories]]
keywords = ["doctor"]
initial_radius = 100
max_radius = 200
`},
		{"max below initial", `
[[categories]]
name = "doctor"
keywords = ["doctor"]
initial_radius = 500
max_radius = 200
`},
		{"zero initial radius", `
[[categories]]
name = "doctor"
keywords = ["doctor"]
initial_radius = 0
max_radius = 200
`},
		{"no keywords nor text", `
[[categories]]
name = "doctor"
initial_radius = 100
max_radius = 200
`},
		{"duplicate keys", `
[[categories]]
name = "Farmacia"
keywords = ["pharmacy"]
initial_radius = 100
max_radius = 200

[[categories]]
name = "farmácia"
keywords = ["drugstore"]
initial_radius = 100
max_radius = 200
`},
		{"window smaller than chunk", `
[distance]
chunk_size = 25
window_size = 10

[[categories]]
name = "doctor"
keywords = ["doctor"]
initial_radius = 100
max_radius = 200
`},
		{"unknown travel mode", `
travel_mode = "teleport"

[[categories]]
name = "doctor"
keywords = ["doctor"]
initial_radius = 100
max_radius = 200
`},
		{"bad duration", `
[distance]
window_delay = "soon"

[[categories]]
name = "doctor"
keywords = ["doctor"]
initial_radius = 100
max_radius = 200
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.toml))
			assert.Error(t, err)
		})
	}
}

func TestConfigNoCategoriesSentinel(t *testing.T) {
	_, err := ParseConfig([]byte(`candidate_limit = 3`))
	assert.ErrorIs(t, err, ErrNoCategories)
}

func TestConfigCategoryLookup(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)

	cat, ok := cfg.Category("  DOCTOR ")
	require.True(t, ok)
	assert.Equal(t, "doctor", cat.Name)

	_, ok = cfg.Category("bakery")
	assert.False(t, ok)
}

func TestDurationText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Std())

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))
}
