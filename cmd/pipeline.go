// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/jcodagnone/cercania/proximity"
	"github.com/jcodagnone/cercania/utils/httputils"
	"go.uber.org/zap"
)

// loadConfig reads --config, or the bundled catalog when the flag is empty.
func loadConfig() (*proximity.Config, error) {
	if options.ConfigPath == "" {
		return proximity.DefaultCatalogConfig()
	}

	return proximity.LoadConfig(options.ConfigPath)
}

func userAgent() string {
	return fmt.Sprintf("cercania/%s (+https://github.com/jcodagnone/cercania)", Version)
}

func newProviders(ctx context.Context, cfg *proximity.Config) (proximity.Providers, error) {
	key, err := proximity.ResolveAPIKey(ctx, proximity.KeyLookup{}, logger)
	if err != nil {
		return proximity.Providers{}, err
	}

	clientOptions := httputils.ClientOptions{
		UserAgent:    userAgent(),
		TraceBody:    options.TraceBody,
		RedactParams: []string{"key"},
	}
	if options.TraceHTTP {
		clientOptions.TraceWriter = os.Stderr
	}

	google, err := proximity.NewGoogleMapsProvider(proximity.GoogleOptions{
		APIKey:          key,
		Language:        cfg.Language,
		TravelMode:      cfg.TravelMode,
		HTTPClient:      httputils.NewClient(clientOptions),
		DetailsCacheTTL: cfg.Details.CacheTTL.Std(),
		Logger:          logger.Named("google"),
	})
	if err != nil {
		return proximity.Providers{}, err
	}

	return proximity.ProvidersFrom(google), nil
}

func newOrchestrator(ctx context.Context, cfg *proximity.Config, opts ...proximity.Option) (*proximity.Orchestrator, error) {
	providers, err := newProviders(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts = append([]proximity.Option{proximity.WithLogger(logger)}, opts...)

	return proximity.NewOrchestrator(cfg, providers, opts...)
}

// openRepository opens the duckdb file and makes sure the schema exists. The
// returned close function must be called when done.
func openRepository(path string) (*proximity.RunRepository, func(), error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	repo := proximity.NewRunRepository(db)
	if err := repo.CreateSchema(); err != nil {
		db.Close()

		return nil, nil, fmt.Errorf("creating schema: %w", err)
	}

	return repo, func() {
		if err := db.Close(); err != nil {
			logger.Warn("closing database", zap.Error(err))
		}
	}, nil
}

func requireDB() error {
	if options.DbPath == "" {
		return errors.New("--db is required")
	}

	return nil
}
