// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/jcodagnone/cercania/proximity"
	"github.com/jcodagnone/cercania/spatial"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type searchOptions struct {
	Lat  float64
	Lng  float64
	Only []string
	JSON bool
}

var searchOpts = &searchOptions{}

// restrictCategories keeps only the named categories, in the given order.
func restrictCategories(cfg *proximity.Config, names []string) error {
	if len(names) == 0 {
		return nil
	}

	cats := make([]proximity.PlaceCategory, 0, len(names))

	for _, name := range names {
		cat, ok := cfg.Category(name)
		if !ok {
			return fmt.Errorf("unknown category %q", name)
		}

		cats = append(cats, cat)
	}

	cfg.Categories = cats

	return nil
}

// progressObserver drives a progress bar over the category searches.
func progressObserver(total int) (proximity.Observer, func()) {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return func(ev proximity.Event) {
			logger.Debug("pipeline event",
				zap.String("kind", string(ev.Kind)),
				zap.Stringer("state", ev.State),
				zap.String("category", ev.Category),
				zap.Int("count", ev.Count),
			)
		}, func() {}
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Buscando"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	observer := func(ev proximity.Event) {
		switch ev.Kind {
		case proximity.EventCategorySearched:
			_ = bar.Add(1)
		case proximity.EventStateChanged:
			switch ev.State {
			case proximity.StateRanking:
				bar.Describe("Calculando distancias")
			case proximity.StateEnriching:
				bar.Describe("Obteniendo detalles")
			}
		}
	}

	return observer, func() { _ = bar.Finish() }
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Busca y ordena los lugares cercanos a un punto",
	Long: `Busca, para cada categoría del catálogo, los lugares cercanos al origen,
calcula el tiempo de viaje a cada uno, marca los mejores candidatos y obtiene
sus datos de contacto.

$ cercania search --lat -34.9058 --lng -56.1913 --only farmacia --only banco
`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		origin := spatial.Point{Lat: searchOpts.Lat, Lng: searchOpts.Lng}
		if err := origin.Validate(); err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if err := restrictCategories(cfg, searchOpts.Only); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		observer, finish := progressObserver(len(cfg.Categories))

		orch, err := newOrchestrator(ctx, cfg, proximity.WithObserver(observer))
		if err != nil {
			return err
		}

		result, err := orch.Run(ctx, origin)
		finish()

		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		if options.DbPath != "" {
			repo, closeDB, err := openRepository(options.DbPath)
			if err != nil {
				return err
			}
			defer closeDB()

			runID := uuid.NewString()
			if err := repo.SaveRun(runID, result); err != nil {
				return fmt.Errorf("saving run: %w", err)
			}

			logger.Info("run saved", zap.String("id", runID))
		}

		if searchOpts.JSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")

			return enc.Encode(result.View())
		}

		printResult(os.Stdout, result)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().Float64Var(&searchOpts.Lat, "lat", 0, "Latitud del origen")
	searchCmd.Flags().Float64Var(&searchOpts.Lng, "lng", 0, "Longitud del origen")
	searchCmd.Flags().StringSliceVar(&searchOpts.Only, "only", nil, "Limita la búsqueda a estas categorías")
	searchCmd.Flags().BoolVar(&searchOpts.JSON, "json", false, "Imprime el resultado en JSON")

	_ = searchCmd.MarkFlagRequired("lat")
	_ = searchCmd.MarkFlagRequired("lng")
}
