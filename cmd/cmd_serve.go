// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/cercania/proximity"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expone la búsqueda como API HTTP",
	Long: `Levanta la API HTTP que permite ejecutar búsquedas, consultar el estado y
ajustar manualmente los candidatos. Con --db las corridas quedan persistidas.
`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		orch, err := newOrchestrator(context.Background(), cfg)
		if err != nil {
			return err
		}

		var repo *proximity.RunRepository
		if options.DbPath != "" {
			r, closeDB, err := openRepository(options.DbPath)
			if err != nil {
				return err
			}
			defer closeDB()

			repo = r
		}

		if !options.Verbose {
			gin.SetMode(gin.ReleaseMode)
		}

		return proximity.NewServer(orch, repo, logger.Named("api")).Run(serveAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "localhost:8080", "Dirección donde escuchar")
}
