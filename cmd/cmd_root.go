// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	Verbose    bool
	LogFile    string
	TraceHTTP  bool
	TraceBody  bool
	ConfigPath string
	DbPath     string
}

var (
	options = &rootOptions{}
	logger  = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "cercania",
	Short: "búsqueda y ranking de lugares cercanos",
	Long: `
cercania busca, para un punto de origen, los lugares de interés más cercanos
de cada categoría configurada (médicos, farmacias, bancos, ...), los ordena
por tiempo de viaje y marca los mejores candidatos.
`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger = newLogger(options.Verbose, options.LogFile)
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = logger.Sync()
	},
}

var Version = "dev"

func Execute(version string) {
	Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(
		&options.Verbose,
		"verbose",
		"v",
		false,
		"Muestra mensajes de depuración",
	)
	rootCmd.PersistentFlags().StringVar(
		&options.LogFile,
		"log-file",
		"",
		"Archivo donde registrar los logs en formato JSON (con rotación)",
	)
	rootCmd.PersistentFlags().BoolVar(
		&options.TraceHTTP,
		"trace-http",
		false,
		"Display HTTP requests-responses",
	)
	rootCmd.PersistentFlags().BoolVar(
		&options.TraceBody,
		"trace-http-body",
		false,
		"Display HTTP requests-responses bodies",
	)
	rootCmd.PersistentFlags().StringVarP(
		&options.ConfigPath,
		"config",
		"c",
		"",
		"Catálogo de categorías en TOML. Por defecto usa el catálogo incluido",
	)
	rootCmd.PersistentFlags().StringVar(
		&options.DbPath,
		"db",
		"",
		"Base de datos duckdb donde persistir las corridas",
	)
}
