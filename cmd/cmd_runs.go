// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"os"

	"github.com/jcodagnone/cercania/proximity"
	"github.com/jcodagnone/cercania/spatial"
	"github.com/spf13/cobra"
)

type runsOptions struct {
	Limit  int
	Offset int
	Lat    float64
	Lng    float64
	JSON   bool
}

var runsOpts = &runsOptions{}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Consulta las corridas guardadas",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lista las corridas, las más recientes primero",
	Long: `Lista las corridas guardadas. Con --lat y --lng lista sólo las corridas cuyo
origen cae en la misma celda H3 (resolución 7) que el punto indicado.
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := requireDB(); err != nil {
			return err
		}

		repo, closeDB, err := openRepository(options.DbPath)
		if err != nil {
			return err
		}
		defer closeDB()

		var runs []proximity.RunSummary

		if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
			p := spatial.Point{Lat: runsOpts.Lat, Lng: runsOpts.Lng}
			if err := p.Validate(); err != nil {
				return err
			}

			runs, err = repo.RunsNear(p, runsOpts.Limit)
		} else {
			runs, err = repo.ListRuns(runsOpts.Limit, runsOpts.Offset)
		}

		if err != nil {
			return err
		}

		if runsOpts.JSON {
			return json.NewEncoder(os.Stdout).Encode(runs)
		}

		printRuns(os.Stdout, runs)

		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Muestra una corrida guardada",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		if err := requireDB(); err != nil {
			return err
		}

		repo, closeDB, err := openRepository(options.DbPath)
		if err != nil {
			return err
		}
		defer closeDB()

		result, err := repo.GetRun(args[0])
		if err != nil {
			return err
		}

		if runsOpts.JSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")

			return enc.Encode(result.View())
		}

		printResult(os.Stdout, result)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)

	runsCmd.PersistentFlags().BoolVar(&runsOpts.JSON, "json", false, "Imprime en JSON")

	runsListCmd.Flags().IntVar(&runsOpts.Limit, "limit", 20, "Cantidad máxima de corridas")
	runsListCmd.Flags().IntVar(&runsOpts.Offset, "offset", 0, "Corridas a saltear")
	runsListCmd.Flags().Float64Var(&runsOpts.Lat, "lat", 0, "Latitud para filtrar por cercanía")
	runsListCmd.Flags().Float64Var(&runsOpts.Lng, "lng", 0, "Longitud para filtrar por cercanía")
}
