// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/jcodagnone/cercania/proximity"
	"github.com/jcodagnone/cercania/utils/textutils"
	"github.com/spf13/cobra"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Lista las categorías del catálogo",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, b, c, d := strings.Repeat("─", 16), strings.Repeat("─", 24), strings.Repeat("─", 36), strings.Repeat("─", 19)
		fmt.Printf("╭─%s─┬─%s─┬─%s─┬─%s─╮\n", a, b, c, d)
		fmt.Printf("│ %s │ %s │ %s │ %s │\n", fit("Nombre", 16), fit("Descripción", 24), fit("Búsqueda", 36), fit("Radio (mín. items)", 19))
		fmt.Printf("├─%s─┼─%s─┼─%s─┼─%s─┤\n", a, b, c, d)

		for _, cat := range cfg.Categories {
			query := strings.Join(cat.SearchKeywords, ", ")
			if cat.SearchText != "" {
				query += " + \"" + cat.SearchText + "\""
			}

			radius := fmt.Sprintf("%s-%s (%d)",
				textutils.FormatMeters(cat.InitialRadius), textutils.FormatMeters(cat.MaxRadius), cat.MinItemTarget)

			fmt.Printf("│ %s │ %s │ %s │ %s │\n", fit(cat.Name, 16), fit(cat.Label(), 24), fit(query, 36), fit(radius, 19))
		}

		fmt.Printf("╰─%s─┴─%s─┴─%s─┴─%s─╯\n", a, b, c, d)

		return nil
	},
}

var categoriesDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Imprime el catálogo incluido en TOML, como base para uno propio",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		_, err := os.Stdout.Write(proximity.DefaultCatalog())

		return err
	},
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
	categoriesCmd.AddCommand(categoriesDumpCmd)
}
