// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jcodagnone/cercania/proximity"
	"github.com/jcodagnone/cercania/utils/textutils"
)

var (
	candidateColor = color.New(color.FgGreen, color.Bold)
	duplicateColor = color.New(color.FgYellow)
	errorColor     = color.New(color.FgRed)
	headerColor    = color.New(color.FgBlue, color.Bold)
	dimColor       = color.New(color.FgHiBlack)
)

// fit pads or truncates s to exactly n runes.
func fit(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-1]) + "…"
	}

	return s + strings.Repeat(" ", n-len(r))
}

func placeFlags(p proximity.Place) string {
	var flags []string

	switch {
	case p.IsDuplicateAddressCandidate:
		flags = append(flags, duplicateColor.Sprint("dup-cand"))
	case p.IsDuplicateAddress:
		flags = append(flags, duplicateColor.Sprint("dup"))
	}

	if p.IsDistanceError {
		flags = append(flags, errorColor.Sprint("sin-distancia"))
	}

	if p.IsDetailsError {
		flags = append(flags, errorColor.Sprint("sin-detalles"))
	}

	return strings.Join(flags, " ")
}

func printResult(w io.Writer, result *proximity.Result) {
	const nameW, addrW, timeW, distW, phoneW = 32, 36, 10, 9, 16

	for _, cat := range result.Categories {
		places := result.Category(cat.Name)

		fmt.Fprintf(w, "\n%s  %s\n",
			headerColor.Sprint(cat.Label()),
			dimColor.Sprintf("(%d lugares, radio %s)", result.PlaceCount(cat.Name), textutils.FormatMeters(cat.UsedRadius)),
		)

		if len(places) == 0 {
			fmt.Fprintln(w, dimColor.Sprint("  sin resultados"))

			continue
		}

		line := func(l, m, r string) string {
			return l + strings.Join([]string{
				strings.Repeat("─", 3),
				strings.Repeat("─", nameW+2),
				strings.Repeat("─", addrW+2),
				strings.Repeat("─", timeW+2),
				strings.Repeat("─", distW+2),
				strings.Repeat("─", phoneW+2),
			}, m) + r
		}

		fmt.Fprintln(w, line("╭", "┬", "╮"))
		fmt.Fprintf(w, "│ %s │ %s │ %s │ %s │ %s │ %s │\n", " ",
			fit("Nombre", nameW), fit("Dirección", addrW), fit("Tiempo", timeW), fit("Distancia", distW), fit("Teléfono", phoneW))
		fmt.Fprintln(w, line("├", "┼", "┤"))

		for _, p := range places {
			marker, name := " ", fit(p.Name, nameW)
			if p.IsCandidate {
				marker, name = candidateColor.Sprint("★"), candidateColor.Sprint(name)
			}

			duration, distance := "-", "-"
			if !p.IsDistanceError {
				duration, distance = textutils.FormatSeconds(p.Duration), textutils.FormatMeters(p.Distance)
			}

			fmt.Fprintf(w, "│ %s │ %s │ %s │ %s │ %s │ %s │ %s\n",
				marker, name, fit(p.Address, addrW), fit(duration, timeW), fit(distance, distW), fit(p.Phone, phoneW), placeFlags(p))
		}

		fmt.Fprintln(w, line("╰", "┴", "╯"))
	}

	stats := result.Stats
	fmt.Fprintln(w, dimColor.Sprintf(
		"\n%d búsquedas, %d elementos de distancia en %d pedidos, %d detalles en %s",
		stats.SearchRequests,
		stats.Distance.Elements,
		stats.Distance.Requests,
		stats.Details.Fetched,
		result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond),
	))
}

func printRuns(w io.Writer, runs []proximity.RunSummary) {
	a, b, c, d := strings.Repeat("─", 36), strings.Repeat("─", 19), strings.Repeat("─", 24), strings.Repeat("─", 15)
	fmt.Fprintf(w, "╭─%s─┬─%s─┬─%s─┬─%s─╮\n", a, b, c, d)
	fmt.Fprintf(w, "│ %-36s │ %-19s │ %-24s │ %-15s │\n", "Id", "Fecha", "Origen", "Lugares/Cand.")
	fmt.Fprintf(w, "├─%s─┼─%s─┼─%s─┼─%s─┤\n", a, b, c, d)

	for _, r := range runs {
		fmt.Fprintf(w, "│ %-36s │ %-19s │ %-24s │ %-15s │\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			fit(r.Origin.LatLng(), 24),
			fmt.Sprintf("%s/%s", textutils.FormatInt(int64(r.PlaceCount)), textutils.FormatInt(int64(r.CandidateCount))),
		)
	}

	fmt.Fprintf(w, "╰─%s─┴─%s─┴─%s─┴─%s─╯\n", a, b, c, d)
}
