// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/jcodagnone/cercania/proximity"
	"github.com/jcodagnone/cercania/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFit(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"abc", 5, "abc  "},
		{"abcdef", 4, "abc…"},
		{"Teléfono", 8, "Teléfono"},
		{"", 2, "  "},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, fit(tt.in, tt.n), tt.in)
	}
}

func TestRestrictCategories(t *testing.T) {
	cfg, err := proximity.DefaultCatalogConfig()
	require.NoError(t, err)

	require.NoError(t, restrictCategories(cfg, []string{"Bank", "pharmacy"}))
	require.Len(t, cfg.Categories, 2)
	assert.Equal(t, "bank", cfg.Categories[0].Name)
	assert.Equal(t, "pharmacy", cfg.Categories[1].Name)

	assert.Error(t, restrictCategories(cfg, []string{"casino"}))
}

func TestPrintResult(t *testing.T) {
	color.NoColor = true

	cfg, err := proximity.DefaultCatalogConfig()
	require.NoError(t, err)
	require.NoError(t, restrictCategories(cfg, []string{"pharmacy"}))

	cats := cfg.Categories
	cats[0].UsedRadius = 1000

	result := proximity.NewResult(spatial.Point{Lat: -34.9, Lng: -56.19}, cats, []proximity.Place{
		{ID: "a", CategoryName: "pharmacy", Name: "Farmacia Central", Address: "18 de Julio 1", IsCandidate: true, Duration: 300, Distance: 1200, Phone: "2900 0000"},
		{ID: "b", CategoryName: "pharmacy", Name: "Farmacia Sur", Address: "Sin datos", IsDistanceError: true},
	})

	var buf bytes.Buffer
	printResult(&buf, result)

	out := buf.String()
	assert.Contains(t, out, "Farmacias")
	assert.Contains(t, out, "★ │ Farmacia Central")
	assert.Contains(t, out, "5 min")
	assert.Contains(t, out, "1.2 km")
	assert.Contains(t, out, "sin-distancia")

}
