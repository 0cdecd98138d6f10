// Copyright 2025 The ChapaUY Authors
//
// SPDX-License-Identifier: Apache-2.0
package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversineDistance(t *testing.T) {
	obelisco := Point{Lat: -34.8944, Lng: -56.1614}
	palacio := Point{Lat: -34.9059, Lng: -56.1993}

	d := obelisco.HaversineDistance(&palacio)
	assert.InDelta(t, 3680, d, 60)
	assert.InDelta(t, 0, obelisco.HaversineDistance(&obelisco), 1e-9)
}

func TestPointValidate(t *testing.T) {
	tests := []struct {
		name  string
		point Point
		ok    bool
	}{
		{"montevideo", Point{Lat: -34.9, Lng: -56.16}, true},
		{"lat too high", Point{Lat: 91, Lng: 0}, false},
		{"lng too low", Point{Lat: 0, Lng: -181}, false},
		{"origin", Point{}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.point.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestPointScan(t *testing.T) {
	var p Point

	require.NoError(t, p.Scan([]byte("POINT (-56.1 -34.9)")))
	assert.Equal(t, Point{Lat: -34.9, Lng: -56.1}, p)

	require.NoError(t, p.Scan(map[string]interface{}{"x": -56.2, "y": -34.8}))
	assert.Equal(t, Point{Lat: -34.8, Lng: -56.2}, p)

	require.NoError(t, p.Scan(nil))
	assert.Equal(t, Point{}, p)

	assert.Error(t, p.Scan(42))
}

func TestPointCell(t *testing.T) {
	p := Point{Lat: -34.9, Lng: -56.16}

	c7, err := p.Cell(7)
	require.NoError(t, err)
	assert.NotZero(t, c7)

	near := Point{Lat: -34.90001, Lng: -56.16001}
	c7near, err := near.Cell(7)
	require.NoError(t, err)
	assert.Equal(t, c7, c7near)

	_, err = p.Cell(42)
	assert.Error(t, err)
}

func TestLatLng(t *testing.T) {
	assert.Equal(t, "-34.900000,-56.160000", Point{Lat: -34.9, Lng: -56.16}.LatLng())
}
