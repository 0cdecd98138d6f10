// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package textutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLowerAsciiFolding(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "hello world"},
		{"  Spaces  ", "spaces"},
		{"Áéíóú", "aeiou"},
		{"Ñandú", "nandu"},
		{"Crème Brûlée", "creme brulee"},
		{"", ""},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, LowerASCIIFolding(tc.input))
		})
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "farmacia", Key(" Farmacia "))
	assert.Equal(t, "medico_de_familia", Key("Médico  de Familia"))
	assert.Equal(t, "", Key("   "))
}

func TestFormatInt(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-1234, "-1,234"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, FormatInt(tc.input))
	}
}

func TestFormatMeters(t *testing.T) {
	assert.Equal(t, "850 m", FormatMeters(850))
	assert.Equal(t, "2.4 km", FormatMeters(2400))
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "45 s", FormatSeconds(45))
	assert.Equal(t, "12 min", FormatSeconds(720))
	assert.Equal(t, "1 h 05 min", FormatSeconds(3900))
}
