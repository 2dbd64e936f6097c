// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_AcceptedForms(t *testing.T) {
	cases := map[string]string{
		"9876543210":       "+919876543210",
		"919876543210":     "+919876543210",
		"+919876543210":    "+919876543210",
		"+91 98765 43210":  "+919876543210",
		"98765-43210":      "+919876543210",
		"(+91) 9876543210": "+919876543210",
	}

	for input, want := range cases {
		got, err := Normalize(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
}

func TestNormalize_Rejected(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"12345",
		"98765432101",    // 11 digits, no country code
		"129876543210",   // 12 digits but wrong country code
		"+1 555 123 4567",
		"abcdefghij",
	}

	for _, input := range inputs {
		_, err := Normalize(input)
		assert.ErrorIs(t, err, ErrInvalid, input)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	first, err := Normalize("98765 43210")
	require.NoError(t, err)
	second, err := Normalize(first)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "******3210", Mask("+919876543210"))
	assert.Equal(t, "******", Mask("12"))
	assert.Empty(t, Mask(""))
}
