package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinorUnitsToAmount(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want *float64
	}{
		{name: "Centavos inteiros", in: "15000", want: ptr(150.0)},
		{name: "Centavos quebrados", in: "1999", want: ptr(19.99)},
		{name: "Vazio", in: "", want: nil},
		{name: "Zero", in: "0", want: nil},
		{name: "Inválido", in: "abc", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MinorUnitsToAmount(tt.in))
		})
	}
}

func TestParseNumbers(t *testing.T) {
	f, err := ParseFloat(" 12.5 ")
	require.NoError(t, err)
	assert.Equal(t, 12.5, f)

	f, err = ParseFloat("")
	require.NoError(t, err)
	assert.Zero(t, f)

	i, err := ParseInt("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), i)

	_, err = ParseInt("4.2")
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-05-02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), *d)

	d, err = ParseDate("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = ParseDate("02/05/2024")
	assert.Error(t, err)
}

func TestGenerateRunID(t *testing.T) {
	a, err := GenerateRunID()
	require.NoError(t, err)
	b, err := GenerateRunID()
	require.NoError(t, err)

	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
}

func ptr(f float64) *float64 { return &f }
