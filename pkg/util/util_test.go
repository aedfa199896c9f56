package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBDFCoeffs(t *testing.T) {
	c := BDFCoeffs(1, 0.5)
	require.Len(t, c, 2)
	assert.InDelta(t, 2.0, c[0], 1e-12)
	assert.InDelta(t, -2.0, c[1], 1e-12)

	c = BDFCoeffs(2, 0.1)
	require.Len(t, c, 3)
	assert.InDelta(t, 15.0, c[0], 1e-12)
	assert.InDelta(t, -20.0, c[1], 1e-12)
	assert.InDelta(t, 5.0, c[2], 1e-12)

	// Coefficients of any order annihilate a constant.
	for order := 1; order <= 6; order++ {
		sum := 0.0
		for _, v := range BDFCoeffs(order, 0.25) {
			sum += v
		}
		assert.InDelta(t, 0.0, sum, 1e-10, "order %d", order)
	}

	assert.Len(t, BDFCoeffs(9, 1), 2, "out of range order falls back to 1")
}

func TestParseTimeScheme(t *testing.T) {
	s, err := ParseTimeScheme("bdf2")
	require.NoError(t, err)
	assert.Equal(t, BDF2, s)
	assert.Equal(t, 2, s.Order())

	s, err = ParseTimeScheme("")
	require.NoError(t, err)
	assert.Equal(t, ImplicitEuler, s)
	assert.Equal(t, "implicit-euler", s.String())

	_, err = ParseTimeScheme("crank-nicolson")
	require.Error(t, err)
}

func TestFormatValueFactor(t *testing.T) {
	assert.Equal(t, "1.500 M/cm2s", FormatValueFactor(1.5e6, "/cm2s"))
	assert.Equal(t, "2.000 k", FormatValueFactor(2000, ""))
	assert.Equal(t, "12.000 m", FormatValueFactor(0.012, ""))
	assert.Equal(t, "0.000 s", FormatValueFactor(0, "s"))
	assert.Equal(t, "1.000e-09 s", FormatValueFactor(1e-9, "s"))
	assert.Equal(t, "1.000000e-08", FormatResidual(1e-8))
}
