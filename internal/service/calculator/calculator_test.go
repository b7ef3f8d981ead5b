package calculator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	cases := []struct {
		expr string
		want float64
	}{
		{"2+2", 4},
		{"(3 + 4) * 2", 14},
		{"10 / 4", 2.5},
		{"2 * pi", 2 * math.Pi},
		{"sqrt(16.0) + pow(2.0, 3.0)", 12},
		{"sin(0.0)", 0},
		{"  7  ", 7},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := Evaluate(tc.expr)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got.Value, 1e-9)
		})
	}
}

func TestEvaluateTwoPlusTwoRendersAsFour(t *testing.T) {
	got, err := Evaluate("2+2")
	require.NoError(t, err)
	assert.Equal(t, "4", got.String())
	assert.Equal(t, 4.0, got.JSON())
}

func TestEvaluateNonFinite(t *testing.T) {
	cases := map[string]string{
		"1/0":        "Infinity",
		"-1/0":       "-Infinity",
		"sqrt(-1.0)": "NaN",
	}
	for src, want := range cases {
		got, err := Evaluate(src)
		require.NoError(t, err, src)
		assert.Equal(t, want, got.String(), src)
		assert.Equal(t, want, got.JSON(), src)
	}
}

func TestEvaluateRejectsMalformed(t *testing.T) {
	for _, src := range []string{
		"",
		"2 +* 3",
		"(1 + 2",
		"unknownFn(3)",
		`"steel"`,
		"1 < 2",
	} {
		_, err := Evaluate(src)
		assert.ErrorIs(t, err, ErrInvalidExpression, "expression %q", src)
	}
}
