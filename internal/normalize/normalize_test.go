package normalize

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumber(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want float64
	}{
		{"empty", "", 0},
		{"unparsable", "n/a", 0},
		{"plain int", "123", 123},
		{"comma decimal", "123,45", 123.45},
		{"dot decimal single digit fraction", "123.4", 123.4},
		{"dot thousands then comma decimal", "1.234,56", 1234.56},
		{"comma thousands then dot decimal", "1,234.56", 1234.56},
		{"multiple dots thousands", "1.234.567", 1234567},
		{"single dot three digits after is thousands", "1.234", 1234},
		{"single dot two digits after is decimal", "1.23", 1.23},
		{"currency symbol and quotes", `"€ 1.234,56"`, 1234.56},
		{"negative", "-1.234,56", -1234.56},
		{"whitespace", "  42  ", 42},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Number(tc.in), 1e-9)
		})
	}
}

func TestDate(t *testing.T) {
	got, ok := Date("05-01-2023")
	require.True(t, ok)
	assert.Equal(t, time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC), got)

	got, ok = Date("05/01/2023")
	require.True(t, ok)
	assert.Equal(t, time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC), got)

	_, ok = Date("2023-01-05")
	assert.False(t, ok)

	_, ok = Date("not a date")
	assert.False(t, ok)
}

func TestNumberIdempotentToFourDecimals(t *testing.T) {
	// normalize.Number(format(x)) == x for values representable to 4 decimals,
	// using a comma-decimal rendering (the simplest round trip Number supports).
	values := []float64{0, 1, 1234.5678, -99.01, 0.0001}
	for _, v := range values {
		formatted := strings.Replace(fmt.Sprintf("%.4f", v), ".", ",", 1)
		assert.InDelta(t, v, Number(formatted), 1e-9)
	}
}
