package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lostcitizen/gestor-fiscal-degiro/internal/taxengine"
)

func TestChartPNG_ProducesValidPNG(t *testing.T) {
	global := taxengine.Global{
		YearsList: []int{2022, 2023, 2024},
		ChartPnL:  []float64{10, -20, 30},
		ChartDivs: []float64{5, 6, 7},
		ChartFees: []float64{1, 1, 2},
	}

	png, err := ChartPNG(global)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte{0x89, 'P', 'N', 'G'}))
}

func TestChartPNG_NoYearsReturnsError(t *testing.T) {
	_, err := ChartPNG(taxengine.Global{})
	assert.Error(t, err)
}
