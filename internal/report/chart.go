package report

import (
	"bytes"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/lostcitizen/gestor-fiscal-degiro/internal/taxengine"
)

// ChartPNG renders the global per-year P&L / net dividend / fee series
// (spec.md §6's chart_pnl/chart_divs/chart_fees) as a single PNG line
// chart, in the spirit of the candlestick/strategy charts
// tools/strategies.go builds with the same gonum/plot stack — just a
// simple multi-series line plot here, since a year-by-year tax summary has
// no OHLC structure to show.
func ChartPNG(global taxengine.Global) ([]byte, error) {
	p := plot.New()
	p.Title.Text = "Resultado fiscal por año"
	p.X.Label.Text = "Año"
	p.Y.Label.Text = "EUR"

	years := global.YearsList
	if len(years) == 0 {
		return nil, fmt.Errorf("no years to chart")
	}

	pnlLine, err := seriesLine(years, global.ChartPnL)
	if err != nil {
		return nil, err
	}
	divsLine, err := seriesLine(years, global.ChartDivs)
	if err != nil {
		return nil, err
	}
	feesLine, err := seriesLine(years, global.ChartFees)
	if err != nil {
		return nil, err
	}

	p.Add(pnlLine, divsLine, feesLine)
	p.Legend.Add("P&L fiscal", pnlLine)
	p.Legend.Add("Dividendos netos", divsLine)
	p.Legend.Add("Comisiones", feesLine)
	p.Legend.Top = true

	writer, err := p.WriterTo(8*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return nil, fmt.Errorf("preparing chart writer: %w", err)
	}

	var buf bytes.Buffer
	if _, err := writer.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("rendering chart: %w", err)
	}
	return buf.Bytes(), nil
}

func seriesLine(years []int, values []float64) (*plotter.Line, error) {
	pts := make(plotter.XYs, len(years))
	for i, y := range years {
		pts[i].X = float64(y)
		if i < len(values) {
			pts[i].Y = values[i]
		}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("building chart series: %w", err)
	}
	return line, nil
}
