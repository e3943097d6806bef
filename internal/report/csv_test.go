package report

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lostcitizen/gestor-fiscal-degiro/internal/taxengine"
)

func TestWriteYearZIP_ContainsAllFourEntries(t *testing.T) {
	stats := taxengine.YearStats{
		Year: 2023,
		Purchases: []taxengine.Purchase{
			{Date: time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC), Product: "ACME", ISIN: "ES0000000000", Quantity: 10, UnitPrice: 10, Total: 100, FeeEUR: 0},
		},
		Disposals: []taxengine.Disposal{
			{Date: time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC), Product: "ACME", ISIN: "ES0000000000", Quantity: 5, ProceedsEUR: 60, CostBasisEUR: 50, PnL: 10, Note: ""},
		},
		Dividends: []taxengine.Dividend{
			{Date: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), Product: "ACME", ISIN: "ES0000000000", Currency: "EUR", GrossEUR: 100, WithholdEUR: 15, NetEUR: 85},
		},
		Portfolio: []taxengine.Position{
			{Name: "ACME", ISIN: "ES0000000000", Quantity: 5, AvgUnitCost: 10, TotalCostEUR: 50},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteYearZIP(&buf, 2023, stats))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{
		"compras_2023.csv", "ventas_2023.csv", "dividendos_2023.csv", "cartera_2023.csv",
	}, names)
}

func TestWriteYearZIP_EntriesAreBOMPrefixedAndSemicolonDelimited(t *testing.T) {
	stats := taxengine.YearStats{
		Purchases: []taxengine.Purchase{
			{Date: time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC), Product: "ACME", ISIN: "ES0000000000", Quantity: 10, UnitPrice: 10, Total: 100, FeeEUR: 1},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteYearZIP(&buf, 2023, stats))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	var purchases *zip.File
	for _, f := range zr.File {
		if f.Name == "compras_2023.csv" {
			purchases = f
		}
	}
	require.NotNil(t, purchases)

	rc, err := purchases.Open()
	require.NoError(t, err)
	defer rc.Close()

	var content bytes.Buffer
	_, err = content.ReadFrom(rc)
	require.NoError(t, err)

	text := content.String()
	assert.True(t, strings.HasPrefix(text, utf8BOM))
	assert.Contains(t, text, "FECHA;PRODUCTO;ISIN;CANTIDAD;PRECIO;TOTAL;COMISION")
	assert.Contains(t, text, "05-01-2023;ACME;ES0000000000;10.00;10.00;100.00;1.00")
}

func TestDisposalRows_IncludesBlockedAndNote(t *testing.T) {
	disposals := []taxengine.Disposal{
		{
			Date: time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC), Product: "ACME", ISIN: "ES0000000000",
			Quantity: 10, ProceedsEUR: 80, CostBasisEUR: 100, PnL: -20,
			Note: "BLOQ", Blocked: true,
		},
	}
	rows := disposalRows(disposals)
	require.Len(t, rows, 1)
	assert.Equal(t, "true", rows[0][9])
	assert.Equal(t, "BLOQ", rows[0][8])
}
