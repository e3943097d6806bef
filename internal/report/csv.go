// Package report renders one fiscal year's YearStats into the downloadable
// artifacts the original Flask dashboard produced: a ZIP of semicolon-
// delimited CSVs (one per record kind) and a PNG chart of the multi-year
// P&L/dividend/fee series. Neither is part of the accounting core — they
// are external collaborators consuming the engine's {years, global} result
// (spec.md §1/§6).
package report

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/lostcitizen/gestor-fiscal-degiro/internal/taxengine"
)

// utf8BOM precedes every CSV entry so Excel's European locale opens it as
// UTF-8 instead of guessing Latin-1 — matching degiro_app/app.py's
// "utf-8-sig" encoding.
const utf8BOM = "﻿"

// WriteYearZIP writes the four per-year reports (purchases, disposals,
// dividends, portfolio) as a ZIP archive of ';'-delimited CSVs, the Go
// equivalent of degiro_app/app.py's add_csv_to_zip helper.
func WriteYearZIP(w io.Writer, year int, stats taxengine.YearStats) error {
	zw := zip.NewWriter(w)

	if err := writeCSVEntry(zw, fmt.Sprintf("compras_%d.csv", year),
		[]string{"FECHA", "PRODUCTO", "ISIN", "CANTIDAD", "PRECIO", "TOTAL", "COMISION"},
		purchaseRows(stats.Purchases)); err != nil {
		return err
	}

	if err := writeCSVEntry(zw, fmt.Sprintf("ventas_%d.csv", year),
		[]string{"FECHA", "PRODUCTO", "ISIN", "CANTIDAD", "PROCEDE_NETO", "COSTE", "PNL", "AVISO", "NOTA", "BLOQUEADO"},
		disposalRows(stats.Disposals)); err != nil {
		return err
	}

	if err := writeCSVEntry(zw, fmt.Sprintf("dividendos_%d.csv", year),
		[]string{"FECHA", "PRODUCTO", "ISIN", "DIVISA", "BRUTO", "RETENCION", "NETO"},
		dividendRows(stats.Dividends)); err != nil {
		return err
	}

	if err := writeCSVEntry(zw, fmt.Sprintf("cartera_%d.csv", year),
		[]string{"NOMBRE", "ISIN", "CANTIDAD", "PRECIO_MEDIO", "COSTE_TOTAL"},
		portfolioRows(stats.Portfolio)); err != nil {
		return err
	}

	return zw.Close()
}

func writeCSVEntry(zw *zip.Writer, filename string, headers []string, rows [][]string) error {
	entry, err := zw.Create(filename)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filename, err)
	}
	if _, err := io.WriteString(entry, utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(entry)
	cw.Comma = ';'
	if err := cw.Write(headers); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func fmtNum(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func purchaseRows(purchases []taxengine.Purchase) [][]string {
	rows := make([][]string, 0, len(purchases))
	for _, p := range purchases {
		rows = append(rows, []string{
			p.Date.Format("02-01-2006"), p.Product, p.ISIN,
			fmtNum(p.Quantity), fmtNum(p.UnitPrice), fmtNum(p.Total), fmtNum(p.FeeEUR),
		})
	}
	return rows
}

func disposalRows(disposals []taxengine.Disposal) [][]string {
	rows := make([][]string, 0, len(disposals))
	for _, s := range disposals {
		rows = append(rows, []string{
			s.Date.Format("02-01-2006"), s.Product, s.ISIN,
			fmtNum(s.Quantity), fmtNum(s.ProceedsEUR), fmtNum(s.CostBasisEUR), fmtNum(s.PnL),
			strconv.FormatBool(s.Warning), s.Note, strconv.FormatBool(s.Blocked),
		})
	}
	return rows
}

func dividendRows(divs []taxengine.Dividend) [][]string {
	rows := make([][]string, 0, len(divs))
	for _, dv := range divs {
		rows = append(rows, []string{
			dv.Date.Format("02-01-2006"), dv.Product, dv.ISIN, dv.Currency,
			fmtNum(dv.GrossEUR), fmtNum(dv.WithholdEUR), fmtNum(dv.NetEUR),
		})
	}
	return rows
}

func portfolioRows(positions []taxengine.Position) [][]string {
	rows := make([][]string, 0, len(positions))
	for _, p := range positions {
		rows = append(rows, []string{
			p.Name, p.ISIN, fmtNum(p.Quantity), fmtNum(p.AvgUnitCost), fmtNum(p.TotalCostEUR),
		})
	}
	return rows
}
