// Package ingest turns the two exported DEGIRO ledgers — the trade ledger
// and the cash-account ledger — into the normalized event slices the tax
// engine consumes. Column recognition follows spec.md §6: headers are
// matched by substring, not by exact name, since DEGIRO's export format
// varies slightly by language/region. The cash ledger's "Variación" and
// "Importe" columns are the exception and are matched by exact name.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lostcitizen/gestor-fiscal-degiro/internal/normalize"
	"github.com/lostcitizen/gestor-fiscal-degiro/internal/taxengine"
)

// Trades parses the trade ledger. Rows with an unparsable date, a missing
// ISIN or a zero quantity are dropped (spec.md §6/§7); every other
// normalization rule failure degrades to a zero value rather than an
// error, matching the normalizer's own tolerance. Row-level drops are
// logged at Warn, never returned as errors.
func Trades(r io.Reader, log *zap.Logger) ([]taxengine.TradeEvent, error) {
	log = nonNilLogger(log)

	records, header, err := readCSV(r)
	if err != nil {
		return nil, fmt.Errorf("reading trade ledger: %w", err)
	}
	if header == nil {
		return nil, nil
	}

	col := mapTradeColumns(header)

	events := make([]taxengine.TradeEvent, 0, len(records))
	for i, rec := range records {
		date, ok := col.date(rec)
		if !ok {
			log.Warn("dropping trade row: unparsable date", zap.Int("csvRow", i))
			continue
		}
		isin := col.str(rec, col.isin)
		if isin == "" {
			log.Warn("dropping trade row: missing ISIN", zap.Int("csvRow", i))
			continue
		}
		qty := col.num(rec, col.qty)
		if qty == 0 {
			log.Warn("dropping trade row: zero quantity", zap.Int("csvRow", i))
			continue
		}

		events = append(events, taxengine.TradeEvent{
			Date:     date,
			Time:     col.str(rec, col.timeIdx),
			ISIN:     isin,
			Product:  col.str(rec, col.product),
			Quantity: qty,
			TotalEUR: col.num(rec, col.total),
			FeeEUR:   col.num(rec, col.fee),
		})
	}
	return events, nil
}

// Cash parses the cash-account ledger.
func Cash(r io.Reader, log *zap.Logger) ([]taxengine.CashEvent, error) {
	log = nonNilLogger(log)

	records, header, err := readCSV(r)
	if err != nil {
		return nil, fmt.Errorf("reading cash ledger: %w", err)
	}
	if header == nil {
		return nil, nil
	}

	col := mapCashColumns(header)
	if col.amount < 0 {
		log.Warn("cash ledger has neither a Variación nor an Importe column; no amounts parsed")
		return nil, nil
	}

	events := make([]taxengine.CashEvent, 0, len(records))
	for i, rec := range records {
		date, ok := col.date(rec)
		if !ok {
			log.Warn("dropping cash row: unparsable date", zap.Int("csvRow", i))
			continue
		}
		events = append(events, taxengine.CashEvent{
			Date:        date,
			ISIN:        col.str(rec, col.isin),
			Product:     col.str(rec, col.product),
			Description: col.str(rec, col.desc),
			Amount:      col.num(rec, col.amount),
			Currency:    col.currency(rec),
		})
	}
	return events, nil
}

func nonNilLogger(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

// readCSV reads all records with the teacher's lenient-parsing settings
// (internal/app/account/tradeHandler.go): variable field counts and
// tolerant quoting, since exported ledgers aren't always RFC 4180 clean.
func readCSV(r io.Reader) (records [][]string, header []string, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	all, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(all) == 0 {
		return nil, nil, nil
	}

	header = make([]string, len(all[0]))
	for i, h := range all[0] {
		header[i] = strings.TrimSpace(h)
	}
	return all[1:], header, nil
}

type tradeColumns struct {
	dateIdx, timeIdx, isin, product, qty, total, fee int
}

func mapTradeColumns(header []string) tradeColumns {
	c := tradeColumns{dateIdx: -1, timeIdx: -1, isin: -1, product: -1, qty: -1, total: -1, fee: -1}
	for i, h := range header {
		switch {
		case strings.Contains(h, "Fecha"):
			c.dateIdx = i
		case strings.Contains(h, "Hora"):
			c.timeIdx = i
		case strings.Contains(h, "ISIN"):
			c.isin = i
		case strings.Contains(h, "Producto"):
			c.product = i
		case strings.Contains(h, "Número") || strings.Contains(h, "Cantidad"):
			c.qty = i
		case strings.Contains(h, "Total") && strings.Contains(h, "EUR"):
			c.total = i
		case strings.Contains(h, "Costes") || strings.Contains(h, "Comisión"):
			c.fee = i
		}
	}
	return c
}

func (c tradeColumns) str(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

func (c tradeColumns) num(rec []string, idx int) float64 {
	if idx < 0 {
		return 0
	}
	return normalize.Number(c.str(rec, idx))
}

func (c tradeColumns) date(rec []string) (time.Time, bool) {
	return normalize.Date(c.str(rec, c.dateIdx))
}

// cashColumns maps the cash-account ledger's columns. amount/currency are
// derived two ways (spec.md §6): from the cell immediately following a
// "Variación" column (whose own cell holds the currency code), or from a
// standalone "Importe" column in EUR. amount is -1 when neither is present.
type cashColumns struct {
	dateIdx, isin, product, desc, amount, variacion int
}

func mapCashColumns(header []string) cashColumns {
	c := cashColumns{dateIdx: -1, isin: -1, product: -1, desc: -1, amount: -1, variacion: -1}
	for i, h := range header {
		switch {
		case strings.Contains(h, "Fecha"):
			c.dateIdx = i
		case strings.Contains(h, "ISIN"):
			c.isin = i
		case strings.Contains(h, "Producto"):
			c.product = i
		case strings.Contains(h, "Descripción"):
			c.desc = i
		case h == "Variación":
			c.variacion = i
		case h == "Importe":
			c.amount = i
		}
	}
	if c.amount < 0 && c.variacion >= 0 {
		c.amount = c.variacion + 1
	}
	return c
}

func (c cashColumns) str(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

func (c cashColumns) num(rec []string, idx int) float64 {
	if idx < 0 {
		return 0
	}
	return normalize.Number(c.str(rec, idx))
}

func (c cashColumns) date(rec []string) (time.Time, bool) {
	return normalize.Date(c.str(rec, c.dateIdx))
}

// currency returns the ledger-reported currency: the Variación cell itself
// when that column drove the amount, otherwise EUR (the Importe fallback
// column is always EUR per spec.md §6).
func (c cashColumns) currency(rec []string) string {
	if c.variacion >= 0 && c.amount == c.variacion+1 {
		if cur := c.str(rec, c.variacion); cur != "" {
			return cur
		}
	}
	return "EUR"
}
