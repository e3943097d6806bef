package taxengine

import (
	"sort"
	"strings"
	"time"
)

// dividendKey groups cash rows that jointly describe one dividend payment:
// the gross credit and its separately reported withholding, reported on
// the same date for the same security and currency.
type dividendKey struct {
	year     int
	date     string // civil-day string; keeps the key comparable and stable
	isin     string
	product  string
	currency string
}

type dividendAccumulator struct {
	date  time.Time
	isin  string
	gross float64
	wht   float64
}

// aggregateDividends implements C5: it pairs gross dividend credits with
// their separately reported withholdings into one record per (year, date,
// ISIN, product, currency), and accumulates each year's connectivity fees
// from the same cash stream.
func aggregateDividends(cash []CashEvent, getYear func(int) *YearStats) {
	raw := map[dividendKey]*dividendAccumulator{}

	for _, c := range cash {
		desc := c.Description
		lower := strings.ToLower(desc)

		if strings.Contains(lower, "conectividad") {
			getYear(c.Date.Year()).ConnectivityFeesEUR += absF(c.Amount)
			continue
		}

		isDividendLine := strings.Contains(desc, "Dividendo") ||
			(strings.Contains(desc, "Retención") && strings.Contains(lower, "dividendo"))
		if !isDividendLine {
			continue
		}

		key := dividendKey{
			year:     c.Date.Year(),
			date:     c.Date.Format("2006-01-02"),
			isin:     c.ISIN,
			product:  c.Product,
			currency: c.Currency,
		}
		acc, ok := raw[key]
		if !ok {
			acc = &dividendAccumulator{date: c.Date, isin: c.ISIN}
			raw[key] = acc
		}

		if strings.Contains(desc, "Retención") {
			acc.wht += absF(c.Amount)
		} else {
			acc.gross += c.Amount
		}
	}

	keys := make([]dividendKey, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.date != b.date {
			return a.date < b.date
		}
		if a.isin != b.isin {
			return a.isin < b.isin
		}
		if a.product != b.product {
			return a.product < b.product
		}
		return a.currency < b.currency
	})

	for _, key := range keys {
		acc := raw[key]
		if acc.gross <= EpsilonDividend {
			continue
		}
		net := acc.gross - acc.wht
		if net < 0 {
			net = 0
		}
		stats := getYear(key.year)
		stats.Dividends = append(stats.Dividends, Dividend{
			Date:        acc.date,
			Product:     key.product,
			ISIN:        acc.isin,
			Currency:    key.currency,
			GrossEUR:    acc.gross,
			WithholdEUR: acc.wht,
			NetEUR:      net,
		})
	}
}
