package taxengine

import (
	"strings"
	"time"
)

// classifyCorporateAction implements C3: it tags a disposal row as
// ordinary/RIGHTS/TAKEOVER/EXCHANGE and, for a takeover, rewrites proceeds
// from a matching cash-ledger credit. Rules are evaluated in order and the
// first match wins; matching on the product name is case-insensitive.
func classifyCorporateAction(product string, isin string, date time.Time, proceeds float64, cash []CashEvent) (EventTag, float64) {
	upper := strings.ToUpper(product)

	switch {
	case strings.Contains(upper, "RTS") || strings.Contains(upper, "DERECHO"):
		return TagRights, proceeds

	case strings.Contains(upper, "OPA") || strings.Contains(upper, "FUSION"):
		if found := findOPACash(cash, isin, date); found != 0 {
			return TagTakeover, found
		}
		return TagTakeover, proceeds

	case strings.Contains(upper, "CANJE") || strings.Contains(upper, "SPLIT"):
		return TagExchange, proceeds

	case absF(proceeds) < DegenerateProceedsEUR:
		return TagExchange, proceeds

	default:
		return TagOrdinary, proceeds
	}
}

// findOPACash sums cash-ledger credits (amount > 0) for the same ISIN
// within ±OPACashWindowDays of the trade date, used to discover the real
// cash leg of a takeover/merger reported as a disposal with zero or
// nominal proceeds. It returns 0 when no matching credit is found.
func findOPACash(cash []CashEvent, isin string, date time.Time) float64 {
	start := date.AddDate(0, 0, -OPACashWindowDays)
	end := date.AddDate(0, 0, OPACashWindowDays)

	var sum float64
	var found bool
	for _, c := range cash {
		if c.ISIN != isin {
			continue
		}
		if c.Amount <= 0 {
			continue
		}
		if c.Date.Before(start) || c.Date.After(end) {
			continue
		}
		sum += c.Amount
		found = true
	}
	if !found {
		return 0
	}
	return sum
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
