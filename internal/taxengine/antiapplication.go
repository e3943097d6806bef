package taxengine

import "time"

// antiApplicationResult carries C4's full per-disposal tax-status decision.
type antiApplicationResult struct {
	blocked          bool
	blockedStatus    BlockedStatus
	unlockDate       *time.Time
	washSaleRisk     bool
	lossConsolidated bool
	safeDate         *time.Time
}

// classifyAntiApplication implements C4, the Spanish "regla
// anti-aplicación": it decides whether a realized loss is tax-blocked
// because the same security was (re)acquired within two months of the
// disposal, and reports the disposal's lifecycle state relative to now.
//
// sameISIN is every trade row for the disposal's ISIN (any order); index is
// the disposal's own stable insertion index; oldestConsumedDate is the
// acquisition date of the oldest lot FIFO touched while satisfying this
// disposal (its zero value means FIFO never touched a lot, i.e. the book
// was already empty).
func classifyAntiApplication(sameISIN []TradeEvent, index int, pnl float64, date time.Time, oldestConsumedDate time.Time, now time.Time) antiApplicationResult {
	if pnl >= 0 {
		return antiApplicationResult{}
	}

	windowStart := date.AddDate(0, 0, -AntiApplicationWindowDays)
	windowEnd := date.AddDate(0, 0, AntiApplicationWindowDays)

	blocked := isBlocked(sameISIN, index, windowStart, windowEnd, oldestConsumedDate)

	safeDate := date.AddDate(0, 0, AntiApplicationWindowDays)

	result := antiApplicationResult{
		blocked:  blocked,
		safeDate: &safeDate,
	}

	if blocked {
		result.unlockDate = &safeDate
		if now.Before(safeDate) {
			result.blockedStatus = BlockStatusActive
		} else {
			result.blockedStatus = BlockStatusReleased
		}
		return result
	}

	result.blockedStatus = BlockStatusNone
	if now.Before(safeDate) {
		result.washSaleRisk = true
	} else {
		result.lossConsolidated = true
	}
	return result
}

// isBlocked evaluates the three blocking conditions of spec.md §4.4 over
// the trade rows of the same ISIN that fall within the window.
func isBlocked(sameISIN []TradeEvent, index int, windowStart, windowEnd time.Time, oldestConsumedDate time.Time) bool {
	var windowRows []TradeEvent
	for _, e := range sameISIN {
		if !e.Date.Before(windowStart) && !e.Date.After(windowEnd) {
			windowRows = append(windowRows, e)
		}
	}
	if len(windowRows) == 0 {
		return false
	}

	// (a) acquisition strictly after the disposal, still within window.
	for _, e := range windowRows {
		if e.Quantity > 0 && e.Index > index {
			return true
		}
	}

	// (b) FIFO sold pre-window shares, and an in-window acquisition at or
	// before the disposal's index exists (replacement shares kept).
	if !oldestConsumedDate.IsZero() && oldestConsumedDate.Before(windowStart) {
		for _, e := range windowRows {
			if e.Quantity > 0 && e.Index <= index {
				return true
			}
		}
	}

	// (c) net quantity flow in the window up to and including the
	// disposal is strictly positive.
	var acquired, disposed float64
	for _, e := range windowRows {
		if e.Index > index {
			continue
		}
		if e.Quantity > 0 {
			acquired += e.Quantity
		} else {
			disposed += -e.Quantity
		}
	}
	if acquired-disposed > EpsilonFlow {
		return true
	}

	return false
}
