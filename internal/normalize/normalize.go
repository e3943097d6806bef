// Package normalize parses the locale-mixed numeric strings and day-first
// dates found in DEGIRO's exported CSV ledgers.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var notNumericChars = regexp.MustCompile(`[^0-9,.\-]`)

// Number parses a free-form string into a EUR (or ledger-currency) real,
// tolerating mixed thousands/decimal conventions and stray currency
// symbols. Empty or unparsable input yields 0.0, never an error — this
// mirrors the ledger's own tolerance for blank and malformed cells.
func Number(raw string) float64 {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, `"`, "")
	if s == "" {
		return 0
	}

	s = notNumericChars.ReplaceAllString(s, "")
	if s == "" {
		return 0
	}

	hasDot := strings.Contains(s, ".")
	hasComma := strings.Contains(s, ",")

	switch {
	case hasDot && hasComma:
		// The last-occurring separator is the decimal point; the other is
		// a thousands separator and is discarded.
		lastDot := strings.LastIndex(s, ".")
		lastComma := strings.LastIndex(s, ",")
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		s = strings.Replace(s, ",", ".", 1)
	case hasDot:
		dotCount := strings.Count(s, ".")
		lastDot := strings.LastIndex(s, ".")
		digitsAfter := len(s) - lastDot - 1
		if dotCount > 1 || digitsAfter == 3 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

var dateLayouts = []string{"02-01-2006", "02/01/2006"}

// Date parses a day-first date string, trying %d-%m-%Y then %d/%m/%Y. It
// returns the zero time and ok=false when the string matches neither
// layout — the caller drops the row.
func Date(raw string) (t time.Time, ok bool) {
	s := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
