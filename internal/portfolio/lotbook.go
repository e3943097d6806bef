// Package portfolio implements the per-security lot book: an ordered queue
// of open acquisition lots with FIFO consumption on disposal.
package portfolio

import (
	"time"

	"github.com/lostcitizen/gestor-fiscal-degiro/internal/taxengine"
)

// Book is the FIFO queue of open lots for a single security (ISIN), oldest
// first. The zero value is an empty book.
type Book struct {
	lots []taxengine.Lot
	name string
}

// Name returns the most recently seen product-name string for this book.
func (b *Book) Name() string { return b.name }

// SetName caches the latest product-name string; names may change
// mid-history and the book always reflects the latest one seen.
func (b *Book) SetName(name string) { b.name = name }

// Append enqueues a new lot at the tail of the book.
func (b *Book) Append(quantity, unitCost float64, date time.Time) {
	b.lots = append(b.lots, taxengine.Lot{
		Quantity:        quantity,
		UnitCostEUR:     unitCost,
		AcquisitionDate: date,
	})
}

// Quantity returns the current open position: the sum of remaining
// quantities across all lots.
func (b *Book) Quantity() float64 {
	var q float64
	for _, l := range b.lots {
		q += l.Quantity
	}
	return q
}

// TotalCost returns the sum of remaining_quantity * unit_cost across all
// lots — the cost basis of the currently open position.
func (b *Book) TotalCost() float64 {
	var c float64
	for _, l := range b.lots {
		c += l.Quantity * l.UnitCostEUR
	}
	return c
}

// Empty reports whether the book currently holds no open lots.
func (b *Book) Empty() bool { return len(b.lots) == 0 }

// Consume runs FIFO consumption against quantityToSell. While
// quantityToSell exceeds the depletion epsilon, it takes from the head lot:
// if the head holds more than requested, the head is reduced in place and
// consumption stops; otherwise the head is fully consumed, popped, and the
// remainder carries forward. If the book empties before the request is
// satisfied, insufficient is set true and consumption stops there.
//
// It returns the accumulated cost basis, the insufficient-lots flag, and
// the acquisition date of the oldest lot touched during this call (the
// zero time if no lot was touched, i.e. the book was already empty).
func (b *Book) Consume(quantityToSell float64) (costBasis float64, insufficient bool, oldestTouched time.Time) {
	remaining := quantityToSell
	var haveOldest bool

	for remaining > taxengine.EpsilonLot {
		if len(b.lots) == 0 {
			insufficient = true
			break
		}

		head := &b.lots[0]
		if !haveOldest {
			oldestTouched = head.AcquisitionDate
			haveOldest = true
		}

		if head.Quantity > remaining {
			costBasis += remaining * head.UnitCostEUR
			head.Quantity -= remaining
			remaining = 0
		} else {
			costBasis += head.Quantity * head.UnitCostEUR
			remaining -= head.Quantity
			b.lots = b.lots[1:]
		}
	}

	return costBasis, insufficient, oldestTouched
}

// negligiblePosition is the "essentially closed" threshold below which a
// book is excluded from a year-end snapshot.
const negligiblePosition = 0.001

// Snapshot returns the engine-facing portfolio position for this book, and
// whether the book currently represents an open (non-negligible) position.
func (b *Book) Snapshot(isin string) (taxengine.Position, bool) {
	qty := b.Quantity()
	if qty <= negligiblePosition {
		return taxengine.Position{}, false
	}
	cost := b.TotalCost()
	return taxengine.Position{
		Name:         b.name,
		ISIN:         isin,
		Quantity:     qty,
		AvgUnitCost:  cost / qty,
		TotalCostEUR: cost,
	}, true
}
