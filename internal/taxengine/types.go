// Package taxengine implements the portfolio accounting engine: a
// single-pass, replay-style processor over a chronologically ordered
// sequence of trade and cash events that emits per-fiscal-year tax
// statistics for a Spanish-resident brokerage account.
package taxengine

import "time"

// Floating-point tolerances and thresholds, part of the contract (spec §9).
const (
	// EpsilonLot is the remaining-quantity tolerance below which a lot is
	// considered depleted.
	EpsilonLot = 1e-4
	// EpsilonDividend is the minimum gross amount for a dividend record to
	// be considered non-trivial.
	EpsilonDividend = 1e-2
	// EpsilonFlow is the tolerance used when comparing net quantity flow
	// inside the anti-application window.
	EpsilonFlow = 1e-3
	// DegenerateProceedsEUR is the absolute-proceeds threshold below which
	// an unflagged disposal is treated as a nominal corporate action.
	DegenerateProceedsEUR = 0.1
	// AntiApplicationWindowDays is the half-width, in days, of the
	// two-month anti-application window on each side of a disposal.
	AntiApplicationWindowDays = 62
	// OPACashWindowDays is the half-width, in days, searched in the cash
	// ledger for a takeover/merger cash leg.
	OPACashWindowDays = 10
)

// EventTag classifies a disposal under the corporate-action rules of C3.
type EventTag int

const (
	// TagOrdinary is an ordinary sale: no corporate-action rewriting.
	TagOrdinary EventTag = iota
	// TagRights is a subscription-rights disposal (DERECHOS): cost basis
	// is forced to zero.
	TagRights
	// TagTakeover is a takeover/merger disposal (OPA/FUSIÓN): proceeds may
	// be rewritten from a matching cash-ledger credit.
	TagTakeover
	// TagExchange is a share exchange or split (CANJE/SPLIT), including
	// the degenerate nominal-proceeds case.
	TagExchange
)

// String renders the tag using the Spanish labels the report/UI consume.
func (t EventTag) String() string {
	switch t {
	case TagRights:
		return "DERECHOS"
	case TagTakeover:
		return "OPA/FUSIÓN"
	case TagExchange:
		return "CANJE/SPLIT"
	default:
		return ""
	}
}

// BlockedStatus is the lifecycle state of a blocked (anti-application)
// disposal relative to "now".
type BlockedStatus int

const (
	// BlockStatusNone means the disposal was never blocked.
	BlockStatusNone BlockedStatus = iota
	// BlockStatusActive means the disposal is blocked and the unlock date
	// has not yet passed.
	BlockStatusActive
	// BlockStatusReleased means the disposal was blocked but the unlock
	// date has since passed.
	BlockStatusReleased
)

// TradeEvent is one row of the trade ledger, after normalization.
type TradeEvent struct {
	Date      time.Time // civil day, normalized
	Time      string    // intraday time, used only as a sort tiebreaker
	ISIN      string
	Product   string
	Quantity  float64 // signed: positive = acquisition, negative = disposal
	TotalEUR  float64 // signed total in EUR, sign matches cash direction
	FeeEUR    float64 // sign ignored downstream; absolute value is used
	Index     int     // stable insertion index, assigned after chronological sort
}

// CashEvent is one row of the cash-account ledger, after normalization.
type CashEvent struct {
	Date        time.Time
	ISIN        string // may be empty
	Product     string // may be empty
	Description string
	Amount      float64 // signed EUR (or foreign-currency) amount
	Currency    string
}

// Lot is one undepleted acquisition parcel.
type Lot struct {
	Quantity        float64 // remaining quantity, > EpsilonLot while open
	UnitCostEUR     float64 // full acquisition outflow per share, fees included
	AcquisitionDate time.Time
}

// Disposal is the fiscal result of one sale row.
type Disposal struct {
	Date             time.Time
	Product          string
	ISIN             string
	Quantity         float64 // sold quantity, positive
	ProceedsEUR      float64 // net proceeds, possibly rewritten by C3
	CostBasisEUR     float64
	PnL              float64 // ProceedsEUR - CostBasisEUR
	Warning          bool    // insufficient lots at time of sale
	Note             string  // event description, possibly BLOQ-prefixed
	Tag              EventTag
	Blocked          bool
	BlockedStatus    BlockedStatus
	UnlockDate       *time.Time // present iff Blocked
	WashSaleRisk     bool
	LossConsolidated bool
	SafeRepurchaseDate *time.Time // present for every loss (PnL < 0), blocked or not
}

// Purchase is a reported acquisition row (not part of FIFO state, purely
// for the year's purchase report).
type Purchase struct {
	Date      time.Time
	Product   string
	ISIN      string
	Quantity  float64
	UnitPrice float64
	Total     float64
	FeeEUR    float64
}

// Dividend is one aggregated dividend record: gross credit paired with its
// separately reported withholding.
type Dividend struct {
	Date        time.Time
	Product     string
	ISIN        string
	Currency    string
	GrossEUR    float64
	WithholdEUR float64
	NetEUR      float64 // max(0, GrossEUR - WithholdEUR)
}

// Position is one line of an end-of-year open-position snapshot, valued at
// cost (never at market).
type Position struct {
	Name         string
	ISIN         string
	Quantity     float64
	AvgUnitCost  float64 // TotalCostEUR / Quantity
	TotalCostEUR float64
}

// YearStats is the full set of figures the engine produces for one fiscal
// year.
type YearStats struct {
	Year int

	Disposals []Disposal
	Purchases []Purchase
	Dividends []Dividend
	Portfolio []Position

	PortfolioValueEUR float64 // sum of snapshot TotalCostEUR
	FiscalPnL         float64 // sum of non-blocked disposal P&L
	RealPnL           float64 // sum of all disposal P&L
	TradingFeesEUR    float64
	ConnectivityFeesEUR float64

	Wins        int
	Losses      int
	BlockedLoss float64 // total absolute P&L of blocked disposals
}

// Global aggregates the per-year results across the whole processed
// history, in the shape consumed by the reporting/front-end layer (§6).
type Global struct {
	TotalPnLFiscal   float64
	TotalPnLReal     float64
	TotalDivsNet     float64
	TotalFeesEUR     float64
	YearsList        []int
	ChartPnL         []float64
	ChartDivs        []float64
	ChartFees        []float64
	CurrentPortfolio []Position
	CurrentPortfolioValue float64
}

// Result is the engine's output: per-year stats plus the global rollup.
type Result struct {
	Years  map[int]YearStats
	Global Global
}
