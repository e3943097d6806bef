package taxengine

import (
	"sort"
	"time"

	"github.com/lostcitizen/gestor-fiscal-degiro/internal/portfolio"
)

// Run is the engine's entry point: it drives a trade stream and a cash
// stream to a per-year result (C7, dispatching into C1-C6). now is
// injected so the anti-application classifier's active/released and
// risk/consolidated decision is hermetic and deterministic in tests — it
// is the only place "wall clock" enters the core.
//
// The engine is single-threaded, synchronous, and purely functional: given
// the same normalized inputs and the same now, it produces byte-identical
// output. It owns no state beyond the call.
func Run(trades []TradeEvent, cash []CashEvent, now time.Time) Result {
	sorted := sortTrades(trades)

	books := map[string]*portfolio.Book{}
	byISIN := groupByISIN(sorted)
	years := newYearBook()

	var previousYear int
	var haveYear bool
	var lastYear int

	for _, row := range sorted {
		rowYear := row.Date.Year()

		if haveYear && rowYear > previousYear {
			for y := previousYear; y < rowYear; y++ {
				snapshotPortfolio(books, years.get(y))
			}
		}
		previousYear = rowYear
		haveYear = true
		lastYear = rowYear

		processTradeRow(row, books, byISIN[row.ISIN], cash, years, now)
	}

	if haveYear {
		snapshotPortfolio(books, years.get(lastYear))
	}

	aggregateDividends(cash, years.get)

	return buildResult(years, lastYear, haveYear)
}

// sortTrades returns trade rows ordered by (date, time) ascending and
// assigns each a stable insertion index, per spec.md §4.7 step 1. The
// input's own Index field (if any) is ignored and recomputed.
func sortTrades(trades []TradeEvent) []TradeEvent {
	sorted := make([]TradeEvent, len(trades))
	copy(sorted, trades)

	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].Time < sorted[j].Time
	})

	for i := range sorted {
		sorted[i].Index = i
	}
	return sorted
}

// groupByISIN pre-groups trade rows by ISIN so the anti-application
// classifier's window search stays O(rows-in-ISIN) rather than O(total
// rows) per disposal (spec.md §5).
func groupByISIN(trades []TradeEvent) map[string][]TradeEvent {
	grouped := map[string][]TradeEvent{}
	for _, t := range trades {
		grouped[t.ISIN] = append(grouped[t.ISIN], t)
	}
	return grouped
}

func processTradeRow(row TradeEvent, books map[string]*portfolio.Book, sameISIN []TradeEvent, cash []CashEvent, years *yearBook, now time.Time) {
	if row.ISIN == "" || row.Quantity == 0 {
		return
	}

	stats := years.get(row.Date.Year())

	book, ok := books[row.ISIN]
	if !ok {
		book = &portfolio.Book{}
		books[row.ISIN] = book
	}
	book.SetName(row.Product)

	if row.Quantity > 0 {
		handleBuy(stats, book, row)
	} else {
		handleSell(stats, book, row, sameISIN, cash, now)
	}

	stats.TradingFeesEUR += absF(row.FeeEUR)
}

func handleBuy(stats *YearStats, book *portfolio.Book, row TradeEvent) {
	cost := absF(row.TotalEUR)
	unitCost := 0.0
	if row.Quantity > 0 {
		unitCost = cost / row.Quantity
	}

	book.Append(row.Quantity, unitCost, row.Date)

	stats.Purchases = append(stats.Purchases, Purchase{
		Date:      row.Date,
		Product:   row.Product,
		ISIN:      row.ISIN,
		Quantity:  row.Quantity,
		UnitPrice: unitCost,
		Total:     cost,
		FeeEUR:    absF(row.FeeEUR),
	})
}

func handleSell(stats *YearStats, book *portfolio.Book, row TradeEvent, sameISIN []TradeEvent, cash []CashEvent, now time.Time) {
	qtySold := absF(row.Quantity)

	tag, proceeds := classifyCorporateAction(row.Product, row.ISIN, row.Date, row.TotalEUR, cash)

	costBasis, insufficient, oldestConsumed := book.Consume(qtySold)

	if tag == TagRights {
		costBasis = 0
		insufficient = false
	}

	pnl := proceeds - costBasis

	status := classifyAntiApplication(sameISIN, row.Index, pnl, row.Date, oldestConsumed, now)

	note := tag.String()
	if status.blocked {
		note = ("⚠️ BLOQ (2 Meses) " + note)
		stats.BlockedLoss += absF(pnl)
	}

	if pnl > 0 {
		stats.Wins++
	} else if pnl < 0 {
		stats.Losses++
	}

	stats.Disposals = append(stats.Disposals, Disposal{
		Date:               row.Date,
		Product:            row.Product,
		ISIN:               row.ISIN,
		Quantity:           qtySold,
		ProceedsEUR:        proceeds,
		CostBasisEUR:       costBasis,
		PnL:                pnl,
		Warning:            insufficient,
		Note:               note,
		Tag:                tag,
		Blocked:            status.blocked,
		BlockedStatus:      status.blockedStatus,
		UnlockDate:         status.unlockDate,
		WashSaleRisk:       status.washSaleRisk,
		LossConsolidated:   status.lossConsolidated,
		SafeRepurchaseDate: status.safeDate,
	})

	stats.RealPnL += pnl
	if !status.blocked {
		stats.FiscalPnL += pnl
	}
}

func snapshotPortfolio(books map[string]*portfolio.Book, stats *YearStats) {
	isins := make([]string, 0, len(books))
	for isin := range books {
		isins = append(isins, isin)
	}
	sort.Strings(isins)

	var portValue float64
	for _, isin := range isins {
		pos, ok := books[isin].Snapshot(isin)
		if !ok {
			continue
		}
		portValue += pos.TotalCostEUR
		stats.Portfolio = append(stats.Portfolio, pos)
	}
	stats.PortfolioValueEUR = portValue
}

func buildResult(years *yearBook, lastYear int, haveAnyYear bool) Result {
	allYears := make([]int, 0, len(years.years))
	for y := range years.years {
		allYears = append(allYears, y)
	}
	sort.Ints(allYears)

	result := Result{Years: map[int]YearStats{}}

	for _, y := range allYears {
		stats := years.years[y]

		hasActivity := len(stats.Disposals) > 0 || len(stats.Purchases) > 0 ||
			len(stats.Dividends) > 0 || len(stats.Portfolio) > 0 ||
			stats.ConnectivityFeesEUR > 0

		if !hasActivity && !(haveAnyYear && y == lastYear) {
			continue
		}

		result.Years[y] = *stats

		divsNet := 0.0
		for _, d := range stats.Dividends {
			divsNet += d.NetEUR
		}
		totalFees := stats.TradingFeesEUR + stats.ConnectivityFeesEUR

		result.Global.TotalPnLFiscal += stats.FiscalPnL
		result.Global.TotalPnLReal += stats.RealPnL
		result.Global.TotalDivsNet += divsNet
		result.Global.TotalFeesEUR += totalFees

		result.Global.YearsList = append(result.Global.YearsList, y)
		result.Global.ChartPnL = append(result.Global.ChartPnL, round2(stats.FiscalPnL))
		result.Global.ChartDivs = append(result.Global.ChartDivs, round2(divsNet))
		result.Global.ChartFees = append(result.Global.ChartFees, round2(totalFees))
	}

	if n := len(result.Global.YearsList); n > 0 {
		last := result.Global.YearsList[n-1]
		lastStats := result.Years[last]
		result.Global.CurrentPortfolio = lastStats.Portfolio
		result.Global.CurrentPortfolioValue = lastStats.PortfolioValueEUR
	}

	return result
}

func round2(v float64) float64 {
	const p = 100
	if v < 0 {
		return -round2(-v)
	}
	return float64(int64(v*p+0.5)) / p
}
