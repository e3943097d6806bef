// Command taxengine runs the accounting engine over a local pair of
// DEGIRO ledger exports and writes one ZIP report per fiscal year to disk,
// the standalone equivalent of the Flask app's run_all.py loop without the
// HTTP layer (§C.5).
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/lostcitizen/gestor-fiscal-degiro/internal/ingest"
	"github.com/lostcitizen/gestor-fiscal-degiro/internal/report"
	"github.com/lostcitizen/gestor-fiscal-degiro/internal/taxengine"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "taxengine:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: taxengine <trades.csv> <cash.csv> [output-dir]")
	}
	tradesPath, cashPath := args[0], args[1]
	outDir := "informes"
	if len(args) >= 3 {
		outDir = args[2]
	}

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	tradesFile, err := os.Open(tradesPath)
	if err != nil {
		return fmt.Errorf("opening trade ledger: %w", err)
	}
	defer tradesFile.Close()

	cashFile, err := os.Open(cashPath)
	if err != nil {
		return fmt.Errorf("opening cash ledger: %w", err)
	}
	defer cashFile.Close()

	trades, err := ingest.Trades(tradesFile, log)
	if err != nil {
		return fmt.Errorf("parsing trade ledger: %w", err)
	}
	cash, err := ingest.Cash(cashFile, log)
	if err != nil {
		return fmt.Errorf("parsing cash ledger: %w", err)
	}

	result := taxengine.Run(trades, cash, time.Now())

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	for _, year := range result.Global.YearsList {
		stats := result.Years[year]
		zipPath := filepath.Join(outDir, fmt.Sprintf("informe_%d.zip", year))

		f, err := os.Create(zipPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", zipPath, err)
		}
		err = report.WriteYearZIP(f, year, stats)
		closeErr := f.Close()
		if err != nil {
			return fmt.Errorf("writing %s: %w", zipPath, err)
		}
		if closeErr != nil {
			return fmt.Errorf("closing %s: %w", zipPath, closeErr)
		}

		log.Info("wrote year report", zap.Int("year", year), zap.String("path", zipPath))
	}

	log.Info("engine run complete",
		zap.Int("years", len(result.Global.YearsList)),
		zap.Float64("totalPnLFiscal", result.Global.TotalPnLFiscal),
		zap.Float64("totalPnLReal", result.Global.TotalPnLReal),
	)
	return nil
}
