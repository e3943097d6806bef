// Package server exposes the engine over HTTP: upload a ledger pair, fetch
// a year's report. It follows the teacher's dispatch-map idiom
// (services/backend/server/api.go: map[string]func(*Conn, json.RawMessage)
// (interface{}, error)) for the JSON-body endpoint, and a plain REST
// handler for the binary report download.
package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lostcitizen/gestor-fiscal-degiro/internal/data"
	"github.com/lostcitizen/gestor-fiscal-degiro/internal/ingest"
	"github.com/lostcitizen/gestor-fiscal-degiro/internal/report"
	"github.com/lostcitizen/gestor-fiscal-degiro/internal/taxengine"
)

// Request mirrors the teacher's func/args envelope.
type Request struct {
	Function  string          `json:"func"`
	Arguments json.RawMessage `json:"args"`
}

var dispatch = map[string]func(*data.Conn, json.RawMessage) (interface{}, error){
	"upload": Upload,
}

func addCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}

func handleError(w http.ResponseWriter, log *zap.Logger, err error, stage string) bool {
	if err == nil {
		return false
	}
	log.Warn(stage, zap.Error(err))
	status := http.StatusBadRequest
	if stage == "auth" {
		status = http.StatusUnauthorized
	}
	http.Error(w, fmt.Sprintf("%s: %v", stage, err), status)
	return true
}

// UploadArgs carries the two raw ledger files, base64-encoded in the JSON
// fields tradesCsv and cashCsv, following the teacher's
// privateUploadHandler approach of base64 file content in a JSON body
// rather than a multipart form — simpler for a JSON-only API with no
// browser upload widget to drive.
type UploadArgs struct {
	TradesCSV string `json:"tradesCsv"`
	CashCSV   string `json:"cashCsv"`
}

// UploadResult is returned to the caller after a successful upload: the
// batch ID to use for later report requests, plus the years the engine
// found activity in.
type UploadResult struct {
	BatchID uuid.UUID `json:"batchId"`
	Years   []int     `json:"years"`
}

// Upload decodes, parses, and runs the engine over one ledger pair,
// persists the raw ledgers and caches the computed result, and returns the
// batch ID the caller uses to fetch per-year reports.
func Upload(conn *data.Conn, rawArgs json.RawMessage) (interface{}, error) {
	var args UploadArgs
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return nil, fmt.Errorf("invalid upload args: %w", err)
	}

	tradesCSV, err := base64.StdEncoding.DecodeString(args.TradesCSV)
	if err != nil {
		return nil, fmt.Errorf("decoding tradesCsv: %w", err)
	}
	cashCSV, err := base64.StdEncoding.DecodeString(args.CashCSV)
	if err != nil {
		return nil, fmt.Errorf("decoding cashCsv: %w", err)
	}

	result, err := runEngine(conn, tradesCSV, cashCSV)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	batchID, err := conn.SaveBatch(ctx, tradesCSV, cashCSV)
	if err != nil {
		return nil, fmt.Errorf("saving batch: %w", err)
	}
	if err := conn.CacheResult(ctx, batchID, result); err != nil {
		return nil, fmt.Errorf("caching result: %w", err)
	}

	return UploadResult{BatchID: batchID, Years: result.Global.YearsList}, nil
}

func runEngine(conn *data.Conn, tradesCSV, cashCSV []byte) (taxengine.Result, error) {
	trades, err := ingest.Trades(bytes.NewReader(tradesCSV), conn.Log)
	if err != nil {
		return taxengine.Result{}, fmt.Errorf("parsing trade ledger: %w", err)
	}
	cash, err := ingest.Cash(bytes.NewReader(cashCSV), conn.Log)
	if err != nil {
		return taxengine.Result{}, fmt.Errorf("parsing cash ledger: %w", err)
	}
	return taxengine.Run(trades, cash, time.Now()), nil
}

func uploadHandler(conn *data.Conn) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addCORSHeaders(w)
		if r.Method == http.MethodOptions {
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if handleError(w, conn.Log, validateToken(r.Header.Get("Authorization")), "auth") {
			return
		}

		var req Request
		if handleError(w, conn.Log, json.NewDecoder(r.Body).Decode(&req), "decoding request") {
			return
		}

		fn, ok := dispatch[req.Function]
		if !ok {
			http.Error(w, "unknown function", http.StatusBadRequest)
			return
		}

		result, err := fn(conn, req.Arguments)
		if handleError(w, conn.Log, err, fmt.Sprintf("upload: %s", req.Function)) {
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			http.Error(w, "encoding response", http.StatusInternalServerError)
		}
	}
}

// reportHandler serves GET /api/report/{batchID}/{year} as a ZIP download,
// recomputing from the stored ledger when the cached result has expired.
func reportHandler(conn *data.Conn) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addCORSHeaders(w)
		if r.Method == http.MethodOptions {
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if handleError(w, conn.Log, validateToken(r.Header.Get("Authorization")), "auth") {
			return
		}

		batchID, year, err := parseReportPath(r.URL.Path)
		if handleError(w, conn.Log, err, "parsing path") {
			return
		}

		ctx := context.Background()
		result, ok, err := conn.CachedResult(ctx, batchID)
		if handleError(w, conn.Log, err, "reading cache") {
			return
		}
		if !ok {
			result, err = recomputeFromBatch(ctx, conn, batchID)
			if handleError(w, conn.Log, err, "recomputing result") {
				return
			}
		}

		stats, ok := result.Years[year]
		if !ok {
			http.Error(w, fmt.Sprintf("no data for year %d", year), http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=informe_%d.zip", year))
		if err := report.WriteYearZIP(w, year, stats); err != nil {
			conn.Log.Warn("writing report zip", zap.Error(err))
		}
	}
}

// recomputeFromBatch reruns the engine over a batch's stored ledgers and
// refreshes the cache, for when the cached result has expired (§C.3).
func recomputeFromBatch(ctx context.Context, conn *data.Conn, batchID uuid.UUID) (taxengine.Result, error) {
	batch, err := conn.LoadBatch(ctx, batchID)
	if err != nil {
		return taxengine.Result{}, err
	}
	result, err := runEngine(conn, batch.TradesCSV, batch.CashCSV)
	if err != nil {
		return taxengine.Result{}, err
	}
	if err := conn.CacheResult(ctx, batchID, result); err != nil {
		conn.Log.Warn("refreshing cache", zap.Error(err))
	}
	return result, nil
}

func parseReportPath(path string) (uuid.UUID, int, error) {
	parts := strings.Split(strings.TrimPrefix(path, "/api/report/"), "/")
	if len(parts) != 2 {
		return uuid.Nil, 0, fmt.Errorf("expected /api/report/{batchID}/{year}")
	}
	batchID, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("invalid batch id: %w", err)
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("invalid year: %w", err)
	}
	return batchID, year, nil
}

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy", "service": "gestor-fiscal-degiro"})
	}
}

// StartServer wires the three endpoints and blocks serving on PORT.
func StartServer(conn *data.Conn) error {
	http.HandleFunc("/api/upload", uploadHandler(conn))
	http.HandleFunc("/api/report/", reportHandler(conn))
	http.HandleFunc("/health", healthHandler())

	port := getEnvOrDefault("PORT", "8080")
	conn.Log.Info("starting server", zap.String("port", port))
	return http.ListenAndServe(":"+port, nil)
}
