package data

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/lostcitizen/gestor-fiscal-degiro/internal/taxengine"
)

// Batch is one uploaded pair of DEGIRO ledgers (trade + cash CSV, raw
// bytes as received) plus the moment they were received.
type Batch struct {
	ID         uuid.UUID
	UploadedAt time.Time
	TradesCSV  []byte
	CashCSV    []byte
}

// SaveBatch inserts a newly uploaded ledger pair and returns its generated
// ID, the identifier the HTTP layer hands back to the caller for later
// report requests (§C.3/§C.4).
func (c *Conn) SaveBatch(ctx context.Context, tradesCSV, cashCSV []byte) (uuid.UUID, error) {
	id := uuid.New()
	_, err := c.DB.Exec(ctx,
		`INSERT INTO ledger_batches (id, uploaded_at, trades_csv, cash_csv) VALUES ($1, $2, $3, $4)`,
		id, time.Now().UTC(), tradesCSV, cashCSV)
	if err != nil {
		return uuid.Nil, fmt.Errorf("saving ledger batch: %w", err)
	}
	return id, nil
}

// LoadBatch fetches a previously uploaded ledger pair by ID.
func (c *Conn) LoadBatch(ctx context.Context, id uuid.UUID) (Batch, error) {
	var b Batch
	b.ID = id
	err := c.DB.QueryRow(ctx,
		`SELECT uploaded_at, trades_csv, cash_csv FROM ledger_batches WHERE id = $1`, id,
	).Scan(&b.UploadedAt, &b.TradesCSV, &b.CashCSV)
	if err != nil {
		return Batch{}, fmt.Errorf("loading ledger batch %s: %w", id, err)
	}
	return b, nil
}

// resultCacheTTL mirrors the scope of the Flask app's process-local
// DB_CACHE dict (degiro_app/app.py): a result lives until the next
// upload/recompute for that batch, but is never allowed to linger forever
// in a shared cache, so a generous TTL bounds it.
const resultCacheTTL = 24 * time.Hour

func resultCacheKey(batchID uuid.UUID) string {
	return fmt.Sprintf("taxengine:result:%s", batchID)
}

// CacheResult stores the engine's {years, global} result for a batch,
// replacing the Flask app's process-local DB_CACHE with the shared Redis one
// (spec.md §5's "surrounding HTTP layer may hold one cached result").
func (c *Conn) CacheResult(ctx context.Context, batchID uuid.UUID, result taxengine.Result) error {
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding cached result: %w", err)
	}
	if err := c.Cache.Set(ctx, resultCacheKey(batchID), encoded, resultCacheTTL).Err(); err != nil {
		return fmt.Errorf("caching result for batch %s: %w", batchID, err)
	}
	return nil
}

// CachedResult returns the last cached result for a batch, and whether one
// was present.
func (c *Conn) CachedResult(ctx context.Context, batchID uuid.UUID) (taxengine.Result, bool, error) {
	raw, err := c.Cache.Get(ctx, resultCacheKey(batchID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return taxengine.Result{}, false, nil
		}
		return taxengine.Result{}, false, fmt.Errorf("reading cached result for batch %s: %w", batchID, err)
	}

	var result taxengine.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return taxengine.Result{}, false, fmt.Errorf("decoding cached result: %w", err)
	}
	return result, true, nil
}
