package data

import (
	"context"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
)

// InitTestConn connects to a real Postgres/Redis instance for integration
// tests, following the shape of the teacher's InitTestConn
// (internal/data/test_conn.go) but without its dev-database-template-copy
// machinery: this module ships no bootstrap script, so tests run against
// Postgres and Redis on localhost (InitConn's non-container form, which
// reads DB_PORT/REDIS_PORT and the credentials from the environment but
// not DB_HOST/REDIS_HOST) and skip outright when TAXENGINE_TEST_DB isn't
// set.
func InitTestConn(t *testing.T) (*Conn, func()) {
	t.Helper()
	if os.Getenv("TAXENGINE_TEST_DB") == "" {
		t.Skip("TAXENGINE_TEST_DB not set; skipping integration test against real Postgres/Redis")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, cleanup, err := InitConn(ctx, false, zap.NewNop())
	if err != nil {
		t.Fatalf("connecting to test postgres/redis: %v", err)
	}
	return conn, cleanup
}
