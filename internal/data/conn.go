// Package data provides the Postgres-backed batch store and Redis-backed
// result cache the HTTP front-end uses, following the teacher's
// utils.Conn/InitConn convention (services/backend/utils/conn.go): a
// single struct bundling the long-lived driver handles, built once at
// startup and passed down by reference.
package data

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"
)

// Conn bundles the database and cache handles used by internal/server.
type Conn struct {
	DB    *pgxpool.Pool
	Cache *redis.Client
	Log   *zap.Logger
}

// InitConn connects to Postgres and Redis using the same environment
// variables as the teacher (DB_HOST/DB_PORT/DB_USER/DB_PASSWORD,
// REDIS_HOST/REDIS_PORT/REDIS_PASSWORD), retrying each connection until it
// succeeds or ctx is done, in which case it returns an error. inContainer selects the service-name vs. localhost address
// form, exactly as utils.InitConn does.
func InitConn(ctx context.Context, inContainer bool, log *zap.Logger) (*Conn, func(), error) {
	dbHost := getEnv("DB_HOST", "db")
	dbPort := getEnv("DB_PORT", "5432")
	dbUser := getEnv("DB_USER", "postgres")
	dbPassword := getEnv("DB_PASSWORD", "")

	redisHost := getEnv("REDIS_HOST", "cache")
	redisPort := getEnv("REDIS_PORT", "6379")
	redisPassword := getEnv("REDIS_PASSWORD", "")

	encodedPassword := url.QueryEscape(dbPassword)

	var dbURL, cacheAddr string
	if inContainer {
		dbURL = fmt.Sprintf("postgres://%s:%s@%s:%s", dbUser, encodedPassword, dbHost, dbPort)
		cacheAddr = fmt.Sprintf("%s:%s", redisHost, redisPort)
	} else {
		dbURL = fmt.Sprintf("postgres://%s:%s@localhost:%s", dbUser, encodedPassword, dbPort)
		cacheAddr = fmt.Sprintf("localhost:%s", redisPort)
	}

	var dbConn *pgxpool.Pool
	var err error
	for {
		dbConn, err = pgxpool.Connect(ctx, dbURL)
		if err != nil {
			log.Warn("waiting for postgres", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil, nil, fmt.Errorf("connecting to postgres: %w", ctx.Err())
			case <-time.After(2 * time.Second):
			}
			continue
		}
		break
	}

	opts := &redis.Options{
		Addr:         cacheAddr,
		PoolSize:     20,
		MinIdleConns: 5,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if redisPassword != "" {
		opts.Password = redisPassword
	}

	var cache *redis.Client
	for {
		cache = redis.NewClient(opts)
		if err := cache.Ping(ctx).Err(); err != nil {
			log.Warn("waiting for redis", zap.Error(err))
			select {
			case <-ctx.Done():
				dbConn.Close()
				return nil, nil, fmt.Errorf("connecting to redis: %w", ctx.Err())
			case <-time.After(2 * time.Second):
			}
			continue
		}
		break
	}

	if err := ensureSchema(ctx, dbConn); err != nil {
		dbConn.Close()
		cache.Close()
		return nil, nil, fmt.Errorf("ensuring schema: %w", err)
	}

	conn := &Conn{DB: dbConn, Cache: cache, Log: log}
	cleanup := func() {
		conn.DB.Close()
		conn.Cache.Close()
	}
	return conn, cleanup, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS ledger_batches (
	id          UUID PRIMARY KEY,
	uploaded_at TIMESTAMPTZ NOT NULL,
	trades_csv  BYTEA NOT NULL,
	cash_csv    BYTEA NOT NULL
);`

func ensureSchema(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, schemaSQL)
	return err
}
