// Command server starts the HTTP front-end: upload a ledger pair, fetch a
// year's ZIP report back. Configuration is environment-variable only (§A).
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/lostcitizen/gestor-fiscal-degiro/internal/data"
	"github.com/lostcitizen/gestor-fiscal-degiro/internal/server"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "server: building logger:", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	conn, cleanup, err := data.InitConn(ctx, os.Getenv("IN_CONTAINER") == "true", log)
	if err != nil {
		log.Fatal("connecting to postgres/redis", zap.Error(err))
	}
	defer cleanup()

	if err := server.StartServer(conn); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}
