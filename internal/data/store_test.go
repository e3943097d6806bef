package data

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lostcitizen/gestor-fiscal-degiro/internal/taxengine"
)

func TestBatchSaveAndLoadRoundTrip(t *testing.T) {
	conn, cleanup := InitTestConn(t)
	defer cleanup()

	ctx := context.Background()
	trades := []byte("Fecha,ISIN,Producto,Número,Total en EUR\n05-01-2023,ES0000000000,ACME,10,-100\n")
	cash := []byte("Fecha,Producto,ISIN,Descripción,Importe\n01-06-2023,ACME,ES0000000000,Dividendo,100\n")

	id, err := conn.SaveBatch(ctx, trades, cash)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	loaded, err := conn.LoadBatch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, loaded.ID)
	assert.Equal(t, trades, loaded.TradesCSV)
	assert.Equal(t, cash, loaded.CashCSV)
	assert.WithinDuration(t, time.Now().UTC(), loaded.UploadedAt, time.Minute)
}

func TestLoadBatch_UnknownIDErrors(t *testing.T) {
	conn, cleanup := InitTestConn(t)
	defer cleanup()

	_, err := conn.LoadBatch(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestCacheResultRoundTrip(t *testing.T) {
	conn, cleanup := InitTestConn(t)
	defer cleanup()

	ctx := context.Background()
	batchID, err := conn.SaveBatch(ctx, []byte("trades"), []byte("cash"))
	require.NoError(t, err)

	result := taxengine.Result{
		Years: map[int]taxengine.YearStats{
			2023: {Year: 2023, FiscalPnL: 10, RealPnL: 10},
		},
		Global: taxengine.Global{
			TotalPnLFiscal: 10,
			YearsList:      []int{2023},
		},
	}

	require.NoError(t, conn.CacheResult(ctx, batchID, result))

	cached, ok, err := conn.CachedResult(ctx, batchID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 10, cached.Global.TotalPnLFiscal, 1e-9)
	assert.Equal(t, []int{2023}, cached.Global.YearsList)
	assert.InDelta(t, 10, cached.Years[2023].FiscalPnL, 1e-9)
}

func TestCachedResult_MissingKeyReturnsNotOK(t *testing.T) {
	conn, cleanup := InitTestConn(t)
	defer cleanup()

	_, ok, err := conn.CachedResult(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}
