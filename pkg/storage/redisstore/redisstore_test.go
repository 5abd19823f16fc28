package redisstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denysvitali/wms-backend/pkg/models"
)

// Requires a running Redis, set REDIS_ADDR to enable.
func getStore(t *testing.T) *LookupStore {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	store := New(addr, os.Getenv("REDIS_PASSWORD"), 0)
	if err := store.Ping(context.Background()); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestLookupStore(t *testing.T) {
	store := getStore(t)
	ctx := context.Background()
	serial := "TEST-" + time.Now().Format("150405.000000")
	t.Cleanup(func() { store.client.Del(ctx, key(serial)) })

	e, err := store.Get(ctx, serial)
	require.NoError(t, err)
	assert.Nil(t, e)

	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	attrs := models.ItemAttributes{ItemCode: "ITM-A", WarehouseCode: "WH1", BranchID: 1}
	require.NoError(t, store.Upsert(ctx, models.NewSerialLookup(serial, attrs, "{}", t0)))

	t1 := t0.Add(2 * time.Hour)
	attrs.WarehouseCode = "WH2"
	require.NoError(t, store.Upsert(ctx, models.NewSerialLookup(serial, attrs, "{}", t1)))

	e, err = store.Get(ctx, serial)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "WH2", e.WarehouseCode)
	assert.True(t, t1.Equal(e.LastUpdated))
	assert.True(t, t0.Equal(e.CreatedAt))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "wms:serial:SN1", key("SN1"))
}
