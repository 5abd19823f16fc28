package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denysvitali/wms-backend/pkg/apperr"
	"github.com/denysvitali/wms-backend/pkg/models"
	"github.com/denysvitali/wms-backend/pkg/storage/memory"
)

func TestLookupStoreUpsert(t *testing.T) {
	ctx := context.Background()
	s := memory.NewLookupStore()

	e, err := s.Get(ctx, "SN1")
	require.NoError(t, err)
	assert.Nil(t, e)

	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.Upsert(ctx, models.NewSerialLookup("SN1", models.ItemAttributes{ItemCode: "ITM-A", WarehouseCode: "WH1"}, "{}", t0)))
	require.NoError(t, s.Upsert(ctx, models.NewSerialLookup("SN1", models.ItemAttributes{ItemCode: "ITM-A", WarehouseCode: "WH2"}, "{}", t0.Add(time.Hour))))

	e, err = s.Get(ctx, "SN1")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "WH2", e.WarehouseCode)
	assert.Equal(t, t0, e.CreatedAt)
	assert.Equal(t, uint(1), e.ID)
}

func TestInvoiceStore(t *testing.T) {
	ctx := context.Background()
	s := memory.NewInvoiceStore()

	doc := &models.InvoiceDocument{ID: "inv-1", UserID: "u1", CustomerCode: "C001", Status: models.StatusDraft}
	require.NoError(t, s.CreateDraft(ctx, doc))
	assert.True(t, errors.Is(s.CreateDraft(ctx, doc), apperr.PersistenceFailed))
	require.NoError(t, s.CreateDraft(ctx, &models.InvoiceDocument{ID: "inv-2", UserID: "u2", Status: models.StatusDraft}))

	doc.Status = models.StatusCreated
	doc.Lines = []models.InvoiceLine{{
		LineNumber: 0, ItemCode: "ITM-A", Quantity: 1, WarehouseCode: "WH1",
		Serials: []models.InvoiceSerialNumber{{SerialNumber: "SN1", ItemCode: "ITM-A", WarehouseCode: "WH1", Quantity: 1}},
	}}
	require.NoError(t, s.Finalize(ctx, doc))

	got, err := s.Get(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCreated, got.Status)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, got.Lines[0].ID, got.Lines[0].Serials[0].InvoiceLineID)

	// mutating the returned copy doesn't affect the store
	got.Lines[0].Serials[0].SerialNumber = "changed"
	again, _ := s.Get(ctx, "inv-1")
	assert.Equal(t, "SN1", again.Lines[0].Serials[0].SerialNumber)

	list, err := s.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Lines)

	_, err = s.Get(ctx, "missing")
	assert.True(t, errors.Is(err, apperr.NotFound))
	assert.True(t, errors.Is(s.Finalize(ctx, &models.InvoiceDocument{ID: "missing"}), apperr.NotFound))
	// terminal records can't be finalized twice
	assert.True(t, errors.Is(s.Finalize(ctx, doc), apperr.NotFound))
}
