package sqlstore

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denysvitali/wms-backend/pkg/apperr"
	"github.com/denysvitali/wms-backend/pkg/models"
)

var lookupColumns = []string{"id", "serial_number", "item_code", "item_name", "warehouse_code", "warehouse_name", "branch_id", "branch_name", "lookup_status", "sap_response", "last_updated", "created_at"}

func TestLookupStore_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewLookupStore(db)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(lookupColumns).
		AddRow(7, "SN1", "ITM-A", "Widget", "WH1", nil, 3, "North", "validated", `{"ItemCode":"ITM-A"}`, now, now)
	mock.ExpectQuery(regexp.QuoteMeta(selectLookup)).
		WithArgs("SN1").
		WillReturnRows(rows)

	e, err := store.Get(ctx, "SN1")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, uint(7), e.ID)
	assert.Equal(t, "ITM-A", e.ItemCode)
	assert.Equal(t, "", e.WarehouseName)
	assert.Equal(t, 3, e.BranchID)
	assert.Equal(t, models.LookupValidated, e.LookupStatus)
	assert.Equal(t, now, e.LastUpdated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupStore_GetMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(selectLookup)).
		WithArgs("SN404").
		WillReturnRows(sqlmock.NewRows(lookupColumns))

	e, err := NewLookupStore(db).Get(context.Background(), "SN404")
	assert.NoError(t, err)
	assert.Nil(t, e)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupStore_GetError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(selectLookup)).
		WithArgs("SN1").
		WillReturnError(errors.New("connection reset"))

	_, err = NewLookupStore(db).Get(context.Background(), "SN1")
	assert.True(t, errors.Is(err, apperr.PersistenceFailed))
}

func TestLookupStore_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	e := models.NewSerialLookup("SN1", models.ItemAttributes{
		ItemCode: "ITM-A", ItemName: "Widget", WarehouseCode: "WH1", WarehouseName: "Main", BranchID: 3, BranchName: "North",
	}, `{"ItemCode":"ITM-A"}`, now)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO serial_number_lookups")).
		WithArgs("SN1", "ITM-A", "Widget", "WH1", "Main", 3, "North", "validated", `{"ItemCode":"ITM-A"}`, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	require.NoError(t, NewLookupStore(db).Upsert(context.Background(), e))
	assert.Equal(t, uint(11), e.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupStore_UpsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO serial_number_lookups")).
		WillReturnError(errors.New("disk full"))

	err = NewLookupStore(db).Upsert(context.Background(), &models.SerialLookup{SerialNumber: "SN1"})
	assert.True(t, errors.Is(err, apperr.PersistenceFailed))
	assert.Contains(t, err.Error(), "disk full")
}
