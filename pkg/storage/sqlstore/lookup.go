// Package sqlstore implements the serial number lookup store on plain
// database/sql, against PostgreSQL through lib/pq.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/denysvitali/wms-backend/pkg/apperr"
	"github.com/denysvitali/wms-backend/pkg/models"
	"github.com/denysvitali/wms-backend/pkg/storage/model"
)

var log = logrus.StandardLogger().WithField("package", "storage/sqlstore")

var _ model.LookupStore = (*LookupStore)(nil)

const selectLookup = `SELECT id, serial_number, item_code, item_name, warehouse_code, warehouse_name, branch_id, branch_name, lookup_status, sap_response, last_updated, created_at FROM serial_number_lookups WHERE serial_number = $1`

const upsertLookup = `
		INSERT INTO serial_number_lookups (serial_number, item_code, item_name, warehouse_code, warehouse_name, branch_id, branch_name, lookup_status, sap_response, last_updated, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (serial_number) DO UPDATE SET
			item_code = EXCLUDED.item_code,
			item_name = EXCLUDED.item_name,
			warehouse_code = EXCLUDED.warehouse_code,
			warehouse_name = EXCLUDED.warehouse_name,
			branch_id = EXCLUDED.branch_id,
			branch_name = EXCLUDED.branch_name,
			lookup_status = EXCLUDED.lookup_status,
			sap_response = EXCLUDED.sap_response,
			last_updated = EXCLUDED.last_updated
		RETURNING id`

type LookupStore struct {
	db *sql.DB
}

// Open connects to PostgreSQL. The returned pool can be shared with the gorm
// store.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return db, nil
}

func NewLookupStore(db *sql.DB) *LookupStore {
	return &LookupStore{db: db}
}

func (s *LookupStore) Get(ctx context.Context, serial string) (*models.SerialLookup, error) {
	row := s.db.QueryRowContext(ctx, selectLookup, serial)

	var e models.SerialLookup
	var itemName, whsName, branchName, response sql.NullString
	var branchID sql.NullInt64
	err := row.Scan(&e.ID, &e.SerialNumber, &e.ItemCode, &itemName, &e.WarehouseCode, &whsName,
		&branchID, &branchName, &e.LookupStatus, &response, &e.LastUpdated, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence(fmt.Errorf("failed to get serial lookup: %w", err))
	}
	e.ItemName = itemName.String
	e.WarehouseName = whsName.String
	e.BranchID = int(branchID.Int64)
	e.BranchName = branchName.String
	e.SAPResponse = response.String
	return &e, nil
}

func (s *LookupStore) Upsert(ctx context.Context, e *models.SerialLookup) error {
	err := s.db.QueryRowContext(ctx, upsertLookup,
		e.SerialNumber, e.ItemCode, e.ItemName, e.WarehouseCode, e.WarehouseName,
		e.BranchID, e.BranchName, string(e.LookupStatus), e.SAPResponse, e.LastUpdated,
	).Scan(&e.ID)
	if err != nil {
		return apperr.Persistence(fmt.Errorf("failed to persist serial lookup: %w", err))
	}
	log.Debugf("stored lookup for %s (id %d)", e.SerialNumber, e.ID)
	return nil
}
