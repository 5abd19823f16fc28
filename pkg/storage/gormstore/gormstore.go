// Package gormstore persists the invoice shadow records in PostgreSQL
// through gorm.
package gormstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/denysvitali/wms-backend/pkg/apperr"
	"github.com/denysvitali/wms-backend/pkg/models"
	"github.com/denysvitali/wms-backend/pkg/storage/model"
)

var log = logrus.StandardLogger().WithField("package", "storage/gormstore")

const (
	PgErrForeignKeyViolation = "23503"
	PgErrUniqueViolation     = "23505"
	PgErrNotNullViolation    = "23502"
	PgErrUndefinedTable      = "42P01"
)

var _ model.InvoiceStore = (*Store)(nil)

type Store struct {
	db *gorm.DB
}

// New wraps an already opened connection pool.
func New(conn *sql.DB) (*Store, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open gorm: %w", err)
	}
	return &Store{db: db}, nil
}

// Migrate creates or updates the tables of the local store, including the
// serial number lookup table used by the raw SQL lookup store.
func (s *Store) Migrate() error {
	err := s.db.AutoMigrate(
		&models.SerialLookup{},
		&models.InvoiceDocument{},
		&models.InvoiceLine{},
		&models.InvoiceSerialNumber{},
	)
	if err != nil {
		return mapError(err)
	}
	log.Info("database migration completed")
	return nil
}

func (s *Store) CreateDraft(ctx context.Context, doc *models.InvoiceDocument) error {
	if doc.Status != models.StatusDraft {
		return apperr.New(apperr.PersistenceFailed, "invoice %s is not a draft", doc.ID)
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(doc).Error; err != nil {
		return mapError(err)
	}
	return nil
}

func (s *Store) Finalize(ctx context.Context, doc *models.InvoiceDocument) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.InvoiceDocument{}).
			Where("id = ? AND status = ?", doc.ID, models.StatusDraft).
			Updates(map[string]any{
				"status":         doc.Status,
				"bpl_id":         doc.BPLID,
				"bpl_name":       doc.BPLName,
				"invoice_number": doc.InvoiceNumber,
				"sap_doc_entry":  doc.SAPDocEntry,
				"sap_doc_num":    doc.SAPDocNum,
				"total_amount":   doc.TotalAmount,
				"json_payload":   doc.JSONPayload,
				"sap_response":   doc.SAPResponse,
			})
		if res.Error != nil {
			return mapError(res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFoundf("draft invoice %s not found", doc.ID)
		}

		for i := range doc.Lines {
			line := &doc.Lines[i]
			line.InvoiceID = doc.ID
			if err := tx.Omit(clause.Associations).Create(line).Error; err != nil {
				return mapError(err)
			}
			if len(line.Serials) == 0 {
				continue
			}
			for j := range line.Serials {
				line.Serials[j].InvoiceLineID = line.ID
			}
			if err := tx.Create(&line.Serials).Error; err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

func (s *Store) Get(ctx context.Context, id string) (*models.InvoiceDocument, error) {
	var doc models.InvoiceDocument
	err := s.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_number") }).
		Preload("Lines.Serials", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&doc, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("invoice %s not found", id)
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &doc, nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]models.InvoiceDocument, error) {
	var docs []models.InvoiceDocument
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&docs).Error
	if err != nil {
		return nil, mapError(err)
	}
	return docs, nil
}

func mapError(err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	code, constraint, ok := sqlState(err)
	if !ok {
		return apperr.Persistence(err)
	}
	switch code {
	case PgErrUniqueViolation:
		return apperr.Persistence(fmt.Errorf("duplicate record (%s): %w", constraint, err))
	case PgErrUndefinedTable:
		return apperr.Persistence(fmt.Errorf("missing table, run wms-migrate: %w", err))
	case PgErrForeignKeyViolation, PgErrNotNullViolation:
		return apperr.Persistence(fmt.Errorf("constraint violation %s (%s): %w", code, constraint, err))
	default:
		return apperr.Persistence(fmt.Errorf("database error %s: %w", code, err))
	}
}

// sqlState extracts the SQLSTATE from lib/pq (the driver of the shared pool)
// and pgx errors.
func sqlState(err error) (code string, constraint string, ok bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName, true
	}
	return "", "", false
}
