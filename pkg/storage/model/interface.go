package model

import (
	"context"

	"github.com/denysvitali/wms-backend/pkg/models"
)

// LookupStore keeps the last known SAP answer per serial number.
type LookupStore interface {
	// Get returns nil, nil if the serial number was never looked up.
	Get(ctx context.Context, serial string) (*models.SerialLookup, error)
	// Upsert inserts or replaces the entry for entry.SerialNumber.
	Upsert(ctx context.Context, entry *models.SerialLookup) error
}

// InvoiceStore persists the local shadow copy of submitted invoices.
type InvoiceStore interface {
	CreateDraft(ctx context.Context, doc *models.InvoiceDocument) error
	// Finalize stores the terminal state of doc together with its lines and
	// serial numbers. Either everything is written or nothing is.
	Finalize(ctx context.Context, doc *models.InvoiceDocument) error
	Get(ctx context.Context, id string) (*models.InvoiceDocument, error)
	ListByUser(ctx context.Context, userID string) ([]models.InvoiceDocument, error)
}
