// Package memory provides in-process stores, used for tests and for running
// the backend without a database.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/denysvitali/wms-backend/pkg/apperr"
	"github.com/denysvitali/wms-backend/pkg/models"
	"github.com/denysvitali/wms-backend/pkg/storage/model"
)

var _ model.LookupStore = (*LookupStore)(nil)
var _ model.InvoiceStore = (*InvoiceStore)(nil)

type LookupStore struct {
	mutex   sync.RWMutex
	entries map[string]models.SerialLookup
}

func NewLookupStore() *LookupStore {
	return &LookupStore{entries: map[string]models.SerialLookup{}}
}

func (s *LookupStore) Get(_ context.Context, serial string) (*models.SerialLookup, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	e, ok := s.entries[serial]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *LookupStore) Upsert(_ context.Context, entry *models.SerialLookup) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if old, ok := s.entries[entry.SerialNumber]; ok {
		entry.ID = old.ID
		entry.CreatedAt = old.CreatedAt
	} else {
		entry.ID = uint(len(s.entries) + 1)
		entry.CreatedAt = entry.LastUpdated
	}
	s.entries[entry.SerialNumber] = *entry
	return nil
}

type InvoiceStore struct {
	mutex    sync.RWMutex
	invoices map[string]models.InvoiceDocument
	order    []string
	nextID   uint
}

func NewInvoiceStore() *InvoiceStore {
	return &InvoiceStore{invoices: map[string]models.InvoiceDocument{}}
}

func (s *InvoiceStore) CreateDraft(_ context.Context, doc *models.InvoiceDocument) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.invoices[doc.ID]; ok {
		return apperr.Persistence(&duplicateKeyError{id: doc.ID})
	}
	s.invoices[doc.ID] = copyDocument(*doc)
	s.order = append(s.order, doc.ID)
	return nil
}

func (s *InvoiceStore) Finalize(_ context.Context, doc *models.InvoiceDocument) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if prev, ok := s.invoices[doc.ID]; !ok || prev.Status != models.StatusDraft {
		return apperr.NotFoundf("draft invoice %s not found", doc.ID)
	}
	for i := range doc.Lines {
		s.nextID++
		doc.Lines[i].ID = s.nextID
		doc.Lines[i].InvoiceID = doc.ID
		for j := range doc.Lines[i].Serials {
			s.nextID++
			doc.Lines[i].Serials[j].ID = s.nextID
			doc.Lines[i].Serials[j].InvoiceLineID = doc.Lines[i].ID
		}
	}
	s.invoices[doc.ID] = copyDocument(*doc)
	return nil
}

func (s *InvoiceStore) Get(_ context.Context, id string) (*models.InvoiceDocument, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	doc, ok := s.invoices[id]
	if !ok {
		return nil, apperr.NotFoundf("invoice %s not found", id)
	}
	c := copyDocument(doc)
	return &c, nil
}

// ListByUser returns the user's invoices, newest first, without lines.
func (s *InvoiceStore) ListByUser(_ context.Context, userID string) ([]models.InvoiceDocument, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	docs := []models.InvoiceDocument{}
	for i := len(s.order) - 1; i >= 0; i-- {
		doc := s.invoices[s.order[i]]
		if doc.UserID != userID {
			continue
		}
		doc.Lines = nil
		docs = append(docs, doc)
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	return docs, nil
}

func copyDocument(doc models.InvoiceDocument) models.InvoiceDocument {
	lines := make([]models.InvoiceLine, len(doc.Lines))
	for i, l := range doc.Lines {
		l.Serials = append([]models.InvoiceSerialNumber(nil), l.Serials...)
		lines[i] = l
	}
	if doc.Lines != nil {
		doc.Lines = lines
	}
	return doc
}

type duplicateKeyError struct {
	id string
}

func (e *duplicateKeyError) Error() string {
	return "duplicate invoice id " + e.id
}
