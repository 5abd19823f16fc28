// Package invoice turns a list of scanned serial numbers into an A/R invoice
// in SAP and keeps a local record of every attempt.
package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/denysvitali/wms-backend/pkg/apperr"
	"github.com/denysvitali/wms-backend/pkg/lookup"
	"github.com/denysvitali/wms-backend/pkg/models"
	"github.com/denysvitali/wms-backend/pkg/sap"
	"github.com/denysvitali/wms-backend/pkg/storage/model"
)

var log = logrus.StandardLogger().WithField("package", "invoice")

type Resolver interface {
	Resolve(ctx context.Context, serial string) (*lookup.Result, error)
	Refresh(ctx context.Context, serial string) (*lookup.Result, error)
}

type Submitter interface {
	CreateInvoice(ctx context.Context, invoice *sap.Invoice) (*sap.CreatedInvoice, error)
}

// Mirror receives every invoice that reached a terminal state.
type Mirror interface {
	Mirror(ctx context.Context, doc *models.InvoiceDocument) error
}

type Config struct {
	Resolver  Resolver
	Submitter Submitter
	Store     model.InvoiceStore
	// Mirror is optional.
	Mirror  Mirror
	TaxCode string
	Now     func() time.Time
	NewID   func() string
}

type Service struct {
	resolver  Resolver
	submitter Submitter
	store     model.InvoiceStore
	mirror    Mirror
	taxCode   string
	now       func() time.Time
	newID     func() string
	builder   Builder
}

func NewService(config Config) (*Service, error) {
	if config.Resolver == nil || config.Submitter == nil || config.Store == nil {
		return nil, fmt.Errorf("resolver, submitter and store are required")
	}
	s := &Service{
		resolver:  config.Resolver,
		submitter: config.Submitter,
		store:     config.Store,
		mirror:    config.Mirror,
		taxCode:   config.TaxCode,
		now:       config.Now,
		newID:     config.NewID,
	}
	if s.taxCode == "" {
		s.taxCode = DefaultTaxCode
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.New().String() }
	}
	s.builder = Builder{Now: s.now}
	return s, nil
}

type CreateRequest struct {
	UserID       string     `json:"-"`
	CustomerCode string     `json:"customer_code"`
	CustomerName string     `json:"customer_name,omitempty"`
	DocDate      *time.Time `json:"-"`
	// SerialNumbers in scan order.
	SerialNumbers []string `json:"serial_numbers"`
}

type CreateResult struct {
	InvoiceID string          `json:"invoice_id"`
	DocEntry  int             `json:"doc_entry"`
	DocNumber string          `json:"invoice_number"`
	Total     decimal.Decimal `json:"total_amount"`
}

func (s *Service) ValidateSerial(ctx context.Context, serial string) (*lookup.Result, error) {
	return s.resolver.Resolve(ctx, serial)
}

func (s *Service) RefreshSerial(ctx context.Context, serial string) (*lookup.Result, error) {
	return s.resolver.Refresh(ctx, serial)
}

func (s *Service) Get(ctx context.Context, id string) (*models.InvoiceDocument, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.Validationf("invoice id is required")
	}
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, userID string) ([]models.InvoiceDocument, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperr.Validationf("user id is required")
	}
	return s.store.ListByUser(ctx, userID)
}

func normalize(req CreateRequest) (CreateRequest, error) {
	req.CustomerCode = strings.TrimSpace(req.CustomerCode)
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	if req.CustomerCode == "" {
		return req, apperr.Validationf("customer code is required")
	}
	if len(req.SerialNumbers) == 0 {
		return req, apperr.Validationf("at least one serial number is required")
	}
	seen := make(map[string]struct{}, len(req.SerialNumbers))
	serials := make([]string, 0, len(req.SerialNumbers))
	for _, sn := range req.SerialNumbers {
		sn = strings.TrimSpace(sn)
		if sn == "" {
			return req, apperr.Validationf("serial numbers can't be blank")
		}
		if _, ok := seen[sn]; ok {
			return req, apperr.Validationf("duplicate serial number").WithSerial(sn)
		}
		seen[sn] = struct{}{}
		serials = append(serials, sn)
	}
	req.SerialNumbers = serials
	return req, nil
}

// CreateInvoice resolves every serial number, submits the invoice to SAP and
// records the outcome. Unless the draft can't be stored, a terminal local
// record exists when CreateInvoice returns.
func (s *Service) CreateInvoice(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	req, err := normalize(req)
	if err != nil {
		return nil, err
	}

	issue := s.builder.IssueDate(req.DocDate)
	doc := &models.InvoiceDocument{
		ID:           s.newID(),
		CustomerCode: req.CustomerCode,
		CustomerName: req.CustomerName,
		UserID:       req.UserID,
		Status:       models.StatusDraft,
		DocDate:      issue,
		DueDate:      DueDate(issue),
		TotalAmount:  decimal.Zero,
	}
	l := log.WithFields(logrus.Fields{
		"invoice_id":    doc.ID,
		"customer_code": doc.CustomerCode,
	})
	if err := s.store.CreateDraft(ctx, doc); err != nil {
		l.Errorf("unable to create draft: %v", err)
		return nil, err
	}
	l.Infof("draft created with %d serial numbers", len(req.SerialNumbers))

	items := make([]ResolvedSerial, 0, len(req.SerialNumbers))
	for _, sn := range req.SerialNumbers {
		res, err := s.resolver.Resolve(ctx, sn)
		if err != nil {
			l.Warnf("unable to resolve %s: %v", sn, err)
			s.fail(ctx, l, doc, err.Error(), nil)
			return nil, withSerial(err, sn)
		}
		items = append(items, ResolvedSerial{SerialNumber: sn, Attributes: res.Attributes})
	}
	if err := CheckSingleBranch(items); err != nil {
		s.fail(ctx, l, doc, err.Error(), nil)
		return nil, err
	}

	groups := Aggregate(items, s.taxCode)
	payload, err := s.builder.Build(doc.CustomerCode, &issue, groups)
	if err != nil {
		s.fail(ctx, l, doc, err.Error(), nil)
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		s.fail(ctx, l, doc, err.Error(), nil)
		return nil, apperr.New(apperr.PersistenceFailed, "unable to encode invoice: %v", err)
	}
	doc.BPLID = groups[0].BranchID
	doc.BPLName = groups[0].BranchName
	doc.JSONPayload = string(body)
	lines := recordLines(groups)

	l.Infof("submitting invoice with %d lines", len(groups))
	created, err := s.submitter.CreateInvoice(ctx, payload)
	if err != nil {
		return nil, s.submissionFailed(ctx, l, doc, lines, err)
	}

	if err := doc.Transition(models.StatusCreated); err != nil {
		return nil, apperr.Persistence(err)
	}
	docNum := created.DocNum.String()
	docEntry := created.DocEntry
	doc.SAPDocEntry = &docEntry
	doc.SAPDocNum = &docNum
	doc.InvoiceNumber = &docNum
	doc.TotalAmount = created.DocTotal
	doc.SAPResponse = string(created.Raw)
	doc.Lines = lines

	l = l.WithFields(logrus.Fields{"doc_entry": docEntry, "doc_num": docNum})
	if err := s.store.Finalize(ctx, doc); err != nil {
		l.WithField("reconcile", true).Errorf("invoice created in SAP but not recorded locally: %v", err)
		return nil, &apperr.Error{
			Kind:    apperr.Unreconciled,
			Message: fmt.Sprintf("invoice %s created in SAP but not recorded locally", docNum),
			Err:     err,
		}
	}
	l.Info("invoice created")
	s.publish(ctx, l, doc)

	return &CreateResult{
		InvoiceID: doc.ID,
		DocEntry:  docEntry,
		DocNumber: docNum,
		Total:     created.DocTotal,
	}, nil
}

func (s *Service) submissionFailed(ctx context.Context, l *logrus.Entry, doc *models.InvoiceDocument, lines []models.InvoiceLine, err error) error {
	var subErr *sap.SubmissionError
	raw := err.Error()
	if errors.As(err, &subErr) && len(subErr.Raw) > 0 {
		raw = string(subErr.Raw)
	}

	if apperr.KindOf(err) == apperr.Unreconciled {
		// SAP answered 201 with a body we couldn't read: the document
		// exists remotely, without a known DocEntry.
		l.WithField("reconcile", true).Errorf("unreadable SAP answer for a created invoice: %v", err)
		if tErr := doc.Transition(models.StatusCreated); tErr == nil {
			doc.SAPResponse = raw
			doc.Lines = lines
			if fErr := s.store.Finalize(ctx, doc); fErr != nil {
				l.WithField("reconcile", true).Errorf("unable to record invoice: %v", fErr)
			} else {
				s.publish(ctx, l, doc)
			}
		}
		return err
	}

	l.Warnf("SAP rejected the invoice: %v", err)
	s.fail(ctx, l, doc, raw, lines)
	if e, ok := apperr.As(err); ok {
		return e
	}
	return apperr.Unavailable(err)
}

// fail records the draft as failed. The returned error of the caller takes
// precedence, so a storage error is only logged.
func (s *Service) fail(ctx context.Context, l *logrus.Entry, doc *models.InvoiceDocument, reason string, lines []models.InvoiceLine) {
	if err := doc.Transition(models.StatusFailed); err != nil {
		l.Errorf("unable to mark invoice as failed: %v", err)
		return
	}
	doc.SAPResponse = reason
	doc.Lines = lines
	if err := s.store.Finalize(ctx, doc); err != nil {
		l.Errorf("unable to record failed invoice: %v", err)
		return
	}
	l.Info("invoice failed")
	s.publish(ctx, l, doc)
}

func (s *Service) publish(ctx context.Context, l *logrus.Entry, doc *models.InvoiceDocument) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.Mirror(ctx, doc); err != nil {
		l.Warnf("unable to mirror invoice: %v", err)
	}
}

func recordLines(groups []LineGroup) []models.InvoiceLine {
	lines := make([]models.InvoiceLine, 0, len(groups))
	for _, g := range groups {
		line := models.InvoiceLine{
			LineNumber:      g.BaseLineNumber,
			ItemCode:        g.ItemCode,
			ItemDescription: g.ItemDescription,
			Quantity:        g.Quantity,
			WarehouseCode:   g.WarehouseCode,
			TaxCode:         g.TaxCode,
			Serials:         make([]models.InvoiceSerialNumber, 0, len(g.Serials)),
		}
		for _, sn := range g.Serials {
			line.Serials = append(line.Serials, models.InvoiceSerialNumber{
				SerialNumber:   sn,
				ItemCode:       g.ItemCode,
				WarehouseCode:  g.WarehouseCode,
				BaseLineNumber: g.BaseLineNumber,
				Quantity:       1,
			})
		}
		lines = append(lines, line)
	}
	return lines
}

func withSerial(err error, serial string) error {
	if e, ok := apperr.As(err); ok {
		if e.Serial != "" {
			return e
		}
		return e.WithSerial(serial)
	}
	return apperr.Unavailable(err).WithSerial(serial)
}
