package sap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/denysvitali/wms-backend/pkg/apperr"
)

// Invoice is the body of POST /Invoices. Field names follow the Service Layer
// Documents entity.
type Invoice struct {
	DocDate                 string         `json:"DocDate"`
	DocDueDate              string         `json:"DocDueDate"`
	CardCode                string         `json:"CardCode"`
	BPL_IDAssignedToInvoice int            `json:"BPL_IDAssignedToInvoice,omitempty"`
	BPLName                 string         `json:"BPLName,omitempty"`
	DocumentLines           []DocumentLine `json:"DocumentLines"`
}

type DocumentLine struct {
	ItemCode        string         `json:"ItemCode"`
	ItemDescription string         `json:"ItemDescription"`
	Quantity        float64        `json:"Quantity"`
	WarehouseCode   string         `json:"WarehouseCode"`
	TaxCode         string         `json:"TaxCode"`
	SerialNumbers   []SerialNumber `json:"SerialNumbers"`
}

type SerialNumber struct {
	InternalSerialNumber string  `json:"InternalSerialNumber"`
	BaseLineNumber       int     `json:"BaseLineNumber"`
	Quantity             float64 `json:"Quantity"`
}

// CreatedInvoice is the subset of the created document we keep.
type CreatedInvoice struct {
	DocEntry int             `json:"DocEntry"`
	DocNum   json.Number     `json:"DocNum"`
	DocTotal decimal.Decimal `json:"DocTotal"`
	// Raw is the full response body.
	Raw []byte `json:"-"`
}

// SubmissionError is returned when SAP refused the document. Raw is the
// response body, stored verbatim on the local record.
type SubmissionError struct {
	Err *apperr.Error
	Raw []byte
}

func (e *SubmissionError) Error() string {
	return e.Err.Error()
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// CreateInvoice posts an A/R invoice. Any status other than 201 Created is a
// rejection carrying SAP's error message.
func (c *Client) CreateInvoice(ctx context.Context, invoice *Invoice) (*CreatedInvoice, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.SubmitTimeout)
	defer cancel()

	res, err := c.Post(ctx, "/Invoices", invoice)
	if err != nil {
		return nil, err
	}
	log.Infof("SAP invoice creation response status: %d", res.StatusCode)

	if res.StatusCode != http.StatusCreated {
		msg := errorMessage(res)
		log.Errorf("SAP invoice creation failed: %s", msg)
		return nil, &SubmissionError{
			Err: apperr.Rejected(res.StatusCode, msg),
			Raw: res.Body,
		}
	}

	var created CreatedInvoice
	if err := json.Unmarshal(res.Body, &created); err != nil {
		// SAP did create the document; report it so the caller can reconcile
		return nil, &SubmissionError{
			Err: &apperr.Error{
				Kind:    apperr.Unreconciled,
				Status:  res.StatusCode,
				Message: fmt.Sprintf("unable to decode SAP invoice response: %v", err),
			},
			Raw: res.Body,
		}
	}
	created.Raw = res.Body
	return &created, nil
}
