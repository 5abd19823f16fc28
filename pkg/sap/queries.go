package sap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/denysvitali/wms-backend/pkg/apperr"
	"github.com/denysvitali/wms-backend/pkg/models"
)

// SerialRecord is one row returned by the serial number query, together with
// its raw JSON for auditing.
type SerialRecord struct {
	models.ItemAttributes
	Raw json.RawMessage
}

type queryResult[T any] struct {
	Value []T `json:"value"`
}

// LookupSerial runs the serial number SQL query. An empty slice means SAP
// doesn't know the serial number or has no available quantity for it.
func (c *Client) LookupSerial(ctx context.Context, serial string) ([]SerialRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.LookupTimeout)
	defer cancel()

	path := fmt.Sprintf("/SQLQueries('%s')/List", c.config.SerialQuery)
	res, err := c.Post(ctx, path, map[string]string{
		"ParamList": fmt.Sprintf("serial_number='%s'", quote(serial)),
	})
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		log.Warnf("serial query for %s failed: %d - %s", serial, res.StatusCode, res.Body)
		return nil, apperr.Rejected(res.StatusCode, fmt.Sprintf("SAP query failed: %d", res.StatusCode))
	}

	var rows queryResult[json.RawMessage]
	if err := json.Unmarshal(res.Body, &rows); err != nil {
		return nil, apperr.Rejected(res.StatusCode, fmt.Sprintf("invalid SAP query response: %v", err))
	}

	records := make([]SerialRecord, 0, len(rows.Value))
	for _, raw := range rows.Value {
		var attrs models.ItemAttributes
		if err := json.Unmarshal(raw, &attrs); err != nil {
			return nil, apperr.Rejected(res.StatusCode, fmt.Sprintf("invalid SAP query row: %v", err))
		}
		if err := attrs.Validate(); err != nil {
			return nil, apperr.Rejected(res.StatusCode, fmt.Sprintf("invalid SAP query row: %v", err))
		}
		records = append(records, SerialRecord{ItemAttributes: attrs, Raw: raw})
	}
	return records, nil
}

// quote escapes a value for use inside a single quoted ParamList value.
func quote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

type BusinessPartner struct {
	CardCode string `json:"CardCode"`
	CardName string `json:"CardName"`
}

// Customers returns up to 100 business partners of type customer.
func (c *Client) Customers(ctx context.Context) ([]BusinessPartner, error) {
	q := url.Values{}
	q.Set("$filter", "CardType eq 'cCustomer'")
	q.Set("$select", "CardCode,CardName")
	q.Set("$top", "100")
	return c.businessPartners(ctx, q, nil)
}

// BusinessPartners returns every business partner, without paging.
func (c *Client) BusinessPartners(ctx context.Context) ([]BusinessPartner, error) {
	q := url.Values{}
	q.Set("$select", "CardCode,CardName")
	h := http.Header{}
	h.Set("Prefer", "odata.pagemaxsize=0")
	return c.businessPartners(ctx, q, h)
}

func (c *Client) businessPartners(ctx context.Context, q url.Values, h http.Header) ([]BusinessPartner, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.LookupTimeout)
	defer cancel()

	res, err := c.Get(ctx, "/BusinessPartners", q, h)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, apperr.Rejected(res.StatusCode, fmt.Sprintf("SAP API error: %d", res.StatusCode))
	}
	var result queryResult[BusinessPartner]
	if err := json.Unmarshal(res.Body, &result); err != nil {
		return nil, apperr.Rejected(res.StatusCode, fmt.Sprintf("invalid SAP response: %v", err))
	}
	if result.Value == nil {
		result.Value = []BusinessPartner{}
	}
	return result.Value, nil
}
