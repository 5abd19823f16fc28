// Package auditindex mirrors terminal invoice records to OpenSearch, so that
// operators can search them by customer, serial number or SAP document.
package auditindex

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"github.com/sirupsen/logrus"

	"github.com/denysvitali/wms-backend/pkg/models"
)

const DefaultIndex = "invoices"

var log = logrus.StandardLogger().WithField("package", "auditindex")

type Config struct {
	Addr               string
	Index              string
	Username           string
	Password           string
	InsecureSkipVerify bool
}

type Indexer struct {
	client *opensearch.Client
	index  string
	now    func() time.Time
}

func New(config Config) (*Indexer, error) {
	if config.Addr == "" {
		return nil, fmt.Errorf("opensearch address is required")
	}
	if config.Index == "" {
		config.Index = DefaultIndex
	}
	osConfig := opensearch.Config{
		Addresses: []string{config.Addr},
		Username:  config.Username,
		Password:  config.Password,
	}
	if config.InsecureSkipVerify {
		osConfig.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	client, err := opensearch.NewClient(osConfig)
	if err != nil {
		return nil, fmt.Errorf("opensearch client: %w", err)
	}
	return &Indexer{client: client, index: config.Index, now: time.Now}, nil
}

// EnsureIndex creates the index if it doesn't exist yet.
func (i *Indexer) EnsureIndex(ctx context.Context) error {
	req := opensearchapi.IndicesCreateRequest{Index: i.index}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusBadRequest {
		// Index already exists
		return nil
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", res.Status())
	}
	log.Infof("created index %s", i.index)
	return nil
}

type auditLine struct {
	LineNumber    int      `json:"lineNumber"`
	ItemCode      string   `json:"itemCode"`
	WarehouseCode string   `json:"warehouseCode"`
	Quantity      int      `json:"quantity"`
	SerialNumbers []string `json:"serialNumbers"`
}

type auditDocument struct {
	ID            string        `json:"id"`
	InvoiceNumber string        `json:"invoiceNumber,omitempty"`
	Status        models.Status `json:"status"`
	CustomerCode  string        `json:"customerCode"`
	CustomerName  string        `json:"customerName,omitempty"`
	UserID        string        `json:"userId"`
	BPLID         int           `json:"bplId,omitempty"`
	DocDate       string        `json:"docDate"`
	TotalAmount   string        `json:"totalAmount"`
	SAPDocEntry   *int          `json:"sapDocEntry,omitempty"`
	SerialNumbers []string      `json:"serialNumbers"`
	Lines         []auditLine   `json:"lines"`
	SAPResponse   string        `json:"sapResponse,omitempty"`
	IndexedAt     time.Time     `json:"indexedAt"`
}

func toAuditDocument(doc *models.InvoiceDocument, now time.Time) auditDocument {
	d := auditDocument{
		ID:            doc.ID,
		Status:        doc.Status,
		CustomerCode:  doc.CustomerCode,
		CustomerName:  doc.CustomerName,
		UserID:        doc.UserID,
		BPLID:         doc.BPLID,
		DocDate:       doc.DocDate.Format("2006-01-02"),
		TotalAmount:   doc.TotalAmount.StringFixed(2),
		SAPDocEntry:   doc.SAPDocEntry,
		SerialNumbers: []string{},
		Lines:         []auditLine{},
		SAPResponse:   doc.SAPResponse,
		IndexedAt:     now,
	}
	if doc.InvoiceNumber != nil {
		d.InvoiceNumber = *doc.InvoiceNumber
	}
	for _, l := range doc.Lines {
		line := auditLine{
			LineNumber:    l.LineNumber,
			ItemCode:      l.ItemCode,
			WarehouseCode: l.WarehouseCode,
			Quantity:      l.Quantity,
		}
		for _, s := range l.Serials {
			line.SerialNumbers = append(line.SerialNumbers, s.SerialNumber)
			d.SerialNumbers = append(d.SerialNumbers, s.SerialNumber)
		}
		d.Lines = append(d.Lines, line)
	}
	return d
}

// Mirror indexes doc, replacing any previous version with the same id.
func (i *Indexer) Mirror(ctx context.Context, doc *models.InvoiceDocument) error {
	jsonBuffer := bytes.NewBuffer(nil)
	if err := json.NewEncoder(jsonBuffer).Encode(toAuditDocument(doc, i.now())); err != nil {
		return fmt.Errorf("unable to encode JSON: %v", err)
	}

	req := opensearchapi.IndexRequest{
		Index:      i.index,
		DocumentID: doc.ID,
		Body:       jsonBuffer,
		OpType:     "index",
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("opensearch returned an invalid status %s: %s", res.Status(), decodeError(res.Body))
	}
	log.Debugf("indexed invoice %s", doc.ID)
	return nil
}

// Search runs a query_string search over the mirrored invoices and returns
// the matching sources, newest first.
func (i *Indexer) Search(ctx context.Context, term string) ([]json.RawMessage, error) {
	searchContent := map[string]any{
		"size": 50,
		"sort": []map[string]any{
			{"indexedAt": map[string]string{"order": "desc"}},
		},
		"query": map[string]any{
			"query_string": map[string]any{
				"query": term,
			},
		},
	}
	jsonBody, err := json.Marshal(searchContent)
	if err != nil {
		return nil, fmt.Errorf("unable to marshal JSON: %v", err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{i.index},
		Body:  bytes.NewReader(jsonBody),
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("unable to perform search %s: %s", res.Status(), decodeError(res.Body))
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("unable to decode search result: %v", err)
	}
	sources := make([]json.RawMessage, 0, len(result.Hits.Hits))
	for _, h := range result.Hits.Hits {
		sources = append(sources, h.Source)
	}
	return sources, nil
}

func decodeError(body io.Reader) string {
	var errorMessage struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&errorMessage); err != nil {
		return ""
	}
	if errorMessage.Error.Reason == "" {
		return errorMessage.Error.Type
	}
	return errorMessage.Error.Type + ": " + errorMessage.Error.Reason
}
