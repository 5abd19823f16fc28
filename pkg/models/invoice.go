package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft   Status = "draft"
	StatusCreated Status = "created"
	StatusFailed  Status = "failed"
)

// InvoiceDocument is the local shadow of an A/R invoice submitted to SAP.
type InvoiceDocument struct {
	ID            string          `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	InvoiceNumber *string         `gorm:"column:invoice_number;type:varchar(50);uniqueIndex" json:"invoiceNumber,omitempty"`
	CustomerCode  string          `gorm:"column:customer_code;type:varchar(50);not null;index" json:"customerCode"`
	CustomerName  string          `gorm:"column:customer_name;type:varchar(200)" json:"customerName,omitempty"`
	UserID        string          `gorm:"column:user_id;type:varchar(50);index" json:"userId"`
	BPLID         int             `gorm:"column:bpl_id;index" json:"bplId,omitempty"`
	BPLName       string          `gorm:"column:bpl_name;type:varchar(100)" json:"bplName,omitempty"`
	Status        Status          `gorm:"column:status;type:varchar(20);default:'draft';index" json:"status"`
	DocDate       time.Time       `gorm:"column:doc_date;type:date;index" json:"docDate"`
	DueDate       time.Time       `gorm:"column:due_date;type:date" json:"dueDate"`
	TotalAmount   decimal.Decimal `gorm:"column:total_amount;type:decimal(15,2)" json:"totalAmount"`
	SAPDocEntry   *int            `gorm:"column:sap_doc_entry;index" json:"sapDocEntry,omitempty"`
	SAPDocNum     *string         `gorm:"column:sap_doc_num;type:varchar(50)" json:"sapDocNum,omitempty"`
	JSONPayload   string          `gorm:"column:json_payload;type:text" json:"jsonPayload,omitempty"`
	SAPResponse   string          `gorm:"column:sap_response;type:text" json:"sapResponse,omitempty"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime;index" json:"createdAt"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`

	Lines []InvoiceLine `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"lines,omitempty"`
}

func (InvoiceDocument) TableName() string {
	return "invoice_documents"
}

// Transition moves the document to status to. Only draft documents can
// change status, and only to a terminal one.
func (d *InvoiceDocument) Transition(to Status) error {
	if d.Status != StatusDraft || (to != StatusCreated && to != StatusFailed) {
		return fmt.Errorf("invalid invoice status transition %s -> %s", d.Status, to)
	}
	d.Status = to
	return nil
}

type InvoiceLine struct {
	ID              uint   `gorm:"column:id;primaryKey" json:"-"`
	InvoiceID       string `gorm:"column:invoice_id;type:varchar(36);not null;uniqueIndex:unique_line_per_invoice,priority:1" json:"-"`
	LineNumber      int    `gorm:"column:line_number;not null;uniqueIndex:unique_line_per_invoice,priority:2" json:"lineNumber"`
	ItemCode        string `gorm:"column:item_code;type:varchar(50);not null;index" json:"itemCode"`
	ItemDescription string `gorm:"column:item_description;type:varchar(200)" json:"itemDescription"`
	Quantity        int    `gorm:"column:quantity;not null;default:1" json:"quantity"`
	WarehouseCode   string `gorm:"column:warehouse_code;type:varchar(10);not null;index" json:"warehouseCode"`
	TaxCode         string `gorm:"column:tax_code;type:varchar(20)" json:"taxCode"`

	Serials []InvoiceSerialNumber `gorm:"foreignKey:InvoiceLineID;constraint:OnDelete:CASCADE" json:"serialNumbers"`
}

func (InvoiceLine) TableName() string {
	return "invoice_lines"
}

type InvoiceSerialNumber struct {
	ID             uint    `gorm:"column:id;primaryKey" json:"-"`
	InvoiceLineID  uint    `gorm:"column:invoice_line_id;not null;uniqueIndex:unique_serial_per_line,priority:1" json:"-"`
	SerialNumber   string  `gorm:"column:serial_number;type:varchar(100);not null;uniqueIndex:unique_serial_per_line,priority:2;index" json:"serialNumber"`
	ItemCode       string  `gorm:"column:item_code;type:varchar(50);not null" json:"itemCode"`
	WarehouseCode  string  `gorm:"column:warehouse_code;type:varchar(10);not null" json:"warehouseCode"`
	BaseLineNumber int     `gorm:"column:base_line_number;not null" json:"baseLineNumber"`
	Quantity       float64 `gorm:"column:quantity;not null;default:1" json:"quantity"`
}

func (InvoiceSerialNumber) TableName() string {
	return "invoice_serial_numbers"
}
