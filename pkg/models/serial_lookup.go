package models

import (
	"time"
)

type LookupStatus string

const (
	LookupPending   LookupStatus = "pending"
	LookupValidated LookupStatus = "validated"
	LookupError     LookupStatus = "error"
)

// SerialLookup is the last known SAP answer for a serial number. Rows are
// upserted on every remote lookup and never deleted.
type SerialLookup struct {
	ID            uint         `gorm:"column:id;primaryKey" json:"-"`
	SerialNumber  string       `gorm:"column:serial_number;type:varchar(100);uniqueIndex;not null" json:"serialNumber"`
	ItemCode      string       `gorm:"column:item_code;type:varchar(50)" json:"itemCode"`
	ItemName      string       `gorm:"column:item_name;type:varchar(200)" json:"itemName"`
	WarehouseCode string       `gorm:"column:warehouse_code;type:varchar(10)" json:"warehouseCode"`
	WarehouseName string       `gorm:"column:warehouse_name;type:varchar(100)" json:"warehouseName"`
	BranchID      int          `gorm:"column:branch_id" json:"branchId"`
	BranchName    string       `gorm:"column:branch_name;type:varchar(100)" json:"branchName"`
	LookupStatus  LookupStatus `gorm:"column:lookup_status;type:varchar(20);default:'pending'" json:"lookupStatus"`
	SAPResponse   string       `gorm:"column:sap_response;type:text" json:"sapResponse,omitempty"`
	LastUpdated   time.Time    `gorm:"column:last_updated;index" json:"lastUpdated"`
	CreatedAt     time.Time    `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (SerialLookup) TableName() string {
	return "serial_number_lookups"
}

func NewSerialLookup(serial string, attrs ItemAttributes, raw string, now time.Time) *SerialLookup {
	return &SerialLookup{
		SerialNumber:  serial,
		ItemCode:      attrs.ItemCode,
		ItemName:      attrs.ItemName,
		WarehouseCode: attrs.WarehouseCode,
		WarehouseName: attrs.WarehouseName,
		BranchID:      int(attrs.BranchID),
		BranchName:    attrs.BranchName,
		LookupStatus:  LookupValidated,
		SAPResponse:   raw,
		LastUpdated:   now,
	}
}

func (s *SerialLookup) Attributes() ItemAttributes {
	return ItemAttributes{
		ItemCode:      s.ItemCode,
		ItemName:      s.ItemName,
		DistNumber:    s.SerialNumber,
		WarehouseCode: s.WarehouseCode,
		WarehouseName: s.WarehouseName,
		BranchID:      BranchID(s.BranchID),
		BranchName:    s.BranchName,
	}
}

// Fresh reports whether the entry was refreshed less than ttl ago.
func (s *SerialLookup) Fresh(now time.Time, ttl time.Duration) bool {
	if s.LookupStatus != LookupValidated {
		return false
	}
	return now.Sub(s.LastUpdated) < ttl
}
