package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ItemAttributes is what SAP knows about a serial number: the item it
// belongs to and where the unit currently is.
type ItemAttributes struct {
	ItemCode      string   `json:"ItemCode"`
	ItemName      string   `json:"itemName"`
	DistNumber    string   `json:"DistNumber"`
	WarehouseCode string   `json:"WhsCode"`
	WarehouseName string   `json:"WhsName"`
	BranchID      BranchID `json:"BPLid"`
	BranchName    string   `json:"BPLName"`
}

func (a ItemAttributes) Validate() error {
	if strings.TrimSpace(a.ItemCode) == "" {
		return fmt.Errorf("missing ItemCode")
	}
	if strings.TrimSpace(a.WarehouseCode) == "" {
		return fmt.Errorf("missing WhsCode")
	}
	return nil
}

// BranchID is the SAP business place id (BPLid). SAP query results return it
// either as a number or as a string depending on the query definition.
type BranchID int

func (b *BranchID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*b = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*b = 0
			return nil
		}
		data = []byte(s)
	}
	v, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("invalid BPLid %s: %w", data, err)
	}
	*b = BranchID(v)
	return nil
}
