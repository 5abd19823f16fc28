package invoice

import (
	"github.com/denysvitali/wms-backend/pkg/apperr"
	"github.com/denysvitali/wms-backend/pkg/models"
)

// DefaultTaxCode is applied to every document line.
const DefaultTaxCode = "CSGST@18"

type ResolvedSerial struct {
	SerialNumber string
	Attributes   models.ItemAttributes
}

// LineGroup is one document line: every unit of one item from one warehouse.
type LineGroup struct {
	ItemCode        string
	ItemDescription string
	WarehouseCode   string
	TaxCode         string
	Quantity        int
	// BaseLineNumber is the index of the group in the aggregated output.
	BaseLineNumber int
	Serials        []string
	BranchID       int
	BranchName     string
}

type groupKey struct {
	item      string
	warehouse string
}

// Aggregate groups items by item and warehouse code. Groups appear in the
// order their key is first seen.
func Aggregate(items []ResolvedSerial, taxCode string) []LineGroup {
	groups := make([]LineGroup, 0)
	index := make(map[groupKey]int)
	for _, it := range items {
		k := groupKey{item: it.Attributes.ItemCode, warehouse: it.Attributes.WarehouseCode}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, LineGroup{
				ItemCode:        it.Attributes.ItemCode,
				ItemDescription: it.Attributes.ItemName,
				WarehouseCode:   it.Attributes.WarehouseCode,
				TaxCode:         taxCode,
				BaseLineNumber:  i,
				BranchID:        int(it.Attributes.BranchID),
				BranchName:      it.Attributes.BranchName,
			})
		}
		groups[i].Quantity++
		groups[i].Serials = append(groups[i].Serials, it.SerialNumber)
	}
	return groups
}

// CheckSingleBranch rejects items that belong to more than one branch.
func CheckSingleBranch(items []ResolvedSerial) error {
	if len(items) == 0 {
		return nil
	}
	first := items[0]
	for _, it := range items[1:] {
		if it.Attributes.BranchID != first.Attributes.BranchID {
			return apperr.Validationf(
				"serial numbers span multiple branches: %s is in branch %d, %s is in branch %d",
				first.SerialNumber, first.Attributes.BranchID,
				it.SerialNumber, it.Attributes.BranchID,
			).WithSerial(it.SerialNumber)
		}
	}
	return nil
}
