package invoice

import (
	"time"

	"github.com/denysvitali/wms-backend/pkg/apperr"
	"github.com/denysvitali/wms-backend/pkg/sap"
)

const DateFormat = "2006-01-02"

// Builder turns line groups into the SAP invoice payload. Now is only used
// when no document date is given.
type Builder struct {
	Now func() time.Time
}

// IssueDate returns docDate, or today when docDate is nil, truncated to the
// day.
func (b Builder) IssueDate(docDate *time.Time) time.Time {
	var d time.Time
	if docDate != nil {
		d = *docDate
	} else if b.Now != nil {
		d = b.Now()
	} else {
		d = time.Now()
	}
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, d.Location())
}

// DueDate is the day after issue.
func DueDate(issue time.Time) time.Time {
	return issue.AddDate(0, 0, 1)
}

func (b Builder) Build(customerCode string, docDate *time.Time, groups []LineGroup) (*sap.Invoice, error) {
	if customerCode == "" {
		return nil, apperr.Validationf("customer code is required")
	}
	if len(groups) == 0 {
		return nil, apperr.Validationf("an invoice needs at least one line")
	}

	issue := b.IssueDate(docDate)
	inv := &sap.Invoice{
		DocDate:                 issue.Format(DateFormat),
		DocDueDate:              DueDate(issue).Format(DateFormat),
		CardCode:                customerCode,
		BPL_IDAssignedToInvoice: groups[0].BranchID,
		BPLName:                 groups[0].BranchName,
		DocumentLines:           make([]sap.DocumentLine, 0, len(groups)),
	}
	for _, g := range groups {
		line := sap.DocumentLine{
			ItemCode:        g.ItemCode,
			ItemDescription: g.ItemDescription,
			Quantity:        float64(g.Quantity),
			WarehouseCode:   g.WarehouseCode,
			TaxCode:         g.TaxCode,
			SerialNumbers:   make([]sap.SerialNumber, 0, len(g.Serials)),
		}
		for _, s := range g.Serials {
			line.SerialNumbers = append(line.SerialNumbers, sap.SerialNumber{
				InternalSerialNumber: s,
				BaseLineNumber:       g.BaseLineNumber,
				Quantity:             1,
			})
		}
		inv.DocumentLines = append(inv.DocumentLines, line)
	}
	return inv, nil
}
