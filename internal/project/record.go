package project

import (
	"time"

	"github.com/shopspring/decimal"
)

// BudgetStatus classifies a project's budget variance.
type BudgetStatus string

const (
	Surplus BudgetStatus = "Surplus"
	Overrun BudgetStatus = "Overrun"
)

// StatusOf returns Surplus for a non-negative variance, Overrun otherwise.
func StatusOf(variance decimal.Decimal) BudgetStatus {
	if variance.Sign() >= 0 {
		return Surplus
	}
	return Overrun
}

// Label is the display text written to exports.
func (s BudgetStatus) Label() string {
	switch s {
	case Surplus:
		return "وفر ✅"
	case Overrun:
		return "تجاوز 🔻"
	}
	return ""
}

// Record is one project row.
type Record struct {
	ProcurementID             string           `json:"procurement_id"`
	ProcurementName           string           `json:"procurement_name"`
	Contractor                string           `json:"contractor"`
	FundingSource             string           `json:"funding_source"`
	EstimatedCost             decimal.Decimal  `json:"estimated_cost"`
	ContractValue             decimal.Decimal  `json:"contract_value"`
	SettlementValue           decimal.Decimal  `json:"settlement_value"`
	MobilizationDate          *time.Time       `json:"mobilization_date"`
	ProvisionalAcceptanceDate *time.Time       `json:"provisional_acceptance_date"`
	ClosureSubmissionDate     *time.Time       `json:"closure_submission_date"`
	ClosureProgress           string           `json:"closure_progress_status"`
	Notes                     string           `json:"notes"`
	BudgetVariance            *decimal.Decimal `json:"budget_variance,omitempty"`
	BudgetStatus              BudgetStatus     `json:"budget_status,omitempty"`

	// Extra holds unrecognized columns keyed by header.
	Extra map[string]string `json:"extra,omitempty"`
}

// Clone returns a copy that shares no maps or pointers with r.
func (r Record) Clone() Record {
	out := r
	out.MobilizationDate = cloneTime(r.MobilizationDate)
	out.ProvisionalAcceptanceDate = cloneTime(r.ProvisionalAcceptanceDate)
	out.ClosureSubmissionDate = cloneTime(r.ClosureSubmissionDate)
	if r.BudgetVariance != nil {
		v := *r.BudgetVariance
		out.BudgetVariance = &v
	}
	if r.Extra != nil {
		out.Extra = make(map[string]string, len(r.Extra))
		for k, v := range r.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// Text returns the string value of a text field.
func (r Record) Text(f Field) string {
	switch f {
	case FieldProcurementID:
		return r.ProcurementID
	case FieldProcurementName:
		return r.ProcurementName
	case FieldContractor:
		return r.Contractor
	case FieldFundingSource:
		return r.FundingSource
	case FieldClosureProgress:
		return r.ClosureProgress
	case FieldNotes:
		return r.Notes
	}
	return ""
}

func (r *Record) setText(f Field, v string) {
	switch f {
	case FieldProcurementID:
		r.ProcurementID = v
	case FieldProcurementName:
		r.ProcurementName = v
	case FieldContractor:
		r.Contractor = v
	case FieldFundingSource:
		r.FundingSource = v
	case FieldClosureProgress:
		r.ClosureProgress = v
	case FieldNotes:
		r.Notes = v
	}
}

func (r *Record) money(f Field) *decimal.Decimal {
	switch f {
	case FieldEstimatedCost:
		return &r.EstimatedCost
	case FieldContractValue:
		return &r.ContractValue
	case FieldSettlementValue:
		return &r.SettlementValue
	}
	return nil
}

func (r *Record) date(f Field) **time.Time {
	switch f {
	case FieldMobilizationDate:
		return &r.MobilizationDate
	case FieldProvisionalAcceptanceDate:
		return &r.ProvisionalAcceptanceDate
	case FieldClosureSubmissionDate:
		return &r.ClosureSubmissionDate
	}
	return nil
}

// Cell renders the value of col the way it appears in a delimited export.
func (r Record) Cell(col Column) string {
	switch f := col.Field; f {
	case FieldUnknown:
		return r.Extra[col.Name]
	case FieldEstimatedCost, FieldContractValue, FieldSettlementValue:
		return r.money(f).String()
	case FieldMobilizationDate, FieldProvisionalAcceptanceDate, FieldClosureSubmissionDate:
		return FormatDate(*r.date(f))
	case FieldBudgetVariance:
		if r.BudgetVariance == nil {
			return ""
		}
		return r.BudgetVariance.String()
	case FieldBudgetStatus:
		return r.BudgetStatus.Label()
	default:
		return r.Text(f)
	}
}

// Table is an ordered header plus its rows.
type Table struct {
	Columns []Column `json:"columns"`
	Records []Record `json:"rows"`
}

// Has reports whether the table carries a column for f.
func (t Table) Has(f Field) bool {
	for _, c := range t.Columns {
		if c.Field == f {
			return true
		}
	}
	return false
}

// EnsureColumn appends a column for f named after the schema's canonical
// header, unless one already exists.
func (t *Table) EnsureColumn(s *Schema, f Field) {
	if t.Has(f) {
		return
	}
	t.Columns = append(t.Columns, Column{Name: s.Header(f), Field: f})
}

// Index returns the row position of id, or -1.
func (t Table) Index(id string) int {
	for i, r := range t.Records {
		if r.ProcurementID == id {
			return i
		}
	}
	return -1
}
