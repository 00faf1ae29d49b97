package store

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/campprojects/dashboard/internal/project"
)

// ProjectRow is one persisted project. Derived budget fields are not stored;
// they are recomputed on every load.
type ProjectRow struct {
	ProcurementID             string            `gorm:"primaryKey;column:procurement_id"`
	Position                  int               `gorm:"column:position;index;not null"`
	ProcurementName           string            `gorm:"column:procurement_name"`
	Contractor                string            `gorm:"column:contractor;index"`
	FundingSource             string            `gorm:"column:funding_source;index"`
	EstimatedCost             decimal.Decimal   `gorm:"column:estimated_cost;type:numeric;not null;default:0"`
	ContractValue             decimal.Decimal   `gorm:"column:contract_value;type:numeric;not null;default:0"`
	SettlementValue           decimal.Decimal   `gorm:"column:settlement_value;type:numeric;not null;default:0"`
	MobilizationDate          *time.Time        `gorm:"column:mobilization_date"`
	ProvisionalAcceptanceDate *time.Time        `gorm:"column:provisional_acceptance_date"`
	ClosureSubmissionDate     *time.Time        `gorm:"column:closure_submission_date"`
	ClosureProgress           string            `gorm:"column:closure_progress_status"`
	Notes                     string            `gorm:"column:notes"`
	Extra                     datatypes.JSONMap `gorm:"column:extra"`
	UpdatedAt                 time.Time         `gorm:"column:updated_at"`
}

func (ProjectRow) TableName() string { return "projects" }

// ColumnSet stores the table header as ingested, in order.
type ColumnSet struct {
	ID      int                                 `gorm:"primaryKey;column:id"`
	Columns datatypes.JSONSlice[project.Column] `gorm:"column:columns"`
}

func (ColumnSet) TableName() string { return "project_columns" }

func rowFromRecord(pos int, r project.Record) ProjectRow {
	row := ProjectRow{
		ProcurementID:             r.ProcurementID,
		Position:                  pos,
		ProcurementName:           r.ProcurementName,
		Contractor:                r.Contractor,
		FundingSource:             r.FundingSource,
		EstimatedCost:             r.EstimatedCost,
		ContractValue:             r.ContractValue,
		SettlementValue:           r.SettlementValue,
		MobilizationDate:          r.MobilizationDate,
		ProvisionalAcceptanceDate: r.ProvisionalAcceptanceDate,
		ClosureSubmissionDate:     r.ClosureSubmissionDate,
		ClosureProgress:           r.ClosureProgress,
		Notes:                     r.Notes,
	}
	if len(r.Extra) > 0 {
		row.Extra = datatypes.JSONMap{}
		for k, v := range r.Extra {
			row.Extra[k] = v
		}
	}
	return row
}

func (row ProjectRow) record() project.Record {
	r := project.Record{
		ProcurementID:             row.ProcurementID,
		ProcurementName:           row.ProcurementName,
		Contractor:                row.Contractor,
		FundingSource:             row.FundingSource,
		EstimatedCost:             row.EstimatedCost,
		ContractValue:             row.ContractValue,
		SettlementValue:           row.SettlementValue,
		MobilizationDate:          utcPtr(row.MobilizationDate),
		ProvisionalAcceptanceDate: utcPtr(row.ProvisionalAcceptanceDate),
		ClosureSubmissionDate:     utcPtr(row.ClosureSubmissionDate),
		ClosureProgress:           row.ClosureProgress,
		Notes:                     row.Notes,
	}
	if len(row.Extra) > 0 {
		r.Extra = make(map[string]string, len(row.Extra))
		for k, v := range row.Extra {
			if s, ok := v.(string); ok {
				r.Extra[k] = s
			}
		}
	}
	return r
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
