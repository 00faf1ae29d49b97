package project

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

// EditableFields is the subset of a record the update path may overwrite.
type EditableFields struct {
	ProcurementName string          `json:"procurement_name"`
	Contractor      string          `json:"contractor"`
	EstimatedCost   decimal.Decimal `json:"estimated_cost"`
	ContractValue   decimal.Decimal `json:"contract_value"`
	Notes           string          `json:"notes"`
}

// Validate checks the amounts are non-negative.
func (f EditableFields) Validate() error {
	if f.EstimatedCost.IsNegative() {
		return &ValidationError{Field: "estimated_cost", Reason: "must not be negative"}
	}
	if f.ContractValue.IsNegative() {
		return &ValidationError{Field: "contract_value", Reason: "must not be negative"}
	}
	return nil
}

// Apply overwrites the editable fields of r.
func (f EditableFields) Apply(r *Record) {
	r.ProcurementName = f.ProcurementName
	r.Contractor = f.Contractor
	r.EstimatedCost = f.EstimatedCost
	r.ContractValue = f.ContractValue
	r.Notes = f.Notes
}

// Edit targets one record by identifier.
type Edit struct {
	ProcurementID string `json:"procurement_id"`
	EditableFields
}

// Validate checks the identifier and the fields.
func (e Edit) Validate() error {
	if strings.TrimSpace(e.ProcurementID) == "" {
		return &ValidationError{Field: "procurement_id", Reason: "is required"}
	}
	return e.EditableFields.Validate()
}

// editPayload mirrors Edit with pointers so missing keys can be told apart
// from zero values.
type editPayload struct {
	ProcurementID   *string          `json:"procurement_id"`
	ProcurementName *string          `json:"procurement_name"`
	Contractor      *string          `json:"contractor"`
	EstimatedCost   *decimal.Decimal `json:"estimated_cost"`
	ContractValue   *decimal.Decimal `json:"contract_value"`
	Notes           *string          `json:"notes"`
}

func (p editPayload) edit(requireID bool) (Edit, error) {
	var missing []string
	if requireID && p.ProcurementID == nil {
		missing = append(missing, "procurement_id")
	}
	if p.ProcurementName == nil {
		missing = append(missing, "procurement_name")
	}
	if p.Contractor == nil {
		missing = append(missing, "contractor")
	}
	if p.EstimatedCost == nil {
		missing = append(missing, "estimated_cost")
	}
	if p.ContractValue == nil {
		missing = append(missing, "contract_value")
	}
	if p.Notes == nil {
		missing = append(missing, "notes")
	}
	if len(missing) > 0 {
		return Edit{}, &ValidationError{Field: strings.Join(missing, ", "), Reason: "is required"}
	}
	e := Edit{EditableFields: EditableFields{
		ProcurementName: *p.ProcurementName,
		Contractor:      *p.Contractor,
		EstimatedCost:   *p.EstimatedCost,
		ContractValue:   *p.ContractValue,
		Notes:           *p.Notes,
	}}
	if p.ProcurementID != nil {
		e.ProcurementID = strings.TrimSpace(*p.ProcurementID)
	}
	return e, nil
}

func strictDecoder(r io.Reader) *json.Decoder {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec
}

// DecodeFields reads one full set of editable fields. Unknown keys and
// missing keys are both rejected.
func DecodeFields(r io.Reader) (EditableFields, error) {
	var p editPayload
	if err := strictDecoder(r).Decode(&p); err != nil {
		return EditableFields{}, &ValidationError{Field: "body", Reason: err.Error()}
	}
	if p.ProcurementID != nil {
		return EditableFields{}, &ValidationError{Field: "procurement_id", Reason: "is taken from the path"}
	}
	e, err := p.edit(false)
	if err != nil {
		return EditableFields{}, err
	}
	return e.EditableFields, nil
}

// DecodeEdits reads a JSON array of edits. A malformed body fails as a whole;
// a well-formed body whose entries are individually invalid returns the valid
// edits plus one RowError per invalid entry, indexed by array position.
func DecodeEdits(r io.Reader) ([]IndexedEdit, []RowError, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, nil, &ValidationError{Field: "body", Reason: err.Error()}
	}
	if len(raw) == 0 {
		return nil, nil, ErrEmptyBatch
	}
	var edits []IndexedEdit
	var rowErrs []RowError
	for i, item := range raw {
		var p editPayload
		if err := strictDecoder(strings.NewReader(string(item))).Decode(&p); err != nil {
			rowErrs = append(rowErrs, RowError{Index: i, Err: &ValidationError{Field: "row", Reason: err.Error()}})
			continue
		}
		e, err := p.edit(true)
		if err == nil {
			err = e.Validate()
		}
		if err != nil {
			id := ""
			if p.ProcurementID != nil {
				id = *p.ProcurementID
			}
			rowErrs = append(rowErrs, RowError{Index: i, ID: id, Err: err})
			continue
		}
		edits = append(edits, IndexedEdit{Index: i, Edit: e})
	}
	return edits, rowErrs, nil
}

// ErrEmptyBatch is returned for a batch with no entries.
var ErrEmptyBatch = errors.New("batch has no edits")

// IndexedEdit remembers the position an edit had in its batch.
type IndexedEdit struct {
	Index int
	Edit
}

// Indexed numbers edits by slice position.
func Indexed(edits []Edit) []IndexedEdit {
	out := make([]IndexedEdit, len(edits))
	for i, e := range edits {
		out[i] = IndexedEdit{Index: i, Edit: e}
	}
	return out
}
