package project

import (
	"fmt"
	"strings"
)

// Field identifies a known logical column of the project dataset.
type Field int

const (
	FieldUnknown Field = iota
	FieldProcurementID
	FieldProcurementName
	FieldContractor
	FieldFundingSource
	FieldEstimatedCost
	FieldContractValue
	FieldSettlementValue
	FieldMobilizationDate
	FieldProvisionalAcceptanceDate
	FieldClosureSubmissionDate
	FieldClosureProgress
	FieldNotes
	FieldBudgetVariance
	FieldBudgetStatus
)

var fieldNames = map[Field]string{
	FieldUnknown:                   "",
	FieldProcurementID:             "procurement_id",
	FieldProcurementName:           "procurement_name",
	FieldContractor:                "contractor",
	FieldFundingSource:             "funding_source",
	FieldEstimatedCost:             "estimated_cost",
	FieldContractValue:             "contract_value",
	FieldSettlementValue:           "settlement_value",
	FieldMobilizationDate:          "mobilization_date",
	FieldProvisionalAcceptanceDate: "provisional_acceptance_date",
	FieldClosureSubmissionDate:     "closure_submission_date",
	FieldClosureProgress:           "closure_progress_status",
	FieldNotes:                     "notes",
	FieldBudgetVariance:            "budget_variance",
	FieldBudgetStatus:              "budget_status",
}

func (f Field) String() string { return fieldNames[f] }

func (f Field) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *Field) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*f = FieldUnknown
		return nil
	}
	parsed, ok := ParseField(string(b))
	if !ok {
		return fmt.Errorf("unknown field %q", string(b))
	}
	*f = parsed
	return nil
}

// ParseField resolves a snake_case field name.
func ParseField(name string) (Field, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for f, n := range fieldNames {
		if n != "" && n == name {
			return f, true
		}
	}
	return FieldUnknown, false
}

func (f Field) derived() bool { return f == FieldBudgetVariance || f == FieldBudgetStatus }

// Column is one header cell of a table together with the field it maps to.
type Column struct {
	Name  string `json:"name"`
	Field Field  `json:"field"`
}

// Schema maps source header text to fields. The first header registered for a
// field is its canonical header, used whenever a column has to be synthesized.
type Schema struct {
	byHeader  map[string]Field
	canonical map[Field]string
}

// Default headers of the reference dataset.
var defaultHeaders = map[Field][]string{
	FieldProcurementID:             {"رقم العملية الشرائية"},
	FieldProcurementName:           {"اسم العملية الشرائية"},
	FieldContractor:                {"المقاول"},
	FieldFundingSource:             {"مصدر التمويل"},
	FieldEstimatedCost:             {"التكلفة التقديرية"},
	FieldContractValue:             {"قيمة العقد / العقود"},
	FieldSettlementValue:           {"قيمة المخالصة"},
	FieldMobilizationDate:          {"تاريخ المباشرة"},
	FieldProvisionalAcceptanceDate: {"تاريخ الاستلام الابتدائي"},
	FieldClosureSubmissionDate:     {"تاريخ التقدم بالاقفال"},
	FieldClosureProgress:           {"التقدم بالاقفال"},
	FieldNotes:                     {"ملاحظات"},
	FieldBudgetVariance:            {"فارق الميزانية"},
	FieldBudgetStatus:              {"حالة الميزانية"},
}

// DefaultHeaders returns a fresh copy of the reference dataset's Arabic
// headers, each followed by the snake_case field name as an alias.
func DefaultHeaders() map[Field][]string {
	headers := make(map[Field][]string, len(defaultHeaders))
	for f, h := range defaultHeaders {
		headers[f] = append(append([]string(nil), h...), f.String())
	}
	return headers
}

// DefaultSchema recognizes DefaultHeaders.
func DefaultSchema() *Schema {
	return NewSchema(DefaultHeaders())
}

// NewSchema builds a schema from per-field header lists. Fields left out fall
// back to their snake_case name.
func NewSchema(headers map[Field][]string) *Schema {
	s := &Schema{
		byHeader:  map[string]Field{},
		canonical: map[Field]string{},
	}
	for f := range fieldNames {
		if f == FieldUnknown {
			continue
		}
		names := headers[f]
		if len(names) == 0 {
			names = []string{f.String()}
		}
		for _, n := range names {
			n = strings.TrimSpace(n)
			if n == "" {
				continue
			}
			if _, ok := s.canonical[f]; !ok {
				s.canonical[f] = n
			}
			s.byHeader[n] = f
		}
	}
	return s
}

// FieldOf returns the field a (trimmed) header maps to.
func (s *Schema) FieldOf(header string) Field {
	return s.byHeader[strings.TrimSpace(header)]
}

// Header returns the canonical header for f.
func (s *Schema) Header(f Field) string {
	if h, ok := s.canonical[f]; ok {
		return h
	}
	return f.String()
}
