package project

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var errNoDigits = errors.New("no numeric content")

// ParseMoney keeps only ASCII digits and the decimal point, then parses what
// is left. Arabic-Indic digits are folded to ASCII first. On failure it returns
// zero together with a *CellParseError.
func ParseMoney(raw string) (decimal.Decimal, error) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r >= '٠' && r <= '٩':
			b.WriteRune('0' + (r - '٠'))
		case r >= '۰' && r <= '۹':
			b.WriteRune('0' + (r - '۰'))
		case r == '٫': // arabic decimal separator
			b.WriteRune('.')
		}
	}
	s := b.String()
	if strings.Count(s, ".") > 1 || strings.Trim(s, ".") == "" {
		return decimal.Zero, &CellParseError{Kind: "money", Value: raw, Err: errNoDigits}
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	s = strings.TrimSuffix(s, ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &CellParseError{Kind: "money", Value: raw, Err: err}
	}
	return d, nil
}

// CoerceMoney is ParseMoney with the error dropped.
func CoerceMoney(raw string) decimal.Decimal {
	d, _ := ParseMoney(raw)
	return d
}

// Day-first layouts come before ISO ones; the year position keeps them from
// overlapping.
var dateLayouts = []string{
	"2/1/2006",
	"2/1/2006 15:04",
	"2/1/2006 15:04:05",
	"2-1-2006",
	"2-1-2006 15:04",
	"2-1-2006 15:04:05",
	"2.1.2006",
	"2/1/06",
	"2/1/06 15:04",
	"2-1-06",
	"2.1.06",
	"2006-1-2",
	"2006-1-2 15:04",
	"2006-1-2 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/1/2",
	"2 Jan 2006",
	"2 January 2006",
}

// ParseDate parses a day-first calendar date. Blank input is a null date, not
// an error; anything else that does not parse yields nil and a *CellParseError.
func ParseDate(raw string) (*time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, &CellParseError{Kind: "date", Value: raw, Err: fmt.Errorf("no matching layout")}
}

// FormatDate renders a date as ISO so it parses back unambiguously.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

// Normalize turns a raw header and rows into a typed table: header names are
// trimmed, money columns coerced (0 on failure), dates parsed day-first (nil on
// failure), unknown columns passed through verbatim, and derived budget fields
// computed when both inputs exist.
func Normalize(s *Schema, header []string, rows [][]string) Table {
	t := Table{Columns: make([]Column, len(header))}
	seen := map[Field]bool{}
	names := map[string]bool{}
	for i, h := range header {
		name := strings.TrimSpace(h)
		f := s.FieldOf(name)
		if f != FieldUnknown && seen[f] {
			f = FieldUnknown
		}
		seen[f] = true
		t.Columns[i] = Column{Name: uniqueName(names, name, i), Field: f}
	}

	derivable := seen[FieldEstimatedCost] && seen[FieldContractValue]
	if !derivable {
		for i := range t.Columns {
			if t.Columns[i].Field.derived() {
				t.Columns[i].Field = FieldUnknown
			}
		}
	}

	t.Records = make([]Record, 0, len(rows))
	for _, row := range rows {
		var rec Record
		for i, col := range t.Columns {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			switch f := col.Field; {
			case f == FieldUnknown:
				if rec.Extra == nil {
					rec.Extra = map[string]string{}
				}
				rec.Extra[col.Name] = cell
			case f == FieldProcurementID:
				rec.ProcurementID = strings.TrimSpace(cell)
			case rec.money(f) != nil:
				*rec.money(f) = CoerceMoney(cell)
			case rec.date(f) != nil:
				*rec.date(f), _ = ParseDate(cell)
			case f.derived():
				// recomputed by Derive
			default:
				rec.setText(f, cell)
			}
		}
		t.Records = append(t.Records, rec)
	}

	Derive(&t, s)
	return t
}

// uniqueName keeps pass-through values from sharing a key: a blank header
// becomes "Unnamed: i" and a repeated one gets a ".1", ".2" suffix.
func uniqueName(taken map[string]bool, name string, i int) string {
	if name == "" {
		name = fmt.Sprintf("Unnamed: %d", i)
	}
	out := name
	for n := 1; taken[out]; n++ {
		out = fmt.Sprintf("%s.%d", name, n)
	}
	taken[out] = true
	return out
}

// Derive recomputes budget variance and status for every row when the table
// has both estimated cost and contract value. Otherwise it leaves the derived
// fields unset. Safe to call repeatedly.
func Derive(t *Table, s *Schema) {
	if !t.Has(FieldEstimatedCost) || !t.Has(FieldContractValue) {
		return
	}
	for i := range t.Records {
		r := &t.Records[i]
		v := r.EstimatedCost.Sub(r.ContractValue)
		r.BudgetVariance = &v
		r.BudgetStatus = StatusOf(v)
	}
	t.EnsureColumn(s, FieldBudgetVariance)
	t.EnsureColumn(s, FieldBudgetStatus)
}

// StableID derives a deterministic identifier for a row that arrived without
// one, so re-ingesting the same file yields the same ids.
func StableID(ns uuid.UUID, row int, name string) string {
	return uuid.NewSHA1(ns, []byte(fmt.Sprintf("project:%d:%s", row, strings.TrimSpace(name)))).String()
}

// AssignIDs fills missing identifiers and enforces uniqueness. A duplicate
// identifier makes the source unusable for updates and is reported as a
// *DataSourceError.
func AssignIDs(t *Table, s *Schema, ns uuid.UUID) error {
	t.EnsureColumn(s, FieldProcurementID)
	seen := make(map[string]int, len(t.Records))
	for i := range t.Records {
		r := &t.Records[i]
		if r.ProcurementID == "" {
			r.ProcurementID = StableID(ns, i+1, r.ProcurementName)
		}
		if prev, dup := seen[r.ProcurementID]; dup {
			return &DataSourceError{Err: fmt.Errorf("row %d: duplicate procurement id %q (first seen at row %d)", i+2, r.ProcurementID, prev+2)}
		}
		seen[r.ProcurementID] = i
	}
	return nil
}
