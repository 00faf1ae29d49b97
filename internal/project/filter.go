package project

// Dimension is a filterable categorical column.
type Dimension string

const (
	DimContractor    Dimension = "contractor"
	DimFundingSource Dimension = "funding_source"
	DimClosureStatus Dimension = "closure_status"
)

// Dimensions lists the filterable columns in display order.
var Dimensions = []Dimension{DimContractor, DimFundingSource, DimClosureStatus}

// Field returns the column a dimension filters on.
func (d Dimension) Field() Field {
	switch d {
	case DimContractor:
		return FieldContractor
	case DimFundingSource:
		return FieldFundingSource
	case DimClosureStatus:
		return FieldClosureProgress
	}
	return FieldUnknown
}

// Selection holds the selected values per dimension. A nil set selects every
// value; a non-nil empty set selects nothing.
type Selection map[Dimension][]string

// Filter returns the rows whose value in every selected, present dimension is
// one of the selected values. Dimensions the table lacks are skipped. The
// input table is left untouched.
func Filter(t Table, sel Selection) Table {
	type active struct {
		field Field
		set   map[string]struct{}
	}
	var checks []active
	for _, d := range Dimensions {
		values, ok := sel[d]
		if !ok || values == nil || !t.Has(d.Field()) {
			continue
		}
		set := make(map[string]struct{}, len(values))
		for _, v := range values {
			set[v] = struct{}{}
		}
		checks = append(checks, active{field: d.Field(), set: set})
	}

	out := Table{
		Columns: append([]Column(nil), t.Columns...),
		Records: make([]Record, 0, len(t.Records)),
	}
rows:
	for _, r := range t.Records {
		for _, c := range checks {
			if _, ok := c.set[r.Text(c.field)]; !ok {
				continue rows
			}
		}
		out.Records = append(out.Records, r.Clone())
	}
	return out
}

// Options returns the distinct values of each present dimension in first-seen
// order. These are the default (select-all) filter sets.
func Options(t Table) map[Dimension][]string {
	out := map[Dimension][]string{}
	for _, d := range Dimensions {
		f := d.Field()
		if !t.Has(f) {
			continue
		}
		seen := map[string]bool{}
		values := []string{}
		for _, r := range t.Records {
			v := r.Text(f)
			if !seen[v] {
				seen[v] = true
				values = append(values, v)
			}
		}
		out[d] = values
	}
	return out
}
