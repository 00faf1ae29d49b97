package project

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"1,250,000 دولار", "1250000"},
		{"$ 99.50", "99.5"},
		{"USD 12 345", "12345"},
		{"١٢٣٤", "1234"},
		{".5", "0.5"},
		{"7.", "7"},
		{"-300", "300"},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := ParseMoney(tc.raw)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "got %s", got)
		})
	}
}

func TestParseMoney_NonNumericYieldsZero(t *testing.T) {
	for _, raw := range []string{"", "غير محدد", "n/a", ".", "1.2.3"} {
		got, err := ParseMoney(raw)
		assert.True(t, got.IsZero(), "raw %q", raw)

		var cellErr *CellParseError
		require.True(t, errors.As(err, &cellErr), "raw %q", raw)
		assert.Equal(t, "money", cellErr.Kind)
		assert.True(t, CoerceMoney(raw).IsZero())
	}
}

func TestParseDate_DayFirst(t *testing.T) {
	got, err := ParseDate("03/04/2025")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2025, time.April, 3, 0, 0, 0, 0, time.UTC), *got)

	got, err = ParseDate("2025-04-03")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.April, 3, 0, 0, 0, 0, time.UTC), *got)

	got, err = ParseDate("31-1-2024 10:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.January, 31, 10, 30, 0, 0, time.UTC), *got)
}

func TestParseDate_TwoDigitYear(t *testing.T) {
	got, err := ParseDate("01/02/25")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC), *got)

	got, err = ParseDate("15-3-24")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), *got)
}

func TestParseDate_UnparseableIsNull(t *testing.T) {
	got, err := ParseDate("  ")
	assert.NoError(t, err)
	assert.Nil(t, got)

	got, err = ParseDate("قيد التنفيذ")
	assert.Nil(t, got)
	var cellErr *CellParseError
	assert.True(t, errors.As(err, &cellErr))

	got, _ = ParseDate("45/13/2024")
	assert.Nil(t, got)
}

func sampleHeader() []string {
	return []string{
		" رقم العملية الشرائية ",
		"اسم العملية الشرائية",
		"المقاول",
		"مصدر التمويل",
		"التكلفة التقديرية ",
		"قيمة العقد / العقود",
		"تاريخ المباشرة",
		"التقدم بالاقفال",
		"المنطقة",
	}
}

func TestNormalize(t *testing.T) {
	rows := [][]string{
		{"P-1", "مدرسة", "شركة أ", "منحة", "100 دولار", "90", "01/02/2025", "نعم", "الشمال"},
		{"P-2", "عيادة", "شركة ب", "قرض", "200", "2,20", "garbage", "لا", "الجنوب"},
		{"P-3", "طريق", "شركة أ", "منحة", "", "50"},
	}
	tbl := Normalize(DefaultSchema(), sampleHeader(), rows)

	assert.Equal(t, "رقم العملية الشرائية", tbl.Columns[0].Name)
	assert.Equal(t, FieldProcurementID, tbl.Columns[0].Field)
	assert.Equal(t, FieldEstimatedCost, tbl.Columns[4].Field)
	assert.Equal(t, Column{Name: "المنطقة", Field: FieldUnknown}, tbl.Columns[8])
	assert.True(t, tbl.Has(FieldBudgetVariance))
	assert.True(t, tbl.Has(FieldBudgetStatus))
	assert.False(t, tbl.Has(FieldSettlementValue))

	require.Len(t, tbl.Records, 3)
	r0 := tbl.Records[0]
	assert.Equal(t, "P-1", r0.ProcurementID)
	assert.True(t, r0.EstimatedCost.Equal(decimal.NewFromInt(100)))
	require.NotNil(t, r0.MobilizationDate)
	assert.Equal(t, time.February, r0.MobilizationDate.Month())
	assert.Equal(t, "الشمال", r0.Extra["المنطقة"])
	assert.Equal(t, Surplus, r0.BudgetStatus)

	r1 := tbl.Records[1]
	assert.Nil(t, r1.MobilizationDate)
	assert.True(t, r1.ContractValue.Equal(decimal.NewFromInt(220)))
	assert.Equal(t, Overrun, r1.BudgetStatus)

	r2 := tbl.Records[2]
	assert.True(t, r2.EstimatedCost.IsZero())
	assert.Equal(t, "", r2.ClosureProgress)
	assert.Equal(t, "", r2.Extra["المنطقة"])
	assert.Equal(t, Overrun, r2.BudgetStatus)
}

func TestNormalize_RepeatedAndBlankHeadersStayDistinct(t *testing.T) {
	header := []string{"procurement_id", "contractor", "note", "note", "", "", "contractor"}
	tbl := Normalize(DefaultSchema(), header, [][]string{{"1", "A", "first", "second", "x", "y", "B"}})

	names := make([]string, len(tbl.Columns))
	for i, c := range tbl.Columns {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"procurement_id", "contractor", "note", "note.1", "Unnamed: 4", "Unnamed: 5", "contractor.1"}, names[:7])

	r := tbl.Records[0]
	assert.Equal(t, "A", r.Contractor)
	assert.Equal(t, "first", r.Extra["note"])
	assert.Equal(t, "second", r.Extra["note.1"])
	assert.Equal(t, "x", r.Extra["Unnamed: 4"])
	assert.Equal(t, "y", r.Extra["Unnamed: 5"])
	assert.Equal(t, "B", r.Extra["contractor.1"])
}

func TestNormalize_SkipsDerivationWithoutInputs(t *testing.T) {
	header := []string{"المقاول", "التكلفة التقديرية", "حالة الميزانية"}
	tbl := Normalize(DefaultSchema(), header, [][]string{{"أ", "100", "وفر ✅"}})

	assert.False(t, tbl.Has(FieldBudgetVariance))
	assert.False(t, tbl.Has(FieldBudgetStatus))
	r := tbl.Records[0]
	assert.Nil(t, r.BudgetVariance)
	assert.Equal(t, BudgetStatus(""), r.BudgetStatus)
	assert.Equal(t, "وفر ✅", r.Extra["حالة الميزانية"], "derived column passes through when it cannot be recomputed")
}

func TestDerive_StatusMatchesComparison(t *testing.T) {
	header := []string{"estimated_cost", "contract_value"}
	rows := [][]string{{"100", "90"}, {"200", "220"}, {"50", "50"}, {"0", "0.01"}}
	tbl := Normalize(DefaultSchema(), header, rows)

	want := []BudgetStatus{Surplus, Overrun, Surplus, Overrun}
	for i, r := range tbl.Records {
		require.NotNil(t, r.BudgetVariance)
		assert.True(t, r.BudgetVariance.Equal(r.EstimatedCost.Sub(r.ContractValue)))
		assert.Equal(t, want[i], r.BudgetStatus, "row %d", i)
		assert.Equal(t, r.EstimatedCost.GreaterThanOrEqual(r.ContractValue), r.BudgetStatus == Surplus)
	}

	before := len(tbl.Columns)
	Derive(&tbl, DefaultSchema())
	assert.Len(t, tbl.Columns, before, "derive is idempotent")
}

func TestAssignIDs(t *testing.T) {
	ns := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	header := []string{"اسم العملية الشرائية"}
	tbl := Normalize(DefaultSchema(), header, [][]string{{"أ"}, {"ب"}})

	require.NoError(t, AssignIDs(&tbl, DefaultSchema(), ns))
	assert.True(t, tbl.Has(FieldProcurementID))
	assert.Equal(t, StableID(ns, 1, "أ"), tbl.Records[0].ProcurementID)
	assert.NotEqual(t, tbl.Records[0].ProcurementID, tbl.Records[1].ProcurementID)

	again := Normalize(DefaultSchema(), header, [][]string{{"أ"}, {"ب"}})
	require.NoError(t, AssignIDs(&again, DefaultSchema(), ns))
	assert.Equal(t, tbl.Records[1].ProcurementID, again.Records[1].ProcurementID)
}

func TestAssignIDs_Duplicate(t *testing.T) {
	header := []string{"procurement_id"}
	tbl := Normalize(DefaultSchema(), header, [][]string{{"X"}, {"Y"}, {"X"}})

	err := AssignIDs(&tbl, DefaultSchema(), uuid.Nil)
	var dsErr *DataSourceError
	require.True(t, errors.As(err, &dsErr))
	assert.Contains(t, err.Error(), `"X"`)
}
