package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campprojects/dashboard/internal/db"
	"github.com/campprojects/dashboard/internal/project"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	d, err := db.Connect(db.Options{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "projects.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(d) })

	s, err := New(d, project.DefaultSchema(), zap.NewNop())
	require.NoError(t, err)
	return s
}

func fixture() project.Table {
	header := []string{"رقم العملية الشرائية", "اسم العملية الشرائية", "المقاول", "مصدر التمويل",
		"التكلفة التقديرية", "قيمة العقد / العقود", "تاريخ المباشرة", "التقدم بالاقفال", "المنطقة"}
	rows := [][]string{
		{"P-1", "مدرسة", "شركة أ", "منحة", "100", "90", "01/02/2025", "نعم", "الشمال"},
		{"P-2", "عيادة", "شركة ب", "قرض", "200", "220", "", "لا", "الجنوب"},
		{"P-3", "طريق", "شركة أ", "منحة", "50", "50", "15/03/2024", "", ""},
	}
	return project.Normalize(project.DefaultSchema(), header, rows)
}

func TestReplaceAndLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	src := fixture()

	require.NoError(t, s.Replace(ctx, src))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, append(src.Columns, project.Column{Name: "ملاحظات", Field: project.FieldNotes}), got.Columns)
	require.Len(t, got.Records, 3)

	for i, r := range got.Records {
		want := src.Records[i]
		assert.Equal(t, want.ProcurementID, r.ProcurementID)
		assert.Equal(t, want.Contractor, r.Contractor)
		assert.True(t, want.EstimatedCost.Equal(r.EstimatedCost))
		assert.True(t, want.ContractValue.Equal(r.ContractValue))
		assert.Equal(t, want.BudgetStatus, r.BudgetStatus)
		assert.True(t, want.BudgetVariance.Equal(*r.BudgetVariance))
		assert.Equal(t, project.FormatDate(want.MobilizationDate), project.FormatDate(r.MobilizationDate))
		assert.Equal(t, want.Extra["المنطقة"], r.Extra["المنطقة"])
	}
	assert.Len(t, src.Columns, 11, "replace does not touch the caller's header")
}

func TestReplace_IsDestructive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Replace(ctx, fixture()))

	smaller := project.Normalize(project.DefaultSchema(), []string{"procurement_id", "contractor"}, [][]string{{"Z", "x"}})
	require.NoError(t, s.Replace(ctx, smaller))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got.Records, 1)
	assert.Equal(t, "Z", got.Records[0].ProcurementID)
	assert.False(t, got.Has(project.FieldEstimatedCost))
	assert.Nil(t, got.Records[0].BudgetVariance)
}

func TestLoad_Empty(t *testing.T) {
	s := newTestStore(t)
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got.Records)
	assert.Empty(t, got.Columns)
}

func TestUpdate_ChangesOnlyEditableFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Replace(ctx, fixture()))
	before, err := s.Load(ctx)
	require.NoError(t, err)

	edit := project.EditableFields{
		ProcurementName: "مدرسة معدلة",
		Contractor:      "شركة ج",
		EstimatedCost:   decimal.NewFromInt(80),
		ContractValue:   decimal.NewFromInt(95),
		Notes:           "تمت المراجعة",
	}
	require.NoError(t, s.Update(ctx, "P-1", edit))

	after, err := s.Load(ctx)
	require.NoError(t, err)

	got := after.Records[0]
	assert.Equal(t, "مدرسة معدلة", got.ProcurementName)
	assert.Equal(t, "شركة ج", got.Contractor)
	assert.True(t, got.EstimatedCost.Equal(decimal.NewFromInt(80)))
	assert.Equal(t, "تمت المراجعة", got.Notes)
	assert.Equal(t, project.Overrun, got.BudgetStatus, "derived fields follow the new amounts")

	b := before.Records[0]
	assert.Equal(t, b.FundingSource, got.FundingSource)
	assert.Equal(t, b.ClosureProgress, got.ClosureProgress)
	assert.Equal(t, project.FormatDate(b.MobilizationDate), project.FormatDate(got.MobilizationDate))
	assert.Equal(t, b.Extra, got.Extra)

	assert.Equal(t, before.Records[1:], after.Records[1:])
}

func TestUpdate_NotFoundLeavesTableUnchanged(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Replace(ctx, fixture()))
	before, err := s.Load(ctx)
	require.NoError(t, err)

	err = s.Update(ctx, "missing", project.EditableFields{ProcurementName: "x"})
	var nf *project.RecordNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "missing", nf.ID)

	after, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestUpdate_RejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	err := s.Update(context.Background(), "P-1", project.EditableFields{ContractValue: decimal.NewFromInt(-5)})
	var vErr *project.ValidationError
	assert.True(t, errors.As(err, &vErr))

	err = s.Update(context.Background(), " ", project.EditableFields{})
	assert.True(t, errors.As(err, &vErr))
}

func TestUpdateBatch_PartialApplication(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Replace(ctx, fixture()))

	edits := project.Indexed([]project.Edit{
		{ProcurementID: "P-1", EditableFields: project.EditableFields{ProcurementName: "one", Notes: "a"}},
		{ProcurementID: "nope", EditableFields: project.EditableFields{ProcurementName: "two"}},
		{ProcurementID: "P-3", EditableFields: project.EditableFields{ProcurementName: "three", ContractValue: decimal.NewFromInt(-1)}},
		{ProcurementID: "P-2", EditableFields: project.EditableFields{ProcurementName: "four"}},
	})
	failed := s.UpdateBatch(ctx, edits)

	require.Len(t, failed, 2)
	assert.Equal(t, 1, failed[0].Index)
	assert.True(t, project.IsNotFound(failed[0].Err))
	assert.Equal(t, 2, failed[1].Index)
	assert.Equal(t, "P-3", failed[1].ID)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "one", got.Records[0].ProcurementName)
	assert.Equal(t, "four", got.Records[1].ProcurementName)
	assert.Equal(t, "طريق", got.Records[2].ProcurementName)
}

func TestPersistenceErrorWraps(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, db.Close(s.db))

	_, err := s.Load(context.Background())
	var pe *project.PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "load columns", pe.Op)
}
