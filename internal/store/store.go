// Package store persists the project table with gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/campprojects/dashboard/internal/metrics"
	"github.com/campprojects/dashboard/internal/project"
)

const insertBatchSize = 200

// Store is the record store. Writes are serialized so a re-ingest and an edit
// never interleave; reads run freely.
type Store struct {
	db     *gorm.DB
	schema *project.Schema
	log    *zap.Logger
	mu     sync.Mutex
}

// New migrates the project tables on d and returns a store over them.
func New(d *gorm.DB, schema *project.Schema, log *zap.Logger) (*Store, error) {
	if err := d.AutoMigrate(&ProjectRow{}, &ColumnSet{}); err != nil {
		return nil, fmt.Errorf("auto-migrate project tables: %w", err)
	}
	return &Store{db: d, schema: schema, log: log}, nil
}

// Count returns the number of stored projects.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&ProjectRow{}).Count(&n).Error; err != nil {
		return 0, persistenceError("count", "", err)
	}
	return n, nil
}

// Replace discards the stored table and writes t in its place. This is a
// destructive overwrite: edits made since the last ingest are lost.
func (s *Store) Replace(ctx context.Context, t project.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.Columns = append([]project.Column(nil), t.Columns...)
	t.EnsureColumn(s.schema, project.FieldNotes)
	rows := make([]ProjectRow, len(t.Records))
	for i, r := range t.Records {
		rows[i] = rowFromRecord(i, r)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&ProjectRow{}).Error; err != nil {
			return fmt.Errorf("delete projects: %w", err)
		}
		if err := tx.Where("1 = 1").Delete(&ColumnSet{}).Error; err != nil {
			return fmt.Errorf("delete columns: %w", err)
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, insertBatchSize).Error; err != nil {
				return fmt.Errorf("insert projects: %w", err)
			}
		}
		cs := ColumnSet{ID: 1, Columns: t.Columns}
		if err := tx.Create(&cs).Error; err != nil {
			return fmt.Errorf("insert columns: %w", err)
		}
		return nil
	})
	if err != nil {
		return persistenceError("replace", "", err)
	}

	s.log.Info("replaced project table", zap.Int("rows", len(rows)), zap.Int("columns", len(t.Columns)))
	return nil
}

// Load reads the whole table in source order with derived fields recomputed.
func (s *Store) Load(ctx context.Context) (project.Table, error) {
	d := s.db.WithContext(ctx)

	var cs ColumnSet
	err := d.First(&cs, "id = ?", 1).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return project.Table{}, persistenceError("load columns", "", err)
	}

	var rows []ProjectRow
	if err := d.Order("position ASC").Find(&rows).Error; err != nil {
		return project.Table{}, persistenceError("load projects", "", err)
	}

	t := project.Table{
		Columns: append([]project.Column(nil), cs.Columns...),
		Records: make([]project.Record, len(rows)),
	}
	for i, row := range rows {
		t.Records[i] = row.record()
	}
	project.Derive(&t, s.schema)
	return t, nil
}

// Update overwrites the editable fields of the row with the given id. Other
// columns are left alone. Zero matching rows is a *RecordNotFoundError.
func (s *Store) Update(ctx context.Context, id string, f project.EditableFields) error {
	err := s.update(ctx, id, f)
	metrics.RecordUpdates.WithLabelValues(outcome(err)).Inc()
	return err
}

func (s *Store) update(ctx context.Context, id string, f project.EditableFields) error {
	if err := (project.Edit{ProcurementID: id, EditableFields: f}).Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.db.WithContext(ctx).Model(&ProjectRow{}).
		Where("procurement_id = ?", id).
		Updates(map[string]interface{}{
			"procurement_name": f.ProcurementName,
			"contractor":       f.Contractor,
			"estimated_cost":   f.EstimatedCost,
			"contract_value":   f.ContractValue,
			"notes":            f.Notes,
		})
	if res.Error != nil {
		return persistenceError("update", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return &project.RecordNotFoundError{ID: id}
	}
	return nil
}

// UpdateBatch attempts every edit independently. It is not transactional: a
// failing row is reported and the rest still run.
func (s *Store) UpdateBatch(ctx context.Context, edits []project.IndexedEdit) []project.RowError {
	var failed []project.RowError
	for _, e := range edits {
		if err := s.Update(ctx, e.ProcurementID, e.EditableFields); err != nil {
			s.log.Warn("batch row failed",
				zap.Int("index", e.Index),
				zap.String("procurement_id", e.ProcurementID),
				zap.Error(err))
			failed = append(failed, project.RowError{Index: e.Index, ID: e.ProcurementID, Err: err})
		}
	}
	return failed
}

func persistenceError(op, id string, err error) error {
	pe := &project.PersistenceError{Op: op, ID: id, Err: err}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		pe.Code = pgErr.Code
	}
	return pe
}

func outcome(err error) string {
	var vErr *project.ValidationError
	switch {
	case err == nil:
		return "updated"
	case project.IsNotFound(err):
		return "not_found"
	case errors.As(err, &vErr):
		return "invalid"
	default:
		return "error"
	}
}
