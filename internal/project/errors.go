package project

import (
	"errors"
	"fmt"
)

// DataSourceError reports a source file that is missing or not tabular. It
// halts the whole pass.
type DataSourceError struct {
	Path string
	Err  error
}

func (e *DataSourceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("data source: %v", e.Err)
	}
	return fmt.Sprintf("data source %s: %v", e.Path, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }

// CellParseError reports a single cell that could not be coerced. Callers
// substitute a default and move on.
type CellParseError struct {
	Kind  string
	Value string
	Err   error
}

func (e *CellParseError) Error() string {
	return fmt.Sprintf("parse %s %q: %v", e.Kind, e.Value, e.Err)
}

func (e *CellParseError) Unwrap() error { return e.Err }

// RecordNotFoundError means an update matched zero rows.
type RecordNotFoundError struct {
	ID string
}

func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("record %q not found", e.ID)
}

// PersistenceError wraps a failed read or write against the record store.
type PersistenceError struct {
	Op   string
	ID   string
	Code string // SQLSTATE when the driver reports one
	Err  error
}

func (e *PersistenceError) Error() string {
	msg := "store " + e.Op
	if e.ID != "" {
		msg += " " + e.ID
	}
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	return msg + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ValidationError rejects an edit before it reaches the store.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RowError is one failed row of a batch update.
type RowError struct {
	Index int
	ID    string
	Err   error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d (%s): %v", e.Index, e.ID, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a RecordNotFoundError.
func IsNotFound(err error) bool {
	var nf *RecordNotFoundError
	return errors.As(err, &nf)
}
