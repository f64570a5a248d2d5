package types

import (
	"errors"
	"fmt"

	"github.com/glebarez/go-sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DuplicateError is returned when saving a record that conflicts with one
// already stored.
type DuplicateError struct {
	Model string
	Key   string
}

func (e DuplicateError) Error() string {
	return fmt.Sprintf("%s %s already exists", e.Model, e.Key)
}

// ConstraintError is returned when a record violates a schema constraint other
// than uniqueness.
type ConstraintError struct {
	Model string
	Key   string
	Err   error
}

func (e ConstraintError) Error() string {
	return fmt.Sprintf("%s %s violates a database constraint: %s", e.Model, e.Key, e.Err)
}

func (e ConstraintError) Unwrap() error {
	return e.Err
}

// QueryError is returned when reading records fails. Op is the step that
// failed, either "load" or "scan".
type QueryError struct {
	Op    string
	Model string
	Err   error
}

func (e QueryError) Error() string {
	return fmt.Sprintf("failed to %s %s: %s", e.Op, e.Model, e.Err)
}

func (e QueryError) Unwrap() error {
	return e.Err
}

// Err converts a constraint error returned by SQLite when writing a record into
// a *DuplicateError or a *ConstraintError. Other errors are returned as is.
func Err(model, key string, err error) error {
	var sqlErr *sqlite.Error
	if !errors.As(err, &sqlErr) {
		return err
	}

	switch sqlErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return &DuplicateError{Model: model, Key: key}
	case sqlite3.SQLITE_CONSTRAINT_CHECK, sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		return &ConstraintError{Model: model, Key: key, Err: err}
	}

	return err
}
