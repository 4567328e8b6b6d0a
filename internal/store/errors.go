package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// ErrorCode categorizes storage errors.
type ErrorCode string

const (
	// ErrCodeUnavailable indicates the storage layer could not be reached
	// (I/O failure, closed database, busy timeout).
	ErrCodeUnavailable ErrorCode = "STORE_UNAVAILABLE"

	// ErrCodeDuplicateKey indicates a primary key or unique index collision.
	ErrCodeDuplicateKey ErrorCode = "DUPLICATE_KEY"

	// ErrCodeConstraint indicates any other constraint violation
	// (check, foreign key, immutability trigger).
	ErrCodeConstraint ErrorCode = "CONSTRAINT_VIOLATION"

	// ErrCodeAtomicBatch indicates an atomic batch was rolled back.
	ErrCodeAtomicBatch ErrorCode = "ATOMIC_BATCH_FAILED"

	// ErrCodeNotFound indicates the addressed record does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Error is a storage error with a category code.
//
// An atomic batch failure wraps the error that caused the rollback, so
// errors.As still finds e.g. a DUPLICATE_KEY cause underneath.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the store operation that failed.
	Op string

	// Err is the underlying error (optional).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsDuplicateKey returns true if any error in the chain is a DUPLICATE_KEY error.
func IsDuplicateKey(err error) bool {
	return hasCode(err, ErrCodeDuplicateKey)
}

// IsUnavailable returns true if any error in the chain is a STORE_UNAVAILABLE error.
func IsUnavailable(err error) bool {
	return hasCode(err, ErrCodeUnavailable)
}

// IsNotFound returns true if any error in the chain is a NOT_FOUND error.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsAtomicBatch returns true if the error reports a rolled back batch.
func IsAtomicBatch(err error) bool {
	return hasCode(err, ErrCodeAtomicBatch)
}

// IsConstraint returns true if any error in the chain is a CONSTRAINT_VIOLATION error.
func IsConstraint(err error) bool {
	return hasCode(err, ErrCodeConstraint)
}

// hasCode walks the chain because an ATOMIC_BATCH_FAILED error wraps the
// coded error that caused it.
func hasCode(err error, code ErrorCode) bool {
	for err != nil {
		var se *Error
		if !errors.As(err, &se) {
			return false
		}
		if se.Code == code {
			return true
		}
		err = se.Err
	}
	return false
}

// classify converts a driver error into a coded *Error.
// Already-coded errors pass through unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var se *Error
	if errors.As(err, &se) {
		return err
	}

	if errors.Is(err, sql.ErrNoRows) {
		return &Error{Code: ErrCodeNotFound, Op: op, Err: err}
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			return &Error{Code: ErrCodeDuplicateKey, Op: op, Err: err}
		default:
			return &Error{Code: ErrCodeConstraint, Op: op, Err: err}
		}
	}

	return &Error{Code: ErrCodeUnavailable, Op: op, Err: err}
}
