// Package store persists company records and the update policy document as JSON files.
package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no record file exists for a slug.
var ErrNotFound = errors.New("record not found")

// IOError represents a failure reading or writing a store file.
type IOError struct {
	Op    string // "read", "write", "decode", "encode", "list"
	Path  string
	Cause error
}

func (e *IOError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("store %s %s: %v", e.Op, e.Path, e.Cause)
	}
	return fmt.Sprintf("store %s %s", e.Op, e.Path)
}

func (e *IOError) Unwrap() error {
	return e.Cause
}
