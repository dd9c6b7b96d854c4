package leads

import (
	"errors"
	"strings"
)

var (
	ErrNotFound     = errors.New("lead not found")
	ErrForbidden    = errors.New("not allowed to modify this lead")
	ErrInvalidInput = errors.New("invalid input")
	ErrNoRecords    = errors.New("no leads match the filter")
	ErrNoValidRows  = errors.New("no valid rows to import")
)

// NoValidRowsError carries the per-row messages of an import that produced
// nothing. It matches ErrNoValidRows.
type NoValidRowsError struct {
	Errors []string
}

func (e *NoValidRowsError) Error() string {
	if len(e.Errors) == 0 {
		return ErrNoValidRows.Error()
	}
	return ErrNoValidRows.Error() + ": " + strings.Join(e.Errors, "; ")
}

func (e *NoValidRowsError) Unwrap() error { return ErrNoValidRows }
