package applicants

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("applicant not found")
	ErrJobNotFound  = fmt.Errorf("job %w", errNotFoundBase)
	ErrNoResumes    = fmt.Errorf("resumes %w", errNotFoundBase)
	ErrInvalidInput = errors.New("invalid input")
	ErrNoRecords    = errors.New("no applicants match the filter")

	errNotFoundBase = errors.New("not found")
)

// IsNotFound reports whether err is any not-found condition of this package.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, errNotFoundBase)
}
