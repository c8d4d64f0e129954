// Package apperr holds the expected, recoverable outcomes of directory
// operations. Callers compare with errors.Is.
package apperr

import "errors"

var (
	ErrCapacityExceeded  = errors.New("capacity exceeded")
	ErrInsufficientSpace = errors.New("insufficient space")
	ErrNotFound          = errors.New("not found")
	ErrEmpty             = errors.New("empty")
)
