package ome

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrMetadataInconsistent is returned when the declared counts do not match
// the records present or when required metadata is missing.
var ErrMetadataInconsistent = errors.New("metadata inconsistent")

// InconsistentError names the offending metadata field.
type InconsistentError struct {
	Field  string
	Reason string
}

func (e *InconsistentError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrMetadataInconsistent, e.Field, e.Reason)
}

func (e *InconsistentError) Is(target error) bool {
	return target == ErrMetadataInconsistent
}

func inconsistent(field, format string, args ...interface{}) error {
	return &InconsistentError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
