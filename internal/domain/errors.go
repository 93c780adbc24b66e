package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Dataset errors
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrEmptyUpload     = errors.New("uploaded file is empty")

	// Record errors
	ErrMissingColumns = errors.New("required columns missing")
	ErrInvalidKind    = errors.New("invalid relationship kind")
	ErrInvalidWindow  = errors.New("time window start is after end")

	// Graph database errors
	ErrGraphSyncDisabled = errors.New("graph database sync is not configured")
)

// MissingColumnError lists every canonical field that could not be resolved
// against the input header.
type MissingColumnError struct {
	Fields []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingColumns.Error(), strings.Join(e.Fields, ", "))
}

func (e *MissingColumnError) Unwrap() error {
	return ErrMissingColumns
}

// MalformedValueError describes a single row that was dropped during loading.
type MalformedValueError struct {
	Row   int    // 1-based data row, header excluded
	Field string // canonical field name
	Value string
	Err   error
}

func (e MalformedValueError) Error() string {
	return fmt.Sprintf("row %d: invalid %s %q: %v", e.Row, e.Field, e.Value, e.Err)
}

func (e MalformedValueError) Unwrap() error {
	return e.Err
}
