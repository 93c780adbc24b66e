package domain

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validation errors
var (
	ErrInvalidDatasetName = errors.New("invalid dataset name")
	ErrUploadTooLarge     = errors.New("upload exceeds maximum size")
)

// Validation constants
const (
	MaxDatasetNameLength = 255
	MinDatasetNameLength = 1
)

// ValidateDatasetName validates a dataset name and returns its cleaned form.
func ValidateDatasetName(name string) (string, error) {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, "\\", "/")))

	if name == "." || name == "/" || len(name) < MinDatasetNameLength {
		return "", fmt.Errorf("%w: name cannot be empty", ErrInvalidDatasetName)
	}

	if len(name) > MaxDatasetNameLength {
		return "", fmt.Errorf("%w: name exceeds %d characters", ErrInvalidDatasetName, MaxDatasetNameLength)
	}

	return name, nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int, error) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset, nil
}
