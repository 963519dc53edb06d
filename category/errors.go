package category

import (
	"errors"
	"fmt"

	"github.com/lexandro/fileorganizer-mcp/extension"
)

var (
	// ErrDuplicateCategory is returned when a category name already exists (case-insensitive).
	ErrDuplicateCategory = errors.New("duplicate category")
	// ErrExtensionConflict is returned when an extension already belongs to another category.
	ErrExtensionConflict = errors.New("extension conflict")
	// ErrNotFound is returned when the named category does not exist.
	ErrNotFound = errors.New("category not found")
	// ErrInvalidName is returned for blank names and the reserved Uncategorized name.
	ErrInvalidName = errors.New("invalid category name")
	// ErrIndexInconsistent means a snapshot violated extension exclusivity.
	// The registry prevents this, so seeing it is a bug, not a user error.
	ErrIndexInconsistent = errors.New("extension index inconsistent")
)

// ConflictError reports which category already owns an extension.
type ConflictError struct {
	Extension string
	Owner     string
	Requested string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("extension %s already belongs to category %q (requested by %q)",
		extension.Display(e.Extension), e.Owner, e.Requested)
}

// Unwrap lets errors.Is match ErrExtensionConflict.
func (e *ConflictError) Unwrap() error { return ErrExtensionConflict }
