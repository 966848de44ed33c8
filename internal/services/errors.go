package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Error kinds returned by the node, version, permission and tree services.
// Handlers translate them to status codes with StatusForError; everything
// else surfaces as a 500.
var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrInvalidParent    = errors.New("invalid parent")
	ErrHasChildren      = errors.New("node has children")
	ErrForbidden        = errors.New("forbidden")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// CascadeError reports a cascading delete that could not complete. The whole
// subtree transaction rolls back, so Remaining always lists every node that
// is still present.
type CascadeError struct {
	Remaining []uuid.UUID
	Cause     error
}

func (e *CascadeError) Error() string {
	ids := make([]string, len(e.Remaining))
	for i, id := range e.Remaining {
		ids[i] = id.String()
	}
	return fmt.Sprintf("cascading delete failed, nodes not removed: [%s]: %v", strings.Join(ids, ", "), e.Cause)
}

func (e *CascadeError) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	return ErrStoreUnavailable
}

// StatusForError maps service error kinds to HTTP status codes.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidParent):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrHasChildren):
		return fiber.StatusConflict
	case errors.Is(err, ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, ErrStoreUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
