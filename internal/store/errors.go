package store

import (
	"errors"
	"fmt"

	"storyloom/internal/services"
)

var (
	// ErrInvalidTransition is returned when a status change is not in the
	// lifecycle table.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrPagesExist is returned when a story already has its page set.
	ErrPagesExist = errors.New("story already has pages")
	// ErrInvalidPages is returned for page sets outside the allowed range or
	// with non-contiguous indices.
	ErrInvalidPages = errors.New("invalid page set")
)

const stageName = "store"

func persistenceError(op string, err error) error {
	return services.Wrap(services.ErrPersistence, stageName, op, "", err)
}

func notFoundError(op, what string) error {
	return services.Wrap(services.ErrNotFound, stageName, op, what+" not found", nil)
}

func validationError(op string, marker error, format string, args ...any) error {
	return services.Wrap(services.ErrValidation, stageName, op, fmt.Sprintf(format, args...), marker)
}
