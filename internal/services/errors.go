package services

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error kinds. Handlers map these to HTTP statuses; anything else is internal.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrForbidden         = errors.New("forbidden")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrDuplicate         = errors.New("duplicate")
	ErrUnauthorized      = errors.New("unauthorized")
)

// ServiceError carries a message that is safe to show to the API client.
type ServiceError struct {
	Kind    error
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) error {
	return &ServiceError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func validationError(format string, args ...any) error {
	return newError(ErrValidation, format, args...)
}

func notFoundError(format string, args ...any) error {
	return newError(ErrNotFound, format, args...)
}

func forbiddenError(format string, args ...any) error {
	return newError(ErrForbidden, format, args...)
}

// Actor is the verified identity calling a service operation.
type Actor struct {
	ID      string
	IsAdmin bool
}

// Is reports whether the actor is the account with the given id.
func (a Actor) Is(id primitive.ObjectID) bool {
	return a.ID != "" && a.ID == id.Hex()
}

// CanActFor reports whether the actor is the account or an admin.
func (a Actor) CanActFor(id primitive.ObjectID) bool {
	return a.IsAdmin || a.Is(id)
}

// ParseID converts a hex string into an ObjectID, failing with ErrValidation.
func ParseID(hex, field string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, validationError("Invalid %s.", field)
	}
	return id, nil
}
