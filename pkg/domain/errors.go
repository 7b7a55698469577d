package domain

import (
	"fmt"
	"net/http"
)

// Client-facing messages for the not-found conditions.
const (
	MsgMineralNotFound     = "Mineral not found"
	MsgNoMineralsFound     = "No minerals found"
	MsgNoMineralsAvailable = "No minerals available"
	MsgDuplicateID         = "Mineral ID already exists"
)

// NotFoundError is returned when a lookup, search, or random pick has nothing
// to return.
type NotFoundError struct {
	Detail string
	// ID is set for id lookups only.
	ID *int
}

func (e *NotFoundError) Error() string {
	if e.ID != nil {
		return fmt.Sprintf("mineral %d not found", *e.ID)
	}
	return e.Detail
}

// StatusCode returns the HTTP status code for this error.
func (e *NotFoundError) StatusCode() int { return http.StatusNotFound }

// ErrMineralNotFound builds the id-lookup miss error.
func ErrMineralNotFound(id int) *NotFoundError {
	return &NotFoundError{Detail: MsgMineralNotFound, ID: &id}
}

// DuplicateIDError is returned by create when the id is already taken. The
// existing record is left untouched.
type DuplicateIDError struct {
	ID int
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("mineral %d already exists", e.ID)
}

// StatusCode returns the HTTP status code for this error.
func (e *DuplicateIDError) StatusCode() int { return http.StatusBadRequest }

// Detail returns the client-facing message.
func (e *DuplicateIDError) Detail() string { return MsgDuplicateID }

// ValidationError reports a missing or mistyped request field. Location is
// where the field was read from: "body", "query", or "path".
type ValidationError struct {
	Location string
	Field    string
	Message  string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return e.Message
}

// StatusCode returns the HTTP status code for this error.
func (e *ValidationError) StatusCode() int { return http.StatusUnprocessableEntity }

// StatusCodeError is implemented by errors that map to an HTTP status.
type StatusCodeError interface {
	error
	StatusCode() int
}
