package usersync

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingUserID is returned when an event payload carries no user id
	ErrMissingUserID = errors.New("user id missing from event payload")

	// ErrUserNotFound is returned when a referenced record does not exist
	// and existence was required
	ErrUserNotFound = errors.New("user not found")
)

// StoreError wraps any store or transport failure. It always names the
// collection so callers can tell which table an upsert was aimed at.
type StoreError struct {
	Collection string
	Op         string // "insert", "update", "get", "get_all", "delete"
	Err        error
}

// NewStoreError wraps err as a StoreError for the given collection and operation.
func NewStoreError(collection, op string, err error) *StoreError {
	return &StoreError{Collection: collection, Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
