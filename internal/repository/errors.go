package repository

import "errors"

var (
	// ErrStorage wraps failures to read, write or commit pass state
	ErrStorage = errors.New("storage failure")

	// ErrSchema wraps failures creating or dropping the schema
	ErrSchema = errors.New("schema failure")

	// ErrNotFound is returned when a device lookup by MAC finds nothing
	ErrNotFound = errors.New("not found")
)
