package rankingdb

import "errors"

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnknownColumn is returned for a patch column outside the allowed set.
	ErrUnknownColumn = errors.New("unknown column")
)
