package rankingdomain

import "errors"

var (
	// ErrInvalidModifiers is returned when a modifier string cannot be parsed.
	ErrInvalidModifiers = errors.New("invalid modifiers")
	// ErrUnknownContext is returned for an unrecognised context name.
	ErrUnknownContext = errors.New("unknown context")
	// ErrUnknownClanPolicy is returned when no clan scoring policy matches a name.
	ErrUnknownClanPolicy = errors.New("unknown clan scoring policy")
)
