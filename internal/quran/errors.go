package quran

import (
	"errors"
	"fmt"
)

// Sentinel errors for API operations.
var (
	ErrInvalidNumber = errors.New("quran: number out of range")
	ErrRequest       = errors.New("quran: request failed")
	ErrStatus        = errors.New("quran: unsuccessful status")
	ErrMalformed     = errors.New("quran: malformed response")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op  string // "fetchVerse", "fetchChapter"
	Ref int    // global verse number or chapter number
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("quran %s [%d]: %v", e.Op, e.Ref, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(op string, ref int, err error) error {
	return &Error{Op: op, Ref: ref, Err: err}
}
