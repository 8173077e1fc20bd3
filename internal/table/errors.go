package table

import (
	"errors"
	"fmt"
)

var (
	ErrTableClosed     = errors.New("table is closed")
	ErrTableFull       = errors.New("table is full")
	ErrAlreadySeated   = errors.New("already seated at this table")
	ErrMatchInProgress = errors.New("a match is already in progress")
	ErrNoMatch         = errors.New("no match in progress")
	ErrChatBanned      = errors.New("chat is disabled at this table")
	ErrUnknownTable    = errors.New("unknown table")
	ErrUnknownSeat     = errors.New("unknown seat")
)

// InternalError wraps a persistence failure. The transition that hit it was
// rolled back: the table state is exactly what it was before the request.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}
