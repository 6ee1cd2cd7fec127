package session

import (
	"errors"
	"fmt"

	"github.com/BioHazard786/Synctube/cli/internal/control"
)

var (
	ErrRoomFull           = errors.New("room is full")
	ErrPartnerUnreachable = errors.New("partner unreachable")
	ErrPartnerLeft        = errors.New("partner left")
	ErrMalformedSignal    = errors.New("malformed signal")
	ErrMalformedCommand   = control.ErrMalformedCommand
	ErrUnexpectedSignal   = errors.New("unexpected signal")
	ErrNotConnected       = errors.New("not connected")
	ErrNegotiationTimeout = errors.New("negotiation timed out")
	ErrTransportClosed    = errors.New("connection closed")
	ErrBusy               = errors.New("session already active")
	ErrClosed             = errors.New("session closed")
)

type Error struct {
	Op      string
	Err     error
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *Error {
	return &Error{Op: op, Err: err, Details: details}
}
