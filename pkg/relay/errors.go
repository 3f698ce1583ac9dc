package relay

import (
	"errors"
	"fmt"
)

// State errors, returned when a message is not allowed in the current role of the connection
var (
	ErrAlreadyHasRole = errors.New("Already has a role or is paired.")
	ErrAlreadyPaired  = errors.New("Already paired.")
	ErrInvalidCode    = errors.New("Invalid or unknown code.")
	ErrNotPaired      = errors.New("Not paired with anyone.")
)

// ErrUnknownConnection is returned for operations on connections that were never registered or
// were already removed
var ErrUnknownConnection = errors.New("unknown connection")

// ProtocolError indicates, that the client sent something that is not a well-formed envelope
type ProtocolError struct {
	Err error
}

func (e ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %v", e.Err)
}

func (e ProtocolError) Unwrap() error {
	return e.Err
}

// NewProtocolError creates a new ProtocolError instance
func NewProtocolError(err error) ProtocolError {
	return ProtocolError{Err: err}
}

// UnknownMessageTypeError is returned for message types the relay does not handle
type UnknownMessageTypeError struct {
	Type string
}

func (e UnknownMessageTypeError) Error() string {
	return fmt.Sprintf("Unknown message type: %s", e.Type)
}

// InternalError indicates, that the client request was OK, but the relay failed handling it
type InternalError struct {
	Err error
}

func (e InternalError) Error() string {
	return fmt.Sprintf("internal error: %v", e.Err)
}

func (e InternalError) Unwrap() error {
	return e.Err
}

// NewInternalError creates a new InternalError instance
func NewInternalError(err error) InternalError {
	return InternalError{Err: err}
}

// ReplyFor returns the text of the error reply sent back to the client
func ReplyFor(err error) string {
	var protocolErr ProtocolError
	var unknownErr UnknownMessageTypeError
	switch {
	case errors.As(err, &protocolErr):
		return "Invalid JSON format."
	case errors.As(err, &unknownErr):
		return unknownErr.Error()
	case errors.Is(err, ErrAlreadyHasRole),
		errors.Is(err, ErrAlreadyPaired),
		errors.Is(err, ErrInvalidCode),
		errors.Is(err, ErrNotPaired):
		return err.Error()
	default:
		return "An internal server error occurred."
	}
}

// errorKind is used as a metrics label
func errorKind(err error) string {
	var protocolErr ProtocolError
	var unknownErr UnknownMessageTypeError
	switch {
	case errors.As(err, &protocolErr):
		return "protocol"
	case errors.As(err, &unknownErr):
		return "unknown_type"
	case errors.Is(err, ErrAlreadyHasRole):
		return "already_has_role"
	case errors.Is(err, ErrAlreadyPaired):
		return "already_paired"
	case errors.Is(err, ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, ErrNotPaired):
		return "not_paired"
	default:
		return "internal"
	}
}
