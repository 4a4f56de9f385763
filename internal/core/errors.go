// Package core holds the entities and invariants shared by every other
// package in the simulator: bars, orders, fills, positions, the account and
// the run record. Nothing here touches I/O.
package core

import "fmt"

// ErrKind is the flat error taxonomy the engine surfaces at its operation
// boundaries. The gateway maps each kind to an exchange-compatible code.
type ErrKind string

const (
	ErrInvalidParam         ErrKind = "InvalidParam"
	ErrUnsupportedType      ErrKind = "UnsupportedType"
	ErrNoMarketPrice        ErrKind = "NoMarketPrice"
	ErrUnknownOrder         ErrKind = "UnknownOrder"
	ErrDataUnavailable      ErrKind = "DataUnavailable"
	ErrSinkWriteFailed      ErrKind = "SinkWriteFailed"
	ErrConfigurationConflict ErrKind = "ConfigurationConflict"
)

// Error is the engine's sentinel error type. Callers compare Kind rather
// than matching on message text.
type Error struct {
	Kind ErrKind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// NewError builds a *Error with a formatted message.
func NewError(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the ErrKind from err, defaulting to "" when err is not a
// *Error (or is nil).
func KindOf(err error) ErrKind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return ""
}
