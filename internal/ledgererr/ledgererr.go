// Package ledgererr defines the engine's enumerated, testable error
// kinds (spec §7), in the style of the teacher's consensus.ErrorCode /
// TxError pair.
package ledgererr

import (
	"errors"
	"fmt"
)

// Kind is a closed set of distinguishable failure categories.
type Kind string

const (
	IO               Kind = "IO"
	InvalidSize      Kind = "INVALID_SIZE"
	AhsViolation     Kind = "AHS_VIOLATION"
	LinkageError     Kind = "LINKAGE_ERROR"
	SnapshotMismatch Kind = "SNAPSHOT_MISMATCH"
	InvalidEncoding  Kind = "INVALID_ENCODING"
	MissingLedger    Kind = "MISSING_LEDGER"
)

// Error carries a Kind plus an optional wrapped cause.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	if e.Msg == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given kind with a message.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an Error of the given kind wrapping cause.
func Wrap(kind Kind, msg string, cause error) error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// KindOf extracts the Kind from err, if err is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
