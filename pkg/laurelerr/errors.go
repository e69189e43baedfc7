// Package laurelerr classifies the error kinds named in the project's error
// handling design: most are counted and carried alongside the event that
// produced them rather than aborting the pipeline; only a handful terminate
// the process. Adapted from the commands.ComplexError pattern (a single
// Code paired with an xerrors.Frame for stack-trace-quality formatting),
// generalized from one error code to the full enumeration.
package laurelerr

import (
	"fmt"

	"golang.org/x/xerrors"
)

// Kind enumerates the error kinds from the error handling design.
type Kind int

const (
	// InputClosed is a normal EOF on the input stream.
	InputClosed Kind = iota
	// LineTooLong means an input line exceeded the configured byte ceiling
	// and was truncated.
	LineTooLong
	// MalformedLine is a tokenizer failure: header or token grammar did not
	// parse. The line is still carried downstream as an opaque record.
	MalformedLine
	// UnknownRecordType means the type tag has no schema; the record is
	// downgraded to a generic mapping.
	UnknownRecordType
	// SchemaMismatch means a known type's fields didn't match the expected
	// shape; the record is kept, flagged, and fields pass through raw.
	SchemaMismatch
	// TrackerInconsistency covers e.g. a referenced parent pid never
	// observed; the tracker creates a placeholder entry and continues.
	TrackerInconsistency
	// SinkWriteFailed means a write to the log sink failed. Retried with
	// backoff up to a bounded count; past that, fatal.
	SinkWriteFailed
	// StateLoadFailed means the persisted tracker state file could not be
	// read or deserialized; the tracker continues with an empty state.
	StateLoadFailed
	// ConfigInvalid is fatal, and only ever raised at startup.
	ConfigInvalid
)

func (k Kind) String() string {
	switch k {
	case InputClosed:
		return "InputClosed"
	case LineTooLong:
		return "LineTooLong"
	case MalformedLine:
		return "MalformedLine"
	case UnknownRecordType:
		return "UnknownRecordType"
	case SchemaMismatch:
		return "SchemaMismatch"
	case TrackerInconsistency:
		return "TrackerInconsistency"
	case SinkWriteFailed:
		return "SinkWriteFailed"
	case StateLoadFailed:
		return "StateLoadFailed"
	case ConfigInvalid:
		return "ConfigInvalid"
	}
	return "Unknown"
}

// Fatal reports whether every error of this kind must terminate the
// process. ConfigInvalid always does; SinkWriteFailed only becomes fatal
// once the sink's own retry budget is exhausted, which is a per-Error
// property (see Error.MarkFatal), not a per-Kind one, since most
// SinkWriteFailed occurrences are transient and recovered by retrying.
func (k Kind) Fatal() bool {
	return k == ConfigInvalid
}

// Error is a Kind paired with context, formatted with an xerrors.Frame so a
// top-level handler can print a useful location even though the error
// itself is usually just logged and counted, never panicked on.
type Error struct {
	Kind    Kind
	Message string
	Offset  int // byte offset into the input line, when applicable; -1 otherwise
	frame   xerrors.Frame

	forceFatal bool
}

// MarkFatal flags this specific Error instance as fatal regardless of its
// Kind's default. The sink calls this on the SinkWriteFailed it returns
// once its retry-with-backoff budget is exhausted.
func (e *Error) MarkFatal() { e.forceFatal = true }

// IsFatal reports whether this specific error must terminate the process:
// either its Kind always is, or it was explicitly marked so.
func (e *Error) IsFatal() bool { return e.Kind.Fatal() || e.forceFatal }

// New creates an Error of the given kind, capturing the caller's frame.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Offset:  -1,
		frame:   xerrors.Caller(1),
	}
}

// NewAtOffset is New with a byte offset into the offending input line, used
// by the tokenizer to report where parsing gave up.
func NewAtOffset(kind Kind, offset int, format string, args ...interface{}) *Error {
	e := New(kind, format, args...)
	e.Offset = offset
	return e
}

func (e *Error) Error() string { return fmt.Sprint(e) }

// FormatError implements xerrors.Formatter.
func (e *Error) FormatError(p xerrors.Printer) error {
	if e.Offset >= 0 {
		p.Printf("%s: %s (offset %d)", e.Kind, e.Message, e.Offset)
	} else {
		p.Printf("%s: %s", e.Kind, e.Message)
	}
	e.frame.Format(p)
	return nil
}

// Format implements fmt.Formatter via xerrors.FormatError.
func (e *Error) Format(f fmt.State, c rune) { xerrors.FormatError(e, f, c) }

// Is reports whether err is a *Error of the given kind, for the common
// "was this a <kind> error" check the processing loop needs.
func Is(err error, kind Kind) bool {
	var e *Error
	if xerrors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
