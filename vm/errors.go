package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// RuntimeError: script-level failures with tracebacks
// ---------------------------------------------------------------------------

// ErrorKind classifies a runtime error. Host cancellation gets its own kind
// so embedders can tell a stopped script apart from a failed one.
type ErrorKind uint8

// Runtime error kinds.
const (
	ErrType ErrorKind = iota
	ErrIndexOutOfBounds
	ErrKeyNotFound
	ErrArgument
	ErrDomain
	ErrAssertion
	ErrThrown
	ErrCancelled
	ErrStackOverflow
)

var errorKindNames = [...]string{
	ErrType:             "TypeError",
	ErrIndexOutOfBounds: "IndexOutOfBounds",
	ErrKeyNotFound:      "KeyNotFound",
	ErrArgument:         "ArgumentError",
	ErrDomain:           "DomainError",
	ErrAssertion:        "AssertionFailed",
	ErrThrown:           "Thrown",
	ErrCancelled:        "Cancelled",
	ErrStackOverflow:    "StackOverflow",
}

// String returns the kind's display name.
func (k ErrorKind) String() string {
	if int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", uint8(k))
}

// TraceEntry records one unwound call frame: the function executing and the
// source span of the instruction active when the error passed through.
type TraceEntry struct {
	Function   string
	SourceName string
	Span       Span
}

// RuntimeError is the single error surfaced to the host from a failed script
// run. The traceback lists every unwound frame, innermost first. There is no
// in-script recovery: the VM does not resume past an unhandled error.
type RuntimeError struct {
	ErrKind   ErrorKind
	Message   string
	ThrownVal Value // set for ErrThrown
	Trace     []TraceEntry
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s", e.ErrKind, e.Message)
	for _, entry := range e.Trace {
		fn := entry.Function
		if fn == "" {
			fn = "<main>"
		}
		fmt.Fprintf(&sb, "\n  at %s (%s:%d)", fn, entry.SourceName, entry.Span.Line)
	}
	return sb.String()
}

// IsCancelled reports whether the error was caused by host cancellation
// rather than by the script itself.
func (e *RuntimeError) IsCancelled() bool { return e.ErrKind == ErrCancelled }

// runtimeErrorf builds a RuntimeError with an empty traceback; the VM fills
// the trace while unwinding.
func runtimeErrorf(kind ErrorKind, format string, args ...any) *RuntimeError {
	return &RuntimeError{ErrKind: kind, Message: fmt.Sprintf(format, args...)}
}

// typeErrorf is shorthand for the most common kind.
func typeErrorf(format string, args ...any) *RuntimeError {
	return runtimeErrorf(ErrType, format, args...)
}

// asRuntimeError converts any error returned from a native function into a
// RuntimeError, passing existing ones through so their kind and partial
// traceback survive.
func asRuntimeError(err error) *RuntimeError {
	if re, ok := err.(*RuntimeError); ok {
		return re
	}
	return &RuntimeError{ErrKind: ErrThrown, Message: err.Error()}
}
