package compiler

import "fmt"

// ---------------------------------------------------------------------------
// CompileError: pre-execution failures with source locations
// ---------------------------------------------------------------------------

// CompileError is the single error kind produced before execution: lexing,
// parsing and code generation failures all surface as one of these. A
// source that fails to compile produces no chunk.
type CompileError struct {
	Message    string
	SourceName string
	Span       Span
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s",
		e.SourceName, e.Span.Start.Line, e.Span.Start.Column, e.Message)
}

func compileErrorf(sourceName string, span Span, format string, args ...any) *CompileError {
	return &CompileError{
		Message:    fmt.Sprintf(format, args...),
		SourceName: sourceName,
		Span:       span,
	}
}
