// Package errors provides the structured error type used across Loom.
//
// Every failure mode in the core maps to exactly one machine-readable
// [Code]. Errors carry a primary message, an optional hint for the user,
// and an optional source location (file and line) for errors that point
// at a spot in a manifest or source file.
//
// # Usage
//
//	err := errors.New(errors.Version, "empty version string")
//	err := errors.Newf(errors.NotFound, "no stat entry for %s", path).
//	    WithHint("run 'loom build' to populate the cache")
//
//	if errors.Is(err, errors.NotFound) {
//	    // treat as cache miss
//	}
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code is a machine-readable error category. The set is closed: every
// public operation in the core fails with exactly one of these.
type Code string

const (
	// IO covers filesystem and pipe failures, cache-store execution
	// errors, and corrupted serialized blobs.
	IO Code = "IO"
	// Parse covers malformed TOML, target expressions, and override
	// documents.
	Parse Code = "Parse"
	// Version covers malformed version or requirement strings and
	// requirements no tag satisfies.
	Version Code = "Version"
	// Dependency covers invalid dependency shapes, conflicting sources,
	// and workspace/member references that reach resolution unexpanded.
	Dependency Code = "Dependency"
	// Config covers malformed configuration layering input.
	Config Code = "Config"
	// Manifest covers missing or invalid manifests, nested workspaces,
	// and member lockfiles.
	Manifest Code = "Manifest"
	// Checksum is returned for wrong parse-cache magic bytes.
	Checksum Code = "Checksum"
	// Network covers failed git operations and any network operation
	// attempted in offline mode.
	Network Code = "Network"
	// NotFound covers missing manifests, cache misses, missing override
	// targets, and unknown packages.
	NotFound Code = "NotFound"
	// Duplicate is returned when two workspace members share a name.
	Duplicate Code = "Duplicate"
	// Cycle is returned when topological sorting detects a cycle.
	Cycle Code = "Cycle"
	// InvalidArg covers empty or malformed arguments at public entry
	// points.
	InvalidArg Code = "InvalidArg"
)

// Error is the structured error carried through the core.
type Error struct {
	Code    Code   // failure category
	Message string // primary human-readable message
	Hint    string // optional remediation hint
	File    string // optional source location
	Line    int
	Cause   error // optional underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithHint attaches a remediation hint and returns the error.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// WithLocation attaches a source location and returns the error.
func (e *Error) WithLocation(file string, line int) *Error {
	e.File = file
	e.Line = line
	return e
}

// Format renders the error for terminal display:
//
//	error[<Code>]: <message>
//	  hint: <hint>
//	  --> <file>:<line>
//
// Hint and location lines are suppressed when empty.
func (e *Error) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "error[%s]: %s", e.Code, e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	if e.Hint != "" {
		fmt.Fprintf(&b, "\n  hint: %s", e.Hint)
	}
	if e.File != "" {
		fmt.Fprintf(&b, "\n  --> %s:%d", e.File, e.Line)
	}
	return b.String()
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with the given code and formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error wrapping an underlying cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether the first *Error in err's chain carries the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the code from an error. Returns the empty string when
// the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
