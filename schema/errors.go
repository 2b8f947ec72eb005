/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors, one per failure kind. Every *Error wraps exactly one of these.
var (
	// ErrCircularReference indicates a $ref, alias, or $extends cycle.
	ErrCircularReference = errors.New("circular reference detected")

	// ErrTokenReference indicates an alias whose target token does not exist.
	ErrTokenReference = errors.New("unresolved token reference")

	// ErrModifier indicates an unknown modifier or context.
	ErrModifier = errors.New("invalid modifier input")

	// ErrConfiguration indicates a malformed build, resolver, or plugin structure.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrValidation indicates a generic schema or consistency failure.
	ErrValidation = errors.New("validation failed")

	// ErrFileOperation indicates a read or parse failure.
	ErrFileOperation = errors.New("file operation failed")

	// ErrLint indicates lint rules reported errors while failOnError is set.
	ErrLint = errors.New("lint errors")

	// ErrBasePermutation indicates no usable default permutation exists.
	ErrBasePermutation = errors.New("no base permutation")
)

var codes = map[error]string{
	ErrCircularReference: "CIRCULAR_REFERENCE",
	ErrTokenReference:    "TOKEN_REFERENCE",
	ErrModifier:          "MODIFIER",
	ErrConfiguration:     "CONFIGURATION",
	ErrValidation:        "VALIDATION",
	ErrFileOperation:     "FILE_OPERATION",
	ErrLint:              "LINT",
	ErrBasePermutation:   "BASE_PERMUTATION",
}

// Severity grades an error or lint issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityOff     Severity = "off"
)

// Error is the structured error reported to build callers.
type Error struct {
	// Kind is one of the sentinel errors above.
	Kind error `json:"-"`
	// Code is the stable machine-readable form of Kind.
	Code string `json:"code"`
	// Message describes what went wrong.
	Message string `json:"message"`
	// Severity is error unless the failure was downgraded.
	Severity Severity `json:"severity"`
	// TokenPath is the dot-path of the token involved, if any.
	TokenPath string `json:"tokenPath,omitempty"`
	// Path is the file or document path involved, if any.
	Path string `json:"path,omitempty"`
	// Suggestions are the closest valid names when a lookup failed.
	Suggestions []string `json:"suggestions,omitempty"`
	// Err is the underlying cause.
	Err error `json:"-"`
}

// NewError creates an error of the given kind with a formatted message.
func NewError(kind error, format string, args ...any) *Error {
	return &Error{
		Kind:     kind,
		Code:     CodeOf(kind),
		Message:  fmt.Sprintf(format, args...),
		Severity: SeverityError,
	}
}

// CodeOf returns the code for a sentinel kind, or "UNKNOWN".
func CodeOf(kind error) string {
	if c, ok := codes[kind]; ok {
		return c
	}
	return "UNKNOWN"
}

// WithToken sets the token path.
func (e *Error) WithToken(tokenPath string) *Error {
	e.TokenPath = tokenPath
	return e
}

// WithPath sets the file or document path.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithSuggestions sets "did you mean" candidates.
func (e *Error) WithSuggestions(suggestions []string) *Error {
	e.Suggestions = suggestions
	return e
}

// WithCause sets the wrapped cause.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// AsWarning downgrades the severity.
func (e *Error) AsWarning() *Error {
	e.Severity = SeverityWarning
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	if e.Path != "" {
		sb.WriteString(e.Path)
		sb.WriteString(": ")
	}
	if e.TokenPath != "" {
		sb.WriteString(e.TokenPath)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	if len(e.Suggestions) > 0 {
		quoted := make([]string, len(e.Suggestions))
		for i, s := range e.Suggestions {
			quoted[i] = fmt.Sprintf("%q", s)
		}
		sb.WriteString(" (did you mean ")
		sb.WriteString(strings.Join(quoted, ", "))
		sb.WriteString("?)")
	}
	return sb.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// IsWarning reports whether the error was downgraded to a warning.
func (e *Error) IsWarning() bool {
	return e.Severity == SeverityWarning
}
