package core

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an expected failure of the resolution pipeline.
type Kind string

const (
	KindInvalidDirective       Kind = "invalid_directive"
	KindInvalidLayer           Kind = "invalid_layer"
	KindInvalidAdaptation      Kind = "invalid_adaptation"
	KindUnsupportedCombination Kind = "unsupported_combination"
	KindProfileNotFound        Kind = "profile_not_found"
	KindBaseDirectoryNotFound  Kind = "base_directory_not_found"
	KindTemplateFileNotFound   Kind = "template_file_not_found"
	KindSchemaFileNotFound     Kind = "schema_file_not_found"
	KindFileNotFound           Kind = "file_not_found"
	KindFileReadError          Kind = "file_read_error"
	KindStdinTimeout           Kind = "stdin_timeout"
	KindInvalidCustomVariable  Kind = "invalid_custom_variable"
	KindMissingVariable        Kind = "missing_variable"
)

// Sentinels for errors.Is matching against a Kind.
var (
	ErrInvalidDirective       = &Error{Kind: KindInvalidDirective}
	ErrInvalidLayer           = &Error{Kind: KindInvalidLayer}
	ErrInvalidAdaptation      = &Error{Kind: KindInvalidAdaptation}
	ErrUnsupportedCombination = &Error{Kind: KindUnsupportedCombination}
	ErrProfileNotFound        = &Error{Kind: KindProfileNotFound}
	ErrBaseDirectoryNotFound  = &Error{Kind: KindBaseDirectoryNotFound}
	ErrTemplateFileNotFound   = &Error{Kind: KindTemplateFileNotFound}
	ErrSchemaFileNotFound     = &Error{Kind: KindSchemaFileNotFound}
	ErrFileNotFound           = &Error{Kind: KindFileNotFound}
	ErrFileReadError          = &Error{Kind: KindFileReadError}
	ErrStdinTimeout           = &Error{Kind: KindStdinTimeout}
	ErrInvalidCustomVariable  = &Error{Kind: KindInvalidCustomVariable}
	ErrMissingVariable        = &Error{Kind: KindMissingVariable}
)

// Error is the typed error returned by every stage of the pipeline.
// Value names the offending input, Pattern the rule that rejected it and
// Paths every file-system location that was attempted, in order.
type Error struct {
	Kind    Kind
	Msg     string
	Value   string
	Pattern string
	Paths   []string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Value != "" {
		fmt.Fprintf(&b, " (value=%q", e.Value)
		if e.Pattern != "" {
			fmt.Fprintf(&b, ", pattern=%q", e.Pattern)
		}
		b.WriteString(")")
	}
	if len(e.Paths) > 0 {
		fmt.Fprintf(&b, " [path=%s]", strings.Join(e.Paths, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports a match when target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// Path returns the last attempted path, or "".
func (e *Error) Path() string {
	if e == nil || len(e.Paths) == 0 {
		return ""
	}
	return e.Paths[len(e.Paths)-1]
}

// KindOf extracts the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind helps callers classify errors without depending on the producing package.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsUserContent reports whether err means a content file still has to be
// prepared, as opposed to invalid arguments or configuration.
func IsUserContent(err error) bool {
	switch KindOf(err) {
	case KindTemplateFileNotFound, KindSchemaFileNotFound, KindFileNotFound:
		return true
	default:
		return false
	}
}
