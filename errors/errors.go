package errors

import (
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates which layer reported the error
type Phase string

const (
	PhaseScope  Phase = "scope"  // exclusive owner
	PhaseRef    Phase = "ref"    // shared handle
	PhaseWeak   Phase = "weak"   // weak handle
	PhaseUnsafe Phase = "unsafe" // manual count manipulation
	PhaseCast   Phase = "cast"   // handle conversion
	PhaseTable  Phase = "table"  // resource handle tables
	PhaseHost   Phase = "host"   // WASM host bindings
	PhaseFFI    Phase = "ffi"    // C callbacks
	PhaseConfig Phase = "config" // CLI configuration
)

// Kind categorizes the error
type Kind string

const (
	KindEmptyDeref        Kind = "empty_deref"
	KindUnderflow         Kind = "underflow"
	KindDoubleRelease     Kind = "double_release"
	KindCastFailed        Kind = "cast_failed"
	KindExpired           Kind = "expired"
	KindInvalidHandle     Kind = "invalid_handle"
	KindOutstandingBorrow Kind = "outstanding_borrow"
	KindClosed            Kind = "closed"
	KindTypeMismatch      Kind = "type_mismatch"
	KindLeak              Kind = "leak"
	KindInvalidInput      Kind = "invalid_input"
	KindUnsupported       Kind = "unsupported"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Op     string
	GoType string
	Detail string
	Handle uint32
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}

	if e.Handle != 0 {
		b.WriteString(" (handle ")
		b.WriteString(strconv.FormatUint(uint64(e.Handle), 10))
		b.WriteByte(')')
	}

	if e.GoType != "" {
		b.WriteString(": Go type ")
		b.WriteString(e.GoType)
	}

	if e.Detail != "" {
		if e.GoType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Op sets the operation name
func (b *Builder) Op(op string) *Builder {
	b.err.Op = op
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Handle sets the table handle involved
func (b *Builder) Handle(h uint32) *Builder {
	b.err.Handle = h
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// EmptyDeref creates an error for dereferencing an empty handle
func EmptyDeref(phase Phase, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindEmptyDeref,
		Op:     "Deref",
		GoType: goType,
		Detail: "dereference of empty handle",
	}
}

// Underflow creates an error for decrementing a count that is already zero
func Underflow(phase Phase, op, count string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnderflow,
		Op:     op,
		Detail: fmt.Sprintf("%s count already zero", count),
	}
}

// DoubleRelease creates an error for a counter block released twice
func DoubleRelease(phase Phase, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDoubleRelease,
		GoType: goType,
		Detail: "counter block released twice",
	}
}

// CastFailed creates a failed conversion error
func CastFailed(from, to string) *Error {
	return &Error{
		Phase:  PhaseCast,
		Kind:   KindCastFailed,
		GoType: from,
		Detail: fmt.Sprintf("cannot convert to %s", to),
	}
}

// Expired creates an error for a weak handle whose object is gone
func Expired(phase Phase, handle uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindExpired,
		Handle: handle,
		Detail: "object already destroyed",
	}
}

// InvalidHandle creates an error for an unknown or recycled handle
func InvalidHandle(phase Phase, handle uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidHandle,
		Handle: handle,
		Detail: "unknown handle",
		Value:  handle,
	}
}

// OutstandingBorrow creates an error for an ownership transfer blocked by borrows
func OutstandingBorrow(phase Phase, handle, borrows uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutstandingBorrow,
		Handle: handle,
		Detail: fmt.Sprintf("%d outstanding borrow(s)", borrows),
		Value:  borrows,
	}
}

// Closed creates an error for operations on a closed component
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s is closed", what),
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, goType, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		GoType: goType,
		Detail: detail,
	}
}

// Leaked creates an error for a handle collected without being dropped
func Leaked(phase Phase, goType string, addr uintptr) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindLeak,
		GoType: goType,
		Detail: fmt.Sprintf("handle to %#x garbage collected without Drop", addr),
		Value:  addr,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
