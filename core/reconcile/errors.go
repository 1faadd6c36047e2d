package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies engine errors for the batch swallow-or-abort policy.
type Kind int

const (
	// KindInvalidArgument marks a malformed or missing field in a record or row.
	KindInvalidArgument Kind = iota + 1
	// KindStoreFault marks a failed relational-store call.
	KindStoreFault
	// KindPathNotFound marks an expected local file that is absent.
	KindPathNotFound
	// KindStopRequested marks cooperative cancellation.
	KindStopRequested
	// KindRetryLater marks a busy file whose row was deferred.
	KindRetryLater
	// KindDentryFault marks a failed dentry-store call.
	KindDentryFault
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindStoreFault:
		return "store_fault"
	case KindPathNotFound:
		return "path_not_found"
	case KindStopRequested:
		return "stop_requested"
	case KindRetryLater:
		return "retry_later"
	case KindDentryFault:
		return "dentry_fault"
	default:
		return "unknown"
	}
}

// Error is the structured error returned by the reconciliation engine.
type Error struct {
	Kind Kind
	// Op names the failing operation, e.g. "query", "insert".
	Op string
	// Field is the offending record or column key, if any.
	Field string
	// CloudID is the offending record id, if any.
	CloudID string
	// Path is the offending local path, if any.
	Path string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Op != "" {
		b.WriteString(" (" + e.Op + ")")
	}
	if e.Field != "" {
		b.WriteString(" field=" + e.Field)
	}
	if e.CloudID != "" {
		b.WriteString(" cloud_id=" + e.CloudID)
	}
	if e.Path != "" {
		b.WriteString(" path=" + e.Path)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// InvalidArgument reports a malformed field on cloudID.
func InvalidArgument(field, cloudID, format string, args ...any) error {
	return &Error{Kind: KindInvalidArgument, Field: field, CloudID: cloudID, Err: fmt.Errorf(format, args...)}
}

// StoreFault wraps a relational-store failure.
func StoreFault(op string, err error) error {
	return &Error{Kind: KindStoreFault, Op: op, Err: err}
}

// PathNotFound reports a missing local file.
func PathNotFound(path, cloudID string, err error) error {
	return &Error{Kind: KindPathNotFound, Path: path, CloudID: cloudID, Err: err}
}

// DentryFault wraps a dentry-store failure.
func DentryFault(op, cloudID string, err error) error {
	return &Error{Kind: KindDentryFault, Op: op, CloudID: cloudID, Err: err}
}

// RetryLater reports a row deferred because its content is busy.
func RetryLater(cloudID string) error {
	return &Error{Kind: KindRetryLater, CloudID: cloudID}
}

// KindOf returns the kind of err. Context cancellation counts as a stop
// request; any other unclassified error is reported as 0.
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindStopRequested
	}
	return 0
}

// ShouldAbort reports whether err must abort the whole batch.
func ShouldAbort(err error) bool {
	return KindOf(err) == KindStoreFault
}

// Stopped reports whether the caller asked the current loop to stop.
func Stopped(ctx context.Context) bool {
	return ctx.Err() != nil
}
