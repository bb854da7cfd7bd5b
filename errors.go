package mailmsg

import (
	"fmt"

	"github.com/pkg/errors"
)

// SinkError wraps a failure returned by the caller's output sink, or by the
// io.Reader of a Reader-backed body while it is read. The original error is
// reachable through Unwrap, so errors.Is and errors.As find it; SinkError
// has no Cause method, so errors.Cause stops at the SinkError itself.
type SinkError struct {
	cause error
}

func (e *SinkError) Error() string { return "mailmsg: sink write failed: " + e.cause.Error() }
func (e *SinkError) Unwrap() error { return e.cause }

func wrapSink(err error) error {
	if err == nil {
		return nil
	}
	return &SinkError{cause: errors.Wrap(err, "sink write")}
}

// InvariantError reports a programmer error: a tree shape or encoding
// selection that violates one of the structural invariants documented on
// Message and MimePart. These are never caused by untrusted input; they mean
// the caller built an impossible tree.
type InvariantError struct {
	Reason string
}

func (e *InvariantError) Error() string { return "mailmsg: invariant violated: " + e.Reason }

func invariantf(format string, args ...interface{}) error {
	return &InvariantError{Reason: fmt.Sprintf(format, args...)}
}

// MalformedHeaderError reports a Raw header value that cannot be emitted
// as-is: a bare CR or LF outside of a valid fold, or a control byte other
// than TAB.
type MalformedHeaderError struct {
	Header string
	Reason string
}

func (e *MalformedHeaderError) Error() string {
	return fmt.Sprintf("mailmsg: malformed header %q: %s", e.Header, e.Reason)
}
