package session

import (
	"errors"
	"fmt"
)

// Kind classifies a failed orchestrated action for presentation purposes.
type Kind string

const (
	// KindEmptyInput is a silent no-op, never shown as an error.
	KindEmptyInput Kind = "empty_input"
	// KindNoActiveSession renders as an inline message on the widget that
	// needed the session, not as a page-level error.
	KindNoActiveSession Kind = "no_active_session"
	// KindNetwork renders as a page-level error bubble with a reset remedy.
	KindNetwork Kind = "network_or_server_failure"
	// KindNoResults renders as an inline informational message.
	KindNoResults Kind = "no_results_found"
)

// ErrBusy is returned when an action is refused because another orchestrated
// action is already in flight. Callers drop it silently.
var ErrBusy = errors.New("another action is in flight")

// FlowError couples a failure with its presentation class.
type FlowError struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *FlowError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *FlowError) Unwrap() error {
	return e.Cause
}

// Silent reports whether the failure should produce no visible feedback.
func (e *FlowError) Silent() bool {
	return e.Kind == KindEmptyInput
}

func flowErr(kind Kind, message string, cause error) *FlowError {
	return &FlowError{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the presentation class of an action error, or "" for nil
// and untyped errors.
func KindOf(err error) Kind {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
