package portal

import (
	"context"
	"errors"
	"fmt"

	"github.com/xkilldash9x/workd-cli/internal/records"
)

// Kind classifies every error the tool reports to the user.
type Kind int

const (
	KindUnknown Kind = iota
	// KindArgument is bad command line usage.
	KindArgument
	// KindAuthentication is a login the portal refused.
	KindAuthentication
	// KindRejected is a single creation refused by the portal's form validation.
	KindRejected
	// KindQuota is the portal refusing any further creations.
	KindQuota
	// KindMalformedInput is an input file that lacks a declared column.
	KindMalformedInput
	// KindUnexpectedUI is a marker that never appeared or a page that no
	// longer has the expected shape.
	KindUnexpectedUI
)

func (k Kind) String() string {
	switch k {
	case KindArgument:
		return "argument"
	case KindAuthentication:
		return "authentication"
	case KindRejected:
		return "rejected"
	case KindQuota:
		return "quota"
	case KindMalformedInput:
		return "malformed_input"
	case KindUnexpectedUI:
		return "unexpected_ui"
	default:
		return "unknown"
	}
}

// Error is the tagged error type shared by every component.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Msg
	case e.Msg == "":
		return e.Err.Error()
	default:
		return e.Msg + ": " + e.Err.Error()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// ArgumentError reports bad command line usage.
func ArgumentError(format string, args ...any) error {
	return &Error{Kind: KindArgument, Msg: fmt.Sprintf(format, args...)}
}

// AuthenticationFailed carries the message the portal showed on its login page.
func AuthenticationFailed(serverMessage string) error {
	return &Error{Kind: KindAuthentication, Msg: serverMessage}
}

// Rejected carries the reason the portal gave for refusing one record.
func Rejected(reason string) error {
	return &Error{Kind: KindRejected, Msg: reason}
}

// QuotaExhausted reports that the portal accepts no further creations.
func QuotaExhausted(reason string) error {
	return &Error{Kind: KindQuota, Msg: reason}
}

// UnexpectedUI reports a UI state the workflow cannot continue from.
func UnexpectedUI(msg string, err error) error {
	return &Error{Kind: KindUnexpectedUI, Msg: msg, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	var me *records.MalformedInputError
	if errors.As(err, &me) {
		return KindMalformedInput
	}
	return KindUnknown
}

// classify turns a raw page error from step into an UnexpectedUI error.
// Cancellation of ctx itself and already classified errors pass through.
func classify(ctx context.Context, step string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", step, ctx.Err())
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	return UnexpectedUI(step, err)
}
