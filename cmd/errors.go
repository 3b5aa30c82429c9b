package cmd

import (
	"errors"
	"fmt"

	"github.com/xkilldash9x/workd-cli/internal/portal"
	"github.com/xkilldash9x/workd-cli/internal/records"
)

// reportedError is an error rewritten into the operator-facing message for
// its kind. It still unwraps to the original.
type reportedError struct {
	msg string
	err error
}

func (e *reportedError) Error() string { return e.msg }
func (e *reportedError) Unwrap() error { return e.err }

// reportError turns a classified error into the message shown to the
// operator. Errors of no known kind are returned unchanged.
func reportError(err error) error {
	if err == nil {
		return nil
	}
	var msg string
	switch portal.KindOf(err) {
	case portal.KindArgument:
		msg = fmt.Sprintf("invalid argument(s) (%s)", detail(err))
	case portal.KindAuthentication:
		msg = fmt.Sprintf("workD login failure (%s)", detail(err))
	case portal.KindRejected:
		msg = fmt.Sprintf("failed to create user (%s)", detail(err))
	case portal.KindQuota:
		msg = "insufficient quota"
	case portal.KindMalformedInput:
		msg = fmt.Sprintf("malformed input (%s)", detail(err))
	case portal.KindUnexpectedUI:
		msg = fmt.Sprintf("unexpected portal state (%s)", detail(err))
	default:
		return err
	}
	return &reportedError{msg: msg, err: err}
}

// detail returns the text of the innermost classified error in err's chain,
// without the context prefixes callers added while returning it.
func detail(err error) string {
	var pe *portal.Error
	if errors.As(err, &pe) {
		return pe.Error()
	}
	var me *records.MalformedInputError
	if errors.As(err, &me) {
		return me.Error()
	}
	return err.Error()
}
