package ledger

import (
	"context"
	"errors"
	"fmt"

	dErrors "credledger/pkg/domain-errors"
)

// RevertError is a rejection by contract logic. Code carries the domain kind
// across the ledger boundary.
type RevertError struct {
	Code   dErrors.Code `json:"code"`
	Reason string       `json:"reason"`
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("reverted (%s): %s", e.Code, e.Reason)
}

// Revert builds a RevertError.
func Revert(code dErrors.Code, format string, args ...any) *RevertError {
	return &RevertError{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// AsRevert reports whether err carries a RevertError.
func AsRevert(err error) (*RevertError, bool) {
	var rev *RevertError
	if errors.As(err, &rev) {
		return rev, true
	}
	return nil, false
}

// translate maps a ledger failure into a domain error with context naming the
// operation and its target. The kind is preserved.
func translate(err error, op, target string) error {
	if err == nil {
		return nil
	}
	if rev, ok := AsRevert(err); ok {
		return dErrors.Wrap(err, rev.Code, fmt.Sprintf("%s %s: %s", op, target, rev.Reason))
	}
	msg := fmt.Sprintf("%s %s: %v", op, target, err)
	if errors.Is(err, context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
}
