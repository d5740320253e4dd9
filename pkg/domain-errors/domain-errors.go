package domainerrors

import "errors"

// Code is a transport-independent error kind. Contract reverts, ledger
// transport failures and request validation all map onto one.
type Code string

const (
	CodeNotFound           Code = "not_found"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_failed"
	CodeInternal           Code = "internal_error"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeTimeout            Code = "timeout"
	CodeUnavailable        Code = "unavailable"
	CodeInvariantViolation Code = "invariant_violation"

	// Ledger rejection codes. Contracts revert with these so the kind survives the
	// trip through the ledger client unchanged.
	CodeAlreadyRegistered     Code = "already_registered"
	CodeIssuerNotActive       Code = "issuer_not_active"
	CodeIndexOutOfRange       Code = "index_out_of_range"
	CodeInsufficientAllowance Code = "insufficient_allowance"
	CodeInsufficientBalance   Code = "insufficient_balance"
	CodeInvalidState          Code = "invalid_state"
)

// Error carries a Code through service, binding and transport layers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches msg to err. A code already in err's chain wins over code, so
// a contract's revert kind survives every layer that adds context.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of the first domain error in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Retryable reports whether err is a ledger availability failure that the
// same request may succeed on later. Reverts are never retryable.
func Retryable(err error) bool {
	code := CodeOf(err)
	return code == CodeTimeout || code == CodeUnavailable
}
