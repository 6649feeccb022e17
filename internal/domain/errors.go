package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an operation failure for callers that need to map it
// onto a transport status without parsing messages.
type Kind int

const (
	KindNotFound Kind = iota
	KindInvalidInput
	KindConflict
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a typed operation failure. Messages for caller-facing kinds
// are fixed; existing clients match on them.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrCartNotFound        = &Error{Kind: KindNotFound, Message: "user does not have a cart"}
	ErrProductNotFound     = &Error{Kind: KindInvalidInput, Message: "product doesn't exist"}
	ErrCartMissingOnUpdate = &Error{Kind: KindInvalidInput, Message: "user does not have a cart; use create"}
	ErrItemNotInCart       = &Error{Kind: KindInvalidInput, Message: "product not in cart"}
	ErrCartEmpty           = &Error{Kind: KindInvalidInput, Message: "cart has no product"}
	ErrAddressNotSet       = &Error{Kind: KindInvalidInput, Message: "address not set"}
	ErrInsufficientBalance = &Error{Kind: KindInvalidInput, Message: "insufficient balance"}
	ErrCartMissingOnDelete = &Error{Kind: KindInvalidInput, Message: "user does not have a cart"}
	ErrItemAlreadyInCart   = &Error{Kind: KindConflict, Message: "product already in cart"}
	ErrInvalidAddress      = &Error{Kind: KindInvalidInput, Message: "invalid shipping address"}
	ErrInvalidAmount       = &Error{Kind: KindInvalidInput, Message: "amount must be greater than 0"}
	ErrUserNotFound        = &Error{Kind: KindNotFound, Message: "user not found"}
	ErrEmailTaken          = &Error{Kind: KindConflict, Message: "email already taken"}
)

// Internalf wraps a persistence-layer failure the core cannot recover
// from locally.
func Internalf(format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Kind: KindInternal, Message: msg}
}

// InternalWrap keeps the cause reachable via errors.Is/As.
func InternalWrap(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf extracts the failure kind; anything untyped is internal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
