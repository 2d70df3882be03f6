// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// Kind is the closed set of failure categories surfaced to callers.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindConfiguration  Kind = "configuration"
	KindDelivery       Kind = "delivery"
	KindClassification Kind = "classification"
	KindNotFound       Kind = "not_found"
	KindRateLimited    Kind = "rate_limited"
	KindInternal       Kind = "internal"
)

// Error carries a Kind, the operation that failed and an optional cause.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind, so errors.Is(err, &Error{Kind: KindNotFound}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func NewValidation(op, format string, args ...any) error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

func NewConfiguration(op, message string, err error) error {
	return &Error{Kind: KindConfiguration, Op: op, Message: message, Err: err}
}

func NewDelivery(op string, err error) error {
	return &Error{Kind: KindDelivery, Op: op, Err: err}
}

func NewClassification(op, message string, err error) error {
	return &Error{Kind: KindClassification, Op: op, Message: message, Err: err}
}

func NewNotFound(entity, id string) error {
	return &Error{Kind: KindNotFound, Op: entity, Message: fmt.Sprintf("%s %q not found", entity, id)}
}

func NewRateLimited(op, message string) error {
	return &Error{Kind: KindRateLimited, Op: op, Message: message}
}

// NewCampaignNotFound is kept as the most common lookup failure.
func NewCampaignNotFound(id string) error {
	return NewNotFound("campaign", id)
}

// KindOf reports the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the short, caller-facing message of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
