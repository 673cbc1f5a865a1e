package service

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the services. Match them with errors.Is.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrQuotaExceeded     = errors.New("quota exceeded")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrEmptyExtraction   = errors.New("no text could be extracted")
	ErrPayloadTooLarge   = errors.New("payload too large")
	ErrRetrieval         = errors.New("retrieval failed")
	ErrSynthesis         = errors.New("synthesis failed")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrInternal          = errors.New("internal error")
)

type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && len(e.Msg) > 0:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case len(e.Msg) > 0:
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return e.Kind.Error()
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is safe to show to callers. Internal failures never leak detail.
func (e *Error) Message() string {
	if e.Kind == ErrInternal || len(e.Msg) == 0 {
		return e.Kind.Error()
	}
	return e.Msg
}

func NewError(kind error, msg string, err error) *Error {
	return &Error{
		Kind: kind,
		Msg:  msg,
		Err:  err,
	}
}

// Kind returns the kind of err, or ErrInternal when err carries none.
func Kind(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrInternal
}

// Message returns the caller-facing text for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message()
	}
	return ErrInternal.Error()
}
