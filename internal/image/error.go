package image

import (
	"errors"
	"fmt"
)

// Kind classifies a processing failure
type Kind int

const (
	// KindInternal is an unexpected collaborator failure
	KindInternal Kind = iota
	// KindValidation is a bad, missing or out of range parameter
	KindValidation
	// KindDecode is a corrupt or unsupported input image
	KindDecode
	// KindEncode is an image that can't be represented in the target format
	KindEncode
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDecode:
		return "decode"
	case KindEncode:
		return "encode"
	default:
		return "internal"
	}
}

// Errors
var (
	ErrInvalidImage      = errors.New("invalid image")
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// Error is a classified processing error
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Err)
	}

	if e.Err != nil {
		return e.Err.Error()
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation returns a validation error with a client facing message
func Validation(format string, args ...interface{}) error {
	return &Error{
		Kind:    KindValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

// DecodeFailure wraps an error that occurred while decoding an upload
func DecodeFailure(err error, message string) error {
	return &Error{
		Kind:    KindDecode,
		Message: message,
		Err:     err,
	}
}

// EncodeFailure wraps an error that occurred while encoding an image
func EncodeFailure(err error, message string) error {
	return &Error{
		Kind:    KindEncode,
		Message: message,
		Err:     err,
	}
}

// Internal wraps an unexpected error
func Internal(err error, message string) error {
	return &Error{
		Kind:    KindInternal,
		Message: message,
		Err:     err,
	}
}

// KindOf returns the kind of an error, defaulting to KindInternal for unclassified errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindInternal
}

// Message returns the client facing message of an error
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
	}

	return err.Error()
}
