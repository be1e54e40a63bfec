package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for callers. It is stable across releases
// and safe to expose in API responses.
type Kind string

const (
	KindValidation Kind = "validation_error"
	KindNotFound   Kind = "not_found"
	KindEncryption Kind = "encryption_error"
	KindDecryption Kind = "decryption_error"
	KindClusterAPI Kind = "cluster_api_error"
	KindLedger     Kind = "ledger_error"
	KindInternal   Kind = "internal_error"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound is returned both when a row does not exist and when it
// belongs to another owner, so callers cannot probe for existence.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Encryption(message string, err error) *Error {
	return &Error{Kind: KindEncryption, Message: message, Err: err}
}

func Decryption(message string, err error) *Error {
	return &Error{Kind: KindDecryption, Message: message, Err: err}
}

func ClusterAPI(message string, err error) *Error {
	return &Error{Kind: KindClusterAPI, Message: message, Err: err}
}

func Ledger(message string, err error) *Error {
	return &Error{Kind: KindLedger, Message: message, Err: err}
}

// KindOf returns the Kind carried by err, or KindInternal for errors
// that did not originate here.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the user-facing message, without wrapped transport
// details for kinds whose cause must stay internal.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
