package apperr

import "net/http"

// Kind classifies an application error for HTTP status mapping.
type Kind int

const (
	KindValidation Kind = iota // malformed or disallowed input
	KindAuth                   // missing, invalid or revoked credentials
	KindNotFound               // resource absent or not owned by the requester
)

// Error carries a kind and a user-facing message. The message is safe to put
// in a response body; the wrapped cause is for logs only.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

// Error implements the error interface. It returns the user-facing message.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap provides compatibility for errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// HTTPStatus maps the error kind to a response status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ErrValidation creates a validation error with a user-facing message.
func ErrValidation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// ErrAuth creates an authentication error with a user-facing message.
func ErrAuth(message string) *Error {
	return &Error{Kind: KindAuth, Message: message}
}

// ErrNotFound creates a not-found error with a user-facing message.
func ErrNotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Wrap attaches an underlying cause to a new error of the given kind.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}
