// Package apperr defines the closed set of error kinds shared by the stores,
// the credential service and the HTTP handlers.
package apperr

import "errors"

type Kind uint8

const (
	KindUnknown Kind = iota
	KindInputValidation
	KindNotFound
	KindConflict
	KindAuthentication
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInputValidation:
		return "input_validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindAuthentication:
		return "authentication"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is a tagged error. Message is safe to show to API clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches cause to e. The result still matches e with errors.Is.
func Wrap(e *Error, cause error) error {
	if cause == nil {
		return e
	}
	return &wrapped{tag: e, cause: cause}
}

func Internal(cause error) error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

type wrapped struct {
	tag   *Error
	cause error
}

func (w *wrapped) Error() string {
	return w.tag.Message + ": " + w.cause.Error()
}

func (w *wrapped) Unwrap() []error {
	return []error{w.tag, w.cause}
}

// KindOf reports the kind of the first tagged error in the chain.
// Untagged errors are reported as KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	return KindInternal
}

// MessageOf returns the client-facing message of the first tagged error in the chain.
func MessageOf(err error, fallback string) string {
	var tagged *Error
	if errors.As(err, &tagged) && tagged.Message != "" && tagged.Kind != KindInternal {
		return tagged.Message
	}
	return fallback
}
