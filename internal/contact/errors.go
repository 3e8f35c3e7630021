package contact

import (
	"errors"
	"net/http"
)

// Kind classifies a failed submission. Every kind maps to exactly one HTTP
// status and one caller-facing message.
type Kind int

const (
	KindUnknown Kind = iota
	KindMalformedRequest
	KindSchemaInvalid
	KindSpamRejected
	KindServerMisconfigured
	KindVerificationFailed
	KindDeliveryFailed
	KindUnexpectedClientError
)

var kindNames = map[Kind]string{
	KindUnknown:               "unknown",
	KindMalformedRequest:      "malformed_request",
	KindSchemaInvalid:         "schema_invalid",
	KindSpamRejected:          "spam_rejected",
	KindServerMisconfigured:   "server_misconfigured",
	KindVerificationFailed:    "verification_failed",
	KindDeliveryFailed:        "delivery_failed",
	KindUnexpectedClientError: "unexpected_client_error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// Status is the HTTP status the server answers with.
func (k Kind) Status() int {
	switch k {
	case KindMalformedRequest, KindSpamRejected, KindVerificationFailed:
		return http.StatusBadRequest
	case KindSchemaInvalid:
		return http.StatusUnprocessableEntity
	case KindDeliveryFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message is the only text a caller ever sees for this kind.
func (k Kind) Message() string {
	switch k {
	case KindMalformedRequest:
		return "Invalid JSON payload."
	case KindSchemaInvalid:
		return "Please provide valid contact details."
	case KindSpamRejected:
		return "Submission rejected."
	case KindServerMisconfigured:
		return "Server configuration error."
	case KindVerificationFailed:
		return "Challenge verification failed."
	case KindDeliveryFailed:
		return "Unable to deliver message right now."
	default:
		return "Unexpected error."
	}
}

// Error is a pipeline failure of a known kind. Err keeps the internal cause
// for logging and is never shown to the caller.
type Error struct {
	Kind Kind
	Err  error
}

// NewError wraps cause with kind. cause may be nil.
func NewError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Err: cause}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}
