package relay

import "fmt"

// Kind classifies a relay failure. Each kind carries a distinct user-facing
// message; the failed outcome is always surfaced to the caller, never
// swallowed.
type Kind string

const (
	KindMissingCredential Kind = "missing_credential"
	KindMalformedRequest  Kind = "malformed_request"
	KindInvalidCredential Kind = "invalid_credential"
	KindForbidden         Kind = "forbidden"
	KindRateLimited       Kind = "rate_limited"
	KindUnexpectedShape   Kind = "unexpected_response_shape"
	KindNetworkFailure    Kind = "network_failure"
	KindUnknown           Kind = "unknown_failure"
)

// Error is a typed relay failure.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// UserMessage is the text shown in the conversation transcript when the
// relay fails.
func (e *Error) UserMessage() string { return e.Message }

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// KindOf returns the failure kind of err, or KindUnknown for untyped errors.
func KindOf(err error) Kind {
	if re, ok := err.(*Error); ok {
		return re.Kind
	}
	return KindUnknown
}

// statusError maps a non-2xx upstream status to a typed failure with the
// distinct per-status message.
func statusError(status int, body string) *Error {
	switch status {
	case 400:
		return newError(KindMalformedRequest, "Invalid request. Please check your message format.")
	case 401:
		return newError(KindInvalidCredential, "Invalid API key. Please check your Google AI Studio API key.")
	case 403:
		return newError(KindForbidden, "API access forbidden. Please check your API key permissions.")
	case 429:
		return newError(KindRateLimited, "Rate limit exceeded. Please try again in a moment.")
	default:
		if body == "" {
			body = "Unknown error occurred"
		}
		return newError(KindUnknown, "API Error: "+body)
	}
}
