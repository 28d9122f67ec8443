// Package errs defines the error taxonomy shared by every orchestration
// component, grounded on channels.ChannelError's Code/Message/Err/
// IsRetryable() shape (plugin/chat_apps/channels/base.go): a small tagged
// error carrying an HTTP status and a retry hint, instead of ad hoc
// sentinel values scattered across packages.
package errs

import "net/http"

// Kind names a failure mode from spec.md §7. The name describes the
// failure, not a programming construct.
type Kind string

const (
	KindInputInvalid      Kind = "InputInvalid"
	KindNotAuthenticated   Kind = "NotAuthenticated"
	KindSignatureInvalid   Kind = "SignatureInvalid"
	KindNotAuthorized      Kind = "NotAuthorized"
	KindNotFound           Kind = "NotFound"
	KindConflict           Kind = "Conflict"
	KindRateLimited        Kind = "RateLimited"
	KindTransientProvider  Kind = "TransientProviderError"
	KindPermanentProvider  Kind = "PermanentProviderError"
	KindGroundingFailure   Kind = "GroundingFailure"
	KindBudgetExceeded     Kind = "BudgetExceeded"
)

// Error is a tagged error carrying an HTTP status code and a retry hint.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Err     error
	// RetrySuggested is true only for RateLimited errors; it carries no
	// suggested wait duration.
	RetrySuggested bool
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the orchestrator should attempt the
// underlying operation again (possibly via failover), per spec.md §7.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTransientProvider, KindRateLimited:
		return true
	default:
		return false
	}
}

func New(kind Kind, status int, message string, cause error) *Error {
	return &Error{Kind: kind, Status: status, Message: message, Err: cause}
}

func InputInvalid(message string, cause error) *Error {
	return New(KindInputInvalid, http.StatusBadRequest, message, cause)
}

func NotAuthenticated(message string) *Error {
	return New(KindNotAuthenticated, http.StatusUnauthorized, message, nil)
}

func SignatureInvalid(message string) *Error {
	return New(KindSignatureInvalid, http.StatusUnauthorized, message, nil)
}

func NotAuthorized(message string) *Error {
	return New(KindNotAuthorized, http.StatusForbidden, message, nil)
}

func NotFound(message string) *Error {
	return New(KindNotFound, http.StatusNotFound, message, nil)
}

func Conflict(message string) *Error {
	return New(KindConflict, http.StatusConflict, message, nil)
}

func RateLimited(message string) *Error {
	e := New(KindRateLimited, http.StatusTooManyRequests, message, nil)
	e.RetrySuggested = true
	return e
}

func TransientProvider(message string, cause error) *Error {
	return New(KindTransientProvider, http.StatusBadGateway, message, cause)
}

func PermanentProvider(message string, cause error) *Error {
	return New(KindPermanentProvider, http.StatusBadGateway, message, cause)
}

func GroundingFailure(message string) *Error {
	return New(KindGroundingFailure, http.StatusUnprocessableEntity, message, nil)
}

func BudgetExceeded(message string) *Error {
	return New(KindBudgetExceeded, http.StatusGatewayTimeout, message, nil)
}
