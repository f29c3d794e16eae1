// Package errors defines the status-bearing error type every flow step
// returns. The wire shape follows the OAuth 2.0 error convention so
// transports can serialize an Error body directly.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error codes.
const (
	InvalidRequest      = "invalid_request"
	InvalidGrant        = "invalid_grant"
	AccessDenied        = "access_denied"
	Unauthorized        = "unauthorized"
	NotFound            = "not_found"
	UnsupportedProvider = "unsupported_provider_type"
	UpstreamError       = "upstream_error"
	ServerError         = "server_error"
)

// Error is a machine-readable flow failure: an HTTP status class plus an
// OAuth2-style error body.
type Error struct {
	Status      int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// New builds an Error from its parts.
func New(status int, code, description string) *Error {
	return &Error{Status: status, Code: code, Description: description}
}

// NewInvalidRequest reports malformed caller input: a missing code, a state
// mismatch, a malformed redirect target.
func NewInvalidRequest(description string) *Error {
	return New(http.StatusBadRequest, InvalidRequest, description)
}

// NewProviderRejected carries a provider-reported OAuth error string from
// the callback query.
func NewProviderRejected(providerError string) *Error {
	return New(http.StatusBadRequest, providerError, fmt.Sprintf("provider returned error: %s", providerError))
}

// NewUnsupportedProviderType reports an authorize/callback dispatch onto a
// provider type the flow does not handle.
func NewUnsupportedProviderType(providerType string) *Error {
	return New(http.StatusBadRequest, UnsupportedProvider, fmt.Sprintf("unsupported provider type: %s", providerType))
}

// NewExchangeFailed reports a rejected or failed authorization-code
// exchange. The upstream message is carried for diagnostics; access tokens
// must never appear in it.
func NewExchangeFailed(description string) *Error {
	return New(http.StatusBadRequest, InvalidGrant, description)
}

// NewProfileFetchFailed reports a failed or unparsable userinfo response.
func NewProfileFetchFailed(description string) *Error {
	return New(http.StatusBadRequest, UpstreamError, description)
}

// NewUnauthorized reports a request with no usable auth context.
func NewUnauthorized(description string) *Error {
	return New(http.StatusUnauthorized, Unauthorized, description)
}

// NewForbidden reports a sign-in rejected by policy.
func NewForbidden(description string) *Error {
	return New(http.StatusForbidden, AccessDenied, description)
}

// NewNotFound reports an unknown provider id or a lookup miss at a step
// that requires existence.
func NewNotFound(description string) *Error {
	return New(http.StatusNotFound, NotFound, description)
}

// NewInternal reports an adapter invariant violation or other programming
// error. These fail loudly; they are not user input errors.
func NewInternal(description string) *Error {
	return New(http.StatusInternalServerError, ServerError, description)
}

// From coerces any error into an *Error, wrapping unknown errors as
// internal so transports always have a status to serialize.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewInternal(err.Error())
}
