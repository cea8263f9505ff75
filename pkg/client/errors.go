package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/ramarlina/tally-cli/pkg/api"
)

// Kind tells how far a failed request got.
type Kind int

const (
	// KindHTTP means a response arrived with an error status.
	KindHTTP Kind = iota + 1
	// KindNetwork means the request was sent but no response arrived.
	KindNetwork
	// KindClient means the request was never sent.
	KindClient
)

func (k Kind) String() string {
	switch k {
	case KindHTTP:
		return "http"
	case KindNetwork:
		return "network"
	case KindClient:
		return "client"
	default:
		return "unknown"
	}
}

// Fallback texts shown to users.
const (
	msgValidation   = "some fields are invalid"
	msgUnauthorized = "authentication required"
	msgForbidden    = "you are not allowed to perform this action"
	msgNotFound     = "entity not found"
	msgServer       = "the server could not process the request, try again later"
	msgNetwork      = "could not reach the server, check your connection"
	msgUnknown      = "unexpected error"
)

// APIError is the normalized failure of every client call.
type APIError struct {
	Kind Kind
	// Status is the HTTP status, zero unless Kind is KindHTTP.
	Status int
	// Message is the server supplied message, if any.
	Message string
	// ServerError is the server supplied error string, if any.
	ServerError string
	FieldErrors []api.FieldError
	Err         error
}

func (e *APIError) Error() string {
	switch e.Kind {
	case KindHTTP:
		msg := e.Message
		if msg == "" {
			msg = e.ServerError
		}
		if msg == "" {
			msg = http.StatusText(e.Status)
		}
		return fmt.Sprintf("http %d: %s", e.Status, msg)
	case KindNetwork:
		return fmt.Sprintf("network: %v", e.Err)
	default:
		if e.Err != nil {
			return fmt.Sprintf("client: %v", e.Err)
		}
		if e.Message != "" {
			return "client: " + e.Message
		}
		return "client: " + msgUnknown
	}
}

func (e *APIError) Unwrap() error { return e.Err }

// Normalize turns any error from a call into an *APIError. It is idempotent.
func Normalize(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &APIError{Kind: KindNetwork, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &APIError{Kind: KindClient, Err: err}
	}

	// The transport wraps both "never sent" (bad scheme, no host) and
	// "no response" failures in *url.Error, which is itself a net.Error.
	// Only look at what it wraps.
	cause := err
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		cause = urlErr.Err
		if errors.Is(cause, io.EOF) || errors.Is(cause, io.ErrUnexpectedEOF) {
			return &APIError{Kind: KindNetwork, Err: err}
		}
	}
	var netErr net.Error
	if errors.As(cause, &netErr) {
		return &APIError{Kind: KindNetwork, Err: err}
	}

	return &APIError{Kind: KindClient, Err: err}
}

// fromResponse builds the error for a non-2xx response.
func fromResponse(status int, body []byte) *APIError {
	e := &APIError{Kind: KindHTTP, Status: status}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return e
	}

	var eb api.ErrorBody
	if trimmed[0] == '{' && json.Unmarshal(trimmed, &eb) == nil {
		e.Message = eb.Message
		e.ServerError = eb.Error
		e.FieldErrors = eb.FieldErrors
		return e
	}

	// plain text bodies, e.g. from a proxy
	text := string(trimmed)
	if len(text) <= 200 && !strings.HasPrefix(text, "<") {
		e.Message = text
	}
	return e
}

// UserMessage renders the error for display. custom replaces the generic
// server-failure text and the unknown-error fallback.
func (e *APIError) UserMessage(custom string) string {
	switch e.Kind {
	case KindNetwork:
		return msgNetwork
	case KindClient:
		if e.Err != nil {
			return e.Err.Error()
		}
		if e.Message != "" {
			return e.Message
		}
		if custom != "" {
			return custom
		}
		return msgUnknown
	}

	switch {
	case e.IsValidation():
		parts := make([]string, 0, len(e.FieldErrors))
		for _, fe := range e.FieldErrors {
			parts = append(parts, fmt.Sprintf("%s: %s", fe.FieldName, fe.FieldError))
		}
		return msgValidation + ": " + strings.Join(parts, "; ")
	case e.Status == http.StatusUnauthorized:
		return msgUnauthorized
	case e.Status == http.StatusForbidden:
		return firstNonEmpty(e.Message, msgForbidden)
	case e.Status == http.StatusNotFound:
		return firstNonEmpty(e.Message, msgNotFound)
	case e.Status >= 500:
		return firstNonEmpty(custom, msgServer)
	default:
		return firstNonEmpty(e.Message, e.ServerError, http.StatusText(e.Status))
	}
}

// Code maps the error onto the CLI JSON error codes.
func (e *APIError) Code() string {
	switch e.Kind {
	case KindNetwork:
		return api.ErrNetwork
	case KindClient:
		return api.ErrClient
	}
	switch {
	case e.IsValidation():
		return api.ErrValidation
	case e.Status == http.StatusUnauthorized:
		return api.ErrUnauthorized
	case e.Status == http.StatusForbidden:
		return api.ErrForbidden
	case e.Status == http.StatusNotFound:
		return api.ErrNotFound
	case e.Status >= 500:
		return api.ErrServer
	default:
		return api.ErrHTTP
	}
}

// IsValidation reports a 400 carrying field errors.
func (e *APIError) IsValidation() bool {
	return e.Kind == KindHTTP && e.Status == http.StatusBadRequest && len(e.FieldErrors) > 0
}

// FieldError returns the message attached to a field.
func (e *APIError) FieldError(name string) (string, bool) {
	for _, fe := range e.FieldErrors {
		if fe.FieldName == name {
			return fe.FieldError, true
		}
	}
	return "", false
}

func statusOf(err error) (int, bool) {
	var e *APIError
	if !errors.As(err, &e) || e.Kind != KindHTTP {
		return 0, false
	}
	return e.Status, true
}

// IsValidation reports whether err is a field validation failure.
func IsValidation(err error) bool {
	var e *APIError
	return errors.As(err, &e) && e.IsValidation()
}

// IsUnauthorized reports a 401; callers should re-authenticate.
func IsUnauthorized(err error) bool {
	s, ok := statusOf(err)
	return ok && s == http.StatusUnauthorized
}

// IsForbidden reports a 403.
func IsForbidden(err error) bool {
	s, ok := statusOf(err)
	return ok && s == http.StatusForbidden
}

// IsNotFound reports a 404.
func IsNotFound(err error) bool {
	s, ok := statusOf(err)
	return ok && s == http.StatusNotFound
}

// IsServer reports a 5xx.
func IsServer(err error) bool {
	s, ok := statusOf(err)
	return ok && s >= 500
}

// IsNetwork reports a request that got no response.
func IsNetwork(err error) bool {
	var e *APIError
	return errors.As(err, &e) && e.Kind == KindNetwork
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
