// Package api defines the wire shapes shared by the client, the CLI and the
// development server.
package api

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Response wraps CLI JSON output.
type Response[T any] struct {
	OK     bool   `json:"ok"`
	Result T      `json:"result,omitempty"`
	Error  *Error `json:"error,omitempty"`
}

// Error is the CLI JSON rendering of a failed call.
type Error struct {
	Code        string       `json:"code"`
	Status      int          `json:"status,omitempty"`
	Message     string       `json:"message"`
	FieldErrors []FieldError `json:"field_errors,omitempty"`
}

// Error codes used in CLI JSON output.
const (
	ErrValidation   = "validation"
	ErrUnauthorized = "unauthorized"
	ErrForbidden    = "forbidden"
	ErrNotFound     = "not_found"
	ErrServer       = "server"
	ErrHTTP         = "http"
	ErrNetwork      = "network"
	ErrClient       = "client"
)

// ErrorBody is the error payload returned by the backend.
type ErrorBody struct {
	Message     string       `json:"message,omitempty"`
	Error       string       `json:"error,omitempty"`
	FieldErrors []FieldError `json:"fieldErrors,omitempty"`
}

// FieldError annotates a single form field.
type FieldError struct {
	FieldName  string `json:"fieldName"`
	FieldError string `json:"fieldError"`
}

// Page is the envelope of a paged listing. CurrentPage is zero based.
type Page[T any] struct {
	Content       []T   `json:"content"`
	CurrentPage   int   `json:"currentPage"`
	TotalPages    int   `json:"totalPages"`
	TotalElements int64 `json:"totalElements"`
}

// ValidationRequest asks the backend whether a single field value is
// acceptable. ID is null for entities that do not exist yet.
type ValidationRequest struct {
	ID    any    `json:"id"`
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// StatusChange opens or closes a user's time report up to a date.
type StatusChange struct {
	UserID    EntityID `json:"userId"`
	CloseDate string   `json:"closeDate"`
}

// EntityID is an id given on the command line or by a tool. It goes on the
// wire as a JSON number when it is a canonical integer, as the backend's ids
// are, and as a string otherwise.
type EntityID string

// MarshalJSON implements json.Marshaler.
func (id EntityID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts a number or a string.
func (id *EntityID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = EntityID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = EntityID(n.String())
	return nil
}
