package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ramarlina/tally-cli/pkg/api"
)

// CRUD is the operation set every REST collection supports.
type CRUD[T any] interface {
	List(ctx context.Context) ([]T, error)
	ListByStatus(ctx context.Context, active bool) ([]T, error)
	Get(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, entity *T) (*T, error)
	Update(ctx context.Context, entity *T) (*T, error)
	Delete(ctx context.Context, id string) error
	ValidateField(ctx context.Context, id, name string, value any) (*ValidationResult, error)
	ListPaged(ctx context.Context, q PagedQuery) (*api.Page[T], error)
}

var _ CRUD[map[string]any] = (*Resource[map[string]any])(nil)

// ValidationResult is the verdict on a single field value.
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// Resource is a client for one REST collection. Its path is fixed at
// construction.
type Resource[T any] struct {
	c    *Client
	path string
}

// NewResource binds a collection path such as /api/users.
func NewResource[T any](c *Client, path string) *Resource[T] {
	return &Resource[T]{
		c:    c,
		path: "/" + strings.Trim(path, "/"),
	}
}

// Path returns the collection path.
func (r *Resource[T]) Path() string {
	return r.path
}

// Client returns the underlying transport.
func (r *Resource[T]) Client() *Client {
	return r.c
}

func (r *Resource[T]) sub(segment string) string {
	return r.path + "/" + url.PathEscape(segment)
}

func (r *Resource[T]) get(ctx context.Context, path string, query url.Values, out any) error {
	return r.c.do(ctx, &request{
		method:   http.MethodGet,
		path:     path,
		resource: r.path,
		query:    query,
	}, out)
}

// List fetches the whole collection.
func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	var out []T
	if err := r.get(ctx, r.path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByStatus fetches active or inactive entities.
func (r *Resource[T]) ListByStatus(ctx context.Context, active bool) ([]T, error) {
	var out []T
	q := url.Values{"active": {strconv.FormatBool(active)}}
	if err := r.get(ctx, r.path, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches a single entity.
func (r *Resource[T]) Get(ctx context.Context, id string) (*T, error) {
	if id == "" {
		return nil, &APIError{Kind: KindClient, Err: errors.New("id is required")}
	}
	out := new(T)
	if err := r.get(ctx, r.sub(id), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create posts a new entity and returns the server representation.
func (r *Resource[T]) Create(ctx context.Context, entity *T) (*T, error) {
	out := new(T)
	if err := r.c.send(ctx, http.MethodPost, r.path, r.path, entity, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update puts an entity carrying its id.
func (r *Resource[T]) Update(ctx context.Context, entity *T) (*T, error) {
	out := new(T)
	if err := r.c.send(ctx, http.MethodPut, r.path, r.path, entity, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes an entity.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	if id == "" {
		return &APIError{Kind: KindClient, Err: errors.New("id is required")}
	}
	return r.c.do(ctx, &request{
		method:   http.MethodDelete,
		path:     r.sub(id),
		resource: r.path,
		csrf:     true,
	}, nil)
}

// ValidateField asks the server whether value is acceptable for field name.
// An empty id marks an entity that does not exist yet. A 400 carrying field
// errors is reported as an invalid result, not as an error.
func (r *Resource[T]) ValidateField(ctx context.Context, id, name string, value any) (*ValidationResult, error) {
	req := api.ValidationRequest{Name: name, Value: value}
	if id != "" {
		req.ID = api.EntityID(id)
	}

	var raw json.RawMessage
	err := r.c.send(ctx, http.MethodPost, r.sub("validate"), r.path, req, &raw)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.IsValidation() {
			msg, ok := apiErr.FieldError(name)
			if !ok {
				msg = apiErr.FieldErrors[0].FieldError
			}
			return &ValidationResult{Valid: false, Message: msg}, nil
		}
		return nil, err
	}

	return validationFromBody(raw, name), nil
}

func validationFromBody(raw json.RawMessage, name string) *ValidationResult {
	var flag bool
	if json.Unmarshal(raw, &flag) == nil {
		return &ValidationResult{Valid: flag}
	}

	var body struct {
		Valid *bool `json:"valid"`
		api.ErrorBody
	}
	if json.Unmarshal(raw, &body) != nil {
		return &ValidationResult{Valid: true}
	}

	for _, fe := range body.FieldErrors {
		if fe.FieldName == name || fe.FieldName == "" {
			return &ValidationResult{Valid: false, Message: fe.FieldError}
		}
	}
	if body.Valid != nil && !*body.Valid {
		return &ValidationResult{Valid: false, Message: body.Message}
	}
	return &ValidationResult{Valid: true}
}

// ListPaged fetches one page of a filtered, sorted listing.
func (r *Resource[T]) ListPaged(ctx context.Context, q PagedQuery) (*api.Page[T], error) {
	values, err := q.Values()
	if err != nil {
		return nil, Normalize(err)
	}
	out := new(api.Page[T])
	if err := r.get(ctx, r.sub("paged"), values, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Action posts an empty (JSON null) body to <path>/<name>, for endpoints such
// as reminders or votes. out may be nil.
func (r *Resource[T]) Action(ctx context.Context, name string, out any) error {
	return r.c.send(ctx, http.MethodPost, r.sub(name), r.path, nil, out)
}

// Post sends body to <path>/<name>.
func (r *Resource[T]) Post(ctx context.Context, name string, body any, out any) error {
	return r.c.send(ctx, http.MethodPost, r.sub(name), r.path, body, out)
}

// Upload posts a file to <path>/upload as multipart form data.
func (r *Resource[T]) Upload(ctx context.Context, filename string, content io.Reader, out any) error {
	return r.c.sendMultipart(ctx, r.sub("upload"), r.path, "file", filename, content, out)
}
