package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/ramarlina/tally-cli/internal/devserver"
	"github.com/ramarlina/tally-cli/pkg/models"
	"github.com/ramarlina/tally-cli/pkg/services"
)

// mockRequest creates a CallToolRequest with the given arguments.
func mockRequest(name string, args map[string]any) mcplib.CallToolRequest {
	return mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// mockServer creates a test HTTP server that returns specified responses.
type mockServer struct {
	*httptest.Server

	mu        sync.Mutex
	responses map[string]mockResponse
	requests  []recordedRequest
}

type mockResponse struct {
	statusCode int
	body       any
}

type recordedRequest struct {
	key  string
	body string
}

func newMockServer() *mockServer {
	ms := &mockServer{
		responses: make(map[string]mockResponse),
	}

	ms.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		ms.mu.Lock()
		key := r.Method + " " + r.URL.Path
		resp, ok := ms.responses[key]
		if !ok {
			// Try with query string
			key = r.Method + " " + r.URL.String()
			resp, ok = ms.responses[key]
		}
		ms.requests = append(ms.requests, recordedRequest{key: r.Method + " " + r.URL.String(), body: string(body)})
		ms.mu.Unlock()

		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"message": "there is nothing at " + r.URL.Path})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.statusCode)
		if resp.body != nil {
			json.NewEncoder(w).Encode(resp.body)
		}
	}))

	return ms
}

func (ms *mockServer) setResponse(method, path string, statusCode int, body any) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.responses[method+" "+path] = mockResponse{
		statusCode: statusCode,
		body:       body,
	}
}

func (ms *mockServer) lastRequest(t *testing.T) recordedRequest {
	t.Helper()
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if len(ms.requests) == 0 {
		t.Fatal("no request received")
	}
	return ms.requests[len(ms.requests)-1]
}

func newHandlers(url string) *Handlers {
	return NewHandlers(NewAuthState(url, nil))
}

func TestNewHandlers(t *testing.T) {
	t.Parallel()

	auth := &AuthState{}
	handlers := NewHandlers(auth)

	if handlers == nil {
		t.Fatal("NewHandlers returned nil")
	}

	if handlers.auth != auth {
		t.Error("handlers.auth not set correctly")
	}
}

func TestHandleStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("not authenticated", func(t *testing.T) {
		handlers := newHandlers("http://localhost")

		result, err := handlers.HandleStatus(ctx, mockRequest("tally_status", nil))
		if err != nil {
			t.Fatalf("HandleStatus() error = %v", err)
		}

		text := getResultText(t, result)
		if !strings.Contains(text, "Not authenticated") {
			t.Errorf("expected 'Not authenticated', got %q", text)
		}
	})

	t.Run("authenticated valid session", func(t *testing.T) {
		ms := newMockServer()
		defer ms.Close()

		ms.setResponse("GET", services.PathSession, 200, map[string]any{
			"authenticated": true,
			"user":          map[string]any{"id": 3, "username": "ada", "firstName": "Ada", "lastName": "Lovelace"},
			"roles":         []string{"ADMIN"},
		})

		auth := NewAuthState(ms.URL, nil)
		auth.SetUser(&models.User{ID: 3, Username: "ada"})
		handlers := NewHandlers(auth)

		result, err := handlers.HandleStatus(ctx, mockRequest("tally_status", nil))
		if err != nil {
			t.Fatalf("HandleStatus() error = %v", err)
		}

		text := getResultText(t, result)
		if !strings.Contains(text, "Ada Lovelace (ada)") {
			t.Errorf("expected user name in result, got %q", text)
		}
		if !strings.Contains(text, "Roles: ADMIN") {
			t.Errorf("expected roles in result, got %q", text)
		}
	})

	t.Run("authenticated expired session", func(t *testing.T) {
		ms := newMockServer()
		defer ms.Close()

		ms.setResponse("GET", services.PathSession, 401, map[string]string{"message": "unauthorized"})

		auth := NewAuthState(ms.URL, nil)
		auth.SetUser(&models.User{ID: 3, Username: "ada"})
		handlers := NewHandlers(auth)

		result, err := handlers.HandleStatus(ctx, mockRequest("tally_status", nil))
		if err != nil {
			t.Fatalf("HandleStatus() error = %v", err)
		}

		text := getResultText(t, result)
		if !strings.Contains(text, "Session expired: authentication required") {
			t.Errorf("expected 'Session expired', got %q", text)
		}
		if auth.IsAuthenticated() {
			t.Error("expected auth to be cleared after expired session")
		}
	})
}

func TestHandleLogin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("missing username", func(t *testing.T) {
		handlers := newHandlers("http://localhost")
		result, _ := handlers.HandleLogin(ctx, mockRequest("tally_login", map[string]any{"password": "x"}))
		if !isErrorResult(result) {
			t.Error("expected error result")
		}
	})

	for _, mode := range []devserver.CSRFMode{devserver.CSRFCookie, devserver.CSRFMeta} {
		t.Run(fmt.Sprintf("csrf %s", mode), func(t *testing.T) {
			srv := devserver.New(devserver.Options{
				CSRF:        mode,
				RequireAuth: true,
				Accounts:    map[string]string{"ada": "secret"},
			})
			ts := httptest.NewServer(srv.Handler())
			defer ts.Close()

			handlers := newHandlers(ts.URL)

			result, err := handlers.HandleLogin(ctx, mockRequest("tally_login", map[string]any{
				"username": "ada",
				"password": "wrong",
			}))
			if err != nil {
				t.Fatalf("HandleLogin() error = %v", err)
			}
			if !isErrorResult(result) {
				t.Fatalf("expected bad credentials to fail, got %q", getResultText(t, result))
			}

			result, err = handlers.HandleLogin(ctx, mockRequest("tally_login", map[string]any{
				"username": "ada",
				"password": "secret",
			}))
			if err != nil {
				t.Fatalf("HandleLogin() error = %v", err)
			}
			if isErrorResult(result) {
				t.Fatalf("login failed: %s", getResultText(t, result))
			}
			if !strings.Contains(getResultText(t, result), "Logged in as ada") {
				t.Errorf("unexpected login text %q", getResultText(t, result))
			}

			result, _ = handlers.HandleList(ctx, mockRequest("tally_list", map[string]any{"resource": "users"}))
			if isErrorResult(result) {
				t.Errorf("list after login failed: %s", getResultText(t, result))
			}
		})
	}
}

func TestHandleList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("all", func(t *testing.T) {
		ms := newMockServer()
		defer ms.Close()

		ms.setResponse("GET", "/api/companies", 200, []map[string]any{
			{"id": 1, "name": "Acme", "active": true},
			{"id": 2, "name": "Globex", "active": false},
		})

		result, err := newHandlers(ms.URL).HandleList(ctx, mockRequest("tally_list", map[string]any{"resource": "companies"}))
		if err != nil {
			t.Fatalf("HandleList() error = %v", err)
		}

		text := getResultText(t, result)
		if !strings.HasPrefix(text, "2 companies:") {
			t.Errorf("unexpected header in %q", text)
		}
		if !strings.Contains(text, "#1 active=true name=Acme") {
			t.Errorf("expected compact record in %q", text)
		}
	})

	t.Run("by status", func(t *testing.T) {
		ms := newMockServer()
		defer ms.Close()

		ms.setResponse("GET", "/api/companies?active=false", 200, []map[string]any{})

		result, _ := newHandlers(ms.URL).HandleList(ctx, mockRequest("tally_list", map[string]any{
			"resource": "companies",
			"active":   "false",
		}))

		if text := getResultText(t, result); text != "No companies found." {
			t.Errorf("got %q", text)
		}
	})

	t.Run("unknown resource", func(t *testing.T) {
		result, _ := newHandlers("http://localhost").HandleList(ctx, mockRequest("tally_list", map[string]any{"resource": "posts"}))
		if !isErrorResult(result) {
			t.Error("expected error for unknown resource")
		}
	})

	t.Run("server error", func(t *testing.T) {
		ms := newMockServer()
		defer ms.Close()

		ms.setResponse("GET", "/api/companies", 500, map[string]string{"message": "boom"})

		result, _ := newHandlers(ms.URL).HandleList(ctx, mockRequest("tally_list", map[string]any{"resource": "companies"}))
		if !isErrorResult(result) {
			t.Fatal("expected error result")
		}
		if text := getResultText(t, result); !strings.Contains(text, "try again later") {
			t.Errorf("expected generic server message, got %q", text)
		}
	})
}

func TestHandleGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		ms := newMockServer()
		defer ms.Close()

		ms.setResponse("GET", "/api/projects/4", 200, map[string]any{"id": 4, "name": "Apollo", "companyId": 1})

		result, _ := newHandlers(ms.URL).HandleGet(ctx, mockRequest("tally_get", map[string]any{"resource": "projects", "id": "4"}))
		text := getResultText(t, result)
		if text != "id: 4\ncompanyId: 1\nname: Apollo" {
			t.Errorf("got %q", text)
		}
	})

	t.Run("not found", func(t *testing.T) {
		ms := newMockServer()
		defer ms.Close()

		result, _ := newHandlers(ms.URL).HandleGet(ctx, mockRequest("tally_get", map[string]any{"resource": "projects", "id": "99"}))
		if !isErrorResult(result) {
			t.Fatal("expected error result")
		}
		if text := getResultText(t, result); !strings.Contains(text, "there is nothing at /api/projects/99") {
			t.Errorf("got %q", text)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		result, _ := newHandlers("http://localhost").HandleGet(ctx, mockRequest("tally_get", map[string]any{"resource": "projects"}))
		if !isErrorResult(result) {
			t.Error("expected error result")
		}
	})
}

func TestHandleSearch(t *testing.T) {
	t.Parallel()

	ms := newMockServer()
	defer ms.Close()

	ms.setResponse("GET", "/api/users/paged", 200, map[string]any{
		"content":       []map[string]any{{"id": 1, "firstName": "Ada"}},
		"currentPage":   0,
		"totalPages":    1,
		"totalElements": 1,
	})

	result, err := newHandlers(ms.URL).HandleSearch(context.Background(), mockRequest("tally_search", map[string]any{
		"resource": "users",
		"size":     float64(500),
		"sort":     "lastName",
		"active":   "true",
		"filters":  map[string]any{"firstName": "ad", "lastName": ""},
	}))
	if err != nil {
		t.Fatalf("HandleSearch() error = %v", err)
	}

	text := getResultText(t, result)
	if !strings.HasPrefix(text, "Page 1 of 1 (1 users in total):") {
		t.Errorf("unexpected text %q", text)
	}

	got := ms.lastRequest(t).key
	want := "GET /api/users/paged?active=true&firstName=ad&page=0&size=200&sort=lastName"
	if got != want {
		t.Errorf("request = %q, want %q", got, want)
	}
}

func TestHandleValidate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("invalid", func(t *testing.T) {
		ms := newMockServer()
		defer ms.Close()

		ms.setResponse("POST", "/api/users/validate", 400, map[string]any{
			"fieldErrors": []map[string]string{{"fieldName": "email", "fieldError": "already in use"}},
		})

		result, _ := newHandlers(ms.URL).HandleValidate(ctx, mockRequest("tally_validate", map[string]any{
			"resource": "users",
			"field":    "email",
			"value":    "ada@example.com",
		}))
		if isErrorResult(result) {
			t.Fatalf("an invalid value is not a tool error: %s", getResultText(t, result))
		}
		text := getResultText(t, result)
		if text != `email "ada@example.com" is not valid: already in use` {
			t.Errorf("got %q", text)
		}
		if body := ms.lastRequest(t).body; !strings.Contains(body, `"id":null`) {
			t.Errorf("expected null id for a new entity, body %s", body)
		}
	})

	t.Run("valid", func(t *testing.T) {
		ms := newMockServer()
		defer ms.Close()

		ms.setResponse("POST", "/api/users/validate", 200, true)

		result, _ := newHandlers(ms.URL).HandleValidate(ctx, mockRequest("tally_validate", map[string]any{
			"resource": "users",
			"field":    "email",
			"value":    "new@example.com",
			"id":       "3",
		}))
		if text := getResultText(t, result); text != `email "new@example.com" is valid.` {
			t.Errorf("got %q", text)
		}
		if body := ms.lastRequest(t).body; !strings.Contains(body, `"id":3`) {
			t.Errorf("expected id in body, got %s", body)
		}
	})
}

func TestHandleCloseOpenReport(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("close", func(t *testing.T) {
		ms := newMockServer()
		defer ms.Close()

		ms.setResponse("POST", "/api/timereportstatus/close", 200, nil)

		result, _ := newHandlers(ms.URL).HandleCloseReport(ctx, mockRequest("tally_close_report", map[string]any{
			"user_id":    "7",
			"close_date": "2026-09-30",
		}))
		if isErrorResult(result) {
			t.Fatalf("unexpected error: %s", getResultText(t, result))
		}
		if body := ms.lastRequest(t).body; !strings.Contains(body, `"userId":7`) || !strings.Contains(body, `"closeDate":"2026-09-30"`) {
			t.Errorf("unexpected body %s", body)
		}
	})

	t.Run("bad date", func(t *testing.T) {
		result, _ := newHandlers("http://localhost").HandleCloseReport(ctx, mockRequest("tally_close_report", map[string]any{
			"user_id":    "7",
			"close_date": "30/09/2026",
		}))
		if !isErrorResult(result) {
			t.Error("expected error for malformed date")
		}
	})

	t.Run("open forbidden", func(t *testing.T) {
		ms := newMockServer()
		defer ms.Close()

		ms.setResponse("POST", "/api/timereportstatus/open", 403, map[string]string{"message": "time report is locked"})

		result, _ := newHandlers(ms.URL).HandleOpenReport(ctx, mockRequest("tally_open_report", map[string]any{"user_id": "7"}))
		if !isErrorResult(result) {
			t.Fatal("expected error result")
		}
		if text := getResultText(t, result); !strings.Contains(text, "time report is locked") {
			t.Errorf("got %q", text)
		}
	})
}

func getResultText(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("result is nil")
	}

	for _, content := range result.Content {
		if text, ok := content.(mcplib.TextContent); ok {
			return text.Text
		}
	}

	return fmt.Sprintf("unexpected content type: %T", result.Content)
}

func isErrorResult(result *mcplib.CallToolResult) bool {
	if result == nil {
		return false
	}
	return result.IsError
}
