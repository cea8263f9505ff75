package mcp

import (
	"strings"
	"testing"

	"github.com/ramarlina/tally-cli/pkg/api"
	"github.com/ramarlina/tally-cli/pkg/client"
	"github.com/ramarlina/tally-cli/pkg/models"
)

func TestFormatSession(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		sess     *models.Session
		contains []string
	}{
		{
			name:     "nil session",
			sess:     nil,
			contains: []string{"Not authenticated"},
		},
		{
			name:     "anonymous",
			sess:     &models.Session{Authenticated: false},
			contains: []string{"Not authenticated"},
		},
		{
			name: "full name and username",
			sess: &models.Session{
				Authenticated: true,
				User:          &models.User{ID: 7, Username: "grace", FirstName: "Grace", LastName: "Hopper"},
				Roles:         []string{"ADMIN", "USER"},
			},
			contains: []string{"Authenticated as Grace Hopper (grace)", "User ID: 7", "Roles: ADMIN, USER"},
		},
		{
			name: "username only",
			sess: &models.Session{
				Authenticated: true,
				User:          &models.User{Username: "grace"},
			},
			contains: []string{"Authenticated as grace"},
		},
		{
			name:     "no user",
			sess:     &models.Session{Authenticated: true},
			contains: []string{"Authenticated as unknown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatSession(tt.sess)

			for _, want := range tt.contains {
				if !strings.Contains(result, want) {
					t.Errorf("FormatSession() result missing %q\nGot: %s", want, result)
				}
			}
		})
	}
}

func TestFormatRecord(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rec  map[string]any
		want string
	}{
		{
			name: "empty",
			rec:  map[string]any{},
			want: "[Empty record]",
		},
		{
			name: "id first then sorted",
			rec:  map[string]any{"name": "Acme", "id": float64(2), "active": true},
			want: "id: 2\nactive: true\nname: Acme",
		},
		{
			name: "fractional and null",
			rec:  map[string]any{"hours": 7.25, "comment": nil},
			want: "comment: -\nhours: 7.25",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatRecord(tt.rec); got != tt.want {
				t.Errorf("FormatRecord() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatRecordCompact(t *testing.T) {
	t.Parallel()

	t.Run("short", func(t *testing.T) {
		got := FormatRecordCompact(map[string]any{"id": float64(1), "name": "Acme", "note": "two\nlines"})
		if got != "#1 name=Acme note=two lines" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("truncated", func(t *testing.T) {
		got := FormatRecordCompact(map[string]any{"id": float64(1), "note": strings.Repeat("x", 200)})

		if !strings.HasSuffix(got, "...") {
			t.Errorf("expected truncated line, got %q", got)
		}
		if len(got) != len("#1 ")+compactWidth {
			t.Errorf("len = %d, want %d", len(got), len("#1 ")+compactWidth)
		}
	})
}

func TestFormatRecords(t *testing.T) {
	t.Parallel()

	if got := FormatRecords("rates", nil); got != "No rates found." {
		t.Errorf("got %q", got)
	}

	got := FormatRecords("rates", []map[string]any{
		{"id": float64(1), "amount": 950.5},
		{"id": float64(2), "amount": float64(1100)},
	})
	want := "2 rates:\n#1 amount=950.5\n#2 amount=1100"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatPage(t *testing.T) {
	t.Parallel()

	if got := FormatPage("users", nil); got != "No users found." {
		t.Errorf("got %q", got)
	}

	page := &api.Page[map[string]any]{
		Content:       []map[string]any{{"id": float64(21), "lastName": "Turing"}},
		CurrentPage:   1,
		TotalPages:    3,
		TotalElements: 1234,
	}
	got := FormatPage("users", page)
	want := "Page 2 of 3 (1,234 users in total):\n#21 lastName=Turing"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		v    *client.ValidationResult
		want string
	}{
		{"valid", &client.ValidationResult{Valid: true}, `email "a@b.c" is valid.`},
		{"nil", nil, `email "a@b.c" is valid.`},
		{"invalid", &client.ValidationResult{Message: "already in use"}, `email "a@b.c" is not valid: already in use`},
		{"invalid without message", &client.ValidationResult{}, `email "a@b.c" is not valid.`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatValidation("email", "a@b.c", tt.v); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
