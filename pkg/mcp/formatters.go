package mcp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/ramarlina/tally-cli/pkg/api"
	"github.com/ramarlina/tally-cli/pkg/client"
	"github.com/ramarlina/tally-cli/pkg/models"
)

const compactWidth = 100

func displayName(user *models.User) string {
	if user == nil {
		return "unknown"
	}
	name := user.FullName()
	switch {
	case name != "" && user.Username != "" && name != user.Username:
		return fmt.Sprintf("%s (%s)", name, user.Username)
	case name != "":
		return name
	case user.Username != "":
		return user.Username
	default:
		return fmt.Sprintf("user %d", user.ID)
	}
}

// FormatSession formats the logged in user.
func FormatSession(sess *models.Session) string {
	if sess == nil || !sess.Authenticated {
		return "Not authenticated."
	}

	lines := []string{fmt.Sprintf("Authenticated as %s", displayName(sess.User))}
	if sess.User != nil && sess.User.ID != 0 {
		lines = append(lines, fmt.Sprintf("User ID: %d", sess.User.ID))
	}
	if len(sess.Roles) > 0 {
		lines = append(lines, "Roles: "+strings.Join(sess.Roles, ", "))
	}
	return strings.Join(lines, "\n")
}

// recordKeys returns id first, then the other keys sorted.
func recordKeys(rec map[string]any) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		if k != "id" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if _, ok := rec["id"]; ok {
		keys = append([]string{"id"}, keys...)
	}
	return keys
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return humanize.FtoaWithDigits(x, 2)
	default:
		return fmt.Sprint(x)
	}
}

// FormatRecord formats one entity as "key: value" lines.
func FormatRecord(rec map[string]any) string {
	if len(rec) == 0 {
		return "[Empty record]"
	}
	lines := make([]string, 0, len(rec))
	for _, k := range recordKeys(rec) {
		lines = append(lines, fmt.Sprintf("%s: %s", k, formatValue(rec[k])))
	}
	return strings.Join(lines, "\n")
}

// FormatRecordCompact formats an entity on a single line.
func FormatRecordCompact(rec map[string]any) string {
	parts := make([]string, 0, len(rec))
	for _, k := range recordKeys(rec) {
		if k == "id" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(rec[k])))
	}

	line := strings.Join(parts, " ")
	line = strings.ReplaceAll(line, "\n", " ")
	if len(line) > compactWidth {
		line = line[:compactWidth-3] + "..."
	}
	if id, ok := rec["id"]; ok {
		return fmt.Sprintf("#%s %s", formatValue(id), line)
	}
	return line
}

// FormatRecords formats a listing.
func FormatRecords(resource string, recs []map[string]any) string {
	if len(recs) == 0 {
		return fmt.Sprintf("No %s found.", resource)
	}

	lines := []string{fmt.Sprintf("%s %s:", humanize.Comma(int64(len(recs))), resource)}
	for _, rec := range recs {
		lines = append(lines, FormatRecordCompact(rec))
	}
	return strings.Join(lines, "\n")
}

// FormatPage formats one page of a paged listing.
func FormatPage(resource string, page *api.Page[map[string]any]) string {
	if page == nil || len(page.Content) == 0 {
		return fmt.Sprintf("No %s found.", resource)
	}

	lines := []string{fmt.Sprintf("Page %d of %d (%s %s in total):",
		page.CurrentPage+1, max(page.TotalPages, 1), humanize.Comma(page.TotalElements), resource)}
	for _, rec := range page.Content {
		lines = append(lines, FormatRecordCompact(rec))
	}
	return strings.Join(lines, "\n")
}

// FormatValidation formats the verdict on a field value.
func FormatValidation(field, value string, v *client.ValidationResult) string {
	if v == nil || v.Valid {
		return fmt.Sprintf("%s %q is valid.", field, value)
	}
	if v.Message == "" {
		return fmt.Sprintf("%s %q is not valid.", field, value)
	}
	return fmt.Sprintf("%s %q is not valid: %s", field, value, v.Message)
}
