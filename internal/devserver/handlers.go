package devserver

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/ramarlina/tally-cli/pkg/api"
	"github.com/ramarlina/tally-cli/pkg/services"
	"github.com/spf13/cast"
)

const defaultPageSize = 20

// uniqueFields are checked for duplicates by the validate endpoint.
var uniqueFields = map[string]bool{
	"email":     true,
	"username":  true,
	"name":      true,
	"orgNumber": true,
}

// reserved query keys of paged listings; everything else is a filter.
var pagedKeys = map[string]bool{
	"page":      true,
	"size":      true,
	"sort":      true,
	"direction": true,
	"active":    true,
}

// collection serves one API path.
type collection struct {
	srv  *Server
	path string
	st   *store
}

func (s *Server) routes(g *echo.Group) {
	for _, e := range services.Catalog {
		col := &collection{srv: s, path: e.Path, st: s.stores[e.Path]}
		p := strings.TrimPrefix(e.Path, "/api")

		g.GET(p, col.list)
		g.POST(p, col.create)
		g.PUT(p, col.update)
		g.GET(p+"/paged", col.paged)
		g.POST(p+"/validate", col.validate)
		g.POST(p+"/upload", col.upload)
		g.GET(p+"/:id", col.get)
		g.DELETE(p+"/:id", col.remove)
		g.POST(p+"/:action", col.action)
	}
}

func notFound(path string) error {
	return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("there is nothing at %s", path))
}

func badRequest(format string, args ...any) error {
	return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf(format, args...))
}

// readJSON decodes the request body keeping numbers as json.Number.
func readJSON(c echo.Context, out any) error {
	dec := json.NewDecoder(c.Request().Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil && err != io.EOF {
		return badRequest("malformed JSON: %v", err)
	}
	return nil
}

func (col *collection) list(c echo.Context) error {
	recs := col.st.all()
	if raw := c.QueryParam("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest("active must be true or false")
		}
		recs = filter(recs, func(r map[string]any) bool { return matchesActive(r, active) })
	}
	return c.JSON(http.StatusOK, recs)
}

func (col *collection) get(c echo.Context) error {
	rec, ok := col.st.get(c.Param("id"))
	if !ok {
		return notFound(c.Request().URL.Path)
	}
	return c.JSON(http.StatusOK, rec)
}

func (col *collection) create(c echo.Context) error {
	var rec map[string]any
	if err := readJSON(c, &rec); err != nil {
		return err
	}
	if rec == nil {
		return badRequest("body must be a JSON object")
	}
	if errs := col.check("", rec); len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, api.ErrorBody{Message: "validation failed", FieldErrors: errs})
	}
	return c.JSON(http.StatusOK, col.st.insert(rec))
}

func (col *collection) update(c echo.Context) error {
	var rec map[string]any
	if err := readJSON(c, &rec); err != nil {
		return err
	}
	if rec == nil || idKey(rec["id"]) == "" {
		return badRequest("id is required")
	}
	if errs := col.check(idKey(rec["id"]), rec); len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, api.ErrorBody{Message: "validation failed", FieldErrors: errs})
	}
	out, ok := col.st.replace(rec)
	if !ok {
		return notFound(fmt.Sprintf("%s/%s", col.path, idKey(rec["id"])))
	}
	return c.JSON(http.StatusOK, out)
}

func (col *collection) remove(c echo.Context) error {
	if !col.st.remove(c.Param("id")) {
		return notFound(c.Request().URL.Path)
	}
	return c.NoContent(http.StatusOK)
}

// check returns duplicate errors for unique fields of rec.
func (col *collection) check(id string, rec map[string]any) []api.FieldError {
	var errs []api.FieldError
	for field, v := range rec {
		if !uniqueFields[field] || v == nil || v == "" {
			continue
		}
		if col.st.conflicts(id, field, v) {
			errs = append(errs, api.FieldError{FieldName: field, FieldError: "already in use"})
		}
	}
	return errs
}

func (col *collection) validate(c echo.Context) error {
	var req api.ValidationRequest
	if err := readJSON(c, &req); err != nil {
		return err
	}
	if req.Name == "" {
		return badRequest("name is required")
	}

	if s, ok := req.Value.(string); req.Value == nil || (ok && strings.TrimSpace(s) == "") {
		return c.JSON(http.StatusBadRequest, api.ErrorBody{
			Message:     "validation failed",
			FieldErrors: []api.FieldError{{FieldName: req.Name, FieldError: "must not be empty"}},
		})
	}
	if uniqueFields[req.Name] && col.st.conflicts(idKey(req.ID), req.Name, req.Value) {
		return c.JSON(http.StatusBadRequest, api.ErrorBody{
			Message:     "validation failed",
			FieldErrors: []api.FieldError{{FieldName: req.Name, FieldError: "already in use"}},
		})
	}
	return c.JSON(http.StatusOK, true)
}

func (col *collection) paged(c echo.Context) error {
	q := c.QueryParams()

	page, err := cast.ToIntE(firstOr(q.Get("page"), "0"))
	if err != nil || page < 0 {
		return badRequest("page must be a non-negative number")
	}
	size, err := cast.ToIntE(firstOr(q.Get("size"), strconv.Itoa(defaultPageSize)))
	if err != nil || size <= 0 {
		return badRequest("size must be a positive number")
	}

	recs := col.st.all()
	if raw := q.Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest("active must be true or false")
		}
		recs = filter(recs, func(r map[string]any) bool { return matchesActive(r, active) })
	}
	for key, vals := range q {
		if pagedKeys[key] || len(vals) == 0 || vals[0] == "" {
			continue
		}
		want := strings.ToLower(vals[0])
		recs = filter(recs, func(r map[string]any) bool {
			return strings.Contains(strings.ToLower(fmt.Sprint(r[key])), want)
		})
	}
	if field := q.Get("sort"); field != "" {
		sortRecords(recs, field, strings.EqualFold(q.Get("direction"), "desc"))
	}

	// page*size may overflow for absurd pages, so compare by division.
	total := len(recs)
	from := total
	if page <= total/size {
		from = page * size
	}
	to := from + min(size, total-from)
	pages := total / size
	if total%size != 0 {
		pages++
	}

	return c.JSON(http.StatusOK, api.Page[map[string]any]{
		Content:       recs[from:to],
		CurrentPage:   page,
		TotalPages:    pages,
		TotalElements: int64(total),
	})
}

func (col *collection) action(c echo.Context) error {
	name := c.Param("action")

	if col.path == services.PathTimeReportStatus && (name == "close" || name == "open") {
		return col.statusChange(c, name == "close")
	}

	var body any
	if err := readJSON(c, &body); err != nil {
		return err
	}

	col.srv.mu.Lock()
	col.srv.actions = append(col.srv.actions, "POST "+col.path+"/"+name)
	col.srv.mu.Unlock()

	return c.NoContent(http.StatusOK)
}

// statusChange closes or opens a user's time report. Locked reports are
// refused with 403.
func (col *collection) statusChange(c echo.Context, closed bool) error {
	var req api.StatusChange
	if err := readJSON(c, &req); err != nil {
		return err
	}
	if req.UserID == "" {
		return c.JSON(http.StatusBadRequest, api.ErrorBody{
			Message:     "validation failed",
			FieldErrors: []api.FieldError{{FieldName: "userId", FieldError: "must not be empty"}},
		})
	}

	rec, ok := col.st.find("userId", string(req.UserID))
	if !ok {
		var userID any = string(req.UserID)
		if n, err := strconv.ParseInt(string(req.UserID), 10, 64); err == nil {
			userID = n
		}
		rec = col.st.insert(map[string]any{"userId": userID})
	}
	if locked, _ := rec["locked"].(bool); locked {
		return echo.NewHTTPError(http.StatusForbidden, "time report is locked")
	}

	rec["closed"] = closed
	if req.CloseDate != "" {
		rec["closeDate"] = req.CloseDate
	}
	out, _ := col.st.replace(rec)
	return c.JSON(http.StatusOK, out)
}

func (col *collection) upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest("file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	col.srv.mu.Lock()
	col.srv.uploads = append(col.srv.uploads, Upload{Path: col.path, Filename: fh.Filename, Size: fh.Size})
	col.srv.mu.Unlock()

	if col.path != services.PathSpecialDays {
		return c.NoContent(http.StatusOK)
	}

	days, err := parseSpecialDays(f)
	if err != nil {
		return badRequest("%v", err)
	}
	out := make([]map[string]any, 0, len(days))
	for _, d := range days {
		out = append(out, col.st.insert(d))
	}
	return c.JSON(http.StatusOK, out)
}

// parseSpecialDays reads "date;name[;hours]" lines. Blank lines and lines
// starting with # are skipped.
func parseSpecialDays(r io.Reader) ([]map[string]any, error) {
	var days []map[string]any
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		parts := strings.Split(text, ";")
		if len(parts) < 2 {
			return nil, fmt.Errorf("line %d: expected date;name[;hours]", line)
		}
		day := map[string]any{
			"date":  strings.TrimSpace(parts[0]),
			"name":  strings.TrimSpace(parts[1]),
			"hours": 0.0,
		}
		if len(parts) > 2 {
			h, err := cast.ToFloat64E(strings.TrimSpace(parts[2]))
			if err != nil {
				return nil, fmt.Errorf("line %d: hours: %w", line, err)
			}
			day["hours"] = h
		}
		days = append(days, day)
	}
	return days, sc.Err()
}

func filter(recs []map[string]any, keep func(map[string]any) bool) []map[string]any {
	out := recs[:0]
	for _, r := range recs {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func firstOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
