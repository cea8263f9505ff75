package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ramarlina/tally-cli/pkg/api"
	"github.com/ramarlina/tally-cli/pkg/config"
	"github.com/ramarlina/tally-cli/pkg/format"
	"github.com/ramarlina/tally-cli/pkg/models"
	"github.com/ramarlina/tally-cli/pkg/output"
	"github.com/spf13/cast"
	"golang.org/x/text/language"
)

const (
	maxColumns   = 8
	maxCellWidth = 40
)

// amountKeys hold money in the configured currency.
var amountKeys = map[string]bool{
	"amount": true,
	"rate":   true,
	"price":  true,
}

// cellFormatter renders field values with the configured locale and currency.
type cellFormatter struct {
	locale   language.Tag
	currency string
}

func newCellFormatter() cellFormatter {
	locale, _ := config.Get("locale")
	currency, _ := config.Get("currency")
	return cellFormatter{locale: format.Locale(locale), currency: currency}
}

func (f cellFormatter) value(key string, v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		return x
	case bool:
		return cast.ToString(x)
	case float64, json.Number:
		n := cast.ToFloat64(x)
		switch {
		case amountKeys[key] && f.currency != "":
			if s, err := format.Money(f.locale, n, f.currency); err == nil {
				return s
			}
		case key == "hours":
			return format.Hours(n)
		case n != float64(int64(n)):
			return format.Number(f.locale, n, 2)
		}
		return cast.ToString(int64(n))
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	}
}

func (f cellFormatter) cell(key string, v any) string {
	s := strings.ReplaceAll(f.value(key, v), "\n", " ")
	if len(s) > maxCellWidth {
		s = s[:maxCellWidth-3] + "..."
	}
	return s
}

// recordID returns the id of rec as a string, or "" when it has none.
func recordID(rec models.Record) string {
	if v, ok := rec["id"]; ok && v != nil {
		if n, ok := v.(float64); ok {
			return cast.ToString(int64(n))
		}
		return cast.ToString(v)
	}
	return ""
}

// columns returns "id" followed by the other keys seen in recs, sorted.
func columns(recs []models.Record) []string {
	seen := map[string]bool{}
	var keys []string
	hasID := false
	for _, rec := range recs {
		for k := range rec {
			if k == "id" {
				hasID = true
				continue
			}
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	if hasID {
		keys = append([]string{"id"}, keys...)
	}
	if len(keys) > maxColumns {
		keys = keys[:maxColumns]
	}
	return keys
}

func renderRecords(out *output.Printer, resource string, recs []models.Record) error {
	if out.IsStructured() {
		return out.Success(recs)
	}

	if len(recs) == 0 {
		if !out.IsQuiet() {
			out.Printf("No %s found\n", resource)
		}
		return nil
	}

	if out.IsRaw() {
		for _, rec := range recs {
			if id := recordID(rec); id != "" {
				out.Println(id)
			}
		}
		return nil
	}

	f := newCellFormatter()
	headers := columns(recs)
	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		row := make([]string, len(headers))
		for i, k := range headers {
			row[i] = f.cell(k, rec[k])
		}
		rows = append(rows, row)
	}
	return out.Table(headers, rows)
}

func renderRecord(out *output.Printer, rec models.Record) error {
	if out.IsStructured() {
		return out.Success(rec)
	}
	if out.IsRaw() {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		out.Println(string(data))
		return nil
	}

	f := newCellFormatter()
	shown := make(map[string]any, len(rec))
	for k, v := range rec {
		shown[k] = f.value(k, v)
	}
	out.Fields(shown)
	return nil
}

func renderPage(out *output.Printer, resource string, page *api.Page[models.Record]) error {
	if out.IsStructured() {
		return out.Success(page)
	}
	if !out.IsRaw() && !out.IsQuiet() && len(page.Content) > 0 {
		out.Printf("Page %d of %d (%d %s in total)\n\n",
			page.CurrentPage+1, max(page.TotalPages, 1), page.TotalElements, resource)
	}
	return renderRecords(out, resource, page.Content)
}

func formatID(id int64) string {
	if id == 0 {
		return "-"
	}
	return cast.ToString(id)
}
