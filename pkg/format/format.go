// Package format renders dates, amounts and sizes for display.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Date renders t as YYYY-MM-DD, the format the API expects.
func Date(t time.Time) string {
	return t.Format(time.DateOnly)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// Locale parses a BCP 47 tag such as "sv-SE", falling back to English.
func Locale(s string) language.Tag {
	if s == "" {
		return language.English
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.English
	}
	return tag
}

// Number renders v with the grouping and decimal separators of tag.
func Number(tag language.Tag, v float64, decimals int) string {
	p := message.NewPrinter(tag)
	return p.Sprint(number.Decimal(v, number.Scale(decimals)))
}

// Hours renders a duration in hours with at most two decimals, e.g. "7.5h".
func Hours(v float64) string {
	return humanize.FtoaWithDigits(v, 2) + "h"
}

// Money renders an amount with two decimals followed by its ISO currency code.
func Money(tag language.Tag, v float64, code string) (string, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", fmt.Errorf("invalid currency %q: %w", code, err)
	}
	return Number(tag, v, 2) + " " + unit.String(), nil
}

// Bytes renders a size such as "1.5 MB".
func Bytes(n uint64) string {
	return humanize.Bytes(n)
}

// Ago renders the time since t, e.g. "3 minutes ago".
func Ago(t time.Time) string {
	return AgoFrom(t, time.Now())
}

// AgoFrom renders t relative to now.
func AgoFrom(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}
