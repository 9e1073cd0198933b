// Package render formats dashboard views as plain text. Values are shown as
// the backend sent them; only thousands separators, currency and date
// layout are applied.
package render

import (
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"billdash/internal/models"
)

// DateLayout is how timestamps are shown.
const DateLayout = "2006-01-02"

// Int renders an integer with thousands separators.
func Int(n int64) string {
	return humanize.Comma(n)
}

// Money renders an amount with a dollar sign and two decimals.
func Money(d models.Decimal) string {
	return "$" + strconv.FormatFloat(d.Value, 'f', 2, 64)
}

// Percent renders a percentage exactly as received.
func Percent(d models.Decimal) string {
	if d.Text == "" {
		return "0%"
	}
	return d.Text + "%"
}

// Date renders a timestamp's calendar date, or "-" when absent.
func Date(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Format(DateLayout)
}

// Relative renders how long ago t was, e.g. "3 days ago".
func Relative(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return humanize.Time(*t)
}

// OrDash substitutes "-" for empty strings.
func OrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
