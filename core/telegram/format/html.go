package format

import (
	"html"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04 MST"
)

// Escape makes user text safe inside an HTML-formatted message.
func Escape(s string) string {
	return html.EscapeString(s)
}

// Bold escapes s and wraps it in <b>.
func Bold(s string) string {
	return "<b>" + Escape(s) + "</b>"
}

// Field renders a "· <b>label</b>: value" summary line. value is escaped.
func Field(label, value string) string {
	if strings.TrimSpace(value) == "" {
		value = "-"
	}
	return "· <b>" + Escape(label) + "</b>: " + Escape(value) + "\n"
}

// Date renders t as yyyy-mm-dd in UTC.
func Date(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// DateTime renders t with minutes in UTC.
func DateTime(t time.Time) string {
	return t.UTC().Format(dateTimeLayout)
}

// Ago renders t relative to now, e.g. "3 hours ago".
func Ago(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}

// Distance renders km as metres below one kilometre, e.g. "220 m" or "2.5 km".
func Distance(km float64) string {
	if km < 1 {
		return humanize.Comma(int64(math.Round(km*1000))) + " m"
	}
	return humanize.FtoaWithDigits(km, 1) + " km"
}
