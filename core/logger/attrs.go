package logger

import (
	"log/slog"
	"strings"
	"time"
)

const maxErrRunes = 256

// Status is "error" for a non-nil err and "ok" otherwise.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Err renders err as a sanitized "err" attr. A nil error yields an empty
// attr, which slog drops.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("err", SanitizeLimit(err.Error(), maxErrRunes))
}

// Took is the time since start, rounded to milliseconds.
func Took(start time.Time) time.Duration {
	return RoundMS(time.Since(start))
}

// RoundMS rounds d to the millisecond. Negative durations become zero.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// SummarizeStrings joins at most limit values and reports whether any were left out.
func SummarizeStrings(values []string, limit int) (string, bool) {
	if limit < 0 {
		limit = 0
	}
	if len(values) <= limit {
		return strings.Join(values, ", "), false
	}
	return strings.Join(values[:limit], ", "), true
}
