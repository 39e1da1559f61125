package logger

import "strings"

// levelNames maps accepted level spellings to the name written in logs.
var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
	"fatal":   "FATAL",
}

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if name, ok := levelNames[strings.ToLower(level)]; ok {
		return name
	}
	return strings.ToUpper(level)
}

// enumField restricts a string field to known values. Unknown values are
// kept lowercased when keepUnknown is set and dropped otherwise.
type enumField struct {
	values      []string
	keepUnknown bool
}

var enumFields = map[string]enumField{
	"status":     {values: []string{"ok", "fail", "skip", "retry", "rate_limited", "cancelled"}, keepUnknown: true},
	"transition": {values: []string{"next", "back", "select", "reenter", "leave", "stay"}},
}

func (e enumField) normalize(v string) (string, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "", false
	}
	for _, known := range e.values {
		if v == known {
			return v, true
		}
	}
	return v, e.keepUnknown
}

// defaultKeyOrder puts the keys every line has first, then request
// identity, then wizard and domain keys. Keys not listed follow sorted.
var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"op",
	"action",
	"endpoint",
	"cb_key",
	"duration_ms",
	"took_ms",
	"elapsed_ms",
	"messages",
	"kb",
	"kind",
	"payload",
	"lang",
	"username",
	"mode",
	"listen",
	"public_url",
	"db",
	"host",
	"port",
	"scene",
	"step",
	"step_name",
	"transition",
	"event_kind",
	"field",
	"reason",
	"pet_id",
	"report_id",
	"owner_id",
	"option",
	"phone",
	"notified",
	"added",
	"err",
	"err_code",
	"error_kind",
	"cause",
	"attempt",
	"attempts",
	"delay_ms",
}
