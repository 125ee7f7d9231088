package normalize

import (
	"strings"
	"time"

	"github.com/spf13/cast"
)

const dateLayout = "2006-01-02"

func str(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := m[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// id accepts string or numeric identifiers.
func id(m map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := m[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return cast.ToString(int64(v))
		}
	}
	return ""
}

// number accepts JSON numbers and numeric strings.
func number(m map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		v, present := m[key]
		if !present || v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		f, err := cast.ToFloat64E(v)
		if err == nil {
			return f, true
		}
	}
	return 0, false
}

func numberPtr(m map[string]any, keys ...string) *float64 {
	if f, ok := number(m, keys...); ok {
		return &f
	}
	return nil
}

func integer(m map[string]any, keys ...string) (int, bool) {
	f, ok := number(m, keys...)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func object(m map[string]any, key string) (map[string]any, bool) {
	obj, ok := m[key].(map[string]any)
	return obj, ok
}

// timestamp accepts RFC3339 strings, plain dates and epoch milliseconds.
func timestamp(m map[string]any, keys ...string) time.Time {
	for _, key := range keys {
		switch v := m[key].(type) {
		case string:
			if t := ParseTime(v); !t.IsZero() {
				return t
			}
		case float64:
			if v > 0 {
				return time.UnixMilli(int64(v)).UTC()
			}
		}
	}
	return time.Time{}
}

// ParseTime parses the time formats the backend is known to emit.
func ParseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, dateLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if ms, err := cast.ToInt64E(value); err == nil && ms > 0 {
		return time.UnixMilli(ms).UTC()
	}
	return time.Time{}
}
