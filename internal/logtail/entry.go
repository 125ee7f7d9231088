package logtail

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Entry is one decoded JSON log line.
type Entry struct {
	Time    time.Time
	Level   string
	Message string
	Store   string
	Fields  map[string]string
	Raw     string
}

// reserved keys are rendered in fixed columns rather than as fields.
var reserved = map[string]bool{
	"ts": true, "level": true, "msg": true, "namespace": true,
	"store": true, "caller": true, "stacktrace": true,
}

const timeLayout = "2006-01-02T15:04:05.000Z0700"

// Parse decodes a JSON log line. Lines that are not JSON objects come back
// with only Raw and Message set and ok=false.
func Parse(line string) (Entry, bool) {
	entry := Entry{Raw: line, Message: strings.TrimSpace(line)}
	var m map[string]any
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		return entry, false
	}

	entry.Level = strings.ToUpper(text(m["level"]))
	entry.Message = text(m["msg"])
	entry.Store = text(m["store"])
	if ts := text(m["ts"]); ts != "" {
		if t, err := time.Parse(timeLayout, ts); err == nil {
			entry.Time = t
		} else if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			entry.Time = t
		}
	}
	for k, v := range m {
		if reserved[k] {
			continue
		}
		if entry.Fields == nil {
			entry.Fields = make(map[string]string)
		}
		entry.Fields[k] = text(v)
	}
	return entry, true
}

// Entries parses lines, keeping unparseable ones as plain messages.
func Entries(lines []string) []Entry {
	out := make([]Entry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entry, _ := Parse(line)
		out = append(out, entry)
	}
	return out
}

// Format renders an entry as a single line: time, level, store, message and
// sorted key=value fields.
func Format(e Entry) string {
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Local().Format("15:04:05"))
		b.WriteByte(' ')
	}
	if e.Level != "" {
		fmt.Fprintf(&b, "%-5s ", e.Level)
	}
	if e.Store != "" {
		fmt.Fprintf(&b, "[%s] ", e.Store)
	}
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, e.Fields[k])
	}
	return b.String()
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(encoded)
	}
}
