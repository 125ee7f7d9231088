// Package normalize turns the backend's inconsistent JSON envelopes into
// typed records. Each endpoint has an ordered list of extraction rules; the
// first rule whose path resolves to a value of the expected kind wins.
package normalize

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Kind is the JSON shape a rule must resolve to.
type Kind int

const (
	KindObject Kind = iota
	KindArray
	KindString
)

// Rule locates a value by walking object keys. An empty path means the bare
// payload.
type Rule struct {
	Path []string
	Kind Kind
}

func (r Rule) String() string {
	if len(r.Path) == 0 {
		return "<bare>"
	}
	return strings.Join(r.Path, ".")
}

func rule(kind Kind, path ...string) Rule {
	return Rule{Path: path, Kind: kind}
}

var (
	addressRules = []Rule{
		rule(KindArray, "data", "user", "address"),
		rule(KindArray, "data", "address"),
		rule(KindArray, "user", "address"),
		rule(KindArray, "address"),
	}
	userRules = []Rule{
		rule(KindObject, "data", "user"),
		rule(KindObject, "data"),
		rule(KindObject, "user"),
		rule(KindObject),
	}
	tokenRules = []Rule{
		rule(KindString, "data", "token"),
		rule(KindString, "token"),
	}
	requestRules = []Rule{
		rule(KindObject, "data", "request"),
		rule(KindObject, "data"),
		rule(KindObject, "request"),
		rule(KindObject),
	}
	requestListRules = []Rule{
		rule(KindArray, "data", "requests"),
		rule(KindArray, "data"),
		rule(KindArray, "requests"),
		rule(KindArray),
	}
)

// Extract applies rules in order and returns the first match.
func Extract(payload json.RawMessage, rules []Rule) (json.RawMessage, Rule, bool) {
	for _, r := range rules {
		if value, ok := lookup(payload, r.Path); ok && kindOf(value) == r.Kind {
			return value, r, true
		}
	}
	return nil, Rule{}, false
}

func lookup(payload json.RawMessage, path []string) (json.RawMessage, bool) {
	current := payload
	for _, key := range path {
		if kindOf(current) != KindObject {
			return nil, false
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(current, &obj); err != nil {
			return nil, false
		}
		next, ok := obj[key]
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, len(current) > 0
}

// kindOf peeks at the first byte; anything that is not an object, array or
// string reports -1.
func kindOf(raw json.RawMessage) Kind {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return -1
	}
	switch trimmed[0] {
	case '{':
		return KindObject
	case '[':
		return KindArray
	case '"':
		return KindString
	}
	return -1
}
