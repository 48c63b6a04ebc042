package mask

import (
	"encoding/json"
	"strings"
)

// Token is the fixed redaction token substituted for masked values.
const Token = "****"

// unserializablePlaceholder is captured in place of a payload that cannot
// be serialized. The audit path must never fail because of a bad body.
const unserializablePlaceholder = "<<unserializable payload>>"

// FieldSet is a case-insensitive set of field names to redact.
type FieldSet map[string]struct{}

// NewFieldSet builds a FieldSet from a list of field names. Names are
// folded to lower case; empty names are ignored.
func NewFieldSet(names ...string) FieldSet {
	fs := make(FieldSet, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		fs[strings.ToLower(n)] = struct{}{}
	}
	return fs
}

// Contains reports whether name is in the set, ignoring case.
func (fs FieldSet) Contains(name string) bool {
	_, ok := fs[strings.ToLower(name)]
	return ok
}

// Empty reports whether the set has no members.
func (fs FieldSet) Empty() bool {
	return len(fs) == 0
}

// Mask serializes value to JSON and redacts every field named in fields.
// The result is always valid JSON. Raw JSON inputs ([]byte, json.RawMessage,
// string containing JSON) are parsed rather than re-encoded, so HTTP body
// bytes can be passed through directly.
//
// Mask never returns an error: a value that cannot be serialized yields a
// JSON string containing a diagnostic placeholder.
func Mask(value any, fields FieldSet) json.RawMessage {
	tree, ok := toTree(value)
	if !ok {
		return mustMarshal(unserializablePlaceholder)
	}
	if !fields.Empty() {
		tree = maskTree(tree, fields)
	}
	return mustMarshal(tree)
}

// toTree converts an arbitrary value into a generic JSON tree of
// map[string]any / []any / primitives.
func toTree(value any) (any, bool) {
	var raw []byte
	switch v := value.(type) {
	case nil:
		return nil, true
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	case string:
		// Strings are treated as pre-serialized payloads when they parse
		// as JSON, and as plain string values otherwise.
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return "", true
		}
		var tree any
		if err := json.Unmarshal([]byte(trimmed), &tree); err == nil {
			return tree, true
		}
		return v, true
	default:
		b, err := json.Marshal(value)
		if err != nil {
			return nil, false
		}
		raw = b
	}

	if len(raw) == 0 {
		return nil, true
	}
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, false
	}
	return tree, true
}

// maskTree redacts matching keys in a generic JSON tree. Matched keys are
// replaced without recursing into their values; top-level primitives are
// left alone since they carry no field name.
func maskTree(node any, fields FieldSet) any {
	switch n := node.(type) {
	case map[string]any:
		for k, v := range n {
			if fields.Contains(k) {
				n[k] = Token
				continue
			}
			n[k] = maskTree(v, fields)
		}
		return n
	case []any:
		for i, v := range n {
			n[i] = maskTree(v, fields)
		}
		return n
	default:
		return n
	}
}

// mustMarshal encodes a tree that came out of json.Unmarshal (or a plain
// string), so encoding cannot fail; the fallback covers impossible inputs.
func mustMarshal(tree any) json.RawMessage {
	b, err := json.Marshal(tree)
	if err != nil {
		b, _ = json.Marshal(unserializablePlaceholder)
	}
	return b
}
