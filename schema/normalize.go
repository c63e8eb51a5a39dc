// Package schema rewrites JSON-Schema-shaped documents into the restricted
// schema dialect accepted by Gemini-style structured output APIs.
//
// The target dialect implements only a fragment of OpenAPI 3.0 schema
// semantics. Normalize repairs the constructs that fragment rejects or
// interprets differently while leaving everything else alone:
//
//   - enumerations tagged with the pseudo-type "enum" are retyped as "string"
//   - enumerations with no type at all get type "string"
//   - additionalProperties is dropped (the dialect has no such constraint)
//   - not:{type:"null"} becomes nullable:false
//   - a required list on an array node is hoisted into items.required
//
// Keys the rewrite does not recognize pass through untouched, so callers
// never lose schema content this package knows nothing about.
package schema

import "log/slog"

// Normalize returns a copy of doc that is safe to send as a response schema
// to a Gemini-style backend. It is a total function: input that is not a
// keyed mapping (nil, numbers, strings, lists) is returned unchanged, and no
// shape ever produces an error. The result shares no mutable structure with
// the input, so mutating one never affects the other.
//
// Normalize is idempotent and safe for concurrent use.
func Normalize(doc any) any {
	node, ok := doc.(map[string]any)
	if !ok {
		return doc
	}

	slog.Default().Debug("normalizing schema", "keys", len(node))

	out := clone(node).(map[string]any)
	normalizeNode(out)
	return out
}

// normalizeNode applies the rewrite rules to one node, then recurses. It
// mutates node in place; callers must only ever hand it freshly cloned
// trees, never caller-owned input.
func normalizeNode(v any) {
	node, ok := v.(map[string]any)
	if !ok {
		return
	}

	// The source dialect may tag enumerations with a pseudo-type "enum".
	// The target expects the enum's underlying value type; values are
	// assumed to be strings (see the package tests for the limits of that
	// assumption).
	if t, _ := node["type"].(string); t == "enum" {
		if _, ok := node["enum"]; ok {
			node["type"] = "string"
		}
	}
	if _, ok := node["enum"]; ok {
		if _, ok := node["type"]; !ok {
			node["type"] = "string"
		}
	}

	// The target dialect rejects documents carrying additionalProperties.
	// Dropping it relaxes the schema, it never tightens it.
	delete(node, "additionalProperties")

	// Null-negation has a direct equivalent in the target vocabulary;
	// every other negation is kept and normalized where it stands.
	if not, ok := node["not"]; ok {
		if isNullAssertion(not) {
			delete(node, "not")
			node["nullable"] = false
		} else {
			normalizeNode(not)
		}
	}

	// A required list on an array node is an upstream tooling mistake
	// (required is an object-level keyword). Repair it by folding the
	// names into items.required before descending, so the merged list is
	// visible to the items pass.
	if t, _ := node["type"].(string); t == "array" {
		if items, ok := node["items"].(map[string]any); ok {
			if req, ok := node["required"]; ok {
				items["required"] = mergeRequired(items["required"], req)
				delete(node, "required")
			}
			normalizeNode(items)
		}
	}

	if props, ok := node["properties"].(map[string]any); ok {
		for _, prop := range props {
			normalizeNode(prop)
		}
	}
}

// isNullAssertion reports whether v is a sub-schema asserting type "null".
func isNullAssertion(v any) bool {
	sub, ok := v.(map[string]any)
	if !ok {
		return false
	}
	t, _ := sub["type"].(string)
	return t == "null"
}

// mergeRequired unions two required lists into a single []string with each
// property name appearing exactly once. Existing names keep their position;
// hoisted names are appended.
func mergeRequired(existing, hoisted any) []string {
	seen := make(map[string]bool)
	var merged []string
	for _, name := range stringList(existing) {
		if !seen[name] {
			seen[name] = true
			merged = append(merged, name)
		}
	}
	for _, name := range stringList(hoisted) {
		if !seen[name] {
			seen[name] = true
			merged = append(merged, name)
		}
	}
	return merged
}

// stringList extracts the string entries of a required list, which arrives
// as []string from Go callers or []any from decoded JSON.
func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, entry := range list {
			if s, ok := entry.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// clone deep-copies a JSON-shaped value. Scalars are returned as-is since
// they are immutable.
func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = clone(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = clone(val)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}
