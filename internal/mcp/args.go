package mcp

import (
	"encoding/json"
	"fmt"
)

// callError is an error that carries the JSON-RPC code it should surface as.
// Tool dispatch errors without a code default to [InternalError].
type callError struct {
	code int
	msg  string
}

func (e *callError) Error() string { return e.msg }

// ─────────────────────────────────────────────────────────────────────────────
// Argument decoding
// ─────────────────────────────────────────────────────────────────────────────
//
// Tool arguments arrive as a generic JSON object. The helpers below pull out
// individual values with per-call defaults; a value of the wrong JSON type is
// treated as absent. Pointer variants preserve the absent-versus-zero
// distinction for parameters whose absence means "use the stored default".

// ensureList coerces a *_json tool argument into a string list. It accepts
// either a native JSON array or a JSON-encoded array carried inside a string;
// anything else, including unparseable strings, becomes the empty list.
// Non-string array elements are dropped.
func ensureList(v any) []string {
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, e := range val {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		if err := json.Unmarshal([]byte(val), &out); err != nil || out == nil {
			return []string{}
		}
		return out
	default:
		return []string{}
	}
}

func argString(args map[string]any, key, def string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return def
}

func argInt(args map[string]any, key string, def int) int {
	if v, ok := args[key].(float64); ok {
		return int(v)
	}
	return def
}

func argBool(args map[string]any, key string, def bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}

func argStringPtr(args map[string]any, key string) *string {
	if v, ok := args[key].(string); ok {
		return &v
	}
	return nil
}

func argIntPtr(args map[string]any, key string) *int {
	if v, ok := args[key].(float64); ok {
		n := int(v)
		return &n
	}
	return nil
}

// requireString returns the named argument or a [callError] with
// [InvalidParams] when it is missing or not a string.
func requireString(args map[string]any, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok {
		return "", &callError{code: InvalidParams, msg: fmt.Sprintf("missing required argument: %s", key)}
	}
	return v, nil
}
