// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package transform

import (
	"strconv"
	"time"
)

// InstantToISO converts an epoch-millisecond instant to an RFC3339
// millisecond-precision UTC string, e.g. 1693403567000 becomes
// "2023-08-30T13:52:47.000Z".
func InstantToISO(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z")
}

// convertInstant coerces a raw instant value (or each array element)
// to its ISO string form. Non-numeric values pass through unchanged.
func convertInstant(v any) any {
	switch val := v.(type) {
	case float64:
		return InstantToISO(int64(val))
	case int64:
		return InstantToISO(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = convertInstant(item)
		}
		return out
	default:
		return v
	}
}

// refValue rewrites an object-reference value (or each array element)
// to a JSON-LD id reference. Nested objects reference through their
// _id; bare numbers are taken as the referenced id itself.
func refValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if id, ok := numericID(val["_id"]); ok {
			return map[string]any{"@id": strconv.FormatInt(id, 10)}
		}
		return v
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = refValue(item)
		}
		return out
	case float64:
		return map[string]any{"@id": strconv.FormatInt(int64(val), 10)}
	case string:
		return map[string]any{"@id": val}
	default:
		return v
	}
}

// numericID normalizes the decoded forms a numeric id may arrive in.
func numericID(v any) (int64, bool) {
	switch val := v.(type) {
	case float64:
		return int64(val), true
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}
