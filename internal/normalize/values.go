package normalize

import (
	"strconv"
	"strings"
)

// lookup walks a dotted path through decoded JSON objects.
func lookup(m map[string]any, path string) any {
	var cur any = m
	for _, key := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = obj[key]
		if !ok {
			return nil
		}
	}
	return cur
}

// text renders scalar JSON values as trimmed text; objects and lists yield "".
func text(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// first returns the first non-empty scalar found at any of paths.
func first(m map[string]any, paths ...string) string {
	for _, p := range paths {
		if s := text(lookup(m, p)); s != "" {
			return s
		}
	}
	return ""
}

// object returns the first JSON object found at any of paths.
func object(m map[string]any, paths ...string) map[string]any {
	for _, p := range paths {
		if obj, ok := lookup(m, p).(map[string]any); ok {
			return obj
		}
	}
	return nil
}

// list returns the first non-empty JSON array found at any of paths.
func list(m map[string]any, paths ...string) []any {
	for _, p := range paths {
		if arr, ok := lookup(m, p).([]any); ok && len(arr) > 0 {
			return arr
		}
	}
	return nil
}

// objects filters a JSON array down to its object elements.
func objects(arr []any) []map[string]any {
	out := make([]map[string]any, 0, len(arr))
	for _, v := range arr {
		if obj, ok := v.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

// names turns a list of strings or objects into strings, reading objects via keys.
func names(arr []any, keys ...string) []string {
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		switch t := v.(type) {
		case map[string]any:
			if s := first(t, keys...); s != "" {
				out = append(out, s)
			}
		default:
			if s := text(t); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// dedupe keeps the first occurrence of each value (case-insensitive) and caps the result.
func dedupe(values []string, limit int) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
