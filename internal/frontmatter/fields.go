package frontmatter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Fields is the typed view of the frontmatter keys docbundle understands.
// Everything else is preserved in Extra.
type Fields struct {
	Title       string
	Description string
	Order       *float64
	Tags        []string
	Date        string
	Draft       bool
	Hidden      bool
	Slug        string
	Extra       map[string]any
}

var orderKeys = []string{"order", "weight", "sidebar_position"}

var knownKeys = map[string]struct{}{
	"title": {}, "description": {}, "tags": {}, "date": {}, "draft": {},
	"hidden": {}, "slug": {}, "order": {}, "weight": {}, "sidebar_position": {},
	"fingerprint": {}, "lastmod": {}, "uid": {}, "aliases": {},
}

// Decode extracts Fields from a parsed frontmatter map.
func Decode(raw map[string]any) Fields {
	var f Fields
	f.Title = stringValue(raw["title"])
	f.Description = stringValue(raw["description"])
	f.Slug = strings.Trim(strings.TrimSpace(stringValue(raw["slug"])), "/")
	f.Draft = boolValue(raw["draft"])
	f.Hidden = boolValue(raw["hidden"])
	f.Tags = stringList(raw["tags"])
	f.Date = dateValue(raw["date"])

	for _, key := range orderKeys {
		if v, ok := numberValue(raw[key]); ok {
			f.Order = &v
			break
		}
	}

	for k, v := range raw {
		if _, known := knownKeys[k]; known {
			continue
		}
		if f.Extra == nil {
			f.Extra = make(map[string]any)
		}
		f.Extra[k] = normalizeValue(v)
	}
	return f
}

func stringValue(v any) string {
	switch vv := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(vv)
	default:
		return strings.TrimSpace(fmt.Sprint(vv))
	}
}

func boolValue(v any) bool {
	switch vv := v.(type) {
	case bool:
		return vv
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(vv))
		return b
	default:
		return false
	}
}

// numberValue rejects NaN and infinities, which JSON cannot encode.
func numberValue(v any) (float64, bool) {
	f, ok := rawNumber(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func rawNumber(v any) (float64, bool) {
	switch vv := v.(type) {
	case int:
		return float64(vv), true
	case int64:
		return float64(vv), true
	case uint64:
		return float64(vv), true
	case float64:
		return vv, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(vv), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// stringList accepts a YAML list or a comma separated string.
func stringList(v any) []string {
	var out []string
	switch vv := v.(type) {
	case string:
		for _, part := range strings.Split(vv, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range vv {
			if s := stringValue(item); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, item := range vv {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func dateValue(v any) string {
	switch vv := v.(type) {
	case time.Time:
		if vv.Hour() == 0 && vv.Minute() == 0 && vv.Second() == 0 && vv.Nanosecond() == 0 {
			return vv.Format(time.DateOnly)
		}
		return vv.UTC().Format(time.RFC3339)
	default:
		return stringValue(v)
	}
}

// normalizeValue makes decoded YAML values JSON-encodable.
func normalizeValue(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(vv))
		for k, val := range vv {
			out[k] = normalizeValue(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(vv))
		for k, val := range vv {
			out[fmt.Sprint(k)] = normalizeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(vv))
		for i, val := range vv {
			out[i] = normalizeValue(val)
		}
		return out
	case time.Time:
		return dateValue(vv)
	case float64:
		if math.IsNaN(vv) || math.IsInf(vv, 0) {
			return strconv.FormatFloat(vv, 'g', -1, 64)
		}
		return vv
	default:
		return v
	}
}
