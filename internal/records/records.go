// Package records converts between the loosely structured text that list
// tools emit ("Key: value" lines, one blank line between records) and
// field maps the renderer can walk.
package records

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Record is one parsed entry, field name to value.
type Record map[string]string

// Get returns the first non-empty value among keys.
func (r Record) Get(keys ...string) string {
	for _, k := range keys {
		if v := r[k]; v != "" {
			return v
		}
	}
	return ""
}

// ParseText splits text on blank lines and reads "Key: value" lines from each
// block. Blocks without a single field are dropped. The bool is false when
// nothing was produced.
func ParseText(text string) ([]Record, bool) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []Record
	for _, block := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(block) == "" {
			continue
		}
		rec := Record{}
		for _, line := range strings.Split(block, "\n") {
			key, value, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			rec[key] = strings.TrimSpace(value)
		}
		if len(rec) > 0 {
			out = append(out, rec)
		}
	}
	return out, len(out) > 0
}

// Decode tries JSON first, then the semi-structured text format. When neither
// applies the input string is returned unchanged.
func Decode(text string) any {
	trimmed := strings.TrimSpace(text)
	if trimmed != "" {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
	}
	if recs, ok := ParseText(text); ok {
		return recs
	}
	return text
}

// Format writes records in the semi-structured text format, emitting the
// listed fields in order. Missing fields are skipped and embedded newlines
// collapse to spaces so the output parses back.
func Format(recs []Record, fields []string) string {
	var b strings.Builder
	for i, rec := range recs {
		if i > 0 {
			b.WriteString("\n")
		}
		wrote := false
		for _, f := range fields {
			v, ok := rec[f]
			if !ok {
				continue
			}
			b.WriteString(f)
			b.WriteString(": ")
			b.WriteString(flatten(v))
			b.WriteString("\n")
			wrote = true
		}
		if !wrote {
			// keeps block boundaries stable for records with no listed fields
			b.WriteString("\n")
		}
	}
	return b.String()
}

func flatten(v string) string {
	if !strings.ContainsAny(v, "\r\n") {
		return strings.TrimSpace(v)
	}
	return strings.Join(strings.Fields(v), " ")
}

// FromItems projects decoded JSON objects into records holding fields.
// A nil fields slice keeps every top-level key.
func FromItems(items []map[string]any, fields []string) []Record {
	out := make([]Record, 0, len(items))
	for _, item := range items {
		rec := Record{}
		if fields == nil {
			for k, v := range item {
				if s, ok := Stringify(v); ok {
					rec[k] = s
				}
			}
		} else {
			for _, f := range fields {
				if s, ok := Stringify(item[f]); ok {
					rec[f] = s
				}
			}
		}
		out = append(out, rec)
	}
	return out
}

// Stringify renders a decoded JSON value as text. Nil reports false.
func Stringify(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool:
		if t {
			return "True", true
		}
		return "False", true
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10), true
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(raw), true
	}
}
