package mapping

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Bag is a CMS item's loosely-typed field set.
type Bag map[string]any

// first returns the first present, non-nil value among names.
func (b Bag) first(names []string) (any, bool) {
	for _, name := range names {
		if v, ok := b[name]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// String returns the first non-blank string among names.
func (b Bag) String(names []string) *string {
	for _, name := range names {
		if s, ok := b[name].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return &s
			}
		}
	}
	return nil
}

// Link normalizes link-like fields. The CMS sends links either as a bare
// string or as an object with a "url" property (images, files, link fields).
func (b Bag) Link(names []string) *string {
	for _, name := range names {
		if s := linkValue(b[name]); s != nil {
			return s
		}
	}
	return nil
}

func linkValue(v any) *string {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return &s
		}
	case map[string]any:
		return linkValue(t["url"])
	}
	return nil
}

// Time parses the first present date field. RFC3339 and plain dates are
// accepted; unparseable values are ignored.
func (b Bag) Time(names []string) *time.Time {
	for _, name := range names {
		s, ok := b[name].(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				t = t.UTC()
				return &t
			}
		}
	}
	return nil
}

// Refs extracts reference IDs from a multi-reference field. Accepts a list
// of IDs, a single ID, or a list of objects carrying "id".
func (b Bag) Refs(names []string) []string {
	v, ok := b.first(names)
	if !ok {
		return nil
	}
	var refs []string
	add := func(x any) {
		switch t := x.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				refs = append(refs, s)
			}
		case map[string]any:
			if id, ok := t["id"].(string); ok && strings.TrimSpace(id) != "" {
				refs = append(refs, strings.TrimSpace(id))
			}
		}
	}
	switch t := v.(type) {
	case []any:
		for _, x := range t {
			add(x)
		}
	case []string:
		for _, x := range t {
			add(x)
		}
	default:
		add(t)
	}
	return refs
}

// number converts a string or numeric field value to float64.
func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}
