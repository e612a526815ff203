package entitycache

import (
	"fmt"
	"strconv"
	"strings"
)

// Record is one cached entity as an opaque field map
type Record map[string]any

// ID returns the record's "id" field, or "" when absent
func (r Record) ID() string {
	id, _ := r.String("id")
	return id
}

// String looks up a dotted field path and formats scalar values as text.
// Missing, null, empty and non-scalar values report ok=false.
func (r Record) String(path string) (string, bool) {
	var cur any = map[string]any(r)
	for _, key := range strings.Split(path, ".") {
		switch m := cur.(type) {
		case map[string]any:
			cur = m[key]
		case Record:
			cur = m[key]
		default:
			return "", false
		}
	}

	var s string
	switch v := cur.(type) {
	case nil:
		return "", false
	case string:
		s = v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, bool:
		s = fmt.Sprint(v)
	default:
		return "", false
	}

	if s == "" {
		return "", false
	}
	return s, true
}

// StringOr returns the field at path, or def when it is absent
func (r Record) StringOr(path, def string) string {
	if s, ok := r.String(path); ok {
		return s
	}
	return def
}
