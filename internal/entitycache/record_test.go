package entitycache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecord_String(t *testing.T) {
	r := Record{
		"id":     "loc-1",
		"name":   "Cafe de Flore",
		"notes":  "",
		"rating": float64(4.5),
		"floor":  2,
		"open":   true,
		"phone":  nil,
		"category": map[string]any{
			"name": "Restaurant",
		},
		"tags": []any{"coffee"},
	}

	tests := []struct {
		path   string
		want   string
		wantOK bool
	}{
		{"id", "loc-1", true},
		{"name", "Cafe de Flore", true},
		{"category.name", "Restaurant", true},
		{"rating", "4.5", true},
		{"floor", "2", true},
		{"open", "true", true},
		{"notes", "", false},
		{"phone", "", false},
		{"missing", "", false},
		{"category.missing", "", false},
		{"name.deeper", "", false},
		{"category", "", false},
		{"tags", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := r.String(tt.path)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecord_IDAndStringOr(t *testing.T) {
	r := Record{"id": float64(42), "title": ""}
	assert.Equal(t, "42", r.ID())
	assert.Equal(t, "Journal Entry", r.StringOr("title", "Journal Entry"))
	assert.Equal(t, "", Record{}.ID())
}
