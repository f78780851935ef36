package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	cases := []struct {
		name   string
		text   string
		values map[string]string
		want   string
	}{
		{
			name:   "substitutes all markers",
			text:   "Hello {{x}}, bye {{y}}",
			values: map[string]string{"x": "A", "y": "B"},
			want:   "Hello A, bye B",
		},
		{
			name:   "missing content",
			text:   "Hello {{x}}, bye {{y}}",
			values: map[string]string{"x": "A", "y": ""},
			want:   "Hello A, bye [y content not provided]",
		},
		{
			name:   "unknown marker left untouched",
			text:   "{{x}} and {{z}}",
			values: map[string]string{"x": "A"},
			want:   "A and {{z}}",
		},
		{
			name:   "repeated marker",
			text:   "{{x}}-{{x}}",
			values: map[string]string{"x": "A"},
			want:   "A-A",
		},
		{
			name:   "inserted content not re-substituted",
			text:   "{{x}} {{y}}",
			values: map[string]string{"x": "{{y}}", "y": "B"},
			want:   "{{y}} B",
		},
		{
			name:   "empty catalog",
			text:   "plain {{x}}",
			values: nil,
			want:   "plain {{x}}",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Render(c.text, c.values))
		})
	}
}

func TestRenderWithoutMarkersIsIdentity(t *testing.T) {
	text := "no markers here"
	assert.Equal(t, text, Render(text, map[string]string{"x": "A"}))
}
