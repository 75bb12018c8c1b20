package templates

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinCatalog(t *testing.T) {
	r := Builtin()
	require.NotNil(t, r)

	list := r.List()
	require.Len(t, list, 4)
	keys := []string{}
	for _, s := range list {
		keys = append(keys, s.Key)
		assert.NotEmpty(t, s.Name)
		assert.NotEmpty(t, s.Description)
		assert.NotEmpty(t, s.Theme)
	}
	assert.Equal(t, []string{"modern_bold", "elegant_pro", "vibrant_social", "high_visibility"}, keys)
	assert.Equal(t, "high_visibility", r.DefaultKey())
}

func TestGetFallback(t *testing.T) {
	r := Builtin()
	want := r.Get("high_visibility")

	for _, name := range []string{"nonexistent", "", "MODERN_BOLD", "high visibility"} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, want, r.Get(name))
			_, ok := r.Lookup(name)
			assert.False(t, ok)
		})
	}
}

func TestModernBold(t *testing.T) {
	tpl, ok := Builtin().Lookup("modern_bold")
	require.True(t, ok)

	assert.Equal(t, "Modern Bold", tpl.Name)
	assert.Equal(t, 1.2, tpl.AnimationSpeed)
	assert.Equal(t, TransitionCrossfade, tpl.Transition)
	assert.Equal(t, []color.RGBA{{255, 87, 51, 255}, {255, 45, 85, 255}}, tpl.Background)

	h := tpl.Style(RoleHeadline)
	assert.Equal(t, 80.0, h.Size)
	assert.Equal(t, AnimSlide, h.Animation)
	assert.Equal(t, color.RGBA{0, 0, 0, 200}, h.Plate)
	assert.Equal(t, AnimBounce, tpl.Style(RoleCTA).Animation)
}

func TestStyleFallsBackToHeadline(t *testing.T) {
	tpl := Builtin().Get("elegant_pro")
	delete(tpl.Styles, RoleBullet)
	assert.Equal(t, tpl.Style(RoleHeadline), tpl.Style(RoleBullet))
}

func TestReturnedTemplatesAreIsolated(t *testing.T) {
	r := Builtin()
	a := r.Get("vibrant_social")
	a.Background[0] = color.RGBA{1, 2, 3, 4}
	a.Styles[RoleCTA] = TextStyle{Font: "changed"}

	b := r.Get("vibrant_social")
	assert.Equal(t, color.RGBA{155, 89, 182, 255}, b.Background[0])
	assert.Equal(t, "Arial-Bold", b.Style(RoleCTA).Font)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", "templates: []"},
		{"bad yaml", "templates: [:"},
		{"missing default", "default: nope\ntemplates:\n  - {key: a, animation_speed: 1, styles: {headline: {color: [1,2,3], outline: [0,0,0], plate: [0,0,0,0]}}}"},
		{"bad color", "templates:\n  - {key: a, animation_speed: 1, styles: {headline: {color: [1,2], outline: [0,0,0], plate: [0,0,0,0]}}}"},
		{"color out of range", "templates:\n  - {key: a, animation_speed: 1, styles: {headline: {color: [1,2,300], outline: [0,0,0], plate: [0,0,0,0]}}}"},
		{"zero speed", "templates:\n  - {key: a, styles: {headline: {color: [1,2,3], outline: [0,0,0], plate: [0,0,0,0]}}}"},
		{"unknown transition", "templates:\n  - {key: a, animation_speed: 1, transition: wipe, styles: {headline: {color: [1,2,3], outline: [0,0,0], plate: [0,0,0,0]}}}"},
		{"no headline", "templates:\n  - {key: a, animation_speed: 1, styles: {}}"},
		{"duplicate", "templates:\n  - {key: a, animation_speed: 1, styles: {headline: {color: [1,2,3], outline: [0,0,0], plate: [0,0,0,0]}}}\n  - {key: a, animation_speed: 1, styles: {headline: {color: [1,2,3], outline: [0,0,0], plate: [0,0,0,0]}}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestParseDefaultsToFirstEntry(t *testing.T) {
	r, err := Parse([]byte("templates:\n  - {key: only, animation_speed: 2, styles: {headline: {color: [1,2,3], outline: [0,0,0], plate: [0,0,0,0]}}}"))
	require.NoError(t, err)
	assert.Equal(t, "only", r.DefaultKey())
	tpl := r.Get("whatever")
	assert.Equal(t, "only", tpl.Key)
	assert.Equal(t, TransitionCrossfade, tpl.Transition)
	assert.Equal(t, StyleGradient, tpl.BackgroundStyle)
}
