package director

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ivlev/adreel/internal/effects"
	"github.com/ivlev/adreel/internal/source"
	"github.com/ivlev/adreel/internal/templates"
	"github.com/ivlev/adreel/internal/timeline"
)

var canvas = timeline.Canvas{Width: 192, Height: 108}

func frames(n int) []source.Frame {
	out := make([]source.Frame, n)
	for i := range out {
		out[i] = source.Frame{URL: fmt.Sprintf("https://shop.example/img_%d.jpg", i), Image: image.NewRGBA(canvas.Rect())}
	}
	return out
}

func TestBuildThreeImages(t *testing.T) {
	tpl := templates.Builtin().Get("modern_bold")
	bg := NewDirector(canvas, zaptest.NewLogger(t)).Build(frames(3), 30, tpl)

	require.Len(t, bg.Segments, 3)
	assert.False(t, bg.Fallback)
	assert.Equal(t, 30.0, bg.Duration)

	wantKinds := []effects.Kind{effects.ZoomIn, effects.PanRight, effects.EdgeFade}
	for i, s := range bg.Segments {
		assert.InDelta(t, float64(i)*10, s.Start, 1e-9)
		assert.InDelta(t, 10, s.Duration, 1e-9)
		assert.Equal(t, wantKinds[i], s.Animation.Kind)
		assert.Equal(t, timeline.LayerBackground, s.Layer)
		assert.Equal(t, fmt.Sprintf("https://shop.example/img_%d.jpg", i), s.Path)
		if i == 0 {
			assert.Nil(t, s.Entrance)
			continue
		}
		require.NotNil(t, s.Entrance)
		assert.Equal(t, templates.TransitionCrossfade, s.Entrance.Style)
		assert.InDelta(t, 0.4*1.2, s.Entrance.Duration, 1e-9)
	}
}

func TestBuildSingleImageHasNoTransition(t *testing.T) {
	bg := NewDirector(canvas, nil).Build(frames(1), 12, templates.Builtin().Get("vibrant_social"))
	require.Len(t, bg.Segments, 1)
	assert.Nil(t, bg.Segments[0].Entrance)
	assert.Equal(t, 12.0, bg.Segments[0].Duration)
}

func TestBuildSkipsBadFrames(t *testing.T) {
	in := frames(2)
	in = append(in, source.Frame{URL: "nil"}, source.Frame{URL: "odd", Image: image.NewRGBA(image.Rect(0, 0, 40, 80))})

	bg := NewDirector(canvas, zaptest.NewLogger(t)).Build(in, 30, templates.Builtin().Get("elegant_pro"))
	require.Len(t, bg.Segments, 3)
	assert.Equal(t, canvas.Rect(), bg.Segments[2].Image.Bounds())
	assert.Equal(t, "odd", bg.Segments[2].Path)
}

func TestBuildEmptyFallsBack(t *testing.T) {
	for _, key := range []string{"modern_bold", "high_visibility"} {
		t.Run(key, func(t *testing.T) {
			bg := NewDirector(canvas, zaptest.NewLogger(t)).Build(nil, 30, templates.Builtin().Get(key))
			assert.True(t, bg.Fallback)
			assert.Equal(t, 30.0, bg.Duration)
			require.Len(t, bg.Segments, 1)
			assert.Equal(t, 30.0, bg.Segments[0].Duration)
			assert.NotNil(t, bg.Segments[0].Image)
		})
	}
}

func TestGradient(t *testing.T) {
	tpl := templates.Builtin().Get("high_visibility")
	img, err := Gradient(tpl, canvas)
	require.NoError(t, err)

	assert.Equal(t, color.RGBA{255, 0, 0, 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, img.RGBAAt(191, 0))
	mid := img.RGBAAt(10, 54)
	assert.Equal(t, uint8(255), mid.R)
	assert.InDelta(t, 82, int(mid.G), 1)
	last := img.RGBAAt(0, 107)
	assert.Greater(t, last.G, uint8(160))
}

func TestGradientSolidAndFailure(t *testing.T) {
	tpl := templates.Builtin().Get("modern_bold")
	tpl.Background = tpl.Background[:1]
	img, err := Gradient(tpl, canvas)
	require.NoError(t, err)
	assert.Equal(t, img.RGBAAt(0, 0), img.RGBAAt(100, 100))

	tpl.Background = nil
	_, err = Gradient(tpl, canvas)
	assert.Error(t, err)

	bg := NewDirector(canvas, zaptest.NewLogger(t)).Fallback(20, tpl)
	assert.Equal(t, FallbackColor, bg.Segments[0].Image.(*image.RGBA).RGBAAt(5, 5))
	assert.Equal(t, "segment_1", Describe(timeline.Assemble(canvas, bg, nil, 15), tpl.Key).Slides[0].Input)
}

func TestScenarioWriteRead(t *testing.T) {
	tpl := templates.Builtin().Get("modern_bold")
	bg := NewDirector(canvas, nil).Build(frames(2), 20, tpl)
	overlay := timeline.Clip{
		Image:     image.NewRGBA(image.Rect(0, 0, 50, 20)),
		Start:     0,
		Duration:  4,
		Role:      templates.RoleHeadline,
		Text:      "Hello",
		Position:  image.Pt(70, 16),
		Animation: effects.ForText(templates.AnimSlide, 4, 1.2),
		Layer:     timeline.LayerOverlay,
	}
	tl := timeline.Assemble(canvas, bg, []timeline.Clip{overlay}, 15)

	s := Describe(tl, tpl.Key)
	require.Len(t, s.Slides, 2)
	assert.Equal(t, "https://shop.example/img_0.jpg", s.Slides[0].Input)
	assert.Equal(t, "https://shop.example/img_1.jpg", s.Slides[1].Input)
	assert.Len(t, s.Slides[0].Keyframes, 3)
	assert.Equal(t, 1.0, s.Slides[0].Keyframes[0].Zoom)
	assert.Greater(t, s.Slides[0].Keyframes[2].Zoom, 1.0)
	assert.NotNil(t, s.Slides[1].Transition)
	assert.Equal(t, Rectangle{X: 70, Y: 16, W: 50, H: 20}, s.Overlays[0].Rect)

	path := ScenarioPath(t.TempDir(), "job-1")
	require.NoError(t, WriteScenario(s, path))
	assert.Equal(t, "scenario_job-1.yaml", filepath.Base(path))

	back, err := ReadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, s, back)
}
