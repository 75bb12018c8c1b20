package effects

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ivlev/adreel/internal/templates"
)

const eps = 1e-9

func TestForSegmentCycle(t *testing.T) {
	want := []Kind{ZoomIn, PanRight, EdgeFade, ZoomBrighten, ZoomIn, PanRight}
	for i, k := range want {
		a := ForSegment(i, 10, 1.2)
		assert.Equal(t, k, a.Kind, "segment %d", i)
		assert.Equal(t, 10.0, a.Duration)
	}
}

func TestZoomIn(t *testing.T) {
	a := ForSegment(0, 10, 1)

	start := a.Sample(0)
	assert.Equal(t, Full, start.Crop)

	end := a.Sample(10)
	assert.InDelta(t, 1/1.1, end.Crop.W, eps)
	assert.InDelta(t, (1-end.Crop.W)/2, end.Crop.X, eps)

	mid := a.Sample(5)
	assert.Greater(t, mid.Crop.W, end.Crop.W)
	assert.Less(t, mid.Crop.W, 1.0)
}

func TestPanRight(t *testing.T) {
	a := ForSegment(1, 8, 1)
	assert.InDelta(t, 0, a.Sample(0).Crop.X, eps)
	end := a.Sample(8)
	assert.InDelta(t, 1, end.Crop.X+end.Crop.W, eps)
	assert.Greater(t, a.Sample(4).Crop.X, 0.0)
}

func TestEdgeFade(t *testing.T) {
	a := ForSegment(2, 10, 1.5)
	tests := []struct {
		at   float64
		want float64
	}{
		{0, 0}, {0.5, 0.5}, {1, 1}, {5, 1}, {9, 1}, {9.5, 0.5}, {10, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, a.Sample(tt.at).Opacity, eps, "t=%v", tt.at)
	}
}

func TestZoomBrighten(t *testing.T) {
	a := ForSegment(3, 10, 1)
	assert.Equal(t, 1.0, a.Sample(4).Brightness)
	assert.Equal(t, brightnessLift, a.Sample(6).Brightness)
	assert.InDelta(t, 1/1.05, a.Sample(10).Crop.W, eps)
}

func TestForTextRamp(t *testing.T) {
	tests := []struct {
		name     string
		kind     templates.Animation
		lineDur  float64
		speed    float64
		wantKind Kind
		wantRamp float64
	}{
		{"fade", templates.AnimFade, 4, 1, Fade, 0.8},
		{"slide fast", templates.AnimSlide, 4, 1.5, Slide, 1.2},
		{"bounce capped", templates.AnimBounce, 2, 10, Bounce, 1},
		{"unknown", templates.Animation("typewriter"), 4, 1, Static, 0},
		{"empty", "", 4, 1, Static, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := ForText(tt.kind, tt.lineDur, tt.speed)
			assert.Equal(t, tt.wantKind, a.Kind)
			assert.InDelta(t, tt.wantRamp, a.Ramp, eps)
		})
	}
}

func TestTextSamples(t *testing.T) {
	fade := ForText(templates.AnimFade, 4, 1)
	assert.InDelta(t, 0, fade.Sample(0).Opacity, eps)
	assert.InDelta(t, 0.5, fade.Sample(0.4).Opacity, eps)
	assert.InDelta(t, 1, fade.Sample(2).Opacity, eps)
	assert.InDelta(t, 0.5, fade.Sample(3.6).Opacity, eps)

	slide := ForText(templates.AnimSlide, 4, 1)
	assert.InDelta(t, 0.5, slide.Sample(0.4).Crop.W, eps)
	assert.Equal(t, Full, slide.Sample(1).Crop)

	bounce := ForText(templates.AnimBounce, 4, 1)
	assert.InDelta(t, 0.5, bounce.Sample(0).Scale, eps)
	assert.InDelta(t, 0.75, bounce.Sample(0.4).Scale, eps)
	assert.InDelta(t, 1, bounce.Sample(3).Scale, eps)

	static := ForText("none", 4, 1)
	assert.Equal(t, Identity(), static.Sample(0))
	assert.Equal(t, Identity(), static.Sample(3.9))
}

func TestTransition(t *testing.T) {
	tr := NewTransition(templates.TransitionCrossfade, 1.5, 10)
	assert.InDelta(t, 0.6, tr.Duration, eps)
	assert.True(t, tr.Active(0.3))
	assert.True(t, tr.Active(0.599))
	assert.False(t, tr.Active(0.6))
	assert.False(t, tr.Active(0.6+1e-12))
	assert.InDelta(t, 0, tr.Sample(0).Opacity, eps)
	assert.InDelta(t, 0.5, tr.Sample(0.3).Opacity, eps)
	assert.Equal(t, Identity(), tr.Sample(1))

	short := NewTransition(templates.TransitionSlide, 2, 1)
	assert.InDelta(t, 0.5, short.Duration, eps)
	assert.False(t, short.Active(0.5))
	assert.InDelta(t, 1, short.Sample(0).OffsetX, eps)
	assert.InDelta(t, 0.5, short.Sample(0.25).OffsetX, eps)

	zoom := NewTransition(templates.TransitionZoom, 1, 10)
	assert.Less(t, zoom.Sample(0.3).Crop.W, 1.0)
}

func TestCompose(t *testing.T) {
	a := Identity()
	a.Crop = Window{X: 0.1, Y: 0.1, W: 0.8, H: 0.8}
	a.Opacity = 0.5
	b := Identity()
	b.Crop = Window{X: 0.5, Y: 0, W: 0.5, H: 1}
	b.Opacity = 0.5
	b.OffsetX = 0.25

	c := a.Compose(b)
	assert.InDelta(t, 0.5, c.Crop.X, eps)
	assert.InDelta(t, 0.4, c.Crop.W, eps)
	assert.InDelta(t, 0.8, c.Crop.H, eps)
	assert.InDelta(t, 0.25, c.Opacity, eps)
	assert.InDelta(t, 0.25, c.OffsetX, eps)
}
