package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func overlay(start, dur float64) Clip {
	return Clip{Start: start, Duration: dur, Layer: LayerOverlay}
}

func TestActualDuration(t *testing.T) {
	tests := []struct {
		name      string
		overlays  []Clip
		requested float64
		want      float64
	}{
		{"no overlays long request", nil, 30, 15},
		{"no overlays short request", nil, 10, 10},
		{"floor", []Clip{overlay(0, 4)}, 30, 15},
		{"buffer", []Clip{overlay(0, 4), overlay(14, 4)}, 30, 21},
		{"cap", []Clip{overlay(20, 4)}, 25, 25},
		{"cap below floor", []Clip{overlay(0, 4)}, 10, 10},
		{"latest end wins", []Clip{overlay(16, 1), overlay(12, 4)}, 60, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ActualDuration(tt.overlays, tt.requested)
			assert.InDelta(t, tt.want, got, Epsilon)
			if tt.requested >= MinDuration {
				assert.GreaterOrEqual(t, got, MinDuration)
			}
			assert.LessOrEqual(t, got, tt.requested)
		})
	}
}

func TestFinalizeTrimsBackground(t *testing.T) {
	bg := &Background{Duration: 30}
	for i := 0; i < 3; i++ {
		bg.Segments = append(bg.Segments, Clip{Start: float64(i) * 10, Duration: 10})
	}
	overlays := []Clip{overlay(0, 4), overlay(3.2, 4), overlay(6.4, 4), overlay(9.6, 4)}

	trimmed, actual := Finalize(bg, overlays, 30)
	assert.InDelta(t, 16.6, actual, Epsilon)
	require.Len(t, trimmed.Segments, 2)
	assert.InDelta(t, 6.6, trimmed.Segments[1].Duration, Epsilon)
	assert.InDelta(t, 16.6, trimmed.Duration, Epsilon)

	// original untouched
	assert.Len(t, bg.Segments, 3)
	assert.Equal(t, 10.0, bg.Segments[2].Duration)
}

func TestFitOverlays(t *testing.T) {
	in := []Clip{overlay(0, 4), overlay(8, 4), overlay(12, 4)}
	out := FitOverlays(in, 10)
	require.Len(t, out, 2)
	assert.Equal(t, 4.0, out[0].Duration)
	assert.InDelta(t, 2, out[1].Duration, Epsilon)
}

func TestAssembleValidates(t *testing.T) {
	bg := &Background{Duration: 30, Segments: []Clip{{Start: 0, Duration: 30}}}
	tl := Assemble(CanvasOrDefault("16:9"), bg, []Clip{overlay(0, 4), overlay(12, 8)}, 15)

	require.NoError(t, tl.Validate())
	assert.Equal(t, 15.0, tl.Background.Segments[0].Duration)
	assert.InDelta(t, 3, tl.Overlays[1].Duration, Epsilon)
	assert.Equal(t, 450, tl.FrameCount(30))
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		tl   Timeline
	}{
		{"zero duration", Timeline{}},
		{"negative start", Timeline{Duration: 10, Overlays: []Clip{overlay(-1, 2)}}},
		{"empty clip", Timeline{Duration: 10, Overlays: []Clip{overlay(1, 0)}}},
		{"overrun", Timeline{Duration: 10, Overlays: []Clip{overlay(8, 4)}}},
		{"segment overrun", Timeline{Duration: 10, Background: &Background{Segments: []Clip{{Duration: 11}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.tl.Validate())
		})
	}
}

func TestCanvasFor(t *testing.T) {
	c, ok := CanvasFor("9:16")
	assert.True(t, ok)
	assert.Equal(t, Canvas{1080, 1920}, c)

	_, ok = CanvasFor("21:9")
	assert.False(t, ok)
	assert.Equal(t, Canvas{1920, 1080}, CanvasOrDefault("21:9"))

	for _, a := range SupportedAspects() {
		_, ok := CanvasFor(a)
		assert.True(t, ok, a)
	}
}

func TestFrameCount(t *testing.T) {
	assert.Equal(t, 1, (&Timeline{Duration: 0.01}).FrameCount(30))
	assert.Equal(t, 498, (&Timeline{Duration: 16.6}).FrameCount(30))
}
