package timeline

import (
	"fmt"
	"image"
	"math"

	"github.com/ivlev/adreel/internal/effects"
	"github.com/ivlev/adreel/internal/templates"
)

const (
	MinDuration  = 15.0
	TailBuffer   = 3.0
	Epsilon      = 1e-6
	DefaultRatio = "16:9"
)

type Canvas struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

func (c Canvas) Rect() image.Rectangle { return image.Rect(0, 0, c.Width, c.Height) }

var aspectCanvases = map[string]Canvas{
	"16:9": {1920, 1080},
	"9:16": {1080, 1920},
	"1:1":  {1080, 1080},
	"4:5":  {1080, 1350},
}

// CanvasFor maps an aspect ratio onto output pixels.
func CanvasFor(aspect string) (Canvas, bool) {
	c, ok := aspectCanvases[aspect]
	return c, ok
}

// CanvasOrDefault falls back to 16:9 for unknown ratios.
func CanvasOrDefault(aspect string) Canvas {
	if c, ok := CanvasFor(aspect); ok {
		return c
	}
	return aspectCanvases[DefaultRatio]
}

func SupportedAspects() []string {
	return []string{"16:9", "9:16", "1:1", "4:5"}
}

type Layer int

const (
	LayerBackground Layer = 0
	LayerOverlay    Layer = 1
)

// Clip is a single timed visual element. Image holds canvas-sized pixels
// for background segments and the rendered plate for overlays.
type Clip struct {
	Image     image.Image
	Path      string
	Start     float64
	Duration  float64
	Animation effects.Animation
	Layer     Layer
	Role      templates.Role
	Text      string
	Position  image.Point
	Entrance  *effects.Transition
}

func (c Clip) End() float64 { return c.Start + c.Duration }

// Active reports whether global time t falls inside the clip window.
func (c Clip) Active(t float64) bool {
	return t >= c.Start && t < c.End()
}

// Background is the slideshow layer: consecutive segments, or a single
// synthesized fill when Fallback is set.
type Background struct {
	Segments []Clip
	Duration float64
	Fallback bool
}

// Trim cuts the background to [0, d]. Segments that start at or after d are
// dropped; a segment crossing d is shortened. Animation timing is kept so
// motion does not speed up.
func (b *Background) Trim(d float64) *Background {
	out := &Background{Duration: math.Min(b.Duration, d), Fallback: b.Fallback}
	for _, s := range b.Segments {
		if s.Start >= d-Epsilon {
			break
		}
		if s.End() > d {
			s.Duration = d - s.Start
		}
		out.Segments = append(out.Segments, s)
	}
	return out
}

// ActualDuration is the output length for a set of overlays: the last overlay
// end plus a tail buffer, clamped to [MinDuration, requested]. The requested
// cap wins over the floor. Without overlays the floor itself (or the cap) is
// used.
func ActualDuration(overlays []Clip, requested float64) float64 {
	if len(overlays) == 0 {
		return math.Min(MinDuration, requested)
	}
	latest := 0.0
	for _, o := range overlays {
		latest = math.Max(latest, o.End())
	}
	d := math.Max(latest+TailBuffer, MinDuration)
	return math.Min(d, requested)
}

// Finalize computes the output duration and trims the background to it.
func Finalize(bg *Background, overlays []Clip, requested float64) (*Background, float64) {
	actual := ActualDuration(overlays, requested)
	return bg.Trim(actual), actual
}

// FitOverlays truncates overlays that run past d and drops the ones that
// start after it. Input order is preserved.
func FitOverlays(overlays []Clip, d float64) []Clip {
	out := make([]Clip, 0, len(overlays))
	for _, o := range overlays {
		if o.Start >= d-Epsilon {
			continue
		}
		if o.End() > d+Epsilon {
			o.Duration = d - o.Start
		}
		out = append(out, o)
	}
	return out
}

type Timeline struct {
	Canvas     Canvas
	Background *Background
	Overlays   []Clip
	Duration   float64
}

// Assemble builds the render-ready timeline from finalized layers.
func Assemble(canvas Canvas, bg *Background, overlays []Clip, duration float64) *Timeline {
	return &Timeline{
		Canvas:     canvas,
		Background: bg.Trim(duration),
		Overlays:   FitOverlays(overlays, duration),
		Duration:   duration,
	}
}

// Validate checks the clip window invariant on every layer.
func (tl *Timeline) Validate() error {
	if tl.Duration <= 0 {
		return fmt.Errorf("timeline duration must be positive, got %.3f", tl.Duration)
	}
	check := func(kind string, i int, c Clip) error {
		switch {
		case c.Start < 0:
			return fmt.Errorf("%s %d starts before zero (%.3f)", kind, i, c.Start)
		case c.Duration <= 0:
			return fmt.Errorf("%s %d has non-positive duration (%.3f)", kind, i, c.Duration)
		case c.End() > tl.Duration+Epsilon:
			return fmt.Errorf("%s %d ends at %.3f after timeline end %.3f", kind, i, c.End(), tl.Duration)
		}
		return nil
	}
	if tl.Background != nil {
		for i, s := range tl.Background.Segments {
			if err := check("segment", i, s); err != nil {
				return err
			}
		}
	}
	for i, o := range tl.Overlays {
		if err := check("overlay", i, o); err != nil {
			return err
		}
	}
	return nil
}

// FrameCount is the number of frames needed to cover the timeline at fps.
func (tl *Timeline) FrameCount(fps int) int {
	return int(math.Ceil(tl.Duration*float64(fps) - Epsilon))
}
