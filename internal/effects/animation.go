package effects

import (
	"math"

	"github.com/ivlev/adreel/internal/templates"
)

type Kind string

const (
	Static Kind = "static"

	// Background motions, chosen by segment index.
	ZoomIn       Kind = "zoom_in"
	PanRight     Kind = "pan_right"
	EdgeFade     Kind = "edge_fade"
	ZoomBrighten Kind = "zoom_brighten"

	// Text entrances.
	Fade   Kind = "fade"
	Slide  Kind = "slide"
	Bounce Kind = "bounce"
)

const (
	baseZoom        = 0.10
	basePan         = 0.10
	baseSubtleZoom  = 0.05
	brightnessLift  = 1.05
	edgeFadeShare   = 0.10
	textRampShare   = 0.20
	transitionBase  = 0.4
	transitionZoom  = 0.10
	bounceStartSize = 0.5

	// windowEpsilon absorbs float error at the end of a time window.
	windowEpsilon = 1e-6
)

// Animation is one variant of the closed set above together with its
// parameters. The zero Amount/Ramp means "no motion" for that variant.
type Animation struct {
	Kind     Kind    `yaml:"kind"`
	Duration float64 `yaml:"duration"`
	Amount   float64 `yaml:"amount,omitempty"`
	Ramp     float64 `yaml:"ramp,omitempty"`
}

var backgroundCycle = [...]Kind{ZoomIn, PanRight, EdgeFade, ZoomBrighten}

// ForSegment picks the background motion for segment index.
func ForSegment(index int, duration, speed float64) Animation {
	kind := backgroundCycle[index%len(backgroundCycle)]
	a := Animation{Kind: kind, Duration: duration}
	switch kind {
	case ZoomIn:
		a.Amount = baseZoom * speed
	case PanRight:
		a.Amount = basePan * speed
	case EdgeFade:
		a.Ramp = duration * edgeFadeShare
	case ZoomBrighten:
		a.Amount = baseSubtleZoom * speed
	}
	return a
}

// ForText maps a style animation onto a text variant. The entrance/exit
// ramp is a fixed share of the line duration scaled by speed, never more
// than half the line. Unknown kinds render without motion.
func ForText(kind templates.Animation, lineDuration, speed float64) Animation {
	a := Animation{Kind: Static, Duration: lineDuration}
	switch kind {
	case templates.AnimFade:
		a.Kind = Fade
	case templates.AnimSlide:
		a.Kind = Slide
	case templates.AnimBounce:
		a.Kind = Bounce
	default:
		return a
	}
	a.Ramp = math.Min(textRampShare*lineDuration*speed, lineDuration/2)
	return a
}

// Sample evaluates the animation at local time t in [0, Duration].
func (a Animation) Sample(t float64) Transform {
	out := Identity()
	if a.Duration <= 0 {
		return out
	}
	p := clamp01(t / a.Duration)

	switch a.Kind {
	case ZoomIn:
		out.Crop = centered(1 + a.Amount*p)

	case PanRight:
		w := centered(1 + a.Amount)
		w.X = lerp(0, 1-w.W, p)
		out.Crop = w

	case EdgeFade:
		out.Opacity = edgeRamp(t, a.Duration, a.Ramp)

	case ZoomBrighten:
		out.Crop = centered(1 + a.Amount*p)
		if t > a.Duration/2 {
			out.Brightness = brightnessLift
		}

	case Fade:
		out.Opacity = edgeRamp(t, a.Duration, a.Ramp)

	case Slide:
		if a.Ramp > 0 && t < a.Ramp {
			out.Crop = Window{X: 0, Y: 0, W: clamp01(t / a.Ramp), H: 1}
		}

	case Bounce:
		if a.Ramp > 0 && t < a.Ramp {
			out.Scale = lerp(bounceStartSize, 1, clamp01(t/a.Ramp))
		}
	}
	return out
}

// edgeRamp ramps 0→1 over the first ramp seconds and 1→0 over the last.
func edgeRamp(t, d, ramp float64) float64 {
	if ramp <= 0 {
		return 1
	}
	switch {
	case t < ramp:
		return clamp01(t / ramp)
	case t > d-ramp:
		return clamp01((d - t) / ramp)
	}
	return 1
}
