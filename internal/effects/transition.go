package effects

import (
	"math"

	"github.com/ivlev/adreel/internal/templates"
)

// Transition is the entrance blend of a background segment over the end of
// the previous one.
type Transition struct {
	Style    templates.Transition `yaml:"style"`
	Duration float64              `yaml:"duration"`
}

// NewTransition scales the base length by speed and keeps it within half a
// segment so consecutive transitions never overlap.
func NewTransition(style templates.Transition, speed, segment float64) Transition {
	d := transitionBase * speed
	if segment > 0 {
		d = math.Min(d, segment/2)
	}
	return Transition{Style: style, Duration: d}
}

// Active reports whether local time t is still inside the blend. The end
// of the window is exclusive.
func (tr Transition) Active(t float64) bool {
	return tr.Duration > 0 && t < tr.Duration-windowEpsilon
}

// Sample returns the transform of the incoming segment at local time t.
// The caller draws the outgoing segment first.
func (tr Transition) Sample(t float64) Transform {
	out := Identity()
	if !tr.Active(t) {
		return out
	}
	p := easeInOutCubic(clamp01(t / tr.Duration))
	out.Opacity = p

	switch tr.Style {
	case templates.TransitionSlide:
		out.OffsetX = 1 - p
	case templates.TransitionZoom:
		out.Crop = centered(1 + transitionZoom*p)
	}
	return out
}
