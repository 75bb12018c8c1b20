package templates

import "image/color"

// Role selects the style and screen position of a text line.
type Role string

const (
	RoleHeadline Role = "headline"
	RoleBullet   Role = "bullet"
	RoleCTA      Role = "cta"
)

// Animation is the entrance/exit motion of a text line.
type Animation string

const (
	AnimFade   Animation = "fade"
	AnimSlide  Animation = "slide"
	AnimBounce Animation = "bounce"
)

// Transition is the blend between two consecutive background segments.
type Transition string

const (
	TransitionCrossfade Transition = "crossfade"
	TransitionSlide     Transition = "slide"
	TransitionZoom      Transition = "zoom"
)

const (
	StyleSolid    = "solid"
	StyleGradient = "gradient"
)

type TextStyle struct {
	Font      string
	Size      float64
	Color     color.RGBA
	Outline   color.RGBA
	Plate     color.RGBA
	Animation Animation
}

// Template is a named bundle of palette, per-role text styles and motion
// parameters. Values returned by the registry never share backing arrays.
type Template struct {
	Key             string
	Name            string
	Description     string
	Theme           string
	BackgroundStyle string
	Background      []color.RGBA
	Styles          map[Role]TextStyle
	AnimationSpeed  float64
	Transition      Transition
}

// Style resolves the style for role, falling back to the headline style.
func (t Template) Style(role Role) TextStyle {
	if s, ok := t.Styles[role]; ok {
		return s
	}
	return t.Styles[RoleHeadline]
}

func (t Template) clone() Template {
	out := t
	out.Background = append([]color.RGBA(nil), t.Background...)
	out.Styles = make(map[Role]TextStyle, len(t.Styles))
	for k, v := range t.Styles {
		out.Styles[k] = v
	}
	return out
}

// Summary is the discovery view of a template.
type Summary struct {
	Key         string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Theme       string `json:"theme" yaml:"theme"`
}
