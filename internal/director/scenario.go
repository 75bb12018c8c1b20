package director

import (
	"fmt"

	"github.com/ivlev/adreel/internal/effects"
	"github.com/ivlev/adreel/internal/timeline"
)

// Scenario is a human-readable dump of a finalized timeline.
type Scenario struct {
	Version     string          `yaml:"version"`
	Template    string          `yaml:"template"`
	Canvas      timeline.Canvas `yaml:"canvas"`
	Duration    float64         `yaml:"duration"`
	Synthesized bool            `yaml:"synthesized_background,omitempty"`
	Slides      []Slide         `yaml:"slides"`
	Overlays    []Overlay       `yaml:"overlays,omitempty"`
}

// Slide is one background segment with its motion sampled as keyframes.
type Slide struct {
	ID         int                 `yaml:"id"`
	Input      string              `yaml:"input,omitempty"`
	Start      float64             `yaml:"start"`
	Duration   float64             `yaml:"duration"`
	Animation  effects.Animation   `yaml:"animation"`
	Transition *effects.Transition `yaml:"transition,omitempty"`
	Keyframes  []Keyframe          `yaml:"keyframes"`
}

type Overlay struct {
	Role      string            `yaml:"role"`
	Text      string            `yaml:"text"`
	Start     float64           `yaml:"start"`
	Duration  float64           `yaml:"duration"`
	Animation effects.Animation `yaml:"animation"`
	Rect      Rectangle         `yaml:"rect"`
}

// Keyframe is the visible source window at a time offset inside a slide.
type Keyframe struct {
	Time       float64   `yaml:"time"`
	Rect       Rectangle `yaml:"rect"`
	Zoom       float64   `yaml:"zoom"`
	Opacity    float64   `yaml:"opacity"`
	Brightness float64   `yaml:"brightness,omitempty"`
}

type Rectangle struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	W int `yaml:"w"`
	H int `yaml:"h"`
}

// Describe samples every segment at its start, middle and end.
func Describe(tl *timeline.Timeline, templateKey string) *Scenario {
	s := &Scenario{
		Version:  "1.0",
		Template: templateKey,
		Canvas:   tl.Canvas,
		Duration: tl.Duration,
	}

	if tl.Background != nil {
		s.Synthesized = tl.Background.Fallback
		for i, seg := range tl.Background.Segments {
			slide := Slide{
				ID:         i + 1,
				Input:      seg.Path,
				Start:      seg.Start,
				Duration:   seg.Duration,
				Animation:  seg.Animation,
				Transition: seg.Entrance,
			}
			if slide.Input == "" {
				slide.Input = fmt.Sprintf("segment_%d", i+1)
			}
			for _, at := range []float64{0, seg.Duration / 2, seg.Duration} {
				slide.Keyframes = append(slide.Keyframes, keyframe(seg.Animation.Sample(at), at, tl.Canvas))
			}
			s.Slides = append(s.Slides, slide)
		}
	}

	for _, o := range tl.Overlays {
		var r Rectangle
		if o.Image != nil {
			b := o.Image.Bounds()
			r = Rectangle{X: o.Position.X, Y: o.Position.Y, W: b.Dx(), H: b.Dy()}
		}
		s.Overlays = append(s.Overlays, Overlay{
			Role:      string(o.Role),
			Text:      o.Text,
			Start:     o.Start,
			Duration:  o.Duration,
			Animation: o.Animation,
			Rect:      r,
		})
	}
	return s
}

func keyframe(tr effects.Transform, at float64, c timeline.Canvas) Keyframe {
	zoom := 1.0
	if tr.Crop.W > 0 {
		zoom = 1 / tr.Crop.W
	}
	kf := Keyframe{
		Time: at,
		Rect: Rectangle{
			X: int(tr.Crop.X * float64(c.Width)),
			Y: int(tr.Crop.Y * float64(c.Height)),
			W: int(tr.Crop.W * float64(c.Width)),
			H: int(tr.Crop.H * float64(c.Height)),
		},
		Zoom:    zoom,
		Opacity: tr.Opacity,
	}
	if tr.Brightness != 1 {
		kf.Brightness = tr.Brightness
	}
	return kf
}
