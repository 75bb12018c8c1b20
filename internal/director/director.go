package director

import (
	"errors"
	"image"

	"go.uber.org/zap"

	"github.com/ivlev/adreel/internal/effects"
	"github.com/ivlev/adreel/internal/source"
	"github.com/ivlev/adreel/internal/templates"
	"github.com/ivlev/adreel/internal/timeline"
)

// ErrRenderInputEmpty means no usable background image survived; the
// background is synthesized instead.
var ErrRenderInputEmpty = errors.New("no usable background images")

// Director lays out the background layer of a render.
type Director struct {
	Canvas timeline.Canvas
	Log    *zap.Logger
}

func NewDirector(canvas timeline.Canvas, log *zap.Logger) *Director {
	if log == nil {
		log = zap.NewNop()
	}
	return &Director{Canvas: canvas, Log: log}
}

// Build splits total evenly between the frames, assigns each segment its
// motion by index and an entrance transition from the second segment on.
// It never fails: unusable frames are skipped and an empty result falls back
// to a synthesized fill covering the whole duration.
func (d *Director) Build(frames []source.Frame, total float64, tpl templates.Template) *timeline.Background {
	usable := make([]source.Frame, 0, len(frames))
	for i, f := range frames {
		img, err := d.normalize(f)
		if err != nil {
			d.Log.Warn("dropping background frame", zap.Int("index", i), zap.String("url", f.URL), zap.Error(err))
			continue
		}
		usable = append(usable, source.Frame{URL: f.URL, Image: img})
	}

	if len(usable) == 0 || total <= 0 {
		d.Log.Info("using synthesized background", zap.Error(ErrRenderInputEmpty), zap.String("template", tpl.Key))
		return d.Fallback(total, tpl)
	}

	slice := total / float64(len(usable))
	bg := &timeline.Background{Duration: total}
	for i, f := range usable {
		seg := timeline.Clip{
			Image:     f.Image,
			Path:      f.URL,
			Start:     float64(i) * slice,
			Duration:  slice,
			Animation: effects.ForSegment(i, slice, tpl.AnimationSpeed),
			Layer:     timeline.LayerBackground,
		}
		if i > 0 {
			tr := effects.NewTransition(tpl.Transition, tpl.AnimationSpeed, slice)
			seg.Entrance = &tr
		}
		bg.Segments = append(bg.Segments, seg)
	}

	d.Log.Debug("slideshow built",
		zap.Int("segments", len(bg.Segments)),
		zap.Float64("segment_seconds", slice),
		zap.String("transition", string(tpl.Transition)))
	return bg
}

// Fallback is a single static clip filled with the template gradient, or
// with FallbackColor when the gradient cannot be produced.
func (d *Director) Fallback(total float64, tpl templates.Template) *timeline.Background {
	img, err := Gradient(tpl, d.Canvas)
	if err != nil {
		d.Log.Warn("gradient synthesis failed, using solid fill", zap.Error(err))
		img = Solid(FallbackColor, d.Canvas)
	}
	return &timeline.Background{
		Duration: total,
		Fallback: true,
		Segments: []timeline.Clip{{
			Image:     img,
			Duration:  total,
			Animation: effects.Animation{Kind: effects.Static, Duration: total},
			Layer:     timeline.LayerBackground,
		}},
	}
}

func (d *Director) normalize(f source.Frame) (*image.RGBA, error) {
	if f.Image == nil {
		return nil, errors.New("frame has no pixels")
	}
	if f.Image.Bounds() == d.Canvas.Rect() {
		return f.Image, nil
	}
	if f.Image.Bounds().Empty() {
		return nil, errors.New("frame is empty")
	}
	return source.Letterbox(f.Image, d.Canvas), nil
}
