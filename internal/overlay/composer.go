package overlay

import (
	"image"
	"image/draw"
	"math"

	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/ivlev/adreel/internal/effects"
	"github.com/ivlev/adreel/internal/models"
	"github.com/ivlev/adreel/internal/templates"
	"github.com/ivlev/adreel/internal/timeline"
)

const (
	MaxLineDuration = 4.0
	lineOverlap     = 0.8
	bulletStep      = 80
	wrapShare       = 0.9
	qrGap           = 10
)

// Composer turns an ad script into timed overlay clips.
type Composer struct {
	Fonts *FontBook
	Log   *zap.Logger

	// QRCode attaches a code for Link next to the call to action.
	QRCode bool
	Link   string
}

func NewComposer(fonts *FontBook, log *zap.Logger) *Composer {
	if log == nil {
		log = zap.NewNop()
	}
	if fonts == nil {
		fonts = NewFontBook("")
	}
	return &Composer{Fonts: fonts, Log: log}
}

// LineDuration is the on-screen time of each line for a script of count
// lines in a video of the requested length.
func LineDuration(count int, requested float64) float64 {
	if count <= 0 {
		return 0
	}
	return math.Min(MaxLineDuration, requested/float64(count))
}

// Build renders every line and places it in time and space. Lines that fail
// to render are logged and dropped; the rest keep their slots.
func (c *Composer) Build(script models.AdScript, requested float64, tpl templates.Template, canvas timeline.Canvas) []timeline.Clip {
	lines := Lines(script)
	if len(lines) == 0 || requested <= 0 {
		return nil
	}

	lineDur := LineDuration(len(lines), requested)
	maxW := int(float64(canvas.Width) * wrapShare)

	clips := make([]timeline.Clip, 0, len(lines))
	for i, line := range lines {
		style := tpl.Style(line.Role)
		img, err := c.render(line, style, maxW)
		if err != nil {
			c.Log.Warn("dropping text overlay", zap.Error(&TextRenderError{Line: line, Err: err}))
			continue
		}
		clips = append(clips, timeline.Clip{
			Image:     img,
			Start:     float64(i) * lineDur * lineOverlap,
			Duration:  lineDur,
			Animation: effects.ForText(style.Animation, lineDur, tpl.AnimationSpeed),
			Layer:     timeline.LayerOverlay,
			Role:      line.Role,
			Text:      line.Text,
			Position:  Place(line.Role, i, img.Bounds().Size(), canvas),
		})
	}

	c.Log.Debug("text overlays built",
		zap.Int("lines", len(lines)),
		zap.Int("clips", len(clips)),
		zap.Float64("line_seconds", lineDur))
	return clips
}

func (c *Composer) render(line Line, style templates.TextStyle, maxW int) (*image.RGBA, error) {
	face, err := c.Fonts.Face(style.Font, style.Size)
	if err != nil {
		return nil, err
	}
	img, err := RenderText(face, line.Text, style, maxW)
	if err != nil {
		return nil, err
	}
	if line.Role == templates.RoleCTA && c.QRCode && c.Link != "" {
		withQR, err := attachQR(img, c.Link)
		if err != nil {
			c.Log.Warn("skipping CTA QR code", zap.String("link", c.Link), zap.Error(err))
			return img, nil
		}
		return withQR, nil
	}
	return img, nil
}

// attachQR puts a code as tall as the plate to its right.
func attachQR(plate *image.RGBA, link string) (*image.RGBA, error) {
	q, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	side := plate.Bounds().Dy()
	code := q.Image(side)

	pw := plate.Bounds().Dx()
	out := image.NewRGBA(image.Rect(0, 0, pw+qrGap+side, side))
	draw.Draw(out, plate.Bounds(), plate, image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(pw+qrGap, 0, pw+qrGap+side, side), code, code.Bounds().Min, draw.Src)
	return out, nil
}

// Place returns the top-left corner of a plate of the given size. Plates
// are centered horizontally; the vertical anchor depends on the role and,
// for bullets, on the line index. The result always lies inside the canvas
// when the plate fits.
func Place(role templates.Role, index int, size image.Point, canvas timeline.Canvas) image.Point {
	var textTop float64
	switch role {
	case templates.RoleHeadline:
		textTop = 0.15 * float64(canvas.Height)
	case templates.RoleCTA:
		textTop = 0.75 * float64(canvas.Height)
	default:
		textTop = 0.35*float64(canvas.Height) + float64(index*bulletStep)
	}

	x := (canvas.Width - size.X) / 2
	y := int(textTop) - PlatePadding
	return image.Pt(clampInt(x, 0, canvas.Width-size.X), clampInt(y, 0, canvas.Height-size.Y))
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}
