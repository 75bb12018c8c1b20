package overlay

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"unicode"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/adreel/internal/templates"
)

const (
	PlatePadding = 30
	plateAlphaUp = 20
	outlineWidth = 3
)

// TextRenderError is a line that could not be turned into an overlay image.
type TextRenderError struct {
	Line Line
	Err  error
}

func (e *TextRenderError) Error() string {
	return fmt.Sprintf("render %s line %q: %v", e.Line.Role, e.Line.Text, e.Err)
}

func (e *TextRenderError) Unwrap() error { return e.Err }

// PlateColor is the template plate color made slightly more opaque so text
// stays readable over busy photos.
func PlateColor(c color.RGBA) color.NRGBA {
	a := int(c.A) + plateAlphaUp
	if a > 255 {
		a = 255
	}
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(a)}
}

// RenderText draws text on its background plate. Lines are wrapped so the
// plate does not exceed maxWidth; a single word wider than that is kept
// whole. Runes the face has no glyph for are left out. Empty text yields a
// bare plate one line tall.
func RenderText(face font.Face, text string, style templates.TextStyle, maxWidth int) (*image.RGBA, error) {
	if face == nil {
		return nil, errors.New("nil font face")
	}
	text = strings.TrimSpace(drawable(face, text))

	lines := wrap(face, text, maxWidth-2*PlatePadding)
	if len(lines) == 0 {
		lines = []string{""}
	}
	m := face.Metrics()
	lineH := m.Height.Ceil()
	if lineH <= 0 {
		lineH = (m.Ascent + m.Descent).Ceil()
	}

	widths := make([]int, len(lines))
	textW := 0
	for i, l := range lines {
		widths[i] = font.MeasureString(face, l).Ceil()
		textW = max(textW, widths[i])
	}
	textH := lineH * len(lines)

	plate := image.NewRGBA(image.Rect(0, 0, textW+2*PlatePadding, textH+2*PlatePadding))
	draw.Draw(plate, plate.Bounds(), image.NewUniform(PlateColor(style.Plate)), image.Point{}, draw.Src)

	d := &font.Drawer{Dst: plate, Face: face}
	dot := func(i, dx, dy int) fixed.Point26_6 {
		x := PlatePadding + (textW-widths[i])/2 + dx
		y := PlatePadding + i*lineH + m.Ascent.Ceil() + dy
		return fixed.P(x, y)
	}

	d.Src = image.NewUniform(opaque(style.Outline))
	for r := 1; r <= outlineWidth; r++ {
		for _, dir := range directions {
			for i, l := range lines {
				d.Dot = dot(i, dir.X*r, dir.Y*r)
				d.DrawString(l)
			}
		}
	}

	d.Src = image.NewUniform(opaque(style.Color))
	for i, l := range lines {
		d.Dot = dot(i, 0, 0)
		d.DrawString(l)
	}
	return plate, nil
}

var directions = [...]image.Point{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// drawable drops runes without a glyph in face, which would otherwise be
// drawn as the missing-glyph box.
func drawable(face font.Face, text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return r
		}
		if _, ok := face.GlyphAdvance(r); !ok {
			return -1
		}
		return r
	}, text)
}

func wrap(face font.Face, text string, limit int) []string {
	words := strings.Fields(text)
	if limit <= 0 {
		return []string{strings.Join(words, " ")}
	}
	var (
		out []string
		cur string
	)
	for _, w := range words {
		next := w
		if cur != "" {
			next = cur + " " + w
		}
		if cur != "" && font.MeasureString(face, next).Ceil() > limit {
			out = append(out, cur)
			cur = w
			continue
		}
		cur = next
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

func opaque(c color.RGBA) color.RGBA {
	c.A = 255
	return c
}
