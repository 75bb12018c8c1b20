package director

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/ivlev/adreel/internal/templates"
	"github.com/ivlev/adreel/internal/timeline"
)

// FallbackColor fills the background when nothing else can be produced.
var FallbackColor = color.RGBA{R: 25, G: 25, B: 112, A: 255}

// Gradient paints a vertical blend from the first to the second template
// color. Solid templates, or templates with one color, get a flat fill.
func Gradient(tpl templates.Template, canvas timeline.Canvas) (*image.RGBA, error) {
	if canvas.Width <= 0 || canvas.Height <= 0 {
		return nil, fmt.Errorf("invalid canvas %dx%d", canvas.Width, canvas.Height)
	}
	if len(tpl.Background) == 0 {
		return nil, fmt.Errorf("template %q has no background colors", tpl.Key)
	}

	top := opaque(tpl.Background[0])
	if tpl.BackgroundStyle == templates.StyleSolid || len(tpl.Background) == 1 {
		return Solid(top, canvas), nil
	}
	bottom := opaque(tpl.Background[1])

	img := image.NewRGBA(canvas.Rect())
	h := canvas.Height
	for y := 0; y < h; y++ {
		r := float64(y) / float64(h)
		c := color.RGBA{
			R: mix(top.R, bottom.R, r),
			G: mix(top.G, bottom.G, r),
			B: mix(top.B, bottom.B, r),
			A: 255,
		}
		row := img.Pix[y*img.Stride : y*img.Stride+canvas.Width*4]
		for x := 0; x < len(row); x += 4 {
			row[x], row[x+1], row[x+2], row[x+3] = c.R, c.G, c.B, c.A
		}
	}
	return img, nil
}

func Solid(c color.RGBA, canvas timeline.Canvas) *image.RGBA {
	img := image.NewRGBA(canvas.Rect())
	draw.Draw(img, img.Bounds(), image.NewUniform(opaque(c)), image.Point{}, draw.Src)
	return img
}

func mix(a, b uint8, r float64) uint8 {
	return uint8(float64(a)*(1-r) + float64(b)*r)
}

func opaque(c color.RGBA) color.RGBA {
	c.A = 255
	return c
}
