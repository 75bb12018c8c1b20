package renderer

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/adreel/internal/effects"
	"github.com/ivlev/adreel/internal/system"
	"github.com/ivlev/adreel/internal/timeline"
)

// Compositor paints single frames of a timeline. Background first, then
// overlays in list order, each only inside its own time window.
type Compositor struct {
	Pool   *system.ImagePool
	Scaler xdraw.Scaler
}

func NewCompositor() *Compositor {
	return &Compositor{Pool: system.NewImagePool(), Scaler: xdraw.ApproxBiLinear}
}

// Frame draws the timeline state at global time t into dst, which must be
// canvas sized.
func (c *Compositor) Frame(tl *timeline.Timeline, t float64, dst *image.RGBA) {
	draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)

	if tl.Background != nil {
		c.background(tl.Background, t, dst)
	}
	for _, o := range tl.Overlays {
		if !o.Active(t) || o.Image == nil {
			continue
		}
		tr := o.Animation.Sample(t - o.Start)
		at := image.Rectangle{Min: o.Position, Max: o.Position.Add(o.Image.Bounds().Size())}
		c.place(dst, o.Image, at, tr, false)
	}
}

func (c *Compositor) background(bg *timeline.Background, t float64, dst *image.RGBA) {
	idx := activeSegment(bg.Segments, t)
	if idx < 0 {
		return
	}
	seg := bg.Segments[idx]
	local := t - seg.Start
	tr := seg.Animation.Sample(local)

	if seg.Entrance != nil && idx > 0 && seg.Entrance.Active(local) {
		prev := bg.Segments[idx-1]
		prevLocal := math.Min(t-prev.Start, prev.Duration)
		c.place(dst, prev.Image, dst.Bounds(), prev.Animation.Sample(prevLocal), true)
		tr = tr.Compose(seg.Entrance.Sample(local))
	}
	c.place(dst, seg.Image, dst.Bounds(), tr, true)
}

// activeSegment finds the segment covering t. The final instant of the
// timeline maps onto the last segment.
func activeSegment(segs []timeline.Clip, t float64) int {
	for i, s := range segs {
		if s.Active(t) {
			return i
		}
	}
	if n := len(segs); n > 0 && t >= segs[n-1].End()-timeline.Epsilon && t <= segs[n-1].End()+timeline.Epsilon {
		return n - 1
	}
	return -1
}

// place draws src into the area at with transform tr. When fill is set the
// crop window is stretched over the whole area (camera zoom/pan); otherwise
// it reveals the matching part of the area at natural size.
func (c *Compositor) place(dst *image.RGBA, src image.Image, at image.Rectangle, tr effects.Transform, fill bool) {
	if src == nil || tr.Opacity <= 0 || tr.Scale <= 0 {
		return
	}
	sb := src.Bounds()
	sr := window(sb, tr.Crop)
	if sr.Empty() {
		return
	}

	dr := at
	if !fill {
		dr = window(at, tr.Crop)
	}
	dr = scaleAbout(dr, tr.Scale)
	dr = dr.Add(image.Pt(int(math.Round(tr.OffsetX*float64(dst.Bounds().Dx()))), 0))
	visible := dr.Intersect(dst.Bounds())
	if visible.Empty() {
		return
	}

	var mask image.Image
	if tr.Opacity < 1 {
		mask = image.NewUniform(color.Alpha{A: uint8(math.Round(tr.Opacity * 255))})
	}

	direct := sr.Size() == dr.Size() && tr.Brightness == 1
	if direct {
		draw.DrawMask(dst, visible, src, sr.Min.Add(visible.Min.Sub(dr.Min)), mask, image.Point{}, draw.Over)
		return
	}

	scratch := c.pool().Get(dst.Bounds())
	defer c.pool().Put(scratch)

	if sr.Size() == dr.Size() {
		draw.Draw(scratch, visible, src, sr.Min.Add(visible.Min.Sub(dr.Min)), draw.Src)
	} else {
		c.scaler().Scale(scratch, dr, src, sr, draw.Src, nil)
	}
	if tr.Brightness != 1 {
		brighten(scratch, visible, tr.Brightness)
	}
	draw.DrawMask(dst, visible, scratch, visible.Min, mask, image.Point{}, draw.Over)
}

func (c *Compositor) pool() *system.ImagePool {
	if c.Pool == nil {
		c.Pool = system.NewImagePool()
	}
	return c.Pool
}

func (c *Compositor) scaler() xdraw.Scaler {
	if c.Scaler == nil {
		return xdraw.ApproxBiLinear
	}
	return c.Scaler
}

// window maps a normalized window onto r.
func window(r image.Rectangle, w effects.Window) image.Rectangle {
	fw, fh := float64(r.Dx()), float64(r.Dy())
	x0 := r.Min.X + int(math.Round(w.X*fw))
	y0 := r.Min.Y + int(math.Round(w.Y*fh))
	x1 := x0 + int(math.Round(w.W*fw))
	y1 := y0 + int(math.Round(w.H*fh))
	return image.Rect(x0, y0, x1, y1).Intersect(r)
}

func scaleAbout(r image.Rectangle, s float64) image.Rectangle {
	if s == 1 {
		return r
	}
	cx := float64(r.Min.X+r.Max.X) / 2
	cy := float64(r.Min.Y+r.Max.Y) / 2
	hw := float64(r.Dx()) * s / 2
	hh := float64(r.Dy()) * s / 2
	return image.Rect(
		int(math.Round(cx-hw)), int(math.Round(cy-hh)),
		int(math.Round(cx+hw)), int(math.Round(cy+hh)),
	)
}

// brighten multiplies the color channels of premultiplied pixels, keeping
// each channel at or below alpha.
func brighten(img *image.RGBA, r image.Rectangle, f float64) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := img.Pix[img.PixOffset(r.Min.X, y):img.PixOffset(r.Max.X, y)]
		for i := 0; i < len(row); i += 4 {
			a := float64(row[i+3])
			for k := 0; k < 3; k++ {
				row[i+k] = uint8(math.Min(a, float64(row[i+k])*f))
			}
		}
	}
}
