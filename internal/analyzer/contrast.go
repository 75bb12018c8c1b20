package analyzer

import (
	"image"
	"math"

	xdraw "golang.org/x/image/draw"
)

// ContrastDetector finds content regions with a Sobel edge pass, a dilation
// to join nearby edges and a connected-component sweep. It runs on a
// thumbnail so cost does not depend on the source resolution.
type ContrastDetector struct {
	MinBlockArea  int     // in thumbnail pixels
	EdgeThreshold float64 // gradient magnitude
	ThumbSide     int
}

func NewContrastDetector() *ContrastDetector {
	return &ContrastDetector{
		MinBlockArea:  40,
		EdgeThreshold: 30.0,
		ThumbSide:     160,
	}
}

// Detect returns blocks in source coordinates.
func (d *ContrastDetector) Detect(img image.Image) ([]Block, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, nil
	}
	gray, scale := thumbnail(img, d.ThumbSide)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()

	edges := sobel(gray, d.EdgeThreshold)
	edges = dilate(edges, w, h, 1)

	var blocks []Block
	for _, r := range components(edges, w, h) {
		if r.Dx()*r.Dy() < d.MinBlockArea {
			continue
		}
		src := image.Rect(
			b.Min.X+int(float64(r.Min.X)*scale),
			b.Min.Y+int(float64(r.Min.Y)*scale),
			b.Min.X+int(math.Ceil(float64(r.Max.X)*scale)),
			b.Min.Y+int(math.Ceil(float64(r.Max.Y)*scale)),
		).Intersect(b)
		blocks = append(blocks, Block{Rect: src, Confidence: 0.7})
	}
	return blocks, nil
}

// thumbnail downsizes img so its longer side is at most side and returns
// the grayscale result together with the source/thumbnail ratio.
func thumbnail(img image.Image, side int) (*image.Gray, float64) {
	b := img.Bounds()
	scale := 1.0
	if long := max(b.Dx(), b.Dy()); side > 0 && long > side {
		scale = float64(long) / float64(side)
	}
	w := max(1, int(float64(b.Dx())/scale))
	h := max(1, int(float64(b.Dy())/scale))
	gray := image.NewGray(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(gray, gray.Rect, img, b, xdraw.Src, nil)
	return gray, scale
}

func sobel(gray *image.Gray, threshold float64) []bool {
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	out := make([]bool, w*h)
	px := func(x, y int) float64 { return float64(gray.Pix[y*gray.Stride+x]) }

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := -px(x-1, y-1) + px(x+1, y-1) -
				2*px(x-1, y) + 2*px(x+1, y) -
				px(x-1, y+1) + px(x+1, y+1)
			gy := -px(x-1, y-1) - 2*px(x, y-1) - px(x+1, y-1) +
				px(x-1, y+1) + 2*px(x, y+1) + px(x+1, y+1)
			out[y*w+x] = math.Hypot(gx, gy) > threshold
		}
	}
	return out
}

func dilate(mask []bool, w, h, radius int) []bool {
	out := make([]bool, len(mask))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !mask[y*w+x] {
				continue
			}
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					nx, ny := x+dx, y+dy
					if nx >= 0 && nx < w && ny >= 0 && ny < h {
						out[ny*w+nx] = true
					}
				}
			}
		}
	}
	return out
}

// components returns the bounding box of every 4-connected set region.
func components(mask []bool, w, h int) []image.Rectangle {
	seen := make([]bool, len(mask))
	var rects []image.Rectangle
	stack := make([]int, 0, 64)

	for start := range mask {
		if !mask[start] || seen[start] {
			continue
		}
		r := image.Rect(w, h, 0, 0)
		stack = append(stack[:0], start)
		seen[start] = true
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%w, i/w
			r.Min.X, r.Min.Y = min(r.Min.X, x), min(r.Min.Y, y)
			r.Max.X, r.Max.Y = max(r.Max.X, x+1), max(r.Max.Y, y+1)

			for _, n := range [4]int{i - 1, i + 1, i - w, i + w} {
				if n < 0 || n >= len(mask) || seen[n] || !mask[n] {
					continue
				}
				// no wrap across rows
				if (n == i-1 || n == i+1) && n/w != y {
					continue
				}
				seen[n] = true
				stack = append(stack, n)
			}
		}
		rects = append(rects, r)
	}
	return rects
}
