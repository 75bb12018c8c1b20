package source

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/ivlev/adreel/internal/timeline"
)

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".bmp": true, ".tif": true, ".tiff": true,
}

// ExpandLocal lists the image files of a directory in name order, or
// returns path itself when it is a file.
func ExpandLocal(path string) ([]string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			paths = append(paths, filepath.Join(path, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

type limits struct {
	maxBytes  int64
	maxPixels int
	minSide   int
}

// decode reads at most maxBytes, rejects oversized or undersized images from
// the header alone and only then decodes the pixels.
func decode(r io.Reader, l limits) (image.Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, l.maxBytes)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	if cfg.Width*cfg.Height > l.maxPixels {
		return nil, fmt.Errorf("%w: %dx%d %s", ErrTooLarge, cfg.Width, cfg.Height, format)
	}
	if cfg.Width < l.minSide || cfg.Height < l.minSide {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooSmall, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}
	return img, nil
}

// Letterbox scales img to fit inside the canvas preserving aspect ratio,
// centers it and pads with black. Transparent areas are flattened onto
// black so the result is fully opaque.
func Letterbox(img image.Image, canvas timeline.Canvas) *image.RGBA {
	dst := image.NewRGBA(canvas.Rect())
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	fit := FitRect(img.Bounds(), canvas)
	if fit.Empty() {
		return dst
	}
	xdraw.CatmullRom.Scale(dst, fit, img, img.Bounds(), xdraw.Over, nil)
	return dst
}

// FitRect is the centered destination rectangle of a letterbox fit.
func FitRect(src image.Rectangle, canvas timeline.Canvas) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	if sw <= 0 || sh <= 0 || canvas.Width <= 0 || canvas.Height <= 0 {
		return image.Rectangle{}
	}
	scale := min(float64(canvas.Width)/float64(sw), float64(canvas.Height)/float64(sh))
	w := max(1, int(float64(sw)*scale+0.5))
	h := max(1, int(float64(sh)*scale+0.5))
	w, h = min(w, canvas.Width), min(h, canvas.Height)
	x := (canvas.Width - w) / 2
	y := (canvas.Height - h) / 2
	return image.Rect(x, y, x+w, y+h)
}
