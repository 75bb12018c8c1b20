package overlay

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

type faceKey struct {
	family string
	size   float64
}

// FontBook resolves template font families to faces. Families are looked up
// as TTF/OTF files in Dir first; anything missing falls back to the embedded
// Go fonts, bold when the family name says so.
type FontBook struct {
	Dir string

	mu    sync.Mutex
	fonts map[string]*opentype.Font
	faces map[faceKey]font.Face
}

func NewFontBook(dir string) *FontBook {
	return &FontBook{
		Dir:   dir,
		fonts: make(map[string]*opentype.Font),
		faces: make(map[faceKey]font.Face),
	}
}

// Face returns a cached face. Faces are not safe for concurrent drawing, so
// the book is meant to be owned by one render at a time.
func (b *FontBook) Face(family string, size float64) (font.Face, error) {
	if size <= 0 {
		return nil, fmt.Errorf("font size must be positive, got %v", size)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	key := faceKey{family, size}
	if f, ok := b.faces[key]; ok {
		return f, nil
	}

	otf, err := b.load(family)
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(otf, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("face %s@%v: %w", family, size, err)
	}
	b.faces[key] = face
	return face, nil
}

func (b *FontBook) load(family string) (*opentype.Font, error) {
	if f, ok := b.fonts[family]; ok {
		return f, nil
	}

	var data []byte
	if path := b.find(family); path != "" {
		if raw, err := os.ReadFile(path); err == nil {
			data = raw
		}
	}
	if data == nil {
		data = builtinFor(family)
	}

	f, err := opentype.Parse(data)
	if err != nil {
		// A broken file on disk still has the embedded font behind it.
		if f, err = opentype.Parse(builtinFor(family)); err != nil {
			return nil, fmt.Errorf("parse font %s: %w", family, err)
		}
	}
	b.fonts[family] = f
	return f, nil
}

func (b *FontBook) find(family string) string {
	if b.Dir == "" || family == "" {
		return ""
	}
	names := []string{family, strings.ReplaceAll(family, "-", " "), strings.ReplaceAll(family, "-", "")}
	for _, n := range names {
		for _, ext := range []string{".ttf", ".otf", ".ttc"} {
			p := filepath.Join(b.Dir, n+ext)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	return ""
}

func builtinFor(family string) []byte {
	if strings.Contains(strings.ToLower(family), "bold") {
		return gobold.TTF
	}
	return goregular.TTF
}
