package source

import (
	"context"
	"image"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/adreel/internal/analyzer"
	"github.com/ivlev/adreel/internal/timeline"
)

const (
	DefaultMaxImages = 8
	DefaultParallel  = 4
	DefaultTimeout   = 10 * time.Second
	DefaultMaxBytes  = 20 << 20
	DefaultMaxPixels = 40_000_000
	MinSide          = 100
)

// Frame is one prepared background image, already canvas-sized and opaque.
type Frame struct {
	URL   string
	Image *image.RGBA
}

type Pipeline struct {
	Source    Source
	Detector  analyzer.Detector
	Log       *zap.Logger
	Parallel  int
	Timeout   time.Duration
	MaxBytes  int64
	MaxPixels int
	MinSide   int
}

func NewPipeline(src Source, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		Source:    src,
		Detector:  analyzer.NewContrastDetector(),
		Log:       log,
		Parallel:  DefaultParallel,
		Timeout:   DefaultTimeout,
		MaxBytes:  DefaultMaxBytes,
		MaxPixels: DefaultMaxPixels,
		MinSide:   MinSide,
	}
}

// Dedupe drops empty and repeated references, keeps first occurrences in
// order and caps the result at limit (no cap when limit <= 0).
func Dedupe(refs []string, limit int) []string {
	seen := make(map[string]bool, len(refs))
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		r = strings.TrimSpace(r)
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Prepare turns image references into canvas-sized frames. Each reference is
// fetched independently with its own timeout; failures are returned
// alongside the frames and never abort the others. Frames keep input order.
func (p *Pipeline) Prepare(ctx context.Context, refs []string, canvas timeline.Canvas, maxImages int) ([]Frame, []*AssetFetchError) {
	if maxImages <= 0 {
		maxImages = DefaultMaxImages
	}
	refs = Dedupe(refs, maxImages)

	slots := make([]*Frame, len(refs))
	errs := make([]*AssetFetchError, len(refs))

	var g errgroup.Group
	g.SetLimit(max(1, p.Parallel))
	for i, ref := range refs {
		g.Go(func() error {
			img, err := p.prepareOne(ctx, ref, canvas)
			if err != nil {
				errs[i] = &AssetFetchError{URL: ref, Err: err}
				p.Log.Warn("skipping image", zap.String("url", ref), zap.Error(err))
				return nil
			}
			slots[i] = &Frame{URL: ref, Image: img}
			return nil
		})
	}
	_ = g.Wait()

	var frames []Frame
	var failures []*AssetFetchError
	for i := range refs {
		if slots[i] != nil {
			frames = append(frames, *slots[i])
		}
		if errs[i] != nil {
			failures = append(failures, errs[i])
		}
	}
	p.Log.Info("images prepared",
		zap.Int("requested", len(refs)),
		zap.Int("ready", len(frames)),
		zap.Int("skipped", len(failures)))
	return frames, failures
}

func (p *Pipeline) prepareOne(ctx context.Context, ref string, canvas timeline.Canvas) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	rc, err := p.Source.Open(fctx, ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	img, err := decode(rc, limits{maxBytes: p.MaxBytes, maxPixels: p.MaxPixels, minSide: p.MinSide})
	if err != nil {
		return nil, err
	}

	if p.Detector != nil {
		ok, err := analyzer.HasContent(p.Detector, img)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNoContent
		}
	}
	return Letterbox(img, canvas), nil
}
