package renderer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ivlev/adreel/internal/timeline"
	"github.com/ivlev/adreel/internal/video"
)

// Stats summarize one render for the performance report.
type Stats struct {
	Frames  int
	Compose time.Duration
	Encode  time.Duration
	Total   time.Duration
}

// Renderer composites every frame of a timeline and streams it into an
// encoder.
type Renderer struct {
	Encoder    video.Encoder
	Compositor *Compositor
	Params     video.Params
	Log        *zap.Logger

	// Progress, when set, is called with the number of frames done about
	// once per second of output.
	Progress func(done, total int)

	last Stats
}

func New(enc video.Encoder, p video.Params, log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	if p.FPS <= 0 {
		p.FPS = 30
	}
	return &Renderer{Encoder: enc, Compositor: NewCompositor(), Params: p, Log: log}
}

// Render writes the timeline to out and returns the output path. On any
// failure nothing is left at out.
func (r *Renderer) Render(ctx context.Context, tl *timeline.Timeline, out string) (string, error) {
	start := time.Now()
	if err := tl.Validate(); err != nil {
		return "", &video.EncodeError{Path: out, Err: err}
	}

	p := r.Params
	p.Width, p.Height = tl.Canvas.Width, tl.Canvas.Height
	total := tl.FrameCount(p.FPS)

	sink, err := r.Encoder.Open(ctx, out, p)
	if err != nil {
		return "", err
	}

	pool := r.Compositor.pool()
	frame := pool.Get(tl.Canvas.Rect())
	defer pool.Put(frame)

	var stats Stats
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			sink.Abort(err)
			return "", err
		}

		t0 := time.Now()
		r.Compositor.Frame(tl, float64(i)/float64(p.FPS), frame)
		t1 := time.Now()
		if err := sink.WriteFrame(frame); err != nil {
			sink.Abort(err)
			if cerr := ctx.Err(); cerr != nil {
				return "", cerr
			}
			return "", asEncodeError(out, fmt.Errorf("frame %d: %w", i, err))
		}
		stats.Compose += t1.Sub(t0)
		stats.Encode += time.Since(t1)

		if r.Progress != nil && (i+1)%p.FPS == 0 {
			r.Progress(i+1, total)
		}
	}

	if err := sink.Close(); err != nil {
		return "", asEncodeError(out, err)
	}
	if r.Progress != nil {
		r.Progress(total, total)
	}

	stats.Frames = total
	stats.Total = time.Since(start)
	r.last = stats
	r.Log.Info("render finished",
		zap.String("output", out),
		zap.Int("frames", total),
		zap.Float64("duration", tl.Duration),
		zap.Duration("compose", stats.Compose),
		zap.Duration("encode", stats.Encode),
		zap.Duration("elapsed", stats.Total))
	return out, nil
}

// LastStats returns the numbers of the most recent successful render.
func (r *Renderer) LastStats() Stats { return r.last }

func asEncodeError(path string, err error) error {
	if errors.Is(err, video.ErrEncodeFailure) {
		return err
	}
	return &video.EncodeError{Path: path, Err: err}
}
