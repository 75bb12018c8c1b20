package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ivlev/adreel/internal/analyzer"
	"github.com/ivlev/adreel/internal/config"
	"github.com/ivlev/adreel/internal/content"
	"github.com/ivlev/adreel/internal/director"
	"github.com/ivlev/adreel/internal/jobs"
	"github.com/ivlev/adreel/internal/models"
	"github.com/ivlev/adreel/internal/overlay"
	"github.com/ivlev/adreel/internal/renderer"
	"github.com/ivlev/adreel/internal/source"
	"github.com/ivlev/adreel/internal/system"
	"github.com/ivlev/adreel/internal/templates"
	"github.com/ivlev/adreel/internal/timeline"
	"github.com/ivlev/adreel/internal/video"
)

var ErrNoInput = errors.New("request has neither a product url nor a script")

// Engine runs one generation request end to end.
type Engine struct {
	Config    *config.Config
	Templates *templates.Registry
	Facts     content.FactsSource
	Scripts   content.ScriptSource
	Images    source.Source
	Encoder   video.Encoder
	Log       *zap.Logger
}

func New(cfg *config.Config, enc video.Encoder, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		Config:    cfg,
		Templates: templates.Builtin(),
		Images:    source.NewOpener(nil),
		Encoder:   enc,
		Log:       log,
	}
}

// Plan is a finalized timeline ready for rendering.
type Plan struct {
	JobID    string
	Template templates.Template
	Script   models.AdScript
	Timeline *timeline.Timeline
	Skipped  []*source.AssetFetchError

	prepared time.Duration
}

// Generate implements jobs.Generator. The video is rendered inside the job
// temp directory and moved into the video directory once complete.
func (e *Engine) Generate(ctx context.Context, jobID string, req models.VideoRequest, progress jobs.ProgressFunc) (string, error) {
	if progress == nil {
		progress = func(int, string) {}
	}
	tmp := e.TempDir(jobID)
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return "", fmt.Errorf("job temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	plan, err := e.Plan(ctx, jobID, req, progress)
	if err != nil {
		return "", err
	}

	staged := filepath.Join(tmp, videoName(jobID))
	stats, err := e.Render(ctx, plan, staged, progress)
	if err != nil {
		return "", err
	}

	progress(90, "Finalizing video")
	out := e.VideoPath(jobID)
	if err := moveFile(staged, out); err != nil {
		return "", &video.EncodeError{Path: out, Err: err}
	}
	if e.Config.ShowStats {
		e.report(ctx, plan, stats)
	}
	return out, nil
}

// Plan resolves every input of the request and builds the timeline without
// encoding anything.
func (e *Engine) Plan(ctx context.Context, jobID string, req models.VideoRequest, progress jobs.ProgressFunc) (*Plan, error) {
	if progress == nil {
		progress = func(int, string) {}
	}
	start := time.Now()
	req = req.WithDefaults()
	log := e.Log.With(zap.String("job_id", jobID))

	progress(10, "Scraping product data")
	facts, err := e.facts(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	progress(30, "Generating ad script")
	script, err := e.script(ctx, req, facts)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	progress(60, "Creating video")
	tpl := e.Templates.Get(req.Template)
	canvas := timeline.CanvasOrDefault(req.AspectRatio)

	refs := req.Images
	if len(refs) == 0 {
		refs = facts.Images
	}
	frames, skipped := e.pipeline(log).Prepare(ctx, refs, canvas, e.Config.MaxImages)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bg := director.NewDirector(canvas, log).Build(frames, req.Duration, tpl)

	// Font faces keep per-face caches, so every job gets its own book.
	composer := overlay.NewComposer(overlay.NewFontBook(e.Config.FontDir), log)
	composer.QRCode = e.Config.CTAQRCode
	composer.Link = req.URL
	overlays := composer.Build(script, req.Duration, tpl, canvas)

	bg, actual := timeline.Finalize(bg, overlays, req.Duration)
	tl := timeline.Assemble(canvas, bg, overlays, actual)
	if err := tl.Validate(); err != nil {
		return nil, &video.EncodeError{Err: err}
	}

	log.Info("timeline ready",
		zap.String("template", tpl.Key),
		zap.String("aspect", req.AspectRatio),
		zap.Int("segments", len(tl.Background.Segments)),
		zap.Bool("synthesized_background", tl.Background.Fallback),
		zap.Int("overlays", len(tl.Overlays)),
		zap.Int("skipped_images", len(skipped)),
		zap.Float64("duration", actual))

	return &Plan{
		JobID:    jobID,
		Template: tpl,
		Script:   script,
		Timeline: tl,
		Skipped:  skipped,
		prepared: time.Since(start),
	}, nil
}

// Render encodes a plan to out. Frame progress is mapped onto 60..90.
func (e *Engine) Render(ctx context.Context, plan *Plan, out string, progress jobs.ProgressFunc) (renderer.Stats, error) {
	r := renderer.New(e.Encoder, video.Params{
		FPS:     e.Config.FPS,
		Codec:   e.Config.VideoEncoder,
		Quality: e.Config.Quality,
	}, e.Log.With(zap.String("job_id", plan.JobID)))

	if progress != nil {
		last := 60
		r.Progress = func(done, total int) {
			if total <= 0 {
				return
			}
			pct := 60 + 30*done/total
			if pct > last && pct < 90 {
				last = pct
				progress(pct, "Rendering frames")
			}
		}
	}

	if _, err := r.Render(ctx, plan.Timeline, out); err != nil {
		return renderer.Stats{}, err
	}
	return r.LastStats(), nil
}

// Scenario describes the plan for the YAML dump.
func (p *Plan) Scenario() *director.Scenario {
	return director.Describe(p.Timeline, p.Template.Key)
}

func (e *Engine) TempDir(jobID string) string {
	return filepath.Join(e.Config.TempDir, jobs.TempPrefix+jobID)
}

func (e *Engine) VideoPath(jobID string) string {
	return filepath.Join(e.Config.VideoDir, videoName(jobID))
}

func videoName(jobID string) string {
	return "video_" + jobID + ".mp4"
}

func (e *Engine) facts(ctx context.Context, req models.VideoRequest) (models.ProductFacts, error) {
	needFacts := req.Script == nil || len(req.Images) == 0
	if !needFacts || req.URL == "" || e.Facts == nil {
		if req.Script == nil && req.URL == "" {
			return models.ProductFacts{}, ErrNoInput
		}
		return models.ProductFacts{URL: req.URL}, nil
	}
	facts, err := e.Facts.Fetch(ctx, req.URL)
	if err != nil && req.Script != nil {
		// The script is already known; only the images are lost.
		e.Log.Warn("product page unavailable, continuing without its images",
			zap.String("url", req.URL), zap.Error(err))
		return models.ProductFacts{URL: req.URL}, nil
	}
	return facts, err
}

func (e *Engine) script(ctx context.Context, req models.VideoRequest, facts models.ProductFacts) (models.AdScript, error) {
	if req.Script != nil {
		return *req.Script, nil
	}
	if e.Scripts == nil {
		return content.TemplateScript(facts), nil
	}
	return e.Scripts.Generate(ctx, facts)
}

func (e *Engine) pipeline(log *zap.Logger) *source.Pipeline {
	p := source.NewPipeline(e.Images, log)
	p.Parallel = e.Config.FetchParallel
	p.Timeout = e.Config.FetchTimeout
	p.MaxBytes = e.Config.MaxImageBytes
	p.MaxPixels = e.Config.MaxImagePixels
	if det, err := analyzer.NewDetector(e.Config.Detector); err == nil {
		p.Detector = det
	} else {
		log.Warn("unknown content detector, using contrast", zap.String("detector", e.Config.Detector))
	}
	return p
}

// report prints the performance block and appends one line to
// benchmark.log in the storage directory.
func (e *Engine) report(ctx context.Context, plan *Plan, s renderer.Stats) {
	fps := 0.0
	if s.Total > 0 {
		fps = float64(s.Frames) / s.Total.Seconds()
	}
	host, err := system.ReadHostStats(ctx)
	if err != nil {
		e.Log.Debug("host stats unavailable", zap.Error(err))
	}

	fmt.Printf("--- [PERFORMANCE REPORT] ---\n"+
		"Build: %s\n"+
		"Job: %s\n"+
		"Prepare: %.2fs\n"+
		"Compositing (CPU): %.2fs\n"+
		"Encoding: %.2fs\n"+
		"Render Total: %.2fs\n"+
		"Effective FPS: %.2f\n"+
		"Host: %d CPUs @ %.0f%% | %d MiB free\n"+
		"----------------------------\n",
		e.Config.BuildVersion, plan.JobID, plan.prepared.Seconds(),
		s.Compose.Seconds(), s.Encode.Seconds(), s.Total.Seconds(), fps,
		host.LogicalCPUs, host.CPUPercent, host.AvailableMemory>>20)

	entry := fmt.Sprintf("[%s] Build: %s | Job: %s | Template: %s | Frames: %d | Total: %.2fs | Compose: %.2fs | Encode: %.2fs | FPS: %.2f\n",
		time.Now().Format("2006-01-02 15:04:05"),
		e.Config.BuildVersion, plan.JobID, plan.Template.Key, s.Frames,
		s.Total.Seconds(), s.Compose.Seconds(), s.Encode.Seconds(), fps)
	path := filepath.Join(e.Config.StorageDir, "benchmark.log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		e.Log.Warn("cannot write benchmark log", zap.String("path", path), zap.Error(err))
		return
	}
	defer f.Close()
	if _, err := f.WriteString(entry); err != nil {
		e.Log.Warn("cannot write benchmark log", zap.String("path", path), zap.Error(err))
	}
}

// moveFile renames src to dst, copying when they sit on different devices.
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	part := dst + ".part"
	out, err := os.Create(part)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(part)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(part)
		return err
	}
	return os.Rename(part, dst)
}
