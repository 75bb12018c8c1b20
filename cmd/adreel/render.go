package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/adreel/internal/content"
	"github.com/ivlev/adreel/internal/director"
	"github.com/ivlev/adreel/internal/engine"
	"github.com/ivlev/adreel/internal/models"
	"github.com/ivlev/adreel/internal/source"
	"github.com/ivlev/adreel/internal/video"
)

var renderOpts struct {
	out         string
	scenarioOut string
	images      []string
	url         string
	template    string
	aspect      string
	duration    float64
	dryRun      bool
}

var renderCmd = &cobra.Command{
	Use:   "render [script.yaml]",
	Short: "Render one video locally",
	Long: `Renders a single video without the job API.

The optional YAML file holds a request: url, duration, aspect_ratio,
template, images and script (headline, bullets, call_to_action). Flags
override the file. Image entries may be files, directories or URLs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	f := renderCmd.Flags()
	f.StringVarP(&renderOpts.out, "output", "o", "", "output video (default <video dir>/video_<id>.mp4)")
	f.StringVar(&renderOpts.scenarioOut, "scenario-out", "", "write the finalized timeline as YAML")
	f.StringSliceVarP(&renderOpts.images, "images", "i", nil, "image files, directories or URLs")
	f.StringVar(&renderOpts.url, "url", "", "product page url")
	f.StringVarP(&renderOpts.template, "template", "t", "", "template key")
	f.StringVarP(&renderOpts.aspect, "aspect", "a", "", "aspect ratio: 16:9, 9:16, 1:1, 4:5")
	f.Float64VarP(&renderOpts.duration, "duration", "d", 0, "requested duration in seconds")
	f.BoolVar(&renderOpts.dryRun, "dry-run", false, "build the timeline but do not encode")
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var req models.VideoRequest
	if len(args) == 1 {
		var err error
		if req, err = loadRequest(args[0]); err != nil {
			return err
		}
	}
	req, err := applyRenderFlags(req)
	if err != nil {
		return err
	}
	resolveEncoder(ctx)

	eng := engine.New(&cfg, video.NewFFmpegEncoder(logger), logger)
	if req.URL != "" {
		eng.Facts = content.NewPageScraper(&http.Client{Timeout: 30 * time.Second}, logger)
	}
	var llm content.Completer
	if cfg.CohereAPIKey != "" {
		llm = content.NewCohereCompleter(cfg.CohereAPIKey, cfg.CohereModel, nil)
	}
	eng.Scripts = content.NewScriptWriter(llm, logger)

	id := uuid.NewString()
	progress := func(pct int, msg string) {
		fmt.Fprintf(cmd.OutOrStdout(), "[%3d%%] %s\n", pct, msg)
	}

	plan, err := eng.Plan(ctx, id, req, progress)
	if err != nil {
		return err
	}
	if renderOpts.scenarioOut != "" {
		if err := director.WriteScenario(plan.Scenario(), renderOpts.scenarioOut); err != nil {
			return fmt.Errorf("write scenario: %w", err)
		}
		logger.Info("scenario written", zap.String("path", renderOpts.scenarioOut))
	}
	if renderOpts.dryRun {
		return nil
	}

	out := renderOpts.out
	if out == "" {
		out = eng.VideoPath(id)
	}
	stats, err := eng.Render(ctx, plan, out, progress)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "[100%%] %s (%d frames, %.1fs)\n", out, stats.Frames, stats.Total.Seconds())
	return nil
}

func loadRequest(path string) (models.VideoRequest, error) {
	var req models.VideoRequest
	data, err := os.ReadFile(path)
	if err != nil {
		return req, err
	}
	if err := yaml.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("parse %s: %w", path, err)
	}
	// Relative image paths are resolved against the script file.
	base := filepath.Dir(path)
	for i, img := range req.Images {
		if !strings.Contains(img, "://") && !filepath.IsAbs(img) {
			req.Images[i] = filepath.Join(base, img)
		}
	}
	return req, nil
}

func applyRenderFlags(req models.VideoRequest) (models.VideoRequest, error) {
	if renderOpts.url != "" {
		req.URL = renderOpts.url
	}
	if renderOpts.template != "" {
		req.Template = renderOpts.template
	}
	if renderOpts.aspect != "" {
		req.AspectRatio = renderOpts.aspect
	}
	if renderOpts.duration > 0 {
		req.Duration = renderOpts.duration
	}
	if len(renderOpts.images) > 0 {
		req.Images = renderOpts.images
	}

	var images []string
	for _, ref := range req.Images {
		if strings.Contains(ref, "://") {
			images = append(images, ref)
			continue
		}
		local, err := source.ExpandLocal(ref)
		if err != nil {
			return req, fmt.Errorf("images: %w", err)
		}
		images = append(images, local...)
	}
	req.Images = images

	if req.Script == nil && req.URL == "" {
		return req, fmt.Errorf("nothing to render: give a script file with a script section or --url")
	}
	return req.WithDefaults(), nil
}
