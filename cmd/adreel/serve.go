package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ivlev/adreel/internal/api"
	"github.com/ivlev/adreel/internal/content"
	"github.com/ivlev/adreel/internal/engine"
	"github.com/ivlev/adreel/internal/events"
	"github.com/ivlev/adreel/internal/jobs"
	"github.com/ivlev/adreel/internal/storage"
	"github.com/ivlev/adreel/internal/system"
	"github.com/ivlev/adreel/internal/video"
)

const shutdownTimeout = 30 * time.Second

var (
	serveAddr    string
	serveWorkers int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP job API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides ADREEL_ADDR)")
	serveCmd.Flags().IntVar(&serveWorkers, "workers", 0, "concurrent render jobs (overrides WORKERS)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if serveAddr != "" {
		cfg.Addr = serveAddr
	}
	if serveWorkers > 0 {
		cfg.Workers = serveWorkers
	}
	if err := prepareDirs(); err != nil {
		return err
	}
	resolveEncoder(ctx)

	host, err := system.ReadHostStats(ctx)
	if err != nil {
		logger.Warn("host stats unavailable", zap.Error(err))
	}
	workers := system.RecommendedWorkers(cfg.Workers, host)

	store := jobs.NewStore(persister(), logger)
	if err := store.Load(ctx); err != nil {
		logger.Warn("job store not loaded, starting empty", zap.Error(err))
	}

	eng := newEngine()
	d := jobs.NewDispatcher(store, eng, workers, logger)
	if cfg.S3Bucket != "" {
		up, err := storage.NewS3Uploader(ctx, storage.S3Config{
			Bucket: cfg.S3Bucket,
			Prefix: cfg.S3Prefix,
			Region: cfg.S3Region,
		}, logger)
		if err != nil {
			logger.Warn("s3 publishing disabled", zap.Error(err))
		} else {
			d.Uploader = up
		}
	}
	if len(cfg.KafkaBrokers) > 0 {
		k, err := events.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		if err != nil {
			logger.Warn("job events disabled", zap.Error(err))
		} else {
			d.Notifier = k
			defer k.Close()
		}
	}
	d.Start()

	m := jobs.NewMaintenance(store, cfg.TempDir, logger)
	m.Active = d.Running
	if err := m.Start(); err != nil {
		return err
	}
	defer m.Stop()

	srv := api.NewServer(d, store, eng.Templates, api.Options{
		StrictTemplates: cfg.StrictTemplates,
		CORSOrigins:     cfg.CORSOrigins,
	}, logger)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening",
			zap.String("addr", cfg.Addr),
			zap.Int("workers", workers),
			zap.String("encoder", cfg.VideoEncoder),
			zap.String("build", cfg.BuildVersion))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(sctx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := d.Shutdown(sctx); err != nil {
		logger.Warn("dispatcher shutdown", zap.Error(err))
	}
	return store.Flush(sctx)
}

func persister() jobs.Persister {
	file := jobs.NewFilePersister(cfg.StatusFile)
	if cfg.RedisAddr == "" {
		return file
	}
	return &jobs.Mirror{
		Primary: file,
		Mirrors: []jobs.Persister{jobs.NewRedisPersister(cfg.RedisAddr, cfg.RedisPassword)},
		Log:     logger,
	}
}

func newEngine() *engine.Engine {
	eng := engine.New(&cfg, video.NewFFmpegEncoder(logger), logger)
	eng.Facts = content.NewPageScraper(&http.Client{Timeout: 30 * time.Second}, logger)

	var llm content.Completer
	if cfg.CohereAPIKey != "" {
		llm = content.NewCohereCompleter(cfg.CohereAPIKey, cfg.CohereModel, nil)
	} else {
		logger.Info("COHERE_API_KEY not set, ad copy comes from page facts")
	}
	eng.Scripts = content.NewScriptWriter(llm, logger)
	return eng
}

// resolveEncoder swaps "auto" for the best encoder ffmpeg offers.
func resolveEncoder(ctx context.Context) {
	if cfg.VideoEncoder == "" || cfg.VideoEncoder == "auto" {
		cfg.VideoEncoder = system.BestH264Encoder(ctx)
	}
}

func prepareDirs() error {
	for _, d := range []string{cfg.VideoDir, cfg.TempDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}
	return nil
}
