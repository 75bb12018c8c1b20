package jobs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	FlushSchedule = "@every 1m"
	SweepSchedule = "@every 10m"
	TempMaxAge    = time.Hour
	TempPrefix    = "job_"
)

// Maintenance runs the periodic housekeeping of the job layer: flushing the
// store and removing per-job temp directories that outlived their job.
type Maintenance struct {
	Store   *Store
	TempDir string
	MaxAge  time.Duration
	Log     *zap.Logger

	// Active reports jobs whose temp directory is still in use. Without it
	// every job still generating in the store counts as active.
	Active func(id string) bool

	cron *cron.Cron
}

func NewMaintenance(store *Store, tempDir string, log *zap.Logger) *Maintenance {
	if log == nil {
		log = zap.NewNop()
	}
	return &Maintenance{
		Store:   store,
		TempDir: tempDir,
		MaxAge:  TempMaxAge,
		Log:     log,
		cron:    cron.New(),
	}
}

func (m *Maintenance) Start() error {
	if _, err := m.cron.AddFunc(FlushSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := m.Store.Flush(ctx); err != nil {
			m.Log.Warn("periodic job flush failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}
	if _, err := m.cron.AddFunc(SweepSchedule, func() {
		n, err := m.Sweep(time.Now())
		if err != nil {
			m.Log.Warn("temp sweep failed", zap.Error(err))
		}
		if n > 0 {
			m.Log.Info("stale temp directories removed", zap.Int("count", n))
		}
	}); err != nil {
		return err
	}
	m.cron.Start()
	m.Log.Info("maintenance scheduled",
		zap.String("flush", FlushSchedule),
		zap.String("sweep", SweepSchedule))
	return nil
}

// Stop waits for running maintenance to finish.
func (m *Maintenance) Stop() {
	<-m.cron.Stop().Done()
}

// Sweep removes job temp directories older than MaxAge whose job is not
// active. It returns how many were removed.
func (m *Maintenance) Sweep(now time.Time) (int, error) {
	entries, err := os.ReadDir(m.TempDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), TempPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || now.Sub(info.ModTime()) < m.MaxAge {
			continue
		}
		id := strings.TrimPrefix(e.Name(), TempPrefix)
		if m.active(id) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(m.TempDir, e.Name())); err != nil {
			m.Log.Warn("removing temp directory", zap.String("dir", e.Name()), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

func (m *Maintenance) active(id string) bool {
	if m.Active != nil {
		return m.Active(id)
	}
	j, ok := m.Store.Get(id)
	return ok && !j.Phase.Terminal()
}
