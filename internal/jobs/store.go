package jobs

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ivlev/adreel/internal/models"
)

var (
	ErrNotFound = errors.New("job not found")
	ErrTerminal = errors.New("job already finished")
)

// Persister stores full snapshots of the job table.
type Persister interface {
	Save(ctx context.Context, jobs []Job) error
	Load(ctx context.Context) ([]Job, error)
}

// Store is the process-wide job table. Readers get copies; every change
// replaces a whole record and is persisted right away. A failed save leaves
// the store dirty until the next Flush.
type Store struct {
	mu    sync.RWMutex
	jobs  map[string]Job
	dirty bool

	saveMu    sync.Mutex
	persister Persister
	log       *zap.Logger
	now       func() time.Time
}

func NewStore(p Persister, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		jobs:      make(map[string]Job),
		persister: p,
		log:       log,
		now:       time.Now,
	}
}

// Load replaces the table with the persisted snapshot. Jobs saved while
// generating are kept as they were; they are not resumed.
func (s *Store) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	loaded, err := s.persister.Load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = make(map[string]Job, len(loaded))
	stale := 0
	for _, j := range loaded {
		s.jobs[j.ID] = j
		if !j.Phase.Terminal() {
			stale++
		}
	}
	s.log.Info("job store loaded", zap.Int("jobs", len(loaded)), zap.Int("interrupted", stale))
	return nil
}

// Create registers a new generating job for req.
func (s *Store) Create(ctx context.Context, req models.VideoRequest) Job {
	j := NewJob(req, s.now())
	s.mu.Lock()
	s.jobs[j.ID] = j
	s.dirty = true
	s.mu.Unlock()

	s.save(ctx)
	return j
}

func (s *Store) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	return j, ok
}

// Update applies fn to a copy of the record and stores the result. Finished
// jobs cannot be changed.
func (s *Store) Update(ctx context.Context, id string, fn func(*Job)) (Job, error) {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return Job{}, ErrNotFound
	}
	if j.Phase.Terminal() {
		s.mu.Unlock()
		return j, ErrTerminal
	}
	fn(&j)
	j.ID = id
	j.UpdatedAt = s.now()
	s.jobs[id] = j
	s.dirty = true
	s.mu.Unlock()

	s.save(ctx)
	return j, nil
}

// List returns every job, oldest first.
func (s *Store) List() []Job {
	s.mu.RLock()
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool {
		if out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].ID < out[b].ID
		}
		return out[a].CreatedAt.Before(out[b].CreatedAt)
	})
	return out
}

// Flush persists the table if a previous save failed or was skipped.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.RLock()
	dirty := s.dirty
	s.mu.RUnlock()
	if !dirty {
		return nil
	}
	return s.save(ctx)
}

func (s *Store) save(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	// Snapshots are taken under saveMu so a newer table is never
	// overwritten by an older one.
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()

	if err := s.persister.Save(ctx, s.List()); err != nil {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		s.log.Error("job store save failed", zap.Error(err))
		return err
	}
	return nil
}
