package jobs

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/ivlev/adreel/internal/models"
)

const (
	MsgCancelled = "cancelled"
	queueSize    = 256
)

var (
	ErrQueueFull = errors.New("job queue full")
	ErrStopped   = errors.New("dispatcher stopped")
)

// ProgressFunc reports a percentage and a short stage message.
type ProgressFunc func(percent int, message string)

// Generator renders one request and returns the output path.
type Generator interface {
	Generate(ctx context.Context, jobID string, req models.VideoRequest, progress ProgressFunc) (string, error)
}

// Uploader publishes a finished video and returns where it went.
type Uploader interface {
	Upload(ctx context.Context, job Job, path string) (string, error)
}

// Notifier is told about every job that reaches a terminal phase.
type Notifier interface {
	Notify(ctx context.Context, job Job) error
}

// Dispatcher runs jobs on a fixed pool of workers. The job record in the
// store is the only channel between a worker and the rest of the process.
type Dispatcher struct {
	Store     *Store
	Generator Generator
	Uploader  Uploader
	Notifier  Notifier
	Log       *zap.Logger
	Workers   int

	queue   chan string
	ctx     context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running map[string]context.CancelFunc
	pending map[string]models.VideoRequest
	started bool
	closed  bool
}

func NewDispatcher(store *Store, gen Generator, workers int, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		Store:     store,
		Generator: gen,
		Log:       log,
		Workers:   workers,
		queue:     make(chan string, queueSize),
		ctx:       ctx,
		stop:      cancel,
		running:   make(map[string]context.CancelFunc),
		pending:   make(map[string]models.VideoRequest),
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	for i := 0; i < d.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.Log.Info("dispatcher started", zap.Int("workers", d.Workers))
}

// Submit records the job and queues it. It returns as soon as the job is
// stored; rendering happens on a worker.
func (d *Dispatcher) Submit(ctx context.Context, req models.VideoRequest) (Job, error) {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return Job{}, ErrStopped
	}

	job := d.Store.Create(ctx, req)
	d.mu.Lock()
	d.pending[job.ID] = req
	d.mu.Unlock()
	select {
	case d.queue <- job.ID:
		d.Log.Info("job queued", zap.String("job_id", job.ID), zap.String("url", req.URL))
		return job, nil
	default:
		d.takeRequest(job)
		d.fail(ctx, job.ID, ErrQueueFull.Error())
		return Job{}, ErrQueueFull
	}
}

// Cancel stops a running job. It reports whether the job was running.
func (d *Dispatcher) Cancel(id string) bool {
	d.mu.Lock()
	cancel, ok := d.running[id]
	d.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Running reports whether a worker is executing the job right now.
func (d *Dispatcher) Running(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.running[id]
	return ok
}

// Shutdown cancels in-flight jobs, waits for the workers and fails whatever
// was still queued.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.stop()
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	for {
		select {
		case id := <-d.queue:
			d.fail(context.Background(), id, MsgCancelled)
		default:
			d.Log.Info("dispatcher stopped")
			return nil
		}
	}
}

func (d *Dispatcher) worker(n int) {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case id := <-d.queue:
			d.run(id, n)
		}
	}
}

func (d *Dispatcher) run(id string, worker int) {
	log := d.Log.With(zap.String("job_id", id), zap.Int("worker", worker))
	job, ok := d.Store.Get(id)
	if !ok {
		log.Warn("queued job vanished")
		return
	}

	req := d.takeRequest(job)
	ctx, cancel := context.WithCancel(d.ctx)
	d.mu.Lock()
	d.running[id] = cancel
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		delete(d.running, id)
		d.mu.Unlock()
		cancel()
	}()

	progress := func(pct int, msg string) {
		if _, err := d.Store.Update(ctx, id, func(j *Job) {
			j.Progress = pct
			j.Message = msg
		}); err != nil {
			log.Debug("progress update skipped", zap.Error(err))
		}
	}

	log.Info("job started")
	path, err := d.Generator.Generate(ctx, id, req, progress)
	if err != nil {
		msg := err.Error()
		if ctx.Err() != nil {
			msg = MsgCancelled
		}
		log.Error("job failed", zap.Error(err))
		d.fail(context.Background(), id, msg)
		return
	}

	remote := ""
	if d.Uploader != nil {
		if remote, err = d.Uploader.Upload(ctx, job, path); err != nil {
			log.Warn("upload failed", zap.Error(err))
		}
	}

	done, err := d.Store.Update(context.Background(), id, func(j *Job) {
		j.Phase = PhaseCompleted
		j.Progress = 100
		j.Message = "Video generated successfully"
		j.VideoPath = path
		j.RemoteURL = remote
	})
	if err != nil {
		log.Error("completing job", zap.Error(err))
		return
	}
	log.Info("job completed", zap.String("video_path", path))
	d.notify(done)
}

// takeRequest returns the request submitted for the job, falling back to
// the parameters recorded on the job itself.
func (d *Dispatcher) takeRequest(job Job) models.VideoRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	req, ok := d.pending[job.ID]
	if !ok {
		return job.Request()
	}
	delete(d.pending, job.ID)
	return req
}

func (d *Dispatcher) fail(ctx context.Context, id, msg string) {
	j, err := d.Store.Update(ctx, id, func(j *Job) {
		j.Phase = PhaseFailed
		j.Message = msg
	})
	if err != nil {
		d.Log.Error("failing job", zap.String("job_id", id), zap.Error(err))
		return
	}
	d.notify(j)
}

func (d *Dispatcher) notify(j Job) {
	if d.Notifier == nil {
		return
	}
	if err := d.Notifier.Notify(context.Background(), j); err != nil {
		d.Log.Warn("job event not delivered", zap.String("job_id", j.ID), zap.Error(err))
	}
}
