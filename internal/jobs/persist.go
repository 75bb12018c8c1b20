package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// FilePersister keeps the job table in one YAML document keyed by job id.
// Writes go to a temp file in the same directory and are renamed into
// place.
type FilePersister struct {
	Path string
}

func NewFilePersister(path string) *FilePersister {
	return &FilePersister{Path: path}
}

func (p *FilePersister) Save(_ context.Context, jobs []Job) error {
	table := make(map[string]Job, len(jobs))
	for _, j := range jobs {
		table[j.ID] = j
	}
	data, err := yaml.Marshal(table)
	if err != nil {
		return fmt.Errorf("marshal job table: %w", err)
	}

	dir := filepath.Dir(p.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".status-*.yaml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p.Path)
}

// Load returns no jobs when the file does not exist yet.
func (p *FilePersister) Load(_ context.Context) ([]Job, error) {
	data, err := os.ReadFile(p.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var table map[string]Job
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse %s: %w", p.Path, err)
	}
	return fromTable(table), nil
}

const RedisKey = "adreel:jobs"

// RedisPersister mirrors the table into a Redis hash, one JSON field per job.
type RedisPersister struct {
	Client redis.Cmdable
	Key    string
}

func NewRedisPersister(addr, password string) *RedisPersister {
	return &RedisPersister{
		Client: redis.NewClient(&redis.Options{Addr: addr, Password: password}),
		Key:    RedisKey,
	}
}

func (p *RedisPersister) Save(ctx context.Context, jobs []Job) error {
	if len(jobs) == 0 {
		return nil
	}
	fields := make(map[string]any, len(jobs))
	for _, j := range jobs {
		b, err := json.Marshal(j)
		if err != nil {
			return err
		}
		fields[j.ID] = string(b)
	}
	return p.Client.HSet(ctx, p.Key, fields).Err()
}

func (p *RedisPersister) Load(ctx context.Context) ([]Job, error) {
	raw, err := p.Client.HGetAll(ctx, p.Key).Result()
	if err != nil {
		return nil, err
	}
	table := make(map[string]Job, len(raw))
	for id, v := range raw {
		var j Job
		if err := json.Unmarshal([]byte(v), &j); err != nil {
			return nil, fmt.Errorf("job %s: %w", id, err)
		}
		table[id] = j
	}
	return fromTable(table), nil
}

// Mirror saves to every persister and loads from the first one that has
// data. Only the primary's save errors are returned; mirror failures are
// logged.
type Mirror struct {
	Primary Persister
	Mirrors []Persister
	Log     *zap.Logger
}

func (m *Mirror) Save(ctx context.Context, jobs []Job) error {
	for _, p := range m.Mirrors {
		if err := p.Save(ctx, jobs); err != nil && m.Log != nil {
			m.Log.Warn("job mirror save failed", zap.Error(err))
		}
	}
	return m.Primary.Save(ctx, jobs)
}

func (m *Mirror) Load(ctx context.Context) ([]Job, error) {
	jobs, err := m.Primary.Load(ctx)
	if err != nil || len(jobs) > 0 {
		return jobs, err
	}
	for _, p := range m.Mirrors {
		mj, merr := p.Load(ctx)
		if merr != nil {
			if m.Log != nil {
				m.Log.Warn("job mirror load failed", zap.Error(merr))
			}
			continue
		}
		if len(mj) > 0 {
			return mj, nil
		}
	}
	return jobs, nil
}

func fromTable(table map[string]Job) []Job {
	out := make([]Job, 0, len(table))
	for id, j := range table {
		if j.ID == "" {
			j.ID = id
		}
		out = append(out, j)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}
