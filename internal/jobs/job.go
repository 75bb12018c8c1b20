package jobs

import (
	"time"

	"github.com/google/uuid"

	"github.com/ivlev/adreel/internal/models"
)

type Phase string

const (
	PhaseGenerating Phase = "generating"
	PhaseCompleted  Phase = "completed"
	PhaseFailed     Phase = "failed"
)

// Terminal phases are never left again.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// Job is the status record of one generation request. Records are replaced
// as a whole on every change.
type Job struct {
	ID          string    `json:"video_id" yaml:"video_id"`
	Phase       Phase     `json:"status" yaml:"status"`
	Progress    int       `json:"progress" yaml:"progress"`
	Message     string    `json:"message,omitempty" yaml:"message,omitempty"`
	VideoPath   string    `json:"video_path,omitempty" yaml:"video_path,omitempty"`
	RemoteURL   string    `json:"remote_url,omitempty" yaml:"remote_url,omitempty"`
	URL         string    `json:"url" yaml:"url"`
	Template    string    `json:"template" yaml:"template"`
	AspectRatio string    `json:"aspect_ratio" yaml:"aspect_ratio"`
	Duration    float64   `json:"duration" yaml:"duration"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// NewJob starts a record in the generating phase.
func NewJob(req models.VideoRequest, now time.Time) Job {
	return Job{
		ID:          uuid.NewString(),
		Phase:       PhaseGenerating,
		URL:         req.URL,
		Template:    req.Template,
		AspectRatio: req.AspectRatio,
		Duration:    req.Duration,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Request rebuilds the generation parameters recorded on the job.
func (j Job) Request() models.VideoRequest {
	return models.VideoRequest{
		URL:         j.URL,
		Duration:    j.Duration,
		AspectRatio: j.AspectRatio,
		Template:    j.Template,
	}
}
