package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ivlev/adreel/internal/jobs"
	"github.com/ivlev/adreel/internal/models"
	"github.com/ivlev/adreel/internal/timeline"
)

type generateRequest struct {
	URL         string   `json:"url"`
	Duration    *float64 `json:"duration"`
	AspectRatio string   `json:"aspect_ratio"`
	Template    string   `json:"template"`
}

type generateResponse struct {
	VideoID           string    `json:"video_id"`
	Status            string    `json:"status"`
	Message           string    `json:"message"`
	EstimatedDuration float64   `json:"estimated_duration"`
	CreatedAt         time.Time `json:"created_at"`
}

type statusResponse struct {
	VideoID   string `json:"video_id"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	Message   string `json:"message"`
	VideoPath string `json:"video_path"`
	RemoteURL string `json:"remote_url,omitempty"`
}

func errorJSON(c *gin.Context, code int, detail string) {
	c.AbortWithStatusJSON(code, gin.H{"detail": detail})
}

func (s *Server) handleGenerate(c *gin.Context) {
	var body generateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	req, err := s.validate(body)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}

	job, err := s.jobs.Submit(c.Request.Context(), req)
	switch {
	case errors.Is(err, jobs.ErrQueueFull), errors.Is(err, jobs.ErrStopped):
		errorJSON(c, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		s.log.Error("submit failed", zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, err.Error())
		return
	}

	s.log.Info("video generation started",
		zap.String("job_id", job.ID),
		zap.String("url", req.URL),
		zap.String("template", req.Template),
		zap.String("aspect", req.AspectRatio),
		zap.Float64("duration", req.Duration))
	c.JSON(http.StatusOK, generateResponse{
		VideoID:           job.ID,
		Status:            string(job.Phase),
		Message:           "Video generation started",
		EstimatedDuration: req.Duration,
		CreatedAt:         job.CreatedAt,
	})
}

func (s *Server) validate(body generateRequest) (models.VideoRequest, error) {
	req := models.VideoRequest{
		URL:         body.URL,
		AspectRatio: body.AspectRatio,
		Template:    body.Template,
	}
	if body.Duration != nil {
		if *body.Duration <= 0 {
			return req, fmt.Errorf("duration must be positive, got %g", *body.Duration)
		}
		req.Duration = *body.Duration
	}
	req = req.WithDefaults()

	if req.URL == "" {
		return req, errors.New("url is required")
	}
	if _, ok := timeline.CanvasFor(req.AspectRatio); !ok {
		return req, fmt.Errorf("unsupported aspect ratio %q, expected one of %v", req.AspectRatio, timeline.SupportedAspects())
	}
	if s.opts.StrictTemplates {
		if _, ok := s.templates.Lookup(req.Template); !ok {
			return req, fmt.Errorf("invalid template: %s", req.Template)
		}
	}
	return req, nil
}

func (s *Server) handleStatus(c *gin.Context) {
	job, ok := s.store.Get(c.Param("id"))
	if !ok {
		errorJSON(c, http.StatusNotFound, "Video not found")
		return
	}
	c.JSON(http.StatusOK, statusResponse{
		VideoID:   job.ID,
		Status:    string(job.Phase),
		Progress:  job.Progress,
		Message:   job.Message,
		VideoPath: job.VideoPath,
		RemoteURL: job.RemoteURL,
	})
}

func (s *Server) handleDownload(c *gin.Context) {
	job, ok := s.store.Get(c.Param("id"))
	if !ok {
		errorJSON(c, http.StatusNotFound, "Video not found")
		return
	}
	if job.Phase != jobs.PhaseCompleted {
		errorJSON(c, http.StatusConflict, "Video not ready for download")
		return
	}
	if job.VideoPath == "" {
		errorJSON(c, http.StatusNotFound, "Video file not found")
		return
	}
	if info, err := os.Stat(job.VideoPath); err != nil || info.IsDir() {
		s.log.Error("video file missing", zap.String("job_id", job.ID), zap.String("path", job.VideoPath))
		errorJSON(c, http.StatusNotFound, "Video file not found")
		return
	}
	c.Header("Content-Type", "video/mp4")
	c.FileAttachment(job.VideoPath, fmt.Sprintf("video_%s.mp4", job.ID))
}

func (s *Server) handleCancel(c *gin.Context) {
	id := c.Param("id")
	job, ok := s.store.Get(id)
	if !ok {
		errorJSON(c, http.StatusNotFound, "Video not found")
		return
	}
	if job.Phase.Terminal() || !s.jobs.Cancel(id) {
		errorJSON(c, http.StatusConflict, "Video is not being generated")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"video_id": id, "status": "cancelling"})
}

func (s *Server) handleTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"templates": s.templates.List()})
}
