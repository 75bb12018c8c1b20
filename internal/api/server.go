package api

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ivlev/adreel/internal/jobs"
	"github.com/ivlev/adreel/internal/models"
	"github.com/ivlev/adreel/internal/templates"
)

// Submitter queues generation requests.
type Submitter interface {
	Submit(ctx context.Context, req models.VideoRequest) (jobs.Job, error)
	Cancel(id string) bool
}

// JobReader looks up job records.
type JobReader interface {
	Get(id string) (jobs.Job, bool)
}

type Options struct {
	// StrictTemplates rejects unknown template names instead of letting the
	// renderer fall back to the default template.
	StrictTemplates bool
	CORSOrigins     []string
}

type Server struct {
	jobs      Submitter
	store     JobReader
	templates *templates.Registry
	opts      Options
	log       *zap.Logger
}

func NewServer(sub Submitter, store JobReader, reg *templates.Registry, opts Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if reg == nil {
		reg = templates.Builtin()
	}
	return &Server{jobs: sub, store: store, templates: reg, opts: opts, log: log}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog(), s.cors())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "adreel API is running"})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	v := r.Group("/api/v1/videos")
	v.POST("/generate", s.handleGenerate)
	v.GET("/templates", s.handleTemplates)
	v.GET("/:id", s.handleStatus)
	v.GET("/:id/download", s.handleDownload)
	v.DELETE("/:id", s.handleCancel)
	return r
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

// cors allows the configured origins; "*" allows any.
func (s *Server) cors() gin.HandlerFunc {
	anyOrigin := slices.Contains(s.opts.CORSOrigins, "*")
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (anyOrigin || slices.Contains(s.opts.CORSOrigins, origin)) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			h.Set("Access-Control-Max-Age", "86400")
			h.Add("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
