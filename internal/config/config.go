package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ivlev/adreel/internal/analyzer"
)

type Config struct {
	Addr         string
	StorageDir   string
	VideoDir     string
	TempDir      string
	StatusFile   string
	FontDir      string
	BuildVersion string

	Workers      int
	FPS          int
	VideoEncoder string
	Quality      int
	ShowStats    bool

	MaxImages      int
	FetchParallel  int
	FetchTimeout   time.Duration
	MaxImageBytes  int64
	MaxImagePixels int
	Detector       string

	StrictTemplates bool
	CTAQRCode       bool
	CORSOrigins     []string

	CohereAPIKey string
	CohereModel  string

	RedisAddr     string
	RedisPassword string

	S3Bucket string
	S3Prefix string
	S3Region string

	KafkaBrokers []string
	KafkaTopic   string
}

func Default() Config {
	return Config{
		Addr:           ":8000",
		StorageDir:     "storage",
		VideoDir:       filepath.Join("storage", "videos"),
		TempDir:        filepath.Join("storage", "tmp"),
		StatusFile:     filepath.Join("storage", "video_status", "status.yaml"),
		BuildVersion:   "dev",
		Workers:        2,
		FPS:            30,
		VideoEncoder:   "auto",
		Quality:        23,
		MaxImages:      8,
		FetchParallel:  4,
		FetchTimeout:   10 * time.Second,
		MaxImageBytes:  20 << 20,
		MaxImagePixels: 40_000_000,
		Detector:       "contrast",
		CohereModel:    "command-r",
		S3Region:       "us-east-1",
		KafkaTopic:     "adreel.jobs",
		CORSOrigins:    []string{"http://localhost:3000", "http://127.0.0.1:3000"},
	}
}

// Load reads optional .env files, then overlays the process environment on
// top of Default. Missing env files are not an error.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	c := Default()
	var errs []string
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s=%q is not an integer", key, v))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s=%q is not a boolean", key, v))
				return
			}
			*dst = b
		}
	}
	list := func(key string, dst *[]string) {
		if v := os.Getenv(key); v != "" {
			*dst = splitList(v)
		}
	}

	str("ADREEL_ADDR", &c.Addr)
	if v := os.Getenv("STORAGE_DIR"); v != "" {
		c.StorageDir = v
		c.VideoDir = filepath.Join(v, "videos")
		c.TempDir = filepath.Join(v, "tmp")
		c.StatusFile = filepath.Join(v, "video_status", "status.yaml")
	}
	str("VIDEO_DIR", &c.VideoDir)
	str("TEMP_DIR", &c.TempDir)
	str("STATUS_FILE", &c.StatusFile)
	str("FONT_DIR", &c.FontDir)
	num("WORKERS", &c.Workers)
	num("FPS", &c.FPS)
	str("VIDEO_ENCODER", &c.VideoEncoder)
	num("QUALITY", &c.Quality)
	flag("SHOW_STATS", &c.ShowStats)
	num("MAX_IMAGES", &c.MaxImages)
	num("FETCH_PARALLEL", &c.FetchParallel)
	if v := os.Getenv("FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("FETCH_TIMEOUT=%q is not a duration", v))
		} else {
			c.FetchTimeout = d
		}
	}
	str("CONTENT_DETECTOR", &c.Detector)
	flag("STRICT_TEMPLATES", &c.StrictTemplates)
	flag("CTA_QR_CODE", &c.CTAQRCode)
	list("CORS_ORIGINS", &c.CORSOrigins)
	str("COHERE_API_KEY", &c.CohereAPIKey)
	str("COHERE_MODEL", &c.CohereModel)
	str("REDIS_ADDR", &c.RedisAddr)
	str("REDIS_PASSWORD", &c.RedisPassword)
	str("S3_BUCKET", &c.S3Bucket)
	str("S3_PREFIX", &c.S3Prefix)
	str("S3_REGION", &c.S3Region)
	list("KAFKA_BROKERS", &c.KafkaBrokers)
	str("KAFKA_TOPIC", &c.KafkaTopic)

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	switch {
	case c.Workers <= 0:
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	case c.FPS <= 0:
		return fmt.Errorf("fps must be positive, got %d", c.FPS)
	case c.MaxImages <= 0:
		return fmt.Errorf("max images must be positive, got %d", c.MaxImages)
	case c.FetchParallel <= 0:
		return fmt.Errorf("fetch parallelism must be positive, got %d", c.FetchParallel)
	case c.FetchTimeout <= 0:
		return fmt.Errorf("fetch timeout must be positive")
	}
	if _, err := analyzer.NewDetector(c.Detector); err != nil {
		return err
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
