package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ivlev/adreel/internal/models"
)

func resetRenderOpts() {
	renderOpts.out = ""
	renderOpts.scenarioOut = ""
	renderOpts.images = nil
	renderOpts.url = ""
	renderOpts.template = ""
	renderOpts.aspect = ""
	renderOpts.duration = 0
	renderOpts.dryRun = false
}

func TestTemplatesCommand(t *testing.T) {
	logger = zap.NewNop()
	var out bytes.Buffer
	templatesCmd.SetOut(&out)
	require.NoError(t, templatesCmd.RunE(templatesCmd, nil))

	text := out.String()
	assert.Contains(t, text, "modern_bold")
	assert.Contains(t, text, "high_visibility (default)")
}

func TestLoadRequestResolvesImages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
duration: 20
aspect_ratio: "9:16"
template: vibrant_social
images:
  - shots/a.png
  - https://cdn.example/b.jpg
script:
  headline: Trail shoes
  bullets: ["Grippy sole", "Light"]
  call_to_action: Run now
`), 0o644))

	req, err := loadRequest(path)
	require.NoError(t, err)
	assert.Equal(t, 20.0, req.Duration)
	assert.Equal(t, "9:16", req.AspectRatio)
	assert.Equal(t, []string{filepath.Join(dir, "shots/a.png"), "https://cdn.example/b.jpg"}, req.Images)
	require.NotNil(t, req.Script)
	assert.Equal(t, "Run now", req.Script.CallToAction)
}

func TestApplyRenderFlags(t *testing.T) {
	defer resetRenderOpts()
	dir := t.TempDir()
	for _, n := range []string{"2.png", "1.jpg", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644))
	}

	resetRenderOpts()
	renderOpts.images = []string{dir, "https://cdn.example/c.jpg"}
	renderOpts.template = "elegant_pro"
	renderOpts.url = "https://shop.example/p"

	req, err := applyRenderFlags(models.VideoRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "1.jpg"),
		filepath.Join(dir, "2.png"),
		"https://cdn.example/c.jpg",
	}, req.Images)
	assert.Equal(t, "elegant_pro", req.Template)
	assert.Equal(t, 30.0, req.Duration)
	assert.Equal(t, "16:9", req.AspectRatio)

	resetRenderOpts()
	_, err = applyRenderFlags(models.VideoRequest{})
	assert.Error(t, err)
}
