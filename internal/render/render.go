// Package render wraps an external video renderer behind a small HTTP API.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/set-night/turbostart/internal/config"
)

// ErrRenderFailed is returned when the renderer exits unsuccessfully or
// produces no output. Renderer stderr is logged, never returned.
var ErrRenderFailed = errors.New("render failed")

const (
	maxLoggedStderr = 4096
	// waitDelay bounds how long a killed renderer's children may hold
	// stderr open.
	waitDelay = 5 * time.Second
)

// Props are the composition input props.
type Props struct {
	Lines              []string `json:"lines"`
	Title              string   `json:"title"`
	Subtitle           string   `json:"subtitle,omitempty"`
	CTAText            string   `json:"ctaText,omitempty"`
	CTAURL             string   `json:"ctaUrl,omitempty"`
	BackgroundImageURL string   `json:"backgroundImageUrl,omitempty"`
}

// Renderer runs one render per call as a child process.
type Renderer struct {
	binary      string
	args        []string
	composition string
	workDir     string
	outputDir   string
	timeout     time.Duration
}

func NewRenderer(cfg config.Render) *Renderer {
	return &Renderer{
		binary:      cfg.Binary,
		args:        cfg.Args,
		composition: cfg.Composition,
		workDir:     cfg.WorkDir,
		outputDir:   cfg.OutputDir,
		timeout:     cfg.Timeout,
	}
}

// Render writes props to a temp file, runs
// <binary> <args...> <composition> <out.mp4> --props <props.json>
// and returns the produced video. Temp files are removed on every path.
func (r *Renderer) Render(ctx context.Context, props Props) ([]byte, error) {
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	name := "video-" + uuid.NewString()
	outPath := filepath.Join(r.outputDir, name+".mp4")
	propsPath := filepath.Join(r.outputDir, name+"-props.json")
	defer removeQuietly(propsPath)
	defer removeQuietly(outPath)

	data, err := json.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("encode props: %w", err)
	}
	if err := os.WriteFile(propsPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("write props: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := append(append([]string{}, r.args...), r.composition, outPath, "--props", propsPath)
	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Dir = r.workDir
	cmd.WaitDelay = waitDelay
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		slog.Error("renderer exited with error",
			"error", err,
			"timed_out", errors.Is(ctx.Err(), context.DeadlineExceeded),
			"stderr", tail(stderr.String(), maxLoggedStderr),
		)
		return nil, ErrRenderFailed
	}

	video, err := os.ReadFile(outPath)
	if err != nil || len(video) == 0 {
		slog.Error("renderer produced no output", "error", err, "path", outPath)
		return nil, ErrRenderFailed
	}
	return video, nil
}

func removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("remove temp file", "error", err, "path", path)
	}
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
