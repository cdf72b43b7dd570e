package render

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/set-night/turbostart/internal/metrics"
	"github.com/set-night/turbostart/internal/storage"
)

const (
	maxBodyBytes = 1 << 20
	videoHeader  = "X-Video-URL"
)

// Videos renders props into mp4 bytes.
type Videos interface {
	Render(ctx context.Context, props Props) ([]byte, error)
}

type Server struct {
	videos  Videos
	store   storage.ObjectStore
	metrics *metrics.Metrics
}

// NewServer returns the render HTTP server. store may be storage.Disabled.
func NewServer(videos Videos, store storage.ObjectStore, m *metrics.Metrics) *Server {
	if store == nil {
		store = storage.Disabled{}
	}
	return &Server{videos: videos, store: store, metrics: m}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/render", s.handleRender)
	return r
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var props Props
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&props); err != nil {
		s.metrics.RenderJob("invalid")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body"})
		return
	}
	if len(props.Lines) == 0 {
		s.metrics.RenderJob("invalid")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing or invalid lines array"})
		return
	}
	if strings.TrimSpace(props.Title) == "" {
		s.metrics.RenderJob("invalid")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required field: title"})
		return
	}

	slog.Info("rendering video", "title", props.Title, "lines", len(props.Lines))
	start := time.Now()

	video, err := s.videos.Render(r.Context(), props)
	if err != nil {
		s.metrics.RenderJob("failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Render failed"})
		return
	}
	s.metrics.RenderJob("succeeded")
	slog.Info("render complete", "duration_ms", time.Since(start).Milliseconds(), "bytes", len(video))

	key := "videos/" + uuid.NewString() + ".mp4"
	if url, ok := s.store.Put(r.Context(), key, video, "video/mp4"); ok {
		w.Header().Set(videoHeader, url)
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Length", strconv.Itoa(len(video)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(video); err != nil {
		slog.Warn("write video response", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", "error", err)
	}
}
