package cli

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/set-night/turbostart/internal/config"
	"github.com/set-night/turbostart/internal/metrics"
	"github.com/set-night/turbostart/internal/render"
	"github.com/set-night/turbostart/internal/storage"
)

func init() {
	rootCmd.AddCommand(renderCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Run the video render service",
	RunE:  runRender,
}

func runRender(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load[config.Render]()
	if err != nil {
		return err
	}
	setupLogger(cfg.SlogLevel())

	store, err := storage.New(cfg.ObjectStorage)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Mount("/", render.NewServer(render.NewRenderer(*cfg), store, m).Handler())

	slog.Info("starting render service",
		"binary", cfg.Binary,
		"composition", cfg.Composition,
		"uploads", cfg.ObjectStorage.Enabled(),
	)

	return serveHTTP(cmd.Context(), &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: config.BackendTimeout,
	})
}
