package cli

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/set-night/turbostart"
	"github.com/set-night/turbostart/internal/analytics"
	"github.com/set-night/turbostart/internal/api"
	"github.com/set-night/turbostart/internal/config"
	"github.com/set-night/turbostart/internal/domain"
	"github.com/set-night/turbostart/internal/metrics"
	"github.com/set-night/turbostart/internal/repository"
	"github.com/set-night/turbostart/internal/repository/memory"
	"github.com/set-night/turbostart/internal/service"
	"github.com/set-night/turbostart/internal/telegram"
)

func init() {
	rootCmd.AddCommand(apiCmd)
}

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Run the REST backend",
	RunE:  runAPI,
}

type openedStore struct {
	domain.Store
	ping  func(ctx context.Context) error
	close func()
}

func openStore(ctx context.Context, cfg *config.API) (*openedStore, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		slog.Warn("using in-memory store, data is lost on exit")
		return &openedStore{Store: memory.New(), close: func() {}}, nil
	}

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL, repository.PoolOptions{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, err
	}

	if cfg.RunMigrations {
		if err := migrateUp(cfg.DatabaseURL); err != nil {
			pool.Close()
			return nil, err
		}
	}

	store := repository.NewStore(pool, cfg.StorageTimeout)
	return &openedStore{Store: store, ping: store.Ping, close: pool.Close}, nil
}

func migrateUp(databaseURL string) error {
	migrationsFS, err := fs.Sub(turbostart.MigrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}
	return repository.RunMigrations(databaseURL, migrationsFS)
}

func runAPI(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load[config.API]()
	if err != nil {
		return err
	}
	setupLogger(cfg.SlogLevel())
	ctx := cmd.Context()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.close()

	var (
		m        *metrics.Metrics
		gatherer prometheus.Gatherer
	)
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(reg)
		gatherer = reg
	}

	ops, err := newOpsLogger(cfg.OpsLog)
	if err != nil {
		return err
	}

	sink := analytics.New(cfg.Analytics)
	defer func() {
		if err := sink.Close(); err != nil {
			slog.Warn("close analytics sink", "error", err)
		}
	}()

	activity := service.NewActivityRecorder(store, ops, m)
	ledger := service.NewLedger(store, activity, m)
	referrals := service.NewReferralService(store, ledger, activity, m, cfg.Credits)
	referrals.OnCredited = referralNotifier(sink, ops)
	accounts := service.NewAccountService(store, referrals, activity, cfg.Credits)
	artifacts := service.NewArtifactService(store, ledger, referrals, activity, ops, m, cfg.Credits)
	admin := service.NewAdminService(store)

	server := api.NewServer(api.Deps{
		Accounts:  accounts,
		Artifacts: artifacts,
		Referrals: referrals,
		Admin:     admin,
		Sink:      sink,
		Notifier:  ops,
		Metrics:   m,
		Gatherer:  gatherer,
		Ping:      store.ping,
		APIKey:    cfg.APIKey,
	})

	slog.Info("starting api",
		"version", config.Version,
		"store", cfg.StoreDriver,
		"analytics", cfg.Analytics.Enabled(),
		"ops_log", cfg.OpsLog.Enabled(),
	)

	return serveHTTP(ctx, &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: config.BackendTimeout,
	})
}

func referralNotifier(sink analytics.Sink, ops *telegram.TelegramLogger) func(context.Context, service.ReferralCredited) {
	return func(ctx context.Context, ev service.ReferralCredited) {
		sink.Track(ctx, analytics.Event{
			Name: analytics.EventReferralCredited,
			Properties: map[string]any{
				"referralId": ev.ReferralID,
				"referrerId": ev.ReferrerID,
				"referredId": ev.ReferredID,
				"bonus":      ev.Bonus,
			},
		})
		go ops.LogReferralCredited(ev.ReferrerID, ev.ReferredID, ev.Bonus, ev.Balance)
	}
}
