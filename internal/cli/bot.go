package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/spf13/cobra"

	"github.com/set-night/turbostart/internal/backend"
	"github.com/set-night/turbostart/internal/config"
	"github.com/set-night/turbostart/internal/handler"
	"github.com/set-night/turbostart/internal/middleware"
	"github.com/set-night/turbostart/internal/session"
)

func init() {
	rootCmd.AddCommand(botCmd)
}

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot",
	RunE:  runBot,
}

func openSessions(ctx context.Context, redisURL string) (session.Store, error) {
	if redisURL == "" {
		slog.Info("bot sessions kept in memory")
		return session.NewMemory(), nil
	}
	return session.NewRedis(ctx, redisURL)
}

func runBot(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load[config.Bot]()
	if err != nil {
		return err
	}
	setupLogger(cfg.SlogLevel())
	ctx := cmd.Context()

	sessions, err := openSessions(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer sessions.Close()

	ops, err := newOpsLogger(cfg.OpsLog)
	if err != nil {
		return err
	}

	// Handler pointer for use in default handler closure
	var h *handler.Handler

	b, err := bot.New(cfg.BotToken,
		bot.WithMiddlewares(
			middleware.Recover(ops),
			middleware.Logging(),
			middleware.RateLimit(sessions, cfg.RateLimitPerMinute),
			middleware.Identify(),
		),
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if h != nil {
				h.HandleDefault(ctx, b, update)
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("get bot info: %w", err)
	}
	slog.Info("bot info retrieved", "id", me.ID, "username", me.Username)

	h = handler.New(handler.Deps{
		API:         b,
		Backend:     backend.New(cfg.BackendURL, cfg.BackendAPIKey),
		Sessions:    sessions,
		Reporter:    ops,
		BotUsername: me.Username,
	})
	h.Register(b)

	if _, err := b.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: handler.Commands}); err != nil {
		slog.Warn("register bot commands", "error", err)
	}
	if cfg.DropPendingUpdates {
		if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: true}); err != nil {
			slog.Warn("drop pending updates", "error", err)
		}
	}

	slog.Info("starting bot", "username", me.Username, "backend", cfg.BackendURL)
	b.Start(ctx)

	slog.Info("bot stopped gracefully")
	return nil
}
