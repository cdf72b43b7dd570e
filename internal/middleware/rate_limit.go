package middleware

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/turbostart/internal/config"
	"github.com/set-night/turbostart/internal/session"
)

const rateLimitedText = "⏳ Please slow down! Too many requests."

// RateLimit drops updates beyond limit per user per minute. The sender is
// told once per window. Counter failures let the update through.
func RateLimit(store session.Store, limit int) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			id, ok := IdentityOf(update)
			if !ok {
				next(ctx, b, update)
				return
			}

			count, err := store.Hit(ctx, id.User.ID, config.RateLimitWindow)
			if err != nil {
				slog.Error("rate limit check failed", "error", err, "user_id", id.User.ID)
				next(ctx, b, update)
				return
			}

			if count > int64(limit) {
				slog.Debug("rate limited", "user_id", id.User.ID, "count", count, "limit", limit)
				if count == int64(limit)+1 && b != nil {
					b.SendMessage(ctx, &bot.SendMessageParams{ChatID: id.ChatID, Text: rateLimitedText})
				}
				return
			}

			next(ctx, b, update)
		}
	}
}
