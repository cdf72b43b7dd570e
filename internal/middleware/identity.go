package middleware

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type ctxKey string

const identityKey ctxKey = "identity"

// Identity is who sent an update and where to answer.
type Identity struct {
	User   models.User
	ChatID int64
}

// GetIdentity extracts the sender loaded by Identify.
func GetIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityOf resolves the sender of messages and callback queries.
func IdentityOf(update *models.Update) (Identity, bool) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return Identity{User: *update.Message.From, ChatID: update.Message.Chat.ID}, true
	case update.CallbackQuery != nil:
		id := Identity{User: update.CallbackQuery.From, ChatID: update.CallbackQuery.From.ID}
		if msg := update.CallbackQuery.Message.Message; msg != nil {
			id.ChatID = msg.Chat.ID
		}
		return id, true
	}
	return Identity{}, false
}

// Identify loads the sender into the context. Updates without a human
// sender, and bot accounts, stop here.
func Identify() bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			id, ok := IdentityOf(update)
			if !ok || id.User.IsBot {
				return
			}
			next(WithIdentity(ctx, id), b, update)
		}
	}
}
