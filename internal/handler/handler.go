package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/turbostart/internal/backend"
	"github.com/set-night/turbostart/internal/session"
)

// API is the subset of the Telegram Bot API the handlers call.
type API interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
	DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error)
}

// Backend is the REST backend as seen by the bot.
type Backend interface {
	UpsertUser(ctx context.Context, req backend.UpsertUserRequest) (*backend.User, bool, error)
	GetUser(ctx context.Context, telegramID int64) (*backend.User, error)
	CreateTask(ctx context.Context, telegramID int64, title, content string) (*backend.Task, error)
	UserTasks(ctx context.Context, telegramID int64, limit int) ([]backend.Task, error)
	Referrals(ctx context.Context, telegramID int64) (*backend.ReferralInfo, error)
}

// Reporter forwards swallowed errors to the ops chat.
type Reporter interface {
	LogError(err error, context string)
}

// Handler holds all dependencies needed by command and callback handlers.
type Handler struct {
	api         API
	backend     Backend
	sessions    session.Store
	reporter    Reporter
	botUsername string
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	API         API
	Backend     Backend
	Sessions    session.Store
	Reporter    Reporter
	BotUsername string
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		api:         deps.API,
		backend:     deps.Backend,
		sessions:    deps.Sessions,
		reporter:    deps.Reporter,
		botUsername: deps.BotUsername,
	}
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) *models.Message {
	params := &bot.SendMessageParams{ChatID: chatID, Text: text}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	msg, _ := h.api.SendMessage(ctx, params)
	return msg
}

func (h *Handler) report(err error, context string) {
	if h.reporter != nil {
		go h.reporter.LogError(err, context)
	}
}
