package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/turbostart/internal/backend"
	"github.com/set-night/turbostart/internal/domain"
	"github.com/set-night/turbostart/internal/middleware"
	"github.com/set-night/turbostart/internal/telegram"
)

const (
	taskListLimit   = 10
	askTitleText    = "What would you like to name your task?\n\nSend /cancel to cancel."
	noTasksText     = "You have no tasks yet!"
	unavailableText = "Server is unavailable. Please try again later."
)

func (h *Handler) handleTask(ctx context.Context, id middleware.Identity, title string) {
	if title == "" {
		h.askTitle(ctx, id)
		return
	}
	h.createTask(ctx, id, title)
}

func (h *Handler) askTitle(ctx context.Context, id middleware.Identity) {
	if err := h.sessions.SetAwaitingTitle(ctx, id.User.ID, true); err != nil {
		slog.Error("set bot session", "error", err, "user_id", id.User.ID)
	}
	h.reply(ctx, id.ChatID, askTitleText, nil)
}

func (h *Handler) createTask(ctx context.Context, id middleware.Identity, title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		h.reply(ctx, id.ChatID, askTitleText, nil)
		return
	}

	loading := h.reply(ctx, id.ChatID, "Creating task...", nil)
	task, err := h.backend.CreateTask(ctx, id.User.ID, title, "")
	if loading != nil {
		h.api.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: id.ChatID, MessageID: loading.ID})
	}

	if err != nil {
		h.reply(ctx, id.ChatID, h.taskErrorText(err, id), nil)
		return
	}

	if err := h.sessions.SetAwaitingTitle(ctx, id.User.ID, false); err != nil {
		slog.Error("clear bot session", "error", err, "user_id", id.User.ID)
	}

	text := fmt.Sprintf("Task created!\n\nTitle: %s\nID: %d", task.Title, task.ID)
	h.reply(ctx, id.ChatID, text, telegram.InlineKeyboard(
		[]models.InlineKeyboardButton{
			telegram.InlineButton("📝 Create another", telegram.CallbackNewTask),
			telegram.InlineButton("📋 View all tasks", telegram.CallbackViewTasks),
		},
	))
}

func (h *Handler) taskErrorText(err error, id middleware.Identity) string {
	var apiErr *backend.APIError
	switch backend.KindOf(err) {
	case domain.KindInsufficientCredits:
		if errors.As(err, &apiErr) {
			return fmt.Sprintf("❌ Not enough credits. Required: %d, available: %d.\n\n"+
				"Invite friends with /referral to earn more.", apiErr.Required, apiErr.Available)
		}
		return "❌ Not enough credits."
	case domain.KindValidation:
		if errors.As(err, &apiErr) {
			return "❌ " + apiErr.Message
		}
	case domain.KindNotFound:
		return "Please send /start first."
	}
	slog.Error("create task", "error", err, "telegram_id", id.User.ID)
	h.report(err, "bot create task")
	return unavailableText
}

// showTasks lists the newest tasks of the sender.
func (h *Handler) showTasks(ctx context.Context, id middleware.Identity) {
	tasks, err := h.backend.UserTasks(ctx, id.User.ID, taskListLimit)
	if err != nil && backend.KindOf(err) != domain.KindNotFound {
		slog.Error("list tasks", "error", err, "telegram_id", id.User.ID)
		h.reply(ctx, id.ChatID, "Failed to load tasks. Please try again.", nil)
		return
	}

	if len(tasks) == 0 {
		h.reply(ctx, id.ChatID, noTasksText, telegram.InlineKeyboard(
			[]models.InlineKeyboardButton{telegram.InlineButton("📝 Create task", telegram.CallbackNewTask)},
		))
		return
	}

	var sb strings.Builder
	sb.WriteString("Your Tasks:\n\n")
	for i, t := range tasks {
		if i == taskListLimit {
			break
		}
		fmt.Fprintf(&sb, "%d. %s (%s)\n", i+1, telegram.Truncate(t.Title, 60), t.Status)
	}

	h.reply(ctx, id.ChatID, strings.TrimRight(sb.String(), "\n"), telegram.InlineKeyboard(
		[]models.InlineKeyboardButton{
			telegram.InlineButton("📝 Create task", telegram.CallbackNewTask),
			telegram.InlineButton("🔄 Refresh", telegram.CallbackViewTasks),
		},
	))
}

func (h *Handler) handleNewTaskCallback(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	h.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})
	if id, ok := middleware.GetIdentity(ctx); ok {
		h.askTitle(ctx, id)
	}
}

func (h *Handler) handleViewTasksCallback(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	h.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
		Text:            "Loading tasks...",
	})
	if id, ok := middleware.GetIdentity(ctx); ok {
		h.showTasks(ctx, id)
	}
}
