package handler

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/turbostart/internal/middleware"
)

// parseCommand splits "/cmd@botname args" into its parts. ok is false for
// plain text.
func parseCommand(text string) (cmd, args string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, rest, _ := strings.Cut(text, " ")
	head, _, _ = strings.Cut(head[1:], "@")
	return strings.ToLower(head), strings.TrimSpace(rest), true
}

// HandleText routes private text messages: commands first, then an awaited
// task title.
func (h *Handler) HandleText(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}
	id, ok := middleware.GetIdentity(ctx)
	if !ok {
		return
	}

	if cmd, args, ok := parseCommand(update.Message.Text); ok {
		switch cmd {
		case "start":
			h.handleStart(ctx, id, args)
		case "task":
			h.handleTask(ctx, id, args)
		case "tasks":
			h.showTasks(ctx, id)
		case "referral":
			h.handleReferral(ctx, id)
		case "balance":
			h.handleBalance(ctx, id)
		case "help":
			h.reply(ctx, id.ChatID, helpText, nil)
		case "cancel":
			h.handleCancel(ctx, id)
		default:
			h.reply(ctx, id.ChatID, fallbackText, nil)
		}
		return
	}

	awaiting, err := h.sessions.AwaitingTitle(ctx, id.User.ID)
	if err != nil {
		slog.Error("read bot session", "error", err, "user_id", id.User.ID)
	}
	if awaiting {
		h.createTask(ctx, id, update.Message.Text)
		return
	}

	h.reply(ctx, id.ChatID, fallbackText, nil)
}

func (h *Handler) handleCancel(ctx context.Context, id middleware.Identity) {
	if err := h.sessions.SetAwaitingTitle(ctx, id.User.ID, false); err != nil {
		slog.Error("clear bot session", "error", err, "user_id", id.User.ID)
	}
	h.reply(ctx, id.ChatID, "Operation cancelled.", nil)
}

const fallbackText = "Use /help to see available commands."

const helpText = "Bot Help\n\n" +
	"Commands:\n" +
	"/start - Start the bot\n" +
	"/task [title] - Create a new task\n" +
	"/tasks - View your tasks\n" +
	"/referral - Invite friends and earn credits\n" +
	"/balance - Show your credits\n" +
	"/help - Show this help\n" +
	"/cancel - Cancel current operation\n\n" +
	"You can also tap the buttons in messages!"
