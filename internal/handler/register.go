package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/turbostart/internal/telegram"
)

// Commands is the command list published to Telegram for auto-complete.
var Commands = []models.BotCommand{
	{Command: "start", Description: "Start the bot"},
	{Command: "task", Description: "Create a new task"},
	{Command: "tasks", Description: "View your tasks"},
	{Command: "referral", Description: "Invite friends and earn credits"},
	{Command: "balance", Description: "Show your credits"},
	{Command: "help", Description: "Show help"},
	{Command: "cancel", Description: "Cancel current operation"},
}

// Register registers all command and callback handlers on the bot instance.
// Text is routed by HandleText because prefix matching cannot tell /task
// from /tasks.
func (h *Handler) Register(b *bot.Bot) {
	b.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, h.HandleText)

	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, telegram.CallbackNewTask, bot.MatchTypeExact, h.handleNewTaskCallback)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, telegram.CallbackViewTasks, bot.MatchTypeExact, h.handleViewTasksCallback)
}

// HandleDefault acknowledges callback queries nobody else claimed.
func (h *Handler) HandleDefault(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.CallbackQuery != nil {
		h.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: update.CallbackQuery.ID,
		})
	}
}
