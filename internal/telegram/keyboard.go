package telegram

import (
	"net/url"

	"github.com/go-telegram/bot/models"
)

const (
	CallbackNewTask   = "new_task"
	CallbackViewTasks = "view_tasks"
)

func InlineButton(text, callbackData string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: text, CallbackData: callbackData}
}

func URLButton(text, link string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: text, URL: link}
}

func InlineKeyboard(rows ...[]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// MainMenu is attached to greetings and task confirmations.
func MainMenu() *models.InlineKeyboardMarkup {
	return InlineKeyboard(
		[]models.InlineKeyboardButton{
			InlineButton("📝 New task", CallbackNewTask),
			InlineButton("📋 My tasks", CallbackViewTasks),
		},
	)
}

// ShareKeyboard offers a Telegram share dialog for a referral link.
func ShareKeyboard(link string) *models.InlineKeyboardMarkup {
	return InlineKeyboard(
		[]models.InlineKeyboardButton{URLButton("📤 Share", "https://t.me/share/url?url="+url.QueryEscape(link))},
	)
}
