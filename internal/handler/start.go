package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/set-night/turbostart/internal/backend"
	"github.com/set-night/turbostart/internal/middleware"
	"github.com/set-night/turbostart/internal/telegram"
)

const referralPayloadPrefix = "r_"

// handleStart registers the sender with the backend. A deep-link payload
// r_<code> is passed on as the referral code.
func (h *Handler) handleStart(ctx context.Context, id middleware.Identity, payload string) {
	req := backend.UpsertUserRequest{
		TelegramID: id.User.ID,
		Username:   id.User.Username,
		FirstName:  id.User.FirstName,
		LastName:   id.User.LastName,
	}
	if code, ok := strings.CutPrefix(payload, referralPayloadPrefix); ok {
		req.ReferralCode = code
	}

	firstName := id.User.FirstName
	if firstName == "" {
		firstName = "friend"
	}

	user, _, err := h.backend.UpsertUser(ctx, req)
	if err != nil {
		slog.Error("register user", "error", err, "telegram_id", id.User.ID)
		h.report(err, "bot /start")
		h.reply(ctx, id.ChatID, fmt.Sprintf(
			"Hello %s! Welcome to the bot.\n\n"+
				"There was an issue connecting to the server. Please try /start again.", firstName), nil)
		return
	}

	text := fmt.Sprintf(
		"Hello %s! Welcome to the bot.\n\n"+
			"💰 Credits: %d\n\n"+
			"Commands:\n"+
			"/task - Create a new task\n"+
			"/tasks - View your tasks\n"+
			"/referral - Invite friends\n"+
			"/help - Show help\n",
		firstName, user.Credits,
	)
	h.reply(ctx, id.ChatID, text, telegram.MainMenu())
}
