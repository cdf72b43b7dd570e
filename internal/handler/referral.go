package handler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/set-night/turbostart/internal/backend"
	"github.com/set-night/turbostart/internal/domain"
	"github.com/set-night/turbostart/internal/middleware"
	"github.com/set-night/turbostart/internal/telegram"
)

func (h *Handler) referralLink(code string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s%s", h.botUsername, referralPayloadPrefix, code)
}

func (h *Handler) handleReferral(ctx context.Context, id middleware.Identity) {
	info, err := h.backend.Referrals(ctx, id.User.ID)
	if err != nil {
		h.replyLookupError(ctx, id, err, "referrals")
		return
	}

	credited := 0
	for _, r := range info.Referrals {
		if r.Credited {
			credited++
		}
	}

	link := h.referralLink(info.ReferralCode)
	text := fmt.Sprintf(
		"👥 *Referral program*\n\n"+
			"Your referral link:\n`%s`\n\n"+
			"Invited: *%d* (credited: *%d*)\n"+
			"💰 Earned from referrals: *%d* credits\n\n"+
			"You get *%d* credits for every friend who completes %d tasks.",
		link, len(info.Referrals), credited, info.CreditsEarned, info.Bonus, info.Threshold,
	)
	if err := telegram.SendLongMessage(ctx, h.api, id.ChatID, text, telegram.ShareKeyboard(link)); err != nil {
		slog.Error("send referral info", "error", err, "telegram_id", id.User.ID)
	}
}

func (h *Handler) handleBalance(ctx context.Context, id middleware.Identity) {
	user, err := h.backend.GetUser(ctx, id.User.ID)
	if err != nil {
		h.replyLookupError(ctx, id, err, "balance")
		return
	}
	h.reply(ctx, id.ChatID, fmt.Sprintf("💰 Credits: %d", user.Credits), telegram.MainMenu())
}

func (h *Handler) replyLookupError(ctx context.Context, id middleware.Identity, err error, what string) {
	if backend.KindOf(err) == domain.KindNotFound {
		h.reply(ctx, id.ChatID, "Please send /start first.", nil)
		return
	}
	slog.Error("load "+what, "error", err, "telegram_id", id.User.ID)
	h.reply(ctx, id.ChatID, unavailableText, nil)
}
