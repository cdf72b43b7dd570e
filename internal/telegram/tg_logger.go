package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/turbostart/internal/config"
)

// MessageSender is the part of *bot.Bot the loggers and handlers use.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramLogger posts operational events into forum topics of the ops
// chat. A nil logger, or one without a chat configured, drops everything.
type TelegramLogger struct {
	bot MessageSender
	cfg config.OpsLog
	now func() time.Time
}

func NewTelegramLogger(b MessageSender, cfg config.OpsLog) *TelegramLogger {
	return &TelegramLogger{bot: b, cfg: cfg, now: time.Now}
}

type LogType string

const (
	LogTypeError        LogType = "error"
	LogTypeRegistration LogType = "registration"
	LogTypeReferral     LogType = "referral"
)

func (l *TelegramLogger) Log(logType LogType, message string) {
	if l == nil || l.bot == nil || l.cfg.LogTelegramChatID == 0 {
		return
	}

	topicID := l.topicID(logType)
	if topicID == 0 {
		return
	}

	if runes := []rune(message); len(runes) > config.MaxTelegramMsg {
		message = string(runes[:config.MaxTelegramMsg-20]) + "\n\n... (truncated)"
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.OpsMessageTimeout)
	defer cancel()

	_, err := l.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          l.cfg.LogTelegramChatID,
		Text:            message,
		ParseMode:       models.ParseModeMarkdownV1,
		MessageThreadID: topicID,
	})
	if err != nil {
		slog.Error("send telegram log", "type", logType, "error", err)
	}
}

func (l *TelegramLogger) LogError(err error, context string) {
	slog.Error("operational error", "context", context, "error", err)
	l.Log(LogTypeError, fmt.Sprintf("❌ *Error*\n\n*Context:* %s\n*Error:* `%s`\n*Time:* %s",
		EscapeMarkdown(context), err.Error(), l.clock().Format(time.DateTime)))
}

func (l *TelegramLogger) LogRegistration(telegramID int64, name, username string, referred bool) {
	msg := fmt.Sprintf("👤 *New Registration*\n\n*ID:* `%d`\n*Name:* %s", telegramID, EscapeMarkdown(name))
	if username != "" {
		msg += "\n*Username:* @" + EscapeMarkdown(username)
	}
	if referred {
		msg += "\n*Referred:* yes"
	}
	l.Log(LogTypeRegistration, msg)
}

func (l *TelegramLogger) LogReferralCredited(referrerID, referredID, bonus, balance int64) {
	l.Log(LogTypeReferral, fmt.Sprintf("🎁 *Referral Bonus*\n\n*Referrer:* `%d`\n*Referred:* `%d`\n*Bonus:* %d credits\n*Balance:* %d",
		referrerID, referredID, bonus, balance))
}

func (l *TelegramLogger) clock() time.Time {
	if l == nil || l.now == nil {
		return time.Now()
	}
	return l.now()
}

func (l *TelegramLogger) topicID(logType LogType) int {
	switch logType {
	case LogTypeError:
		return l.cfg.LogTopicError
	case LogTypeRegistration:
		return l.cfg.LogTopicRegistration
	case LogTypeReferral:
		return l.cfg.LogTopicReferral
	default:
		return 0
	}
}
