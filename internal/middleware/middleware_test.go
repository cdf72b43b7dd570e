package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/turbostart/internal/session"
)

func messageUpdate(userID int64, text string) *models.Update {
	return &models.Update{
		ID: 1,
		Message: &models.Message{
			From: &models.User{ID: userID, FirstName: "U"},
			Chat: models.Chat{ID: userID * 10},
			Text: text,
		},
	}
}

func TestIdentify(t *testing.T) {
	var got Identity
	h := Identify()(func(ctx context.Context, _ *bot.Bot, _ *models.Update) {
		got, _ = GetIdentity(ctx)
	})

	h(context.Background(), nil, messageUpdate(3, "hi"))
	assert.Equal(t, int64(3), got.User.ID)
	assert.Equal(t, int64(30), got.ChatID)

	cb := &models.Update{CallbackQuery: &models.CallbackQuery{
		From:    models.User{ID: 4},
		Message: models.MaybeInaccessibleMessage{Message: &models.Message{Chat: models.Chat{ID: 40}}},
	}}
	h(context.Background(), nil, cb)
	assert.Equal(t, int64(40), got.ChatID)

	called := false
	Identify()(func(context.Context, *bot.Bot, *models.Update) { called = true })(
		context.Background(), nil, &models.Update{Message: &models.Message{From: &models.User{ID: 5, IsBot: true}}})
	assert.False(t, called)
}

func TestRateLimit(t *testing.T) {
	store := session.NewMemory()
	calls := 0
	h := RateLimit(store, 3)(func(context.Context, *bot.Bot, *models.Update) { calls++ })

	for range 5 {
		h(context.Background(), nil, messageUpdate(1, "x"))
	}
	assert.Equal(t, 3, calls)

	h(context.Background(), nil, messageUpdate(2, "x"))
	assert.Equal(t, 4, calls, "other users are unaffected")
}

type failingCounter struct{ session.Store }

func (failingCounter) Hit(context.Context, int64, time.Duration) (int64, error) {
	return 0, errors.New("redis down")
}

func TestRateLimit_FailsOpen(t *testing.T) {
	calls := 0
	h := RateLimit(failingCounter{}, 1)(func(context.Context, *bot.Bot, *models.Update) { calls++ })
	h(context.Background(), nil, messageUpdate(1, "x"))
	h(context.Background(), nil, messageUpdate(1, "x"))
	assert.Equal(t, 2, calls)
}

type captureReporter struct{ errs []error }

func (c *captureReporter) LogError(err error, _ string) { c.errs = append(c.errs, err) }

func TestRecover(t *testing.T) {
	rep := &captureReporter{}
	h := Recover(rep)(func(context.Context, *bot.Bot, *models.Update) { panic("boom") })

	require.NotPanics(t, func() { h(context.Background(), nil, messageUpdate(1, "x")) })
	require.Len(t, rep.errs, 1)
	assert.EqualError(t, rep.errs[0], "panic: boom")
}
