// Package session keeps the bot's per-user conversational state and rate
// counters, in Redis when configured and in process memory otherwise.
package session

import (
	"context"
	"time"
)

type Store interface {
	// SetAwaitingTitle marks that the next plain text from userID is a
	// task title.
	SetAwaitingTitle(ctx context.Context, userID int64, awaiting bool) error
	AwaitingTitle(ctx context.Context, userID int64) (bool, error)
	// Hit counts one update from userID in the current fixed window and
	// returns the count so far.
	Hit(ctx context.Context, userID int64, window time.Duration) (int64, error)
	Close() error
}
