// Package analytics delivers fire-and-forget product events. Delivery
// failures are logged and never reach the caller.
package analytics

import (
	"context"
	"time"
)

const (
	EventAccountCreated   = "account_created"
	EventArtifactCreated  = "artifact_created"
	EventArtifactRejected = "artifact_rejected"
	EventReferralCredited = "referral_credited"
)

type Event struct {
	Name       string         `json:"event"`
	ExternalID int64          `json:"telegramId,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

type Sink interface {
	Track(ctx context.Context, ev Event)
	Close() error
}

// Disabled is used when no broker is configured.
type Disabled struct{}

func (Disabled) Track(context.Context, Event) {}
func (Disabled) Close() error                 { return nil }
