package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/set-night/turbostart/internal/config"
	"github.com/set-night/turbostart/internal/domain"
	"github.com/set-night/turbostart/internal/metrics"
)

// ErrorReporter is the operational channel for failures that are
// swallowed instead of returned to the caller.
type ErrorReporter interface {
	LogError(err error, context string)
}

// ActivityRecorder appends audit entries. It never fails the caller.
type ActivityRecorder struct {
	store    domain.ActivityStore
	reporter ErrorReporter
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewActivityRecorder(store domain.ActivityStore, reporter ErrorReporter, m *metrics.Metrics) *ActivityRecorder {
	return &ActivityRecorder{store: store, reporter: reporter, metrics: m, now: time.Now}
}

// Record writes the entry on a context detached from the caller's
// cancellation so that aborted requests still leave an audit trail.
func (r *ActivityRecorder) Record(ctx context.Context, accountID *int64, externalID int64, action, details string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.ActivityWriteTimeout)
	defer cancel()

	err := r.store.AppendActivity(ctx, domain.ActivityLog{
		AccountID:  accountID,
		ExternalID: externalID,
		Action:     action,
		Details:    details,
		CreatedAt:  r.now(),
	})
	if err == nil {
		return
	}

	slog.Error("record activity", "error", err, "action", action, "external_id", externalID)
	r.metrics.ActivityWriteFailed()
	if r.reporter != nil {
		go r.reporter.LogError(err, "activity log: "+action)
	}
}
