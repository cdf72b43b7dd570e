package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/set-night/turbostart/internal/config"
	"github.com/set-night/turbostart/internal/domain"
	"github.com/set-night/turbostart/internal/metrics"
)

// Ledger validates and applies balance changes. Atomicity per account comes
// from the store's conditional AdjustBalance, not from in-process locks.
type Ledger struct {
	store    domain.AccountStore
	activity *ActivityRecorder
	metrics  *metrics.Metrics
}

func NewLedger(store domain.AccountStore, activity *ActivityRecorder, m *metrics.Metrics) *Ledger {
	return &Ledger{store: store, activity: activity, metrics: m}
}

// ApplyDebit removes amount credits. It fails with *InsufficientFundsError
// when the balance at write time is below amount.
func (l *Ledger) ApplyDebit(ctx context.Context, accountID, amount int64, reason domain.Reason) (int64, error) {
	return l.apply(ctx, "debit", accountID, amount, -amount, reason)
}

// ApplyCredit adds amount credits to an existing account.
func (l *Ledger) ApplyCredit(ctx context.Context, accountID, amount int64, reason domain.Reason) (int64, error) {
	return l.apply(ctx, "credit", accountID, amount, amount, reason)
}

func (l *Ledger) apply(ctx context.Context, op string, accountID, amount, delta int64, reason domain.Reason) (int64, error) {
	var (
		balance int64
		err     error
	)
	if err = validateAmount(amount); err == nil {
		balance, err = l.store.AdjustBalance(ctx, accountID, delta)
	}

	l.metrics.LedgerOperation(op, outcome(err))
	l.record(ctx, accountID, amount, balance, reason, err)

	if err != nil {
		return 0, fmt.Errorf("%s %d credits: %w", op, amount, err)
	}
	return balance, nil
}

// creditIn applies a credit inside a caller-owned transaction. The caller
// records the activity once the transaction has committed.
func (l *Ledger) creditIn(ctx context.Context, tx domain.AccountStore, accountID, amount int64) (int64, error) {
	if err := validateAmount(amount); err != nil {
		return 0, err
	}
	balance, err := tx.AdjustBalance(ctx, accountID, amount)
	l.metrics.LedgerOperation("credit", outcome(err))
	return balance, err
}

func (l *Ledger) record(ctx context.Context, accountID, amount, balance int64, reason domain.Reason, err error) {
	// Only link the entry once the store has seen the account row;
	// otherwise keep the id in details only.
	var ref *int64
	var insufficient *domain.InsufficientFundsError
	if err == nil || errors.As(err, &insufficient) {
		ref = &accountID
	}

	details := fmt.Sprintf("account=%d amount=%d outcome=accepted balance=%d", accountID, amount, balance)
	if err != nil {
		details = fmt.Sprintf("account=%d amount=%d outcome=rejected kind=%s", accountID, amount, domain.KindOf(err))
		if insufficient != nil {
			details += fmt.Sprintf(" available=%d", insufficient.Available)
		}
	}
	l.activity.Record(ctx, ref, 0, string(reason), details)
}

func validateAmount(amount int64) error {
	if amount <= 0 {
		return &domain.ValidationError{Field: "amount", Message: "must be positive"}
	}
	if amount > config.MaxLedgerAmount {
		return &domain.ValidationError{Field: "amount", Message: fmt.Sprintf("must not exceed %d", config.MaxLedgerAmount)}
	}
	return nil
}

func outcome(err error) string {
	if err == nil {
		return "accepted"
	}
	return string(domain.KindOf(err))
}
