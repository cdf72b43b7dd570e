package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/set-night/turbostart/internal/config"
	"github.com/set-night/turbostart/internal/domain"
	"github.com/set-night/turbostart/internal/metrics"
)

const referralCodeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generateReferralCode() (string, error) {
	code := make([]byte, config.ReferralCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(referralCodeCharset))))
		if err != nil {
			return "", fmt.Errorf("random int: %w", err)
		}
		code[i] = referralCodeCharset[n.Int64()]
	}
	return string(code), nil
}

// ReferralCredited is reported to the listener after a bonus was paid.
type ReferralCredited struct {
	ReferralID int64
	ReferrerID int64
	ReferredID int64
	Bonus      int64
	Balance    int64
}

type ReferralService struct {
	store     domain.Store
	ledger    *Ledger
	activity  *ActivityRecorder
	metrics   *metrics.Metrics
	bonus     int64
	threshold int64
	now       func() time.Time

	// OnCredited, when set, is called after a bonus transaction commits.
	OnCredited func(ctx context.Context, ev ReferralCredited)
}

func NewReferralService(store domain.Store, ledger *Ledger, activity *ActivityRecorder, m *metrics.Metrics, credits config.Credits) *ReferralService {
	return &ReferralService{
		store:     store,
		ledger:    ledger,
		activity:  activity,
		metrics:   m,
		bonus:     credits.ReferralBonus,
		threshold: credits.ReferralQualifyingArtifacts,
		now:       time.Now,
	}
}

// RegisterReferral links newAccountID to the owner of code with a pending
// referral. The referral row and the referred-by back-reference are written
// in one transaction.
func (s *ReferralService) RegisterReferral(ctx context.Context, code string, newAccountID int64) (*domain.Referral, error) {
	code = strings.TrimSpace(code)
	ref, err := s.register(ctx, code, newAccountID)

	details := fmt.Sprintf("code=%s outcome=accepted", code)
	if err != nil {
		details = fmt.Sprintf("code=%s outcome=rejected kind=%s reason=%s", code, domain.KindOf(err), err)
	} else {
		details += fmt.Sprintf(" referrer=%d", ref.ReferrerID)
	}
	s.activity.Record(ctx, &newAccountID, 0, domain.ActionReferralRegister, details)

	return ref, err
}

func (s *ReferralService) register(ctx context.Context, code string, newAccountID int64) (*domain.Referral, error) {
	if code == "" {
		return nil, domain.ErrInvalidReferralCode
	}

	referrer, err := readWithRetry(ctx, func(ctx context.Context) (*domain.Account, error) {
		return s.store.GetAccountByReferralCode(ctx, code)
	})
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, domain.ErrInvalidReferralCode
	}
	if err != nil {
		return nil, fmt.Errorf("resolve referral code: %w", err)
	}
	if referrer.ID == newAccountID {
		return nil, domain.ErrSelfReferral
	}

	var ref *domain.Referral
	err = s.store.WithinTx(ctx, func(tx domain.Store) error {
		var err error
		ref, err = tx.CreateReferral(ctx, referrer.ID, newAccountID, code)
		if err != nil {
			return err
		}
		return tx.SetReferredBy(ctx, newAccountID, referrer.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("create referral: %w", err)
	}
	return ref, nil
}

// EvaluateCompletion pays the referrer bonus once the referred account has
// enough completed artifacts. Only the caller that flips the credited flag
// applies the credit, so repeated or concurrent calls pay at most once.
func (s *ReferralService) EvaluateCompletion(ctx context.Context, accountID int64) (bool, error) {
	ref, err := readWithRetry(ctx, func(ctx context.Context) (*domain.Referral, error) {
		return s.store.GetReferralByReferred(ctx, accountID)
	})
	if errors.Is(err, domain.ErrReferralNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get referral: %w", err)
	}
	if ref.Credited {
		return false, nil
	}

	completed, err := readWithRetry(ctx, func(ctx context.Context) (int64, error) {
		return s.store.CountArtifactsByAccount(ctx, accountID, domain.ArtifactStatusCompleted)
	})
	if err != nil {
		return false, fmt.Errorf("count completed artifacts: %w", err)
	}
	if completed < s.threshold {
		return false, nil
	}

	var (
		won     bool
		balance int64
	)
	err = s.store.WithinTx(ctx, func(tx domain.Store) error {
		var err error
		won, err = tx.MarkReferralCredited(ctx, ref.ID, s.now())
		if err != nil || !won {
			return err
		}
		if s.bonus <= 0 {
			return nil
		}
		if balance, err = s.ledger.creditIn(ctx, tx, ref.ReferrerID, s.bonus); err != nil {
			return err
		}
		return tx.AddReferralEarnings(ctx, ref.ReferrerID, s.bonus)
	})
	if err != nil {
		s.activity.Record(ctx, &ref.ReferrerID, 0, string(domain.ReasonCreditReferral),
			fmt.Sprintf("referral=%d referred=%d amount=%d outcome=rejected kind=%s", ref.ID, accountID, s.bonus, domain.KindOf(err)))
		return false, fmt.Errorf("credit referral: %w", err)
	}
	if !won {
		return false, nil
	}

	s.metrics.ReferralBonusPaid()
	s.activity.Record(ctx, &ref.ReferrerID, 0, string(domain.ReasonCreditReferral),
		fmt.Sprintf("referral=%d referred=%d amount=%d outcome=accepted balance=%d", ref.ID, accountID, s.bonus, balance))
	s.activity.Record(ctx, &accountID, 0, domain.ActionReferralCredited, fmt.Sprintf("referral=%d referrer=%d", ref.ID, ref.ReferrerID))
	slog.Info("referral credited", "referral_id", ref.ID, "referrer_id", ref.ReferrerID, "referred_id", accountID, "bonus", s.bonus)

	if s.OnCredited != nil {
		s.OnCredited(ctx, ReferralCredited{
			ReferralID: ref.ID,
			ReferrerID: ref.ReferrerID,
			ReferredID: accountID,
			Bonus:      s.bonus,
			Balance:    balance,
		})
	}
	return true, nil
}

// ReferralSummary is the referral view of one account.
type ReferralSummary struct {
	ReferralCode  string             `json:"referralCode"`
	CreditsEarned int64              `json:"referralCreditsEarned"`
	Bonus         int64              `json:"referralBonus"`
	Threshold     int64              `json:"qualifyingTasks"`
	Referrals     []*domain.Referral `json:"referrals"`
}

func (s *ReferralService) Summary(ctx context.Context, externalID int64) (*ReferralSummary, error) {
	acc, err := readWithRetry(ctx, func(ctx context.Context) (*domain.Account, error) {
		return s.store.GetAccountByExternalID(ctx, externalID)
	})
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	refs, err := readWithRetry(ctx, func(ctx context.Context) ([]*domain.Referral, error) {
		return s.store.ListReferralsByReferrer(ctx, acc.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}
	if refs == nil {
		refs = []*domain.Referral{}
	}
	return &ReferralSummary{
		ReferralCode:  acc.ReferralCode,
		CreditsEarned: acc.ReferralCreditsEarned,
		Bonus:         s.bonus,
		Threshold:     s.threshold,
		Referrals:     refs,
	}, nil
}
