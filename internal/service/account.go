package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/set-night/turbostart/internal/config"
	"github.com/set-night/turbostart/internal/domain"
)

type AccountService struct {
	store          domain.Store
	referrals      *ReferralService
	activity       *ActivityRecorder
	initialCredits int64
	now            func() time.Time
}

func NewAccountService(store domain.Store, referrals *ReferralService, activity *ActivityRecorder, credits config.Credits) *AccountService {
	return &AccountService{
		store:          store,
		referrals:      referrals,
		activity:       activity,
		initialCredits: credits.InitialCredits,
		now:            time.Now,
	}
}

// GetOrCreate returns the account for externalID, refreshing its profile,
// or creates it with the starting balance. A referral code on a new
// account is registered best-effort and never fails the creation.
func (s *AccountService) GetOrCreate(ctx context.Context, externalID int64, profile domain.Profile, referralCode string) (*domain.Account, bool, error) {
	if externalID <= 0 {
		return nil, false, &domain.ValidationError{Field: "telegramId", Message: "must be a positive integer"}
	}

	acc, err := s.store.TouchAccount(ctx, externalID, profile, s.now())
	if err == nil {
		return acc, false, nil
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, false, fmt.Errorf("touch account: %w", err)
	}

	acc, err = s.create(ctx, externalID, profile)
	if errors.Is(err, domain.ErrDuplicateExternalID) {
		// Lost the race to a concurrent first contact.
		acc, err = s.store.TouchAccount(ctx, externalID, profile, s.now())
		if err != nil {
			return nil, false, fmt.Errorf("read concurrently created account: %w", err)
		}
		return acc, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("create account: %w", err)
	}

	s.activity.Record(ctx, &acc.ID, externalID, domain.ActionAccountCreated, fmt.Sprintf("referral_code=%s", acc.ReferralCode))
	s.activity.Record(ctx, &acc.ID, externalID, string(domain.ReasonCreditInitial),
		fmt.Sprintf("account=%d amount=%d outcome=accepted balance=%d", acc.ID, s.initialCredits, acc.Balance))

	if referralCode != "" {
		ref, err := s.referrals.RegisterReferral(ctx, referralCode, acc.ID)
		if err != nil {
			slog.Warn("referral not registered", "error", err, "external_id", externalID, "code", referralCode)
		} else {
			acc.ReferredByID = &ref.ReferrerID
		}
	}

	slog.Info("account created", "account_id", acc.ID, "external_id", externalID)
	return acc, true, nil
}

func (s *AccountService) create(ctx context.Context, externalID int64, profile domain.Profile) (*domain.Account, error) {
	for range config.ReferralCodeAttempts {
		code, err := generateReferralCode()
		if err != nil {
			return nil, err
		}
		acc, err := s.store.CreateAccount(ctx, domain.NewAccount{
			ExternalID:   externalID,
			Profile:      profile,
			Balance:      s.initialCredits,
			ReferralCode: code,
		})
		if errors.Is(err, domain.ErrDuplicateReferral) {
			continue
		}
		return acc, err
	}
	return nil, fmt.Errorf("%w: no free referral code after %d attempts", domain.ErrTransient, config.ReferralCodeAttempts)
}

func (s *AccountService) GetByExternalID(ctx context.Context, externalID int64) (*domain.Account, error) {
	return readWithRetry(ctx, func(ctx context.Context) (*domain.Account, error) {
		return s.store.GetAccountByExternalID(ctx, externalID)
	})
}

func (s *AccountService) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	return readWithRetry(ctx, func(ctx context.Context) (*domain.Account, error) {
		return s.store.GetAccountByID(ctx, id)
	})
}
