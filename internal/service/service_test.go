package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/set-night/turbostart/internal/config"
	"github.com/set-night/turbostart/internal/domain"
	"github.com/set-night/turbostart/internal/metrics"
	"github.com/set-night/turbostart/internal/repository/memory"
)

var testCredits = config.Credits{
	TaskCreateCost:              1,
	InitialCredits:              10,
	ReferralBonus:               10,
	ReferralQualifyingArtifacts: 3,
}

type services struct {
	ledger    *Ledger
	accounts  *AccountService
	referrals *ReferralService
	artifacts *ArtifactService
	admin     *AdminService
	metrics   *metrics.Metrics
}

type stubReporter struct {
	errs chan error
}

func (r *stubReporter) LogError(err error, _ string) {
	select {
	case r.errs <- err:
	default:
	}
}

func newServices(t *testing.T, store domain.Store, credits config.Credits) *services {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	activity := NewActivityRecorder(store, nil, m)
	ledger := NewLedger(store, activity, m)
	referrals := NewReferralService(store, ledger, activity, m, credits)
	return &services{
		ledger:    ledger,
		accounts:  NewAccountService(store, referrals, activity, credits),
		referrals: referrals,
		artifacts: NewArtifactService(store, ledger, referrals, activity, nil, m, credits),
		admin:     NewAdminService(store),
		metrics:   m,
	}
}

func seedAccount(t *testing.T, store domain.Store, externalID, balance int64) *domain.Account {
	t.Helper()
	acc, err := store.CreateAccount(context.Background(), domain.NewAccount{
		ExternalID: externalID,
		Profile:    domain.Profile{FirstName: "Test"},
		Balance:    balance,
	})
	require.NoError(t, err)
	return acc
}

func balanceOf(t *testing.T, store domain.Store, accountID int64) int64 {
	t.Helper()
	acc, err := store.GetAccountByID(context.Background(), accountID)
	require.NoError(t, err)
	return acc.Balance
}

func newMemoryStore() *memory.Store { return memory.New() }
