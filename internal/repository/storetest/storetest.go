// Package storetest is the behavioural contract shared by every
// domain.Store implementation.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/turbostart/internal/domain"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) domain.Store

// Run executes the contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Accounts", func(t *testing.T) { testAccounts(t, newStore(t)) })
	t.Run("AdjustBalance", func(t *testing.T) { testAdjustBalance(t, newStore(t)) })
	t.Run("ConcurrentDebits", func(t *testing.T) { testConcurrentDebits(t, newStore(t)) })
	t.Run("Referrals", func(t *testing.T) { testReferrals(t, newStore(t)) })
	t.Run("CreditedGateRace", func(t *testing.T) { testCreditedGateRace(t, newStore(t)) })
	t.Run("Artifacts", func(t *testing.T) { testArtifacts(t, newStore(t)) })
	t.Run("TxRollback", func(t *testing.T) { testTxRollback(t, newStore(t)) })
	t.Run("Activity", func(t *testing.T) { testActivity(t, newStore(t)) })
}

func mustAccount(t *testing.T, s domain.Store, externalID, balance int64) *domain.Account {
	t.Helper()
	a, err := s.CreateAccount(context.Background(), domain.NewAccount{
		ExternalID:   externalID,
		Profile:      domain.Profile{Username: fmt.Sprintf("u%d", externalID), FirstName: "First"},
		Balance:      balance,
		ReferralCode: fmt.Sprintf("CODE%04d", externalID),
	})
	require.NoError(t, err)
	return a
}

func testAccounts(t *testing.T, s domain.Store) {
	ctx := context.Background()
	a := mustAccount(t, s, 1001, 10)
	assert.Equal(t, int64(10), a.Balance)
	assert.Equal(t, "CODE1001", a.ReferralCode)

	byExt, err := s.GetAccountByExternalID(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, a.ID, byExt.ID)

	byCode, err := s.GetAccountByReferralCode(ctx, "CODE1001")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byCode.ID)

	_, err = s.GetAccountByID(ctx, a.ID+999)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	_, err = s.CreateAccount(ctx, domain.NewAccount{ExternalID: 1001, ReferralCode: "OTHER001"})
	assert.ErrorIs(t, err, domain.ErrDuplicateExternalID)

	_, err = s.CreateAccount(ctx, domain.NewAccount{ExternalID: 1002, ReferralCode: "CODE1001"})
	assert.ErrorIs(t, err, domain.ErrDuplicateReferral)

	at := time.Now().UTC().Truncate(time.Millisecond)
	touched, err := s.TouchAccount(ctx, 1001, domain.Profile{Username: "renamed", FirstName: "New"}, at)
	require.NoError(t, err)
	assert.Equal(t, "renamed", touched.Username)
	assert.Equal(t, int64(10), touched.Balance, "touch never changes the balance")
	require.NotNil(t, touched.LastActiveAt)

	_, err = s.TouchAccount(ctx, 424242, domain.Profile{}, at)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	b := mustAccount(t, s, 1003, 0)
	require.NoError(t, s.SetReferredBy(ctx, b.ID, a.ID))
	b, err = s.GetAccountByID(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, b.ReferredByID)
	assert.Equal(t, a.ID, *b.ReferredByID)

	require.NoError(t, s.AddReferralEarnings(ctx, a.ID, 5))
	a, err = s.GetAccountByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), a.ReferralCreditsEarned)

	n, err := s.CountAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	list, err := s.ListAccounts(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func testAdjustBalance(t *testing.T, s domain.Store) {
	ctx := context.Background()
	a := mustAccount(t, s, 2001, 3)

	bal, err := s.AdjustBalance(ctx, a.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), bal)

	_, err = s.AdjustBalance(ctx, a.ID, -5)
	var insufficient *domain.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(5), insufficient.Required)
	assert.Equal(t, int64(2), insufficient.Available)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	bal, err = s.AdjustBalance(ctx, a.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(6), bal)

	_, err = s.AdjustBalance(ctx, a.ID, math.MaxInt64)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	got, err := s.GetAccountByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), got.Balance)

	_, err = s.AdjustBalance(ctx, a.ID+999, -1)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func testConcurrentDebits(t *testing.T, s domain.Store) {
	ctx := context.Background()
	a := mustAccount(t, s, 3001, 10)

	var ok, rejected atomic.Int64
	var wg sync.WaitGroup
	for range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AdjustBalance(ctx, a.ID, -1)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrInsufficientFunds):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10), ok.Load())
	assert.Equal(t, int64(15), rejected.Load())

	got, err := s.GetAccountByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Balance)
}

func testReferrals(t *testing.T, s domain.Store) {
	ctx := context.Background()
	referrer := mustAccount(t, s, 4001, 0)
	referred := mustAccount(t, s, 4002, 0)

	r, err := s.CreateReferral(ctx, referrer.ID, referred.ID, referrer.ReferralCode)
	require.NoError(t, err)
	assert.Equal(t, domain.ReferralStatusPending, r.Status)
	assert.False(t, r.Credited)

	_, err = s.CreateReferral(ctx, referrer.ID, referred.ID, referrer.ReferralCode)
	assert.ErrorIs(t, err, domain.ErrAlreadyReferred)
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := s.GetReferralByReferred(ctx, referred.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	_, err = s.GetReferralByReferred(ctx, referrer.ID)
	assert.ErrorIs(t, err, domain.ErrReferralNotFound)

	won, err := s.MarkReferralCredited(ctx, r.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, won)

	won, err = s.MarkReferralCredited(ctx, r.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, won, "credited flips exactly once")

	list, err := s.ListReferralsByReferrer(ctx, referrer.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Credited)
	assert.Equal(t, domain.ReferralStatusCompleted, list[0].Status)
}

func testCreditedGateRace(t *testing.T, s domain.Store) {
	ctx := context.Background()
	referrer := mustAccount(t, s, 5001, 0)
	referred := mustAccount(t, s, 5002, 0)
	r, err := s.CreateReferral(ctx, referrer.ID, referred.ID, referrer.ReferralCode)
	require.NoError(t, err)

	var winners atomic.Int64
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := s.MarkReferralCredited(ctx, r.ID, time.Now())
			if err != nil {
				t.Errorf("mark credited: %v", err)
				return
			}
			if won {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), winners.Load())
}

func testArtifacts(t *testing.T, s domain.Store) {
	ctx := context.Background()
	a := mustAccount(t, s, 6001, 0)
	now := time.Now()

	var ids []int64
	for i := range 3 {
		art, err := s.CreateArtifact(ctx, domain.NewArtifact{
			AccountID:   a.ID,
			Title:       fmt.Sprintf("t%d", i),
			Status:      domain.ArtifactStatusCompleted,
			ShareID:     fmt.Sprintf("share%011d", i),
			IsPublic:    i == 0,
			CompletedAt: &now,
		})
		require.NoError(t, err)
		ids = append(ids, art.ID)
	}

	_, err := s.CreateArtifact(ctx, domain.NewArtifact{AccountID: a.ID, Title: "dup", Status: domain.ArtifactStatusCompleted, ShareID: "share00000000000"})
	assert.ErrorIs(t, err, domain.ErrDuplicateShareID)

	page, err := s.ListArtifactsByAccount(ctx, a.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID, "newest first")
	assert.Equal(t, ids[1], page[1].ID)

	page, err = s.ListArtifactsByAccount(ctx, a.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].ID)

	n, err := s.CountArtifactsByAccount(ctx, a.ID, domain.ArtifactStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	n, err = s.CountArtifactsByAccount(ctx, a.ID, domain.ArtifactStatusFailed)
	require.NoError(t, err)
	assert.Zero(t, n)

	shared, err := s.GetArtifactByShareID(ctx, "share00000000000")
	require.NoError(t, err)
	assert.True(t, shared.IsPublic)

	views, err := s.IncrementArtifactViews(ctx, shared.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), views)

	_, err = s.GetArtifact(ctx, ids[2]+999)
	assert.ErrorIs(t, err, domain.ErrArtifactNotFound)

	total, err := s.CountArtifacts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func testTxRollback(t *testing.T, s domain.Store) {
	ctx := context.Background()
	a := mustAccount(t, s, 7001, 5)
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(tx domain.Store) error {
		if _, err := tx.AdjustBalance(ctx, a.ID, 100); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetAccountByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Balance)

	require.NoError(t, s.WithinTx(ctx, func(tx domain.Store) error {
		_, err := tx.AdjustBalance(ctx, a.ID, 1)
		return err
	}))
	got, err = s.GetAccountByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), got.Balance)
}

func testActivity(t *testing.T, s domain.Store) {
	ctx := context.Background()
	a := mustAccount(t, s, 8001, 0)

	require.NoError(t, s.AppendActivity(ctx, domain.ActivityLog{AccountID: &a.ID, ExternalID: 8001, Action: "first"}))
	require.NoError(t, s.AppendActivity(ctx, domain.ActivityLog{AccountID: &a.ID, ExternalID: 8001, Action: "second"}))
	require.NoError(t, s.AppendActivity(ctx, domain.ActivityLog{ExternalID: 9999, Action: "orphan"}))

	entries, err := s.ListActivity(ctx, a.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].Action)
}
