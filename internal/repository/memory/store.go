// Package memory provides an in-process implementation of domain.Store.
// It backs tests and the single-instance dev mode (STORE_DRIVER=memory).
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/set-night/turbostart/internal/domain"
)

type state struct {
	accounts  map[int64]*domain.Account
	artifacts map[int64]*domain.Artifact
	referrals map[int64]*domain.Referral
	activity  []domain.ActivityLog

	nextAccountID  int64
	nextArtifactID int64
	nextReferralID int64
	nextActivityID int64
}

// Store is safe for concurrent use. Transactions serialize on the store
// mutex and roll back by restoring a snapshot.
type Store struct {
	mu   *sync.Mutex
	st   *state
	inTx bool
	now  func() time.Time
}

func New() *Store {
	return &Store{
		mu: &sync.Mutex{},
		st: &state{
			accounts:  make(map[int64]*domain.Account),
			artifacts: make(map[int64]*domain.Artifact),
			referrals: make(map[int64]*domain.Referral),
		},
		now: time.Now,
	}
}

var _ domain.Store = (*Store)(nil)

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx domain.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	tx := &Store{mu: s.mu, st: s.st, inTx: true, now: s.now}
	if err := fn(tx); err != nil {
		*s.st = *snapshot
		return err
	}
	return nil
}

func (st *state) clone() *state {
	c := *st
	c.accounts = make(map[int64]*domain.Account, len(st.accounts))
	for id, a := range st.accounts {
		c.accounts[id] = copyAccount(a)
	}
	c.artifacts = make(map[int64]*domain.Artifact, len(st.artifacts))
	for id, a := range st.artifacts {
		c.artifacts[id] = copyArtifact(a)
	}
	c.referrals = make(map[int64]*domain.Referral, len(st.referrals))
	for id, r := range st.referrals {
		cp := *r
		c.referrals[id] = &cp
	}
	c.activity = append([]domain.ActivityLog(nil), st.activity...)
	return &c
}

func copyAccount(a *domain.Account) *domain.Account {
	cp := *a
	return &cp
}

func copyArtifact(a *domain.Artifact) *domain.Artifact {
	cp := *a
	return &cp
}

// ─── Accounts ───────────────────────────────────────────────────────────────

func (s *Store) GetAccountByID(ctx context.Context, id int64) (*domain.Account, error) {
	defer s.lock()()
	a, ok := s.st.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return copyAccount(a), nil
}

func (s *Store) GetAccountByExternalID(ctx context.Context, externalID int64) (*domain.Account, error) {
	defer s.lock()()
	if a := s.findByExternalID(externalID); a != nil {
		return copyAccount(a), nil
	}
	return nil, domain.ErrAccountNotFound
}

func (s *Store) findByExternalID(externalID int64) *domain.Account {
	for _, a := range s.st.accounts {
		if a.ExternalID == externalID {
			return a
		}
	}
	return nil
}

func (s *Store) GetAccountByReferralCode(ctx context.Context, code string) (*domain.Account, error) {
	defer s.lock()()
	for _, a := range s.st.accounts {
		if code != "" && a.ReferralCode == code {
			return copyAccount(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (s *Store) CreateAccount(ctx context.Context, in domain.NewAccount) (*domain.Account, error) {
	defer s.lock()()
	for _, a := range s.st.accounts {
		if a.ExternalID == in.ExternalID {
			return nil, domain.ErrDuplicateExternalID
		}
		if in.ReferralCode != "" && a.ReferralCode == in.ReferralCode {
			return nil, domain.ErrDuplicateReferral
		}
	}
	if in.Balance < 0 {
		return nil, domain.ErrInvalidAmount
	}

	now := s.now()
	s.st.nextAccountID++
	a := &domain.Account{
		ID:           s.st.nextAccountID,
		ExternalID:   in.ExternalID,
		Username:     in.Profile.Username,
		FirstName:    in.Profile.FirstName,
		LastName:     in.Profile.LastName,
		Balance:      in.Balance,
		ReferralCode: in.ReferralCode,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastActiveAt: &now,
	}
	s.st.accounts[a.ID] = a
	return copyAccount(a), nil
}

func (s *Store) TouchAccount(ctx context.Context, externalID int64, profile domain.Profile, at time.Time) (*domain.Account, error) {
	defer s.lock()()
	a := s.findByExternalID(externalID)
	if a == nil {
		return nil, domain.ErrAccountNotFound
	}
	a.Username = profile.Username
	a.FirstName = profile.FirstName
	a.LastName = profile.LastName
	a.UpdatedAt = at
	a.LastActiveAt = &at
	return copyAccount(a), nil
}

func (s *Store) SetReferredBy(ctx context.Context, accountID, referrerID int64) error {
	defer s.lock()()
	a, ok := s.st.accounts[accountID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.ReferredByID = &referrerID
	a.UpdatedAt = s.now()
	return nil
}

func (s *Store) AdjustBalance(ctx context.Context, accountID, delta int64) (int64, error) {
	defer s.lock()()
	a, ok := s.st.accounts[accountID]
	if !ok {
		return 0, domain.ErrAccountNotFound
	}
	if delta > 0 && a.Balance > math.MaxInt64-delta {
		return 0, fmt.Errorf("%w: balance would overflow", domain.ErrInvalidAmount)
	}
	if a.Balance+delta < 0 {
		return 0, &domain.InsufficientFundsError{Required: -delta, Available: a.Balance}
	}
	a.Balance += delta
	a.UpdatedAt = s.now()
	return a.Balance, nil
}

func (s *Store) AddReferralEarnings(ctx context.Context, accountID, amount int64) error {
	defer s.lock()()
	a, ok := s.st.accounts[accountID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.ReferralCreditsEarned += amount
	return nil
}

func (s *Store) ListAccounts(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	defer s.lock()()
	all := make([]*domain.Account, 0, len(s.st.accounts))
	for _, a := range s.st.accounts {
		all = append(all, copyAccount(a))
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return page(all, limit, offset), nil
}

func (s *Store) CountAccounts(ctx context.Context) (int64, error) {
	defer s.lock()()
	return int64(len(s.st.accounts)), nil
}

// ─── Artifacts ──────────────────────────────────────────────────────────────

func (s *Store) CreateArtifact(ctx context.Context, in domain.NewArtifact) (*domain.Artifact, error) {
	defer s.lock()()
	if _, ok := s.st.accounts[in.AccountID]; !ok {
		return nil, domain.ErrAccountNotFound
	}
	for _, a := range s.st.artifacts {
		if a.ShareID == in.ShareID {
			return nil, domain.ErrDuplicateShareID
		}
	}

	genMs := in.GenerationTimeMs
	s.st.nextArtifactID++
	a := &domain.Artifact{
		ID:               s.st.nextArtifactID,
		AccountID:        in.AccountID,
		Title:            in.Title,
		Content:          in.Content,
		Status:           in.Status,
		ShareID:          in.ShareID,
		IsPublic:         in.IsPublic,
		GenerationTimeMs: &genMs,
		CreatedAt:        s.now(),
		CompletedAt:      in.CompletedAt,
	}
	s.st.artifacts[a.ID] = a
	return copyArtifact(a), nil
}

func (s *Store) GetArtifact(ctx context.Context, id int64) (*domain.Artifact, error) {
	defer s.lock()()
	a, ok := s.st.artifacts[id]
	if !ok {
		return nil, domain.ErrArtifactNotFound
	}
	return copyArtifact(a), nil
}

func (s *Store) GetArtifactByShareID(ctx context.Context, shareID string) (*domain.Artifact, error) {
	defer s.lock()()
	for _, a := range s.st.artifacts {
		if a.ShareID == shareID {
			return copyArtifact(a), nil
		}
	}
	return nil, domain.ErrArtifactNotFound
}

func (s *Store) ListArtifactsByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*domain.Artifact, error) {
	defer s.lock()()
	var out []*domain.Artifact
	for _, a := range s.st.artifacts {
		if a.AccountID == accountID {
			out = append(out, copyArtifact(a))
		}
	}
	sortArtifacts(out)
	return page(out, limit, offset), nil
}

func (s *Store) CountArtifactsByAccount(ctx context.Context, accountID int64, status domain.ArtifactStatus) (int64, error) {
	defer s.lock()()
	var n int64
	for _, a := range s.st.artifacts {
		if a.AccountID == accountID && (status == "" || a.Status == status) {
			n++
		}
	}
	return n, nil
}

func (s *Store) IncrementArtifactViews(ctx context.Context, id int64) (int64, error) {
	defer s.lock()()
	a, ok := s.st.artifacts[id]
	if !ok {
		return 0, domain.ErrArtifactNotFound
	}
	a.ViewCount++
	return a.ViewCount, nil
}

func (s *Store) ListArtifacts(ctx context.Context, limit, offset int) ([]*domain.Artifact, error) {
	defer s.lock()()
	out := make([]*domain.Artifact, 0, len(s.st.artifacts))
	for _, a := range s.st.artifacts {
		out = append(out, copyArtifact(a))
	}
	sortArtifacts(out)
	return page(out, limit, offset), nil
}

func (s *Store) CountArtifacts(ctx context.Context) (int64, error) {
	defer s.lock()()
	return int64(len(s.st.artifacts)), nil
}

func sortArtifacts(list []*domain.Artifact) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

// ─── Referrals ──────────────────────────────────────────────────────────────

func (s *Store) CreateReferral(ctx context.Context, referrerID, referredID int64, code string) (*domain.Referral, error) {
	defer s.lock()()
	for _, r := range s.st.referrals {
		if r.ReferredID == referredID {
			return nil, domain.ErrAlreadyReferred
		}
	}
	s.st.nextReferralID++
	r := &domain.Referral{
		ID:           s.st.nextReferralID,
		ReferrerID:   referrerID,
		ReferredID:   referredID,
		ReferralCode: code,
		Status:       domain.ReferralStatusPending,
		CreatedAt:    s.now(),
	}
	s.st.referrals[r.ID] = r
	cp := *r
	return &cp, nil
}

func (s *Store) GetReferralByReferred(ctx context.Context, referredID int64) (*domain.Referral, error) {
	defer s.lock()()
	for _, r := range s.st.referrals {
		if r.ReferredID == referredID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domain.ErrReferralNotFound
}

func (s *Store) ListReferralsByReferrer(ctx context.Context, referrerID int64) ([]*domain.Referral, error) {
	defer s.lock()()
	var out []*domain.Referral
	for _, r := range s.st.referrals {
		if r.ReferrerID == referrerID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) MarkReferralCredited(ctx context.Context, referralID int64, at time.Time) (bool, error) {
	defer s.lock()()
	r, ok := s.st.referrals[referralID]
	if !ok {
		return false, domain.ErrReferralNotFound
	}
	if r.Credited {
		return false, nil
	}
	r.Credited = true
	r.Status = domain.ReferralStatusCompleted
	r.CreditedAt = &at
	return true, nil
}

// ─── Activity ───────────────────────────────────────────────────────────────

func (s *Store) AppendActivity(ctx context.Context, entry domain.ActivityLog) error {
	defer s.lock()()
	s.st.nextActivityID++
	entry.ID = s.st.nextActivityID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	s.st.activity = append(s.st.activity, entry)
	return nil
}

func (s *Store) ListActivity(ctx context.Context, accountID int64, limit int) ([]*domain.ActivityLog, error) {
	defer s.lock()()
	var out []*domain.ActivityLog
	for i := len(s.st.activity) - 1; i >= 0; i-- {
		e := s.st.activity[i]
		if e.AccountID != nil && *e.AccountID == accountID {
			out = append(out, &e)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// Activity returns every recorded entry in append order.
func (s *Store) Activity() []domain.ActivityLog {
	defer s.lock()()
	return append([]domain.ActivityLog(nil), s.st.activity...)
}

func page[T any](list []T, limit, offset int) []T {
	if offset < 0 || offset >= len(list) {
		return []T{}
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
