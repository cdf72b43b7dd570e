package domain

import (
	"context"
	"time"
)

// Store is the persistence boundary of the ledger core. Implementations
// must make AdjustBalance and MarkReferralCredited atomic conditional writes
// so that several process instances can share one database.
type Store interface {
	AccountStore
	ArtifactStore
	ReferralStore
	ActivityStore

	// WithinTx runs fn against a Store bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

type AccountStore interface {
	GetAccountByID(ctx context.Context, id int64) (*Account, error)
	GetAccountByExternalID(ctx context.Context, externalID int64) (*Account, error)
	GetAccountByReferralCode(ctx context.Context, code string) (*Account, error)
	// CreateAccount returns ErrDuplicateExternalID or ErrDuplicateReferral
	// when the respective uniqueness constraint is violated.
	CreateAccount(ctx context.Context, in NewAccount) (*Account, error)
	TouchAccount(ctx context.Context, externalID int64, profile Profile, at time.Time) (*Account, error)
	SetReferredBy(ctx context.Context, accountID, referrerID int64) error
	// AdjustBalance applies delta only if the resulting balance stays
	// non-negative. It returns *InsufficientFundsError otherwise, and
	// ErrInvalidAmount when the balance would overflow.
	AdjustBalance(ctx context.Context, accountID, delta int64) (int64, error)
	AddReferralEarnings(ctx context.Context, accountID, amount int64) error
	ListAccounts(ctx context.Context, limit, offset int) ([]*Account, error)
	CountAccounts(ctx context.Context) (int64, error)
}

type ArtifactStore interface {
	CreateArtifact(ctx context.Context, in NewArtifact) (*Artifact, error)
	GetArtifact(ctx context.Context, id int64) (*Artifact, error)
	GetArtifactByShareID(ctx context.Context, shareID string) (*Artifact, error)
	ListArtifactsByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*Artifact, error)
	CountArtifactsByAccount(ctx context.Context, accountID int64, status ArtifactStatus) (int64, error)
	IncrementArtifactViews(ctx context.Context, id int64) (int64, error)
	ListArtifacts(ctx context.Context, limit, offset int) ([]*Artifact, error)
	CountArtifacts(ctx context.Context) (int64, error)
}

type ReferralStore interface {
	// CreateReferral returns ErrAlreadyReferred when the referred account
	// already has a referral record.
	CreateReferral(ctx context.Context, referrerID, referredID int64, code string) (*Referral, error)
	GetReferralByReferred(ctx context.Context, referredID int64) (*Referral, error)
	ListReferralsByReferrer(ctx context.Context, referrerID int64) ([]*Referral, error)
	// MarkReferralCredited flips credited from false to true and reports
	// whether this call performed the transition.
	MarkReferralCredited(ctx context.Context, referralID int64, at time.Time) (bool, error)
}

type ActivityStore interface {
	AppendActivity(ctx context.Context, entry ActivityLog) error
	ListActivity(ctx context.Context, accountID int64, limit int) ([]*ActivityLog, error)
}
