package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/set-night/turbostart/internal/domain"
)

const accountColumns = `id, external_id, username, first_name, last_name, balance, referral_code,
	referred_by_id, referral_credits_earned, created_at, updated_at, last_active_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	var code *string
	err := row.Scan(
		&a.ID, &a.ExternalID, &a.Username, &a.FirstName, &a.LastName, &a.Balance, &code,
		&a.ReferredByID, &a.ReferralCreditsEarned, &a.CreatedAt, &a.UpdatedAt, &a.LastActiveAt,
	)
	if err != nil {
		return nil, err
	}
	if code != nil {
		a.ReferralCode = *code
	}
	return &a, nil
}

func (s *Store) getAccount(ctx context.Context, where string, arg any) (*domain.Account, error) {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	a, err := scanAccount(s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+where, arg))
	if err != nil {
		return nil, mapError(err, domain.ErrAccountNotFound)
	}
	return a, nil
}

func (s *Store) GetAccountByID(ctx context.Context, id int64) (*domain.Account, error) {
	return s.getAccount(ctx, `id = $1`, id)
}

func (s *Store) GetAccountByExternalID(ctx context.Context, externalID int64) (*domain.Account, error) {
	return s.getAccount(ctx, `external_id = $1`, externalID)
}

func (s *Store) GetAccountByReferralCode(ctx context.Context, code string) (*domain.Account, error) {
	return s.getAccount(ctx, `referral_code = $1`, code)
}

func (s *Store) CreateAccount(ctx context.Context, in domain.NewAccount) (*domain.Account, error) {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	var code *string
	if in.ReferralCode != "" {
		code = &in.ReferralCode
	}

	a, err := scanAccount(s.db.QueryRow(ctx, `
		INSERT INTO accounts (external_id, username, first_name, last_name, balance, referral_code, last_active_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING `+accountColumns,
		in.ExternalID, in.Profile.Username, in.Profile.FirstName, in.Profile.LastName, in.Balance, code,
	))
	if err != nil {
		return nil, mapError(err, nil)
	}
	return a, nil
}

func (s *Store) TouchAccount(ctx context.Context, externalID int64, profile domain.Profile, at time.Time) (*domain.Account, error) {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	a, err := scanAccount(s.db.QueryRow(ctx, `
		UPDATE accounts
		SET username = $2, first_name = $3, last_name = $4, updated_at = $5, last_active_at = $5
		WHERE external_id = $1
		RETURNING `+accountColumns,
		externalID, profile.Username, profile.FirstName, profile.LastName, at,
	))
	if err != nil {
		return nil, mapError(err, domain.ErrAccountNotFound)
	}
	return a, nil
}

func (s *Store) SetReferredBy(ctx context.Context, accountID, referrerID int64) error {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	tag, err := s.db.Exec(ctx,
		`UPDATE accounts SET referred_by_id = $2, updated_at = now() WHERE id = $1`,
		accountID, referrerID,
	)
	if err != nil {
		return mapError(err, nil)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// AdjustBalance is a single conditional UPDATE: the check and the write
// happen in one statement under the row lock Postgres takes for it.
func (s *Store) AdjustBalance(ctx context.Context, accountID, delta int64) (int64, error) {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	var balance int64
	err := s.db.QueryRow(ctx, `
		UPDATE accounts
		SET balance = balance + $2, updated_at = now()
		WHERE id = $1 AND balance + $2 >= 0
		RETURNING balance`,
		accountID, delta,
	).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, mapError(err, nil)
	}

	// Zero rows: the account is missing or the guard rejected the delta.
	err = s.db.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	if err != nil {
		return 0, mapError(err, domain.ErrAccountNotFound)
	}
	return 0, &domain.InsufficientFundsError{Required: -delta, Available: balance}
}

func (s *Store) AddReferralEarnings(ctx context.Context, accountID, amount int64) error {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	tag, err := s.db.Exec(ctx,
		`UPDATE accounts SET referral_credits_earned = referral_credits_earned + $2, updated_at = now() WHERE id = $1`,
		accountID, amount,
	)
	if err != nil {
		return mapError(err, nil)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (s *Store) ListAccounts(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	rows, err := s.db.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, mapError(err, nil)
	}
	defer rows.Close()

	accounts := []*domain.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, mapError(err, nil)
		}
		accounts = append(accounts, a)
	}
	return accounts, mapError(rows.Err(), nil)
}

func (s *Store) CountAccounts(ctx context.Context) (int64, error) {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	var n int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM accounts`).Scan(&n); err != nil {
		return 0, mapError(err, nil)
	}
	return n, nil
}
