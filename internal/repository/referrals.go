package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/set-night/turbostart/internal/domain"
)

const referralColumns = `id, referrer_id, referred_id, referral_code, status, credited, created_at, credited_at`

func scanReferral(row pgx.Row) (*domain.Referral, error) {
	var r domain.Referral
	var status string
	err := row.Scan(&r.ID, &r.ReferrerID, &r.ReferredID, &r.ReferralCode, &status, &r.Credited, &r.CreatedAt, &r.CreditedAt)
	if err != nil {
		return nil, err
	}
	r.Status = domain.ReferralStatus(status)
	return &r, nil
}

func (s *Store) CreateReferral(ctx context.Context, referrerID, referredID int64, code string) (*domain.Referral, error) {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	r, err := scanReferral(s.db.QueryRow(ctx, `
		INSERT INTO referrals (referrer_id, referred_id, referral_code)
		VALUES ($1, $2, $3)
		RETURNING `+referralColumns,
		referrerID, referredID, code,
	))
	if err != nil {
		return nil, mapError(err, nil)
	}
	return r, nil
}

func (s *Store) GetReferralByReferred(ctx context.Context, referredID int64) (*domain.Referral, error) {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	r, err := scanReferral(s.db.QueryRow(ctx,
		`SELECT `+referralColumns+` FROM referrals WHERE referred_id = $1`, referredID,
	))
	if err != nil {
		return nil, mapError(err, domain.ErrReferralNotFound)
	}
	return r, nil
}

func (s *Store) ListReferralsByReferrer(ctx context.Context, referrerID int64) ([]*domain.Referral, error) {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	rows, err := s.db.Query(ctx,
		`SELECT `+referralColumns+` FROM referrals WHERE referrer_id = $1 ORDER BY id DESC`, referrerID,
	)
	if err != nil {
		return nil, mapError(err, nil)
	}
	defer rows.Close()

	referrals := []*domain.Referral{}
	for rows.Next() {
		r, err := scanReferral(rows)
		if err != nil {
			return nil, mapError(err, nil)
		}
		referrals = append(referrals, r)
	}
	return referrals, mapError(rows.Err(), nil)
}

// MarkReferralCredited is the exactly-once gate for the referral bonus.
func (s *Store) MarkReferralCredited(ctx context.Context, referralID int64, at time.Time) (bool, error) {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	tag, err := s.db.Exec(ctx, `
		UPDATE referrals
		SET credited = true, status = 'completed', credited_at = $2
		WHERE id = $1 AND credited = false`,
		referralID, at,
	)
	if err != nil {
		return false, mapError(err, nil)
	}
	return tag.RowsAffected() == 1, nil
}
