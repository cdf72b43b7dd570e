package repository

import (
	"context"

	"github.com/set-night/turbostart/internal/domain"
)

func (s *Store) AppendActivity(ctx context.Context, entry domain.ActivityLog) error {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	_, err := s.db.Exec(ctx,
		`INSERT INTO activity_logs (account_id, external_id, action, details) VALUES ($1, $2, $3, $4)`,
		entry.AccountID, entry.ExternalID, entry.Action, entry.Details,
	)
	return mapError(err, nil)
}

func (s *Store) ListActivity(ctx context.Context, accountID int64, limit int) ([]*domain.ActivityLog, error) {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		SELECT id, account_id, external_id, action, details, created_at
		FROM activity_logs WHERE account_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2`,
		accountID, limit,
	)
	if err != nil {
		return nil, mapError(err, nil)
	}
	defer rows.Close()

	entries := []*domain.ActivityLog{}
	for rows.Next() {
		var e domain.ActivityLog
		if err := rows.Scan(&e.ID, &e.AccountID, &e.ExternalID, &e.Action, &e.Details, &e.CreatedAt); err != nil {
			return nil, mapError(err, nil)
		}
		entries = append(entries, &e)
	}
	return entries, mapError(rows.Err(), nil)
}
