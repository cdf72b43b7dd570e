package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/set-night/turbostart/internal/domain"
)

const artifactColumns = `id, account_id, title, content, status, image_url, audio_url, video_url,
	share_id, is_public, view_count, generation_time_ms, error_message, created_at, completed_at`

func scanArtifact(row pgx.Row) (*domain.Artifact, error) {
	var a domain.Artifact
	var status string
	err := row.Scan(
		&a.ID, &a.AccountID, &a.Title, &a.Content, &status, &a.ImageURL, &a.AudioURL, &a.VideoURL,
		&a.ShareID, &a.IsPublic, &a.ViewCount, &a.GenerationTimeMs, &a.ErrorMessage, &a.CreatedAt, &a.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Status = domain.ArtifactStatus(status)
	return &a, nil
}

func (s *Store) CreateArtifact(ctx context.Context, in domain.NewArtifact) (*domain.Artifact, error) {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	a, err := scanArtifact(s.db.QueryRow(ctx, `
		INSERT INTO tasks (account_id, title, content, status, share_id, is_public, generation_time_ms, completed_at)
		VALUES ($1, $2, $3, $4::task_status, $5, $6, $7, $8)
		RETURNING `+artifactColumns,
		in.AccountID, in.Title, in.Content, string(in.Status), in.ShareID, in.IsPublic, in.GenerationTimeMs, in.CompletedAt,
	))
	if err != nil {
		return nil, mapError(err, nil)
	}
	return a, nil
}

func (s *Store) getArtifact(ctx context.Context, where string, arg any) (*domain.Artifact, error) {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	a, err := scanArtifact(s.db.QueryRow(ctx, `SELECT `+artifactColumns+` FROM tasks WHERE `+where, arg))
	if err != nil {
		return nil, mapError(err, domain.ErrArtifactNotFound)
	}
	return a, nil
}

func (s *Store) GetArtifact(ctx context.Context, id int64) (*domain.Artifact, error) {
	return s.getArtifact(ctx, `id = $1`, id)
}

func (s *Store) GetArtifactByShareID(ctx context.Context, shareID string) (*domain.Artifact, error) {
	return s.getArtifact(ctx, `share_id = $1`, shareID)
}

func (s *Store) listArtifacts(ctx context.Context, query string, args ...any) ([]*domain.Artifact, error) {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, nil)
	}
	defer rows.Close()

	artifacts := []*domain.Artifact{}
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, mapError(err, nil)
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, mapError(rows.Err(), nil)
}

func (s *Store) ListArtifactsByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*domain.Artifact, error) {
	return s.listArtifacts(ctx,
		`SELECT `+artifactColumns+` FROM tasks WHERE account_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		accountID, limit, offset,
	)
}

func (s *Store) ListArtifacts(ctx context.Context, limit, offset int) ([]*domain.Artifact, error) {
	return s.listArtifacts(ctx,
		`SELECT `+artifactColumns+` FROM tasks ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
}

func (s *Store) CountArtifactsByAccount(ctx context.Context, accountID int64, status domain.ArtifactStatus) (int64, error) {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	var n int64
	err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM tasks WHERE account_id = $1 AND ($2 = '' OR status::text = $2)`,
		accountID, string(status),
	).Scan(&n)
	if err != nil {
		return 0, mapError(err, nil)
	}
	return n, nil
}

func (s *Store) CountArtifacts(ctx context.Context) (int64, error) {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	var n int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM tasks`).Scan(&n); err != nil {
		return 0, mapError(err, nil)
	}
	return n, nil
}

func (s *Store) IncrementArtifactViews(ctx context.Context, id int64) (int64, error) {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	var views int64
	err := s.db.QueryRow(ctx,
		`UPDATE tasks SET view_count = view_count + 1 WHERE id = $1 RETURNING view_count`, id,
	).Scan(&views)
	if err != nil {
		return 0, mapError(err, domain.ErrArtifactNotFound)
	}
	return views, nil
}
