package service

import (
	"context"
	"fmt"

	"github.com/set-night/turbostart/internal/config"
	"github.com/set-night/turbostart/internal/domain"
)

type Stats struct {
	TotalUsers  int64              `json:"totalUsers"`
	TotalTasks  int64              `json:"totalTasks"`
	RecentUsers []*domain.Account  `json:"recentUsers"`
	RecentTasks []*domain.Artifact `json:"recentTasks"`
}

type Page[T any] struct {
	Items []T
	Page  int
	Limit int
	Total int64
}

func (p Page[T]) Pages() int64 {
	if p.Limit <= 0 {
		return 0
	}
	return (p.Total + int64(p.Limit) - 1) / int64(p.Limit)
}

// AdminService serves the read-only operator views.
type AdminService struct {
	store domain.Store
}

func NewAdminService(store domain.Store) *AdminService {
	return &AdminService{store: store}
}

func (s *AdminService) Stats(ctx context.Context) (*Stats, error) {
	var (
		st  Stats
		err error
	)
	if st.TotalUsers, err = readWithRetry(ctx, s.store.CountAccounts); err != nil {
		return nil, fmt.Errorf("count accounts: %w", err)
	}
	if st.TotalTasks, err = readWithRetry(ctx, s.store.CountArtifacts); err != nil {
		return nil, fmt.Errorf("count artifacts: %w", err)
	}
	if st.RecentUsers, err = s.listAccounts(ctx, config.AdminRecentCount, 0); err != nil {
		return nil, err
	}
	if st.RecentTasks, err = s.listArtifacts(ctx, config.AdminRecentCount, 0); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *AdminService) Users(ctx context.Context, page, limit int) (*Page[*domain.Account], error) {
	page, limit = normalizePage(page, limit, config.DefaultAdminPageSize)
	items, err := s.listAccounts(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	total, err := readWithRetry(ctx, s.store.CountAccounts)
	if err != nil {
		return nil, fmt.Errorf("count accounts: %w", err)
	}
	return &Page[*domain.Account]{Items: items, Page: page, Limit: limit, Total: total}, nil
}

func (s *AdminService) Tasks(ctx context.Context, page, limit int) (*Page[*domain.Artifact], error) {
	page, limit = normalizePage(page, limit, config.DefaultAdminPageSize)
	items, err := s.listArtifacts(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	total, err := readWithRetry(ctx, s.store.CountArtifacts)
	if err != nil {
		return nil, fmt.Errorf("count artifacts: %w", err)
	}
	return &Page[*domain.Artifact]{Items: items, Page: page, Limit: limit, Total: total}, nil
}

// Activity returns the newest audit entries linked to the account.
func (s *AdminService) Activity(ctx context.Context, externalID int64, limit int) ([]*domain.ActivityLog, error) {
	_, limit = normalizePage(1, limit, config.DefaultAdminPageSize)
	acc, err := readWithRetry(ctx, func(ctx context.Context) (*domain.Account, error) {
		return s.store.GetAccountByExternalID(ctx, externalID)
	})
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	entries, err := readWithRetry(ctx, func(ctx context.Context) ([]*domain.ActivityLog, error) {
		return s.store.ListActivity(ctx, acc.ID, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	if entries == nil {
		entries = []*domain.ActivityLog{}
	}
	return entries, nil
}

func (s *AdminService) listAccounts(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	items, err := readWithRetry(ctx, func(ctx context.Context) ([]*domain.Account, error) {
		return s.store.ListAccounts(ctx, limit, offset)
	})
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	if items == nil {
		items = []*domain.Account{}
	}
	return items, nil
}

func (s *AdminService) listArtifacts(ctx context.Context, limit, offset int) ([]*domain.Artifact, error) {
	items, err := readWithRetry(ctx, func(ctx context.Context) ([]*domain.Artifact, error) {
		return s.store.ListArtifacts(ctx, limit, offset)
	})
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	if items == nil {
		items = []*domain.Artifact{}
	}
	return items, nil
}
