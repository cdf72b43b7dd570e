package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/set-night/turbostart/internal/config"
	"github.com/set-night/turbostart/internal/domain"
	"github.com/set-night/turbostart/internal/metrics"
)

const shareIDAttempts = 3

type CreateArtifactInput struct {
	Title    string
	Content  string
	IsPublic bool
}

type ArtifactService struct {
	store     domain.Store
	ledger    *Ledger
	referrals *ReferralService
	activity  *ActivityRecorder
	reporter  ErrorReporter
	metrics   *metrics.Metrics
	cost      int64
	now       func() time.Time
}

func NewArtifactService(
	store domain.Store,
	ledger *Ledger,
	referrals *ReferralService,
	activity *ActivityRecorder,
	reporter ErrorReporter,
	m *metrics.Metrics,
	credits config.Credits,
) *ArtifactService {
	return &ArtifactService{
		store:     store,
		ledger:    ledger,
		referrals: referrals,
		activity:  activity,
		reporter:  reporter,
		metrics:   m,
		cost:      credits.TaskCreateCost,
		now:       time.Now,
	}
}

func (s *ArtifactService) Cost() int64 { return s.cost }

// Create debits the creation cost and persists a completed artifact. If the
// artifact cannot be persisted after the debit, the cost is credited back.
func (s *ArtifactService) Create(ctx context.Context, externalID int64, in CreateArtifactInput) (*domain.Artifact, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateArtifact(externalID, in); err != nil {
		s.activity.Record(ctx, nil, externalID, domain.ActionArtifactCreate, fmt.Sprintf("outcome=rejected kind=%s reason=%s", domain.KindOf(err), err))
		return nil, err
	}

	acc, err := readWithRetry(ctx, func(ctx context.Context) (*domain.Account, error) {
		return s.store.GetAccountByExternalID(ctx, externalID)
	})
	if err != nil {
		s.activity.Record(ctx, nil, externalID, domain.ActionArtifactCreate, fmt.Sprintf("outcome=rejected kind=%s", domain.KindOf(err)))
		return nil, fmt.Errorf("get account: %w", err)
	}

	start := s.now()
	if _, err := s.ledger.ApplyDebit(ctx, acc.ID, s.cost, domain.ReasonDebitCreate); err != nil {
		return nil, err
	}

	art, err := s.persist(ctx, acc.ID, in, start)
	if err != nil {
		s.compensate(ctx, acc.ID, err)
		return nil, fmt.Errorf("persist artifact: %w", err)
	}

	s.metrics.ArtifactCreated()
	s.activity.Record(ctx, &acc.ID, externalID, domain.ActionArtifactCreate,
		fmt.Sprintf("outcome=accepted artifact=%d share_id=%s cost=%d", art.ID, art.ShareID, s.cost))

	if _, err := s.referrals.EvaluateCompletion(ctx, acc.ID); err != nil {
		slog.Warn("evaluate referral completion", "error", err, "account_id", acc.ID)
	}
	return art, nil
}

func (s *ArtifactService) persist(ctx context.Context, accountID int64, in CreateArtifactInput, start time.Time) (*domain.Artifact, error) {
	var err error
	for range shareIDAttempts {
		completedAt := s.now()
		var art *domain.Artifact
		art, err = s.store.CreateArtifact(ctx, domain.NewArtifact{
			AccountID:        accountID,
			Title:            in.Title,
			Content:          in.Content,
			Status:           domain.ArtifactStatusCompleted,
			ShareID:          newShareID(),
			IsPublic:         in.IsPublic,
			GenerationTimeMs: completedAt.Sub(start).Milliseconds(),
			CompletedAt:      &completedAt,
		})
		if !errors.Is(err, domain.ErrDuplicateShareID) {
			return art, err
		}
	}
	return nil, err
}

func (s *ArtifactService) compensate(ctx context.Context, accountID int64, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.CompensationTimeout)
	defer cancel()

	slog.Warn("artifact not persisted, refunding", "error", cause, "account_id", accountID, "amount", s.cost)
	if _, err := s.ledger.ApplyCredit(ctx, accountID, s.cost, domain.ReasonRefundCreateFailed); err != nil {
		slog.Error("compensating credit failed", "error", err, "account_id", accountID, "amount", s.cost)
		if s.reporter != nil {
			go s.reporter.LogError(err, fmt.Sprintf("refund of %d credits to account %d", s.cost, accountID))
		}
	}
}

func validateArtifact(externalID int64, in CreateArtifactInput) error {
	switch {
	case externalID <= 0:
		return &domain.ValidationError{Field: "telegramId", Message: "is required"}
	case in.Title == "":
		return &domain.ValidationError{Field: "title", Message: "is required"}
	case utf8.RuneCountInString(in.Title) > config.MaxTaskTitleLen:
		return &domain.ValidationError{Field: "title", Message: fmt.Sprintf("must be at most %d characters", config.MaxTaskTitleLen)}
	case utf8.RuneCountInString(in.Content) > config.MaxTaskContentLen:
		return &domain.ValidationError{Field: "content", Message: fmt.Sprintf("must be at most %d characters", config.MaxTaskContentLen)}
	}
	return nil
}

func newShareID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

func (s *ArtifactService) Get(ctx context.Context, id int64) (*domain.Artifact, error) {
	return readWithRetry(ctx, func(ctx context.Context) (*domain.Artifact, error) {
		return s.store.GetArtifact(ctx, id)
	})
}

// ListByExternalID pages through the account's artifacts, newest first.
func (s *ArtifactService) ListByExternalID(ctx context.Context, externalID int64, page, limit int) (*Page[*domain.Artifact], error) {
	page, limit = normalizePage(page, limit, config.DefaultTasksPageSize)

	acc, err := readWithRetry(ctx, func(ctx context.Context) (*domain.Account, error) {
		return s.store.GetAccountByExternalID(ctx, externalID)
	})
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	items, err := readWithRetry(ctx, func(ctx context.Context) ([]*domain.Artifact, error) {
		return s.store.ListArtifactsByAccount(ctx, acc.ID, limit, (page-1)*limit)
	})
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	total, err := readWithRetry(ctx, func(ctx context.Context) (int64, error) {
		return s.store.CountArtifactsByAccount(ctx, acc.ID, "")
	})
	if err != nil {
		return nil, fmt.Errorf("count artifacts: %w", err)
	}
	if items == nil {
		items = []*domain.Artifact{}
	}
	return &Page[*domain.Artifact]{Items: items, Page: page, Limit: limit, Total: total}, nil
}

// ViewShared returns a public artifact by share ID and bumps its view
// counter. Private artifacts are reported as not found.
func (s *ArtifactService) ViewShared(ctx context.Context, shareID string) (*domain.Artifact, error) {
	art, err := readWithRetry(ctx, func(ctx context.Context) (*domain.Artifact, error) {
		return s.store.GetArtifactByShareID(ctx, shareID)
	})
	if err != nil {
		return nil, err
	}
	if !art.IsPublic {
		return nil, domain.ErrArtifactNotFound
	}
	views, err := s.store.IncrementArtifactViews(ctx, art.ID)
	if err != nil {
		return nil, fmt.Errorf("increment views: %w", err)
	}
	art.ViewCount = views
	return art, nil
}

func normalizePage(page, limit, def int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = def
	}
	if limit > config.MaxPageSize {
		limit = config.MaxPageSize
	}
	// (page-1)*limit must stay representable as an offset.
	if maxPage := math.MaxInt/limit + 1; page > maxPage {
		page = maxPage
	}
	return page, limit
}
