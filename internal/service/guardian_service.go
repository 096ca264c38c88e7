package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/escolare/portal-api/internal/models"
	appErrors "github.com/escolare/portal-api/pkg/errors"
)

type guardianReader interface {
	List(ctx context.Context, filter models.GuardianFilter) ([]models.Guardian, int, error)
	FindByID(ctx context.Context, id string) (*models.Guardian, error)
}

// GuardianService serves guardian reads for the admin screens.
type GuardianService struct {
	repo   guardianReader
	logger *zap.Logger
}

// NewGuardianService constructs the guardian service.
func NewGuardianService(repo guardianReader, logger *zap.Logger) *GuardianService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GuardianService{repo: repo, logger: logger}
}

// List returns guardians and pagination metadata.
func (s *GuardianService) List(ctx context.Context, filter models.GuardianFilter) ([]models.Guardian, *models.Pagination, error) {
	guardians, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list guardians")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return guardians, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one guardian.
func (s *GuardianService) Get(ctx context.Context, id string) (*models.Guardian, error) {
	guardian, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "guardian not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load guardian")
	}
	return guardian, nil
}
