package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/escolare/portal-api/internal/models"
	appErrors "github.com/escolare/portal-api/pkg/errors"
)

type classReader interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error)
}

// ClassService serves class reads for the admin screens.
type ClassService struct {
	repo   classReader
	logger *zap.Logger
}

// NewClassService constructs the class service.
func NewClassService(repo classReader, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, logger: logger}
}

// List returns classes and pagination metadata.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, *models.Pagination, error) {
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return classes, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}
