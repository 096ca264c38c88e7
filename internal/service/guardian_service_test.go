package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/escolare/portal-api/internal/models"
	appErrors "github.com/escolare/portal-api/pkg/errors"
)

type mockGuardianReader struct {
	guardians  map[string]models.Guardian
	lastFilter models.GuardianFilter
}

func (m *mockGuardianReader) List(ctx context.Context, filter models.GuardianFilter) ([]models.Guardian, int, error) {
	m.lastFilter = filter
	out := make([]models.Guardian, 0, len(m.guardians))
	for _, g := range m.guardians {
		out = append(out, g)
	}
	return out, len(out), nil
}

func (m *mockGuardianReader) FindByID(ctx context.Context, id string) (*models.Guardian, error) {
	if g, ok := m.guardians[id]; ok {
		return &g, nil
	}
	return nil, sql.ErrNoRows
}

func TestGuardianServiceList(t *testing.T) {
	repo := &mockGuardianReader{guardians: map[string]models.Guardian{"g1": {ID: "g1", Tipo: models.GuardianTypeAmbos}}}
	svc := NewGuardianService(repo, zap.NewNop())

	guardians, pagination, err := svc.List(context.Background(), models.GuardianFilter{Tipo: models.GuardianTypeAmbos, Page: 2, PageSize: 5})
	require.NoError(t, err)
	assert.Len(t, guardians, 1)
	assert.Equal(t, 2, pagination.Page)
	assert.Equal(t, 5, pagination.PageSize)
	assert.Equal(t, models.GuardianTypeAmbos, repo.lastFilter.Tipo)
}

func TestGuardianServiceGetNotFound(t *testing.T) {
	repo := &mockGuardianReader{}
	svc := NewGuardianService(repo, zap.NewNop())

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

type mockClassReader struct {
	classes []models.Class
}

func (m *mockClassReader) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error) {
	return m.classes, len(m.classes), nil
}

func TestClassServiceList(t *testing.T) {
	repo := &mockClassReader{classes: []models.Class{{ID: "cl1", Description: "1A EFAI", Segment: models.SegmentEFAI}}}
	svc := NewClassService(repo, zap.NewNop())

	classes, pagination, err := svc.List(context.Background(), models.ClassFilter{})
	require.NoError(t, err)
	assert.Len(t, classes, 1)
	assert.Equal(t, 1, pagination.TotalCount)
}
