package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/escolare/portal-api/internal/models"
	appErrors "github.com/escolare/portal-api/pkg/errors"
)

type mockStudentReader struct {
	students   map[string]models.StudentDetail
	lastFilter models.StudentFilter
	listTotal  int
	err        error
}

func (m *mockStudentReader) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, 0, m.err
	}
	details := make([]models.StudentDetail, 0, len(m.students))
	for _, s := range m.students {
		details = append(details, s)
	}
	return details, m.listTotal, nil
}

func (m *mockStudentReader) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func TestStudentServiceList(t *testing.T) {
	repo := &mockStudentReader{
		students:  map[string]models.StudentDetail{"s1": {Student: models.Student{ID: "s1", Name: "Aluno"}}},
		listTotal: 1,
	}
	svc := NewStudentService(repo, zap.NewNop())

	students, pagination, err := svc.List(context.Background(), models.StudentFilter{CompanyID: "c1"})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, "c1", repo.lastFilter.CompanyID)
}

func TestStudentServiceListError(t *testing.T) {
	repo := &mockStudentReader{err: fmt.Errorf("db down")}
	svc := NewStudentService(repo, zap.NewNop())

	_, _, err := svc.List(context.Background(), models.StudentFilter{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceGet(t *testing.T) {
	repo := &mockStudentReader{
		students: map[string]models.StudentDetail{"s1": {Student: models.Student{ID: "s1", Name: "Aluno"}}},
	}
	svc := NewStudentService(repo, zap.NewNop())

	student, err := svc.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Aluno", student.Name)
}

func TestStudentServiceGetNotFound(t *testing.T) {
	repo := &mockStudentReader{}
	svc := NewStudentService(repo, zap.NewNop())

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
