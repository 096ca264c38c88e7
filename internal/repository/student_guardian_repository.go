package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/escolare/portal-api/internal/models"
)

// StudentGuardianRepository manages the student-guardian association rows.
type StudentGuardianRepository struct {
	db *sqlx.DB
}

// NewStudentGuardianRepository constructs the repository.
func NewStudentGuardianRepository(db *sqlx.DB) *StudentGuardianRepository {
	return &StudentGuardianRepository{db: db}
}

// DeleteByStudent removes every link of the given student. Called before
// re-linking on each import run.
func (r *StudentGuardianRepository) DeleteByStudent(ctx context.Context, studentID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM student_guardians WHERE student_id = $1`, studentID); err != nil {
		return fmt.Errorf("delete student guardian links: %w", err)
	}
	return nil
}

// Insert creates a single link row.
func (r *StudentGuardianRepository) Insert(ctx context.Context, studentID, guardianID string) error {
	link := models.StudentGuardianLink{
		ID:         uuid.NewString(),
		StudentID:  studentID,
		GuardianID: guardianID,
		CreatedAt:  time.Now().UTC(),
	}
	const query = `INSERT INTO student_guardians (id, student_id, guardian_id, created_at)
        VALUES (:id, :student_id, :guardian_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, link); err != nil {
		return fmt.Errorf("insert student guardian link: %w", err)
	}
	return nil
}

// ListByStudent returns all links of one student.
func (r *StudentGuardianRepository) ListByStudent(ctx context.Context, studentID string) ([]models.StudentGuardianLink, error) {
	const query = `SELECT id, student_id, guardian_id, created_at FROM student_guardians WHERE student_id = $1 ORDER BY created_at`
	var links []models.StudentGuardianLink
	if err := r.db.SelectContext(ctx, &links, query, studentID); err != nil {
		return nil, fmt.Errorf("list student guardian links: %w", err)
	}
	return links, nil
}
