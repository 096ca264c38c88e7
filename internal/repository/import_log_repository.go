package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/escolare/portal-api/internal/models"
)

// ImportLogRepository persists import run audit rows.
type ImportLogRepository struct {
	db *sqlx.DB
}

// NewImportLogRepository constructs the repository.
func NewImportLogRepository(db *sqlx.DB) *ImportLogRepository {
	return &ImportLogRepository{db: db}
}

const importLogColumns = `id, company_id, status, total_records, processed, created, updated, error_count, errors, raw_payload, started_at, finished_at`

// Create inserts the initial log row for a run.
func (r *ImportLogRepository) Create(ctx context.Context, log *models.ImportLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.StartedAt.IsZero() {
		log.StartedAt = time.Now().UTC()
	}
	if log.Errors == nil {
		log.Errors = models.ImportErrorList{}
	}
	if log.RawPayload == nil {
		log.RawPayload = []byte("{}")
	}

	const query = `INSERT INTO import_logs (id, company_id, status, total_records, processed, created, updated, error_count, errors, raw_payload, started_at, finished_at)
        VALUES (:id, :company_id, :status, :total_records, :processed, :created, :updated, :error_count, :errors, :raw_payload, :started_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create import log: %w", err)
	}
	return nil
}

// Update writes status, counters and the error list of a finished (or
// progressing) run.
func (r *ImportLogRepository) Update(ctx context.Context, log *models.ImportLog) error {
	const query = `UPDATE import_logs SET status = :status, total_records = :total_records, processed = :processed,
        created = :created, updated = :updated, error_count = :error_count, errors = :errors, finished_at = :finished_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("update import log: %w", err)
	}
	return nil
}

// FindByID returns one log row.
func (r *ImportLogRepository) FindByID(ctx context.Context, id string) (*models.ImportLog, error) {
	query := fmt.Sprintf(`SELECT %s FROM import_logs WHERE id = $1`, importLogColumns)
	var log models.ImportLog
	if err := r.db.GetContext(ctx, &log, query, id); err != nil {
		return nil, err
	}
	return &log, nil
}

// List returns log rows newest first.
func (r *ImportLogRepository) List(ctx context.Context, filter models.ImportLogFilter) ([]models.ImportLog, int, error) {
	base := "FROM import_logs WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.CompanyID != "" {
		conditions = append(conditions, fmt.Sprintf("company_id = $%d", len(args)+1))
		args = append(args, filter.CompanyID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY started_at DESC LIMIT %d OFFSET %d", importLogColumns, base, size, offset)
	var logs []models.ImportLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list import logs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count import logs: %w", err)
	}
	return logs, total, nil
}
