package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/escolare/portal-api/internal/models"
)

// GuardianRepository manages persistence for guardians and their addresses.
type GuardianRepository struct {
	db *sqlx.DB
}

// NewGuardianRepository constructs the repository.
func NewGuardianRepository(db *sqlx.DB) *GuardianRepository {
	return &GuardianRepository{db: db}
}

const guardianColumns = `id, tipo, financial_name, financial_tax_id, financial_email, financial_phone,
        pedagogic_name, pedagogic_tax_id, pedagogic_email, pedagogic_phone, created_at, updated_at`

// FindByEmail matches a guardian whose financial or pedagogical email equals
// the given normalized email.
func (r *GuardianRepository) FindByEmail(ctx context.Context, email string) (*models.Guardian, error) {
	query := fmt.Sprintf(`SELECT %s FROM guardians WHERE financial_email = $1 OR pedagogic_email = $1 LIMIT 1`, guardianColumns)
	var guardian models.Guardian
	if err := r.db.GetContext(ctx, &guardian, query, email); err != nil {
		return nil, err
	}
	return &guardian, nil
}

// FindByTaxID matches a guardian by either role's tax-id column.
func (r *GuardianRepository) FindByTaxID(ctx context.Context, taxID string) (*models.Guardian, error) {
	query := fmt.Sprintf(`SELECT %s FROM guardians WHERE financial_tax_id = $1 OR pedagogic_tax_id = $1 LIMIT 1`, guardianColumns)
	var guardian models.Guardian
	if err := r.db.GetContext(ctx, &guardian, query, taxID); err != nil {
		return nil, err
	}
	return &guardian, nil
}

// FindByID returns a guardian by ID.
func (r *GuardianRepository) FindByID(ctx context.Context, id string) (*models.Guardian, error) {
	query := fmt.Sprintf(`SELECT %s FROM guardians WHERE id = $1`, guardianColumns)
	var guardian models.Guardian
	if err := r.db.GetContext(ctx, &guardian, query, id); err != nil {
		return nil, err
	}
	return &guardian, nil
}

// List returns guardians matching filter criteria.
func (r *GuardianRepository) List(ctx context.Context, filter models.GuardianFilter) ([]models.Guardian, int, error) {
	base := "FROM guardians WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Tipo != "" {
		conditions = append(conditions, fmt.Sprintf("tipo = $%d", len(args)+1))
		args = append(args, filter.Tipo)
	}
	if filter.Search != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(financial_name) LIKE $%d OR LOWER(pedagogic_name) LIKE $%d OR financial_tax_id LIKE $%d OR pedagogic_tax_id LIKE $%d)",
			idx, idx, idx, idx))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"financial_name": true,
		"created_at":     true,
		"updated_at":     true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", guardianColumns, base, sortBy, order, size, offset)
	var guardians []models.Guardian
	if err := r.db.SelectContext(ctx, &guardians, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list guardians: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count guardians: %w", err)
	}
	return guardians, total, nil
}

// Create persists a guardian record.
func (r *GuardianRepository) Create(ctx context.Context, guardian *models.Guardian) error {
	if guardian.ID == "" {
		guardian.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if guardian.CreatedAt.IsZero() {
		guardian.CreatedAt = now
	}
	guardian.UpdatedAt = now

	const query = `INSERT INTO guardians (id, tipo, financial_name, financial_tax_id, financial_email, financial_phone,
        pedagogic_name, pedagogic_tax_id, pedagogic_email, pedagogic_phone, created_at, updated_at)
        VALUES (:id, :tipo, :financial_name, :financial_tax_id, :financial_email, :financial_phone,
        :pedagogic_name, :pedagogic_tax_id, :pedagogic_email, :pedagogic_phone, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, guardian); err != nil {
		return fmt.Errorf("create guardian: %w", err)
	}
	return nil
}

// Update modifies a guardian record.
func (r *GuardianRepository) Update(ctx context.Context, guardian *models.Guardian) error {
	guardian.UpdatedAt = time.Now().UTC()
	const query = `UPDATE guardians SET tipo = :tipo,
        financial_name = :financial_name, financial_tax_id = :financial_tax_id,
        financial_email = :financial_email, financial_phone = :financial_phone,
        pedagogic_name = :pedagogic_name, pedagogic_tax_id = :pedagogic_tax_id,
        pedagogic_email = :pedagogic_email, pedagogic_phone = :pedagogic_phone,
        updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, guardian); err != nil {
		return fmt.Errorf("update guardian: %w", err)
	}
	return nil
}

// UpsertAddress creates or refreshes the guardian address for the given type.
func (r *GuardianRepository) UpsertAddress(ctx context.Context, address *models.Address) error {
	const findQuery = `SELECT id, guardian_id, type, street, number, district, city, state, zip_code, created_at, updated_at
        FROM guardian_addresses WHERE guardian_id = $1 AND type = $2`
	var existing models.Address
	err := r.db.GetContext(ctx, &existing, findQuery, address.GuardianID, address.Type)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("find guardian address: %w", err)
	}

	now := time.Now().UTC()
	if err == sql.ErrNoRows {
		if address.ID == "" {
			address.ID = uuid.NewString()
		}
		address.CreatedAt = now
		address.UpdatedAt = now
		const insertQuery = `INSERT INTO guardian_addresses (id, guardian_id, type, street, number, district, city, state, zip_code, created_at, updated_at)
            VALUES (:id, :guardian_id, :type, :street, :number, :district, :city, :state, :zip_code, :created_at, :updated_at)`
		if _, err := r.db.NamedExecContext(ctx, insertQuery, address); err != nil {
			return fmt.Errorf("create guardian address: %w", err)
		}
		return nil
	}

	address.ID = existing.ID
	address.CreatedAt = existing.CreatedAt
	address.UpdatedAt = now
	const updateQuery = `UPDATE guardian_addresses SET street = :street, number = :number, district = :district,
        city = :city, state = :state, zip_code = :zip_code, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, updateQuery, address); err != nil {
		return fmt.Errorf("update guardian address: %w", err)
	}
	return nil
}
