package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escolare/portal-api/internal/models"
)

func guardianRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "tipo", "financial_name", "financial_tax_id", "financial_email", "financial_phone",
		"pedagogic_name", "pedagogic_tax_id", "pedagogic_email", "pedagogic_phone", "created_at", "updated_at"}).
		AddRow("g1", "FINANCEIRO", "Pai", "11111111111", "pai@example.com", nil, nil, nil, nil, nil, time.Now(), time.Now())
}

func TestGuardianRepositoryFindByEmailMatchesEitherRole(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGuardianRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM guardians WHERE financial_email = \$1 OR pedagogic_email = \$1 LIMIT 1`).
		WithArgs("pai@example.com").
		WillReturnRows(guardianRows())

	guardian, err := repo.FindByEmail(context.Background(), "pai@example.com")
	require.NoError(t, err)
	assert.Equal(t, "g1", guardian.ID)
	assert.Equal(t, models.GuardianTypeFinanceiro, guardian.Tipo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuardianRepositoryFindByTaxIDMatchesEitherRole(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGuardianRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM guardians WHERE financial_tax_id = \$1 OR pedagogic_tax_id = \$1 LIMIT 1`).
		WithArgs("11111111111").
		WillReturnRows(guardianRows())

	guardian, err := repo.FindByTaxID(context.Background(), "11111111111")
	require.NoError(t, err)
	assert.Equal(t, "g1", guardian.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuardianRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGuardianRepository(db)

	mock.ExpectExec("INSERT INTO guardians").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	name := "Pai"
	taxID := "11111111111"
	guardian := &models.Guardian{Tipo: models.GuardianTypeFinanceiro, FinancialName: &name, FinancialTaxID: &taxID}
	err := repo.Create(context.Background(), guardian)
	require.NoError(t, err)
	assert.NotEmpty(t, guardian.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuardianRepositoryUpsertAddressInsertsWhenMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGuardianRepository(db)

	mock.ExpectQuery("SELECT .+ FROM guardian_addresses WHERE guardian_id").
		WithArgs("g1", models.AddressTypeResidential).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO guardian_addresses").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	address := &models.Address{GuardianID: "g1", Type: models.AddressTypeResidential, Street: "Rua A", City: "Sao Paulo"}
	err := repo.UpsertAddress(context.Background(), address)
	require.NoError(t, err)
	assert.NotEmpty(t, address.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuardianRepositoryUpsertAddressUpdatesExisting(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGuardianRepository(db)

	created := time.Now().Add(-time.Hour)
	existing := sqlmock.NewRows([]string{"id", "guardian_id", "type", "street", "number", "district", "city", "state", "zip_code", "created_at", "updated_at"}).
		AddRow("a1", "g1", "RESIDENTIAL", "Rua Velha", "1", "", "Sao Paulo", "SP", "", created, created)
	mock.ExpectQuery("SELECT .+ FROM guardian_addresses WHERE guardian_id").
		WithArgs("g1", models.AddressTypeResidential).
		WillReturnRows(existing)
	mock.ExpectExec("UPDATE guardian_addresses SET").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	address := &models.Address{GuardianID: "g1", Type: models.AddressTypeResidential, Street: "Rua Nova", City: "Sao Paulo"}
	err := repo.UpsertAddress(context.Background(), address)
	require.NoError(t, err)
	assert.Equal(t, "a1", address.ID)
	assert.Equal(t, created.Unix(), address.CreatedAt.Unix())
	assert.NoError(t, mock.ExpectationsWereMet())
}
