package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/escolare/portal-api/internal/dto"
	"github.com/escolare/portal-api/internal/models"
	appErrors "github.com/escolare/portal-api/pkg/errors"
)

const (
	testCompanyID = "company-1"
	testAPIKey    = "chave-super-secreta"
)

type memCompanyStore struct {
	companies map[string]models.Company
}

func (m *memCompanyStore) FindByID(ctx context.Context, id string) (*models.Company, error) {
	if c, ok := m.companies[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

type memClassStore struct {
	classes []*models.Class
	seq     int
	failAll bool
}

func (m *memClassStore) FindByDescription(ctx context.Context, companyID, description string) (*models.Class, error) {
	if m.failAll {
		return nil, fmt.Errorf("class store down")
	}
	for _, c := range m.classes {
		if c.CompanyID == companyID && c.Description == description {
			return c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memClassStore) Create(ctx context.Context, class *models.Class) error {
	m.seq++
	class.ID = fmt.Sprintf("class-%d", m.seq)
	m.classes = append(m.classes, class)
	return nil
}

func (m *memClassStore) Update(ctx context.Context, class *models.Class) error {
	for i, c := range m.classes {
		if c.ID == class.ID {
			m.classes[i] = class
			return nil
		}
	}
	return sql.ErrNoRows
}

type memStudentStore struct {
	students []*models.Student
	seq      int
	failFor  string
}

func (m *memStudentStore) FindByRegistration(ctx context.Context, companyID, registrationNumber string) (*models.Student, error) {
	for _, s := range m.students {
		if s.CompanyID == companyID && s.RegistrationNumber == registrationNumber {
			return s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memStudentStore) Create(ctx context.Context, student *models.Student) error {
	if m.failFor != "" && student.RegistrationNumber == m.failFor {
		return fmt.Errorf("insert rejected")
	}
	m.seq++
	student.ID = fmt.Sprintf("student-%d", m.seq)
	m.students = append(m.students, student)
	return nil
}

func (m *memStudentStore) Update(ctx context.Context, student *models.Student) error {
	for i, s := range m.students {
		if s.ID == student.ID {
			m.students[i] = student
			return nil
		}
	}
	return sql.ErrNoRows
}

type memGuardianStore struct {
	guardians  []*models.Guardian
	addresses  []*models.Address
	seq        int
	failCreate bool
}

func (m *memGuardianStore) FindByEmail(ctx context.Context, email string) (*models.Guardian, error) {
	for _, g := range m.guardians {
		if (g.FinancialEmail != nil && *g.FinancialEmail == email) ||
			(g.PedagogicEmail != nil && *g.PedagogicEmail == email) {
			return g, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memGuardianStore) FindByTaxID(ctx context.Context, taxID string) (*models.Guardian, error) {
	for _, g := range m.guardians {
		if (g.FinancialTaxID != nil && *g.FinancialTaxID == taxID) ||
			(g.PedagogicTaxID != nil && *g.PedagogicTaxID == taxID) {
			return g, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memGuardianStore) Create(ctx context.Context, guardian *models.Guardian) error {
	if m.failCreate {
		return fmt.Errorf("insert rejected")
	}
	m.seq++
	guardian.ID = fmt.Sprintf("guardian-%d", m.seq)
	m.guardians = append(m.guardians, guardian)
	return nil
}

func (m *memGuardianStore) Update(ctx context.Context, guardian *models.Guardian) error {
	for i, g := range m.guardians {
		if g.ID == guardian.ID {
			m.guardians[i] = guardian
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memGuardianStore) UpsertAddress(ctx context.Context, address *models.Address) error {
	for i, a := range m.addresses {
		if a.GuardianID == address.GuardianID && a.Type == address.Type {
			m.addresses[i] = address
			return nil
		}
	}
	m.addresses = append(m.addresses, address)
	return nil
}

type memLinkStore struct {
	links     map[string][]string
	deleteErr error
}

func (m *memLinkStore) DeleteByStudent(ctx context.Context, studentID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if m.links != nil {
		delete(m.links, studentID)
	}
	return nil
}

func (m *memLinkStore) Insert(ctx context.Context, studentID, guardianID string) error {
	if m.links == nil {
		m.links = make(map[string][]string)
	}
	m.links[studentID] = append(m.links[studentID], guardianID)
	return nil
}

type memLogStore struct {
	logs []*models.ImportLog
	seq  int
}

func (m *memLogStore) Create(ctx context.Context, log *models.ImportLog) error {
	m.seq++
	log.ID = fmt.Sprintf("log-%d", m.seq)
	if log.Status == "" {
		log.Status = models.ImportStatusPending
	}
	log.StartedAt = time.Now().UTC()
	m.logs = append(m.logs, log)
	return nil
}

func (m *memLogStore) Update(ctx context.Context, log *models.ImportLog) error {
	for i, l := range m.logs {
		if l.ID == log.ID {
			m.logs[i] = log
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memLogStore) FindByID(ctx context.Context, id string) (*models.ImportLog, error) {
	for _, l := range m.logs {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memLogStore) List(ctx context.Context, filter models.ImportLogFilter) ([]models.ImportLog, int, error) {
	out := make([]models.ImportLog, 0, len(m.logs))
	for _, l := range m.logs {
		out = append(out, *l)
	}
	return out, len(out), nil
}

type memProgressStore struct {
	snapshots []models.ImportProgress
}

func (m *memProgressStore) Set(ctx context.Context, progress models.ImportProgress) error {
	m.snapshots = append(m.snapshots, progress)
	return nil
}

func (m *memProgressStore) Get(ctx context.Context, logID string) (*models.ImportProgress, error) {
	for i := len(m.snapshots) - 1; i >= 0; i-- {
		if m.snapshots[i].LogID == logID {
			return &m.snapshots[i], nil
		}
	}
	return nil, appErrors.ErrCacheMiss
}

type importFixture struct {
	companies *memCompanyStore
	classes   *memClassStore
	students  *memStudentStore
	guardians *memGuardianStore
	links     *memLinkStore
	logs      *memLogStore
	progress  *memProgressStore
	svc       *ImportService
}

func newImportFixture(t *testing.T, opts ...ImportOption) *importFixture {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testAPIKey), bcrypt.MinCost)
	require.NoError(t, err)

	f := &importFixture{
		companies: &memCompanyStore{companies: map[string]models.Company{
			testCompanyID: {ID: testCompanyID, Name: "Escola Modelo", Active: true, ImportAPIKeyHash: string(hash)},
		}},
		classes:   &memClassStore{},
		students:  &memStudentStore{},
		guardians: &memGuardianStore{},
		links:     &memLinkStore{},
		logs:      &memLogStore{},
		progress:  &memProgressStore{},
	}
	allOpts := append([]ImportOption{WithImportProgress(f.progress)}, opts...)
	f.svc = NewImportService(ImportStores{
		Companies: f.companies,
		Classes:   f.classes,
		Students:  f.students,
		Guardians: f.guardians,
		Links:     f.links,
		Logs:      f.logs,
	}, nil, zap.NewNop(), allOpts...)
	return f
}

func importRequest(records ...dto.ImportRecord) dto.ImportRequest {
	return dto.ImportRequest{CompanyID: testCompanyID, APIKey: testAPIKey, Records: records}
}

func fullRecord(registration, className string, financial, pedagogic *dto.ImportGuardian) dto.ImportRecord {
	return dto.ImportRecord{
		StudentName:        "Aluno " + registration,
		RegistrationNumber: registration,
		ClassDescription:   className,
		CourseType:         "Ensino Fundamental",
		Status:             "ATIVO",
		Financial:          financial,
		Pedagogic:          pedagogic,
	}
}

func TestImportRunHappyPath(t *testing.T) {
	f := newImportFixture(t)
	pai := &dto.ImportGuardian{
		Name: "Pai Silva", TaxID: "111.111.111-11", Email: "pai@example.com", Phone: "11 99999-0000",
		Address: dto.ImportAddress{Street: "Rua A", Number: "10", City: "Sao Paulo", State: "SP"},
	}
	mae := &dto.ImportGuardian{Name: "Mae Silva", TaxID: "222.222.222-22"}

	result, err := f.svc.Run(context.Background(), importRequest(
		fullRecord("100", "1A EFAI", pai, mae),
		fullRecord("200", "6B EFAF", mae, nil),
	))

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, models.ImportStatusSuccess, result.Status)
	assert.Equal(t, 2, result.TotalRecords)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 0, result.Updated)
	assert.Empty(t, result.Errors)

	require.Len(t, f.classes.classes, 2)
	assert.Equal(t, models.SegmentEFAI, f.classes.classes[0].Segment)
	assert.Equal(t, models.ClassStatusActive, f.classes.classes[0].Status)

	require.Len(t, f.students.students, 2)
	assert.Equal(t, "100", f.students.students[0].RegistrationNumber)
	require.NotNil(t, f.students.students[0].ClassID)
	assert.Equal(t, f.classes.classes[0].ID, *f.students.students[0].ClassID)

	// Two distinct people across the batch, each persisted once.
	require.Len(t, f.guardians.guardians, 2)
	first := f.guardians.guardians[0]
	assert.Equal(t, models.GuardianTypeFinanceiro, first.Tipo)
	require.NotNil(t, first.FinancialTaxID)
	assert.Equal(t, "11111111111", *first.FinancialTaxID)
	require.NotNil(t, first.FinancialEmail)
	assert.Equal(t, "pai@example.com", *first.FinancialEmail)
	assert.Nil(t, first.PedagogicName)

	require.Len(t, f.guardians.addresses, 1)
	assert.Equal(t, first.ID, f.guardians.addresses[0].GuardianID)
	assert.Equal(t, models.AddressTypeResidential, f.guardians.addresses[0].Type)

	assert.Len(t, f.links.links[f.students.students[0].ID], 2)
	assert.Len(t, f.links.links[f.students.students[1].ID], 1)

	require.Len(t, f.logs.logs, 1)
	logRow := f.logs.logs[0]
	assert.Equal(t, models.ImportStatusSuccess, logRow.Status)
	assert.NotNil(t, logRow.FinishedAt)
	assert.NotEmpty(t, logRow.RawPayload)
}

func TestImportRunGuardianEscalatesToAmbos(t *testing.T) {
	f := newImportFixture(t)
	mae := &dto.ImportGuardian{Name: "Mae Silva", TaxID: "222.222.222-22", Email: "mae@example.com"}

	// Financial for one student, pedagogical for a sibling.
	_, err := f.svc.Run(context.Background(), importRequest(
		fullRecord("100", "1A EFAI", mae, nil),
		fullRecord("200", "3B EM", &dto.ImportGuardian{Name: "Pai", TaxID: "111.111.111-11"}, mae),
	))
	require.NoError(t, err)

	require.Len(t, f.guardians.guardians, 2)
	g := f.guardians.guardians[0]
	assert.Equal(t, models.GuardianTypeAmbos, g.Tipo)
	require.NotNil(t, g.FinancialTaxID)
	require.NotNil(t, g.PedagogicTaxID)
	assert.Equal(t, *g.FinancialTaxID, *g.PedagogicTaxID)
	require.NotNil(t, g.PedagogicName)
	assert.Equal(t, "Mae Silva", *g.PedagogicName)
}

func TestImportRunIsIdempotent(t *testing.T) {
	f := newImportFixture(t)
	req := importRequest(
		fullRecord("100", "1A EFAI",
			&dto.ImportGuardian{Name: "Pai", TaxID: "111.111.111-11", Email: "pai@example.com"},
			&dto.ImportGuardian{Name: "Mae", TaxID: "222.222.222-22"}),
	)

	first, err := f.svc.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Created)
	assert.Equal(t, 0, first.Updated)

	second, err := f.svc.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusSuccess, second.Status)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 1, second.Updated)

	assert.Len(t, f.students.students, 1)
	assert.Len(t, f.classes.classes, 1)
	assert.Len(t, f.guardians.guardians, 2)
	assert.Len(t, f.links.links[f.students.students[0].ID], 2)
}

func TestImportRunReplacesLinksOnReimport(t *testing.T) {
	f := newImportFixture(t)
	pai := &dto.ImportGuardian{Name: "Pai", TaxID: "111.111.111-11"}
	mae := &dto.ImportGuardian{Name: "Mae", TaxID: "222.222.222-22"}

	_, err := f.svc.Run(context.Background(), importRequest(fullRecord("100", "1A EFAI", pai, mae)))
	require.NoError(t, err)
	studentID := f.students.students[0].ID
	require.Len(t, f.links.links[studentID], 2)

	// The second batch drops the pedagogical guardian; the link set follows.
	_, err = f.svc.Run(context.Background(), importRequest(fullRecord("100", "1A EFAI", pai, nil)))
	require.NoError(t, err)
	require.Len(t, f.links.links[studentID], 1)
	assert.Equal(t, f.guardians.guardians[0].ID, f.links.links[studentID][0])
}

func TestImportRunPartialOnStudentFailure(t *testing.T) {
	f := newImportFixture(t)
	f.students.failFor = "200"
	pai := &dto.ImportGuardian{Name: "Pai", TaxID: "111.111.111-11"}

	result, err := f.svc.Run(context.Background(), importRequest(
		fullRecord("100", "1A EFAI", pai, nil),
		fullRecord("200", "1A EFAI", pai, nil),
		fullRecord("300", "1A EFAI", pai, nil),
	))

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, models.ImportStatusPartial, result.Status)
	assert.Equal(t, 2, result.Processed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "200", result.Errors[0].Record)
	assert.Contains(t, result.Errors[0].Error, "failed to create student")

	// The failing group does not stop the later one.
	assert.Len(t, f.students.students, 2)
}

func TestImportRunErrorWhenEveryGroupFails(t *testing.T) {
	f := newImportFixture(t)
	f.classes.failAll = true

	result, err := f.svc.Run(context.Background(), importRequest(
		fullRecord("100", "1A EFAI", &dto.ImportGuardian{Name: "Pai", TaxID: "111.111.111-11"}, nil),
	))

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, models.ImportStatusError, result.Status)
	assert.Equal(t, 0, result.Processed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, models.ImportStatusError, f.logs.logs[0].Status)
}

func TestImportRunNoFinancialGuardianFailsStudent(t *testing.T) {
	f := newImportFixture(t)

	result, err := f.svc.Run(context.Background(), importRequest(
		fullRecord("100", "1A EFAI", nil, nil),
	))

	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusError, result.Status)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "100", result.Errors[0].Record)
	assert.Contains(t, result.Errors[0].Error, "no financial guardian identifiable")
}

func TestImportRunLinkDeleteFailureFailsStudent(t *testing.T) {
	f := newImportFixture(t)
	f.links.deleteErr = fmt.Errorf("lock timeout")

	result, err := f.svc.Run(context.Background(), importRequest(
		fullRecord("100", "1A EFAI", &dto.ImportGuardian{Name: "Pai", TaxID: "111.111.111-11"}, nil),
	))

	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusError, result.Status)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error, "failed to clear student guardian links")
}

func TestImportPrepareRejectsEmptyBatch(t *testing.T) {
	f := newImportFixture(t)

	_, err := f.svc.Run(context.Background(), dto.ImportRequest{CompanyID: testCompanyID, APIKey: testAPIKey})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Run(context.Background(), dto.ImportRequest{CompanyID: testCompanyID, APIKey: testAPIKey, Records: []dto.ImportRecord{}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrEmptyImport.Code, appErrors.FromError(err).Code)

	assert.Empty(t, f.logs.logs, "fatal rejections leave no log row")
}

func TestImportPrepareRejectsOversizedBatch(t *testing.T) {
	f := newImportFixture(t, WithMaxRecords(1))

	_, err := f.svc.Run(context.Background(), importRequest(
		fullRecord("100", "1A EFAI", nil, nil),
		fullRecord("200", "1A EFAI", nil, nil),
	))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestImportPrepareCompanyNotFoundLeavesErrorLog(t *testing.T) {
	f := newImportFixture(t)

	req := importRequest(fullRecord("100", "1A EFAI", nil, nil))
	req.CompanyID = "missing-company"

	_, err := f.svc.Run(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCompanyNotFound.Code, appErrors.FromError(err).Code)

	require.Len(t, f.logs.logs, 1)
	logRow := f.logs.logs[0]
	assert.Equal(t, models.ImportStatusError, logRow.Status)
	assert.Equal(t, "missing-company", logRow.CompanyID)
	assert.Equal(t, 1, logRow.ErrorCount)
	assert.NotNil(t, logRow.FinishedAt)
}

func TestImportPrepareRejectsInactiveCompany(t *testing.T) {
	f := newImportFixture(t)
	company := f.companies.companies[testCompanyID]
	company.Active = false
	f.companies.companies[testCompanyID] = company

	_, err := f.svc.Run(context.Background(), importRequest(fullRecord("100", "1A EFAI", nil, nil)))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.logs.logs)
}

func TestImportPrepareRejectsBadAPIKey(t *testing.T) {
	f := newImportFixture(t)

	req := importRequest(fullRecord("100", "1A EFAI", nil, nil))
	req.APIKey = "wrong"

	_, err := f.svc.Run(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidAPIKey.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.logs.logs)
}

func TestImportGuardianLookupPrefersEmail(t *testing.T) {
	f := newImportFixture(t)

	// Pre-existing guardian row under a different tax-id but the same email:
	// the email lookup must re-use it instead of creating a second row.
	email := "pai@example.com"
	taxID := "99999999999"
	f.guardians.guardians = append(f.guardians.guardians, &models.Guardian{
		ID:             "guardian-existing",
		Tipo:           models.GuardianTypeFinanceiro,
		FinancialName:  strPtr("Registro Antigo"),
		FinancialTaxID: strPtr(taxID),
		FinancialEmail: strPtr(email),
	})

	_, err := f.svc.Run(context.Background(), importRequest(
		fullRecord("100", "1A EFAI",
			&dto.ImportGuardian{Name: "Pai Silva", TaxID: "111.111.111-11", Email: "PAI@example.com"}, nil),
	))
	require.NoError(t, err)

	require.Len(t, f.guardians.guardians, 1)
	g := f.guardians.guardians[0]
	assert.Equal(t, "guardian-existing", g.ID)
	require.NotNil(t, g.FinancialTaxID)
	assert.Equal(t, "11111111111", *g.FinancialTaxID, "incoming data overwrites the matched row")
}

func TestImportRunWritesProgressSnapshots(t *testing.T) {
	f := newImportFixture(t)

	result, err := f.svc.Run(context.Background(), importRequest(
		fullRecord("100", "1A EFAI", &dto.ImportGuardian{Name: "Pai", TaxID: "111.111.111-11"}, nil),
	))
	require.NoError(t, err)

	require.NotEmpty(t, f.progress.snapshots)
	last := f.progress.snapshots[len(f.progress.snapshots)-1]
	assert.Equal(t, result.LogID, last.LogID)
	assert.Equal(t, "finished", last.Stage)
	assert.Equal(t, 100, last.Percent)
	assert.Equal(t, models.ImportStatusSuccess, last.Status)

	snapshot, err := f.svc.GetProgress(context.Background(), result.LogID)
	require.NoError(t, err)
	assert.Equal(t, 100, snapshot.Percent)
}

func TestGetProgressFallsBackToPersistedLog(t *testing.T) {
	f := newImportFixture(t)
	now := time.Now().UTC()
	logRow := &models.ImportLog{CompanyID: testCompanyID, Status: models.ImportStatusSuccess, FinishedAt: &now}
	require.NoError(t, f.logs.Create(context.Background(), logRow))

	snapshot, err := f.svc.GetProgress(context.Background(), logRow.ID)
	require.NoError(t, err)
	assert.Equal(t, "persisted", snapshot.Stage)
	assert.Equal(t, 100, snapshot.Percent)
	assert.Equal(t, models.ImportStatusSuccess, snapshot.Status)
}

func TestGetLogNotFound(t *testing.T) {
	f := newImportFixture(t)

	_, err := f.svc.GetLog(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
