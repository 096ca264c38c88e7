package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/escolare/portal-api/internal/dto"
	"github.com/escolare/portal-api/internal/models"
	appErrors "github.com/escolare/portal-api/pkg/errors"
)

type companyStore interface {
	FindByID(ctx context.Context, id string) (*models.Company, error)
}

type classStore interface {
	FindByDescription(ctx context.Context, companyID, description string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
}

type studentStore interface {
	FindByRegistration(ctx context.Context, companyID, registrationNumber string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
}

type guardianStore interface {
	FindByEmail(ctx context.Context, email string) (*models.Guardian, error)
	FindByTaxID(ctx context.Context, taxID string) (*models.Guardian, error)
	Create(ctx context.Context, guardian *models.Guardian) error
	Update(ctx context.Context, guardian *models.Guardian) error
	UpsertAddress(ctx context.Context, address *models.Address) error
}

type linkStore interface {
	DeleteByStudent(ctx context.Context, studentID string) error
	Insert(ctx context.Context, studentID, guardianID string) error
}

type importLogStore interface {
	Create(ctx context.Context, log *models.ImportLog) error
	Update(ctx context.Context, log *models.ImportLog) error
	FindByID(ctx context.Context, id string) (*models.ImportLog, error)
	List(ctx context.Context, filter models.ImportLogFilter) ([]models.ImportLog, int, error)
}

type progressStore interface {
	Set(ctx context.Context, progress models.ImportProgress) error
	Get(ctx context.Context, logID string) (*models.ImportProgress, error)
}

type importMetrics interface {
	RecordImportRun(status models.ImportStatus)
	RecordImportStudents(processed, failed int)
	RecordGuardianMerges(count int)
}

// ImportStores bundles the persistence collaborators of the import pipeline.
type ImportStores struct {
	Companies companyStore
	Classes   classStore
	Students  studentStore
	Guardians guardianStore
	Links     linkStore
	Logs      importLogStore
}

// ImportService reconciles batches of loosely-structured student/guardian
// records into canonical students, guardians, classes and links. One run is
// a single sequential pass over the student groups; a failure in one group
// never aborts the rest of the batch.
type ImportService struct {
	companies companyStore
	classes   classStore
	students  studentStore
	guardians guardianStore
	links     linkStore
	logs      importLogStore

	progress   progressStore
	metrics    importMetrics
	maxRecords int

	validator *validator.Validate
	logger    *zap.Logger
}

// ImportOption configures optional collaborators.
type ImportOption func(*ImportService)

// WithImportProgress enables live progress snapshots.
func WithImportProgress(store progressStore) ImportOption {
	return func(s *ImportService) {
		if store != nil {
			s.progress = store
		}
	}
}

// WithImportMetrics enables run metrics.
func WithImportMetrics(metrics importMetrics) ImportOption {
	return func(s *ImportService) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithMaxRecords caps accepted batch sizes.
func WithMaxRecords(limit int) ImportOption {
	return func(s *ImportService) {
		if limit > 0 {
			s.maxRecords = limit
		}
	}
}

// NewImportService constructs the import service.
func NewImportService(stores ImportStores, validate *validator.Validate, logger *zap.Logger, opts ...ImportOption) *ImportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ImportService{
		companies: stores.Companies,
		classes:   stores.Classes,
		students:  stores.Students,
		guardians: stores.Guardians,
		links:     stores.Links,
		logs:      stores.Logs,
		validator: validate,
		logger:    logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Run executes a full import synchronously: fatal validation, log creation,
// the per-group pipeline and the final log update.
func (s *ImportService) Run(ctx context.Context, req dto.ImportRequest) (*dto.ImportResult, error) {
	log, err := s.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, log, req.Records), nil
}

// Prepare performs the whole-run fatal checks and creates the IN_PROGRESS
// log row. Everything that can reject the run before per-student work
// happens here; past this point failures are captured as data.
func (s *ImportService) Prepare(ctx context.Context, req dto.ImportRequest) (*models.ImportLog, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid import payload")
	}
	if len(req.Records) == 0 {
		return nil, appErrors.Clone(appErrors.ErrEmptyImport, "")
	}
	if s.maxRecords > 0 && len(req.Records) > s.maxRecords {
		return nil, appErrors.Clone(appErrors.ErrValidation, "import payload exceeds the record limit")
	}

	company, err := s.companies.FindByID(ctx, req.CompanyID)
	if err != nil {
		if err == sql.ErrNoRows {
			s.recordCompanyNotFound(ctx, req)
			return nil, appErrors.Clone(appErrors.ErrCompanyNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load company")
	}
	if !company.Active {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "company is inactive")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(company.ImportAPIKeyHash), []byte(req.APIKey)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidAPIKey, "")
	}

	payload, err := json.Marshal(req.Records)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to snapshot import payload")
	}

	log := &models.ImportLog{
		CompanyID:    req.CompanyID,
		Status:       models.ImportStatusInProgress,
		TotalRecords: len(req.Records),
		RawPayload:   payload,
	}
	if err := s.logs.Create(ctx, log); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create import log")
	}

	s.markProgress(ctx, log.ID, models.ImportStatusInProgress, "accepted", 5)
	return log, nil
}

// Execute runs the per-student pipeline against an already-prepared log row.
// It never returns an error: per-student failures become log error records
// and the run ends in SUCCESS, PARTIAL or ERROR.
func (s *ImportService) Execute(ctx context.Context, log *models.ImportLog, records []dto.ImportRecord) *dto.ImportResult {
	groups := groupRecords(records, s.logger)
	s.markProgress(ctx, log.ID, models.ImportStatusInProgress, "grouped", 10)

	var processed, created, updated int
	var runErrors models.ImportErrorList

	for i, group := range groups {
		wasCreated, err := s.processGroup(ctx, log.CompanyID, group)
		if err != nil {
			runErrors = append(runErrors, importErrorFrom(group.registration, err))
			s.logger.Warn("student group failed",
				zap.String("registration", group.registration),
				zap.Error(err))
		} else {
			processed++
			if wasCreated {
				created++
			} else {
				updated++
			}
		}
		percent := 10 + (85*(i+1))/len(groups)
		s.markProgress(ctx, log.ID, models.ImportStatusInProgress, "processing", percent)
	}

	status := models.ImportStatusError
	switch {
	case processed > 0 && len(runErrors) == 0:
		status = models.ImportStatusSuccess
	case processed > 0:
		status = models.ImportStatusPartial
	}

	now := time.Now().UTC()
	log.Status = status
	log.Processed = processed
	log.Created = created
	log.Updated = updated
	log.ErrorCount = len(runErrors)
	log.Errors = runErrors
	log.FinishedAt = &now
	if err := s.logs.Update(ctx, log); err != nil {
		s.logger.Error("failed to finalize import log", zap.String("log_id", log.ID), zap.Error(err))
	}

	s.markProgress(ctx, log.ID, status, "finished", 100)
	if s.metrics != nil {
		s.metrics.RecordImportRun(status)
		s.metrics.RecordImportStudents(processed, len(runErrors))
	}

	s.logger.Info("import run finished",
		zap.String("log_id", log.ID),
		zap.String("company_id", log.CompanyID),
		zap.String("status", string(status)),
		zap.Int("processed", processed),
		zap.Int("created", created),
		zap.Int("updated", updated),
		zap.Int("errors", len(runErrors)))

	return buildResult(log)
}

// processGroup runs the full pipeline for one student group. Any error
// returned here is confined to this group.
func (s *ImportService) processGroup(ctx context.Context, companyID string, group recordGroup) (bool, error) {
	classID, err := s.resolveClass(ctx, companyID, group)
	if err != nil {
		return false, err
	}

	studentID, created, err := s.resolveStudent(ctx, companyID, classID, group)
	if err != nil {
		return false, err
	}

	candidates, merged := collectGuardians(group)
	if s.metrics != nil {
		s.metrics.RecordGuardianMerges(merged)
	}
	arbitrated, err := arbitrateFinancial(candidates, group.registration)
	if err != nil {
		return false, err
	}

	resolved, err := s.resolveGuardians(ctx, group.registration, arbitrated)
	if err != nil {
		return false, err
	}

	if err := s.syncLinks(ctx, group.registration, studentID, resolved); err != nil {
		return false, err
	}

	return created, nil
}

// GetLog returns one import log row.
func (s *ImportService) GetLog(ctx context.Context, id string) (*models.ImportLog, error) {
	log, err := s.logs.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "import log not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load import log")
	}
	return log, nil
}

// ListLogs returns import logs with pagination metadata.
func (s *ImportService) ListLogs(ctx context.Context, filter models.ImportLogFilter) ([]models.ImportLog, *models.Pagination, error) {
	logs, total, err := s.logs.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list import logs")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return logs, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// GetProgress returns the live snapshot of a run, falling back to the
// persisted log when no snapshot is cached.
func (s *ImportService) GetProgress(ctx context.Context, logID string) (*models.ImportProgress, error) {
	if s.progress != nil {
		if snapshot, err := s.progress.Get(ctx, logID); err == nil {
			return snapshot, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("progress lookup failed", zap.String("log_id", logID), zap.Error(err))
		}
	}

	log, err := s.GetLog(ctx, logID)
	if err != nil {
		return nil, err
	}
	percent := 0
	if log.Status != models.ImportStatusPending && log.Status != models.ImportStatusInProgress {
		percent = 100
	}
	return &models.ImportProgress{
		LogID:     log.ID,
		Status:    log.Status,
		Stage:     "persisted",
		Percent:   percent,
		UpdatedAt: log.StartedAt,
	}, nil
}

// recordCompanyNotFound leaves an ERROR audit row when the target company
// does not exist. Best effort: the fatal error is returned regardless.
func (s *ImportService) recordCompanyNotFound(ctx context.Context, req dto.ImportRequest) {
	payload, err := json.Marshal(req.Records)
	if err != nil {
		payload = []byte("{}")
	}
	now := time.Now().UTC()
	log := &models.ImportLog{
		CompanyID:    req.CompanyID,
		Status:       models.ImportStatusError,
		TotalRecords: len(req.Records),
		ErrorCount:   1,
		Errors:       models.ImportErrorList{{Message: "company not found"}},
		RawPayload:   payload,
		FinishedAt:   &now,
	}
	if err := s.logs.Create(ctx, log); err != nil {
		s.logger.Warn("failed to record company-not-found log", zap.String("company_id", req.CompanyID), zap.Error(err))
	}
}

func (s *ImportService) markProgress(ctx context.Context, logID string, status models.ImportStatus, stage string, percent int) {
	if s.progress == nil {
		return
	}
	snapshot := models.ImportProgress{
		LogID:     logID,
		Status:    status,
		Stage:     stage,
		Percent:   percent,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.progress.Set(ctx, snapshot); err != nil {
		s.logger.Warn("failed to cache import progress", zap.String("log_id", logID), zap.Error(err))
	}
}

// importErrorFrom extracts the registration number from typed per-student
// errors, falling back to the group's own registration.
func importErrorFrom(registration string, err error) models.ImportError {
	var studentErr *studentImportError
	if errors.As(err, &studentErr) {
		return models.ImportError{RegistrationNumber: studentErr.registration, Message: studentErr.Error()}
	}
	return models.ImportError{RegistrationNumber: registration, Message: err.Error()}
}

func buildResult(log *models.ImportLog) *dto.ImportResult {
	result := &dto.ImportResult{
		Success:      log.Status != models.ImportStatusError,
		LogID:        log.ID,
		Status:       log.Status,
		TotalRecords: log.TotalRecords,
		Processed:    log.Processed,
		Created:      log.Created,
		Updated:      log.Updated,
		ErrorCount:   log.ErrorCount,
		Errors:       make([]dto.ImportResultError, 0, len(log.Errors)),
	}
	for _, e := range log.Errors {
		result.Errors = append(result.Errors, dto.ImportResultError{Record: e.RegistrationNumber, Error: e.Message})
	}
	return result
}
