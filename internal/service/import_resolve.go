package service

import (
	"context"
	"database/sql"
	"strings"

	"go.uber.org/zap"

	"github.com/escolare/portal-api/internal/models"
)

// resolvedGuardian pairs a candidate's tax-id with the persisted guardian id.
// The slice built per student feeds the link synchronizer in resolution order.
type resolvedGuardian struct {
	taxID      string
	guardianID string
}

// resolveClass upserts the class of a student group from the group's first
// record, recomputing segment, course type and status on every run.
func (s *ImportService) resolveClass(ctx context.Context, companyID string, group recordGroup) (string, error) {
	first := group.records[0]
	description := cleanField(first.ClassDescription)
	courseType := cleanField(first.CourseType)
	segment := classifySegment(description, courseType)
	status := models.ClassStatusInactive
	if strings.EqualFold(cleanField(first.Status), "ATIVO") {
		status = models.ClassStatusActive
	}

	existing, err := s.classes.FindByDescription(ctx, companyID, description)
	if err != nil && err != sql.ErrNoRows {
		return "", newStudentError(group.registration, "failed to look up class", err)
	}

	if err == sql.ErrNoRows {
		class := &models.Class{
			CompanyID:   companyID,
			Description: description,
			Segment:     segment,
			CourseType:  courseType,
			Status:      status,
		}
		if err := s.classes.Create(ctx, class); err != nil {
			return "", newStudentError(group.registration, "failed to create class", err)
		}
		return class.ID, nil
	}

	existing.Segment = segment
	existing.CourseType = courseType
	existing.Status = status
	if err := s.classes.Update(ctx, existing); err != nil {
		return "", newStudentError(group.registration, "failed to update class", err)
	}
	return existing.ID, nil
}

// resolveStudent upserts the student of a group, attaching the resolved
// class as the exclusive current class. The boolean reports creation.
func (s *ImportService) resolveStudent(ctx context.Context, companyID, classID string, group recordGroup) (string, bool, error) {
	first := group.records[0]
	name := cleanField(first.StudentName)
	status := models.StudentStatusInactive
	if strings.EqualFold(cleanField(first.Status), "ATIVO") {
		status = models.StudentStatusActive
	}

	existing, err := s.students.FindByRegistration(ctx, companyID, group.registration)
	if err != nil && err != sql.ErrNoRows {
		return "", false, newStudentError(group.registration, "failed to look up student", err)
	}

	if err == sql.ErrNoRows {
		student := &models.Student{
			CompanyID:          companyID,
			RegistrationNumber: group.registration,
			Name:               name,
			Status:             status,
			ClassID:            &classID,
		}
		if err := s.students.Create(ctx, student); err != nil {
			return "", false, newStudentError(group.registration, "failed to create student", err)
		}
		return student.ID, true, nil
	}

	existing.Name = name
	existing.Status = status
	existing.ClassID = &classID
	if err := s.students.Update(ctx, existing); err != nil {
		return "", false, newStudentError(group.registration, "failed to update student", err)
	}
	return existing.ID, false, nil
}

// resolveGuardians persists every arbitrated candidate, financial guardian
// first. A failure on the financial guardian fails the student; failures on
// the remaining candidates only exclude them from linking.
func (s *ImportService) resolveGuardians(ctx context.Context, registration string, candidates []*guardianCandidate) ([]resolvedGuardian, error) {
	resolved := make([]resolvedGuardian, 0, len(candidates))

	for i, candidate := range candidates {
		guardianID, err := s.upsertGuardian(ctx, candidate)
		if err != nil {
			if i == 0 {
				return nil, newStudentError(registration, "failed to persist financial guardian", err)
			}
			s.logger.Warn("guardian upsert failed, excluded from linking",
				zap.String("registration", registration),
				zap.String("tax_id", candidate.taxID),
				zap.Error(err))
			continue
		}
		resolved = append(resolved, resolvedGuardian{taxID: candidate.taxID, guardianID: guardianID})

		s.upsertAddress(ctx, guardianID, candidate)
	}

	return resolved, nil
}

// upsertGuardian finds an existing guardian by email first, tax-id second,
// and inserts or merges field-level data according to the candidate's
// role-set.
func (s *ImportService) upsertGuardian(ctx context.Context, candidate *guardianCandidate) (string, error) {
	var existing *models.Guardian
	var err error

	if candidate.email != "" {
		existing, err = s.guardians.FindByEmail(ctx, candidate.email)
	} else {
		existing, err = s.guardians.FindByTaxID(ctx, candidate.taxID)
	}
	if err != nil && err != sql.ErrNoRows {
		return "", err
	}

	if err == sql.ErrNoRows {
		guardian := &models.Guardian{}
		applyCandidate(guardian, candidate)
		if err := s.guardians.Create(ctx, guardian); err != nil {
			return "", err
		}
		return guardian.ID, nil
	}

	applyCandidate(existing, candidate)
	if err := s.guardians.Update(ctx, existing); err != nil {
		return "", err
	}
	return existing.ID, nil
}

// applyCandidate merges a candidate into a guardian row. When the incoming
// role-set joins a record already holding the other role the type escalates
// to AMBOS and both field groups receive this candidate's data. That copies
// one person's data across role slots, mirroring how the legacy consolidation
// behaved; do not change it without a data review.
func applyCandidate(guardian *models.Guardian, candidate *guardianCandidate) {
	finalType := candidate.guardianType()
	tipo := escalateType(guardian.Tipo, finalType)
	guardian.Tipo = tipo

	writeFinancial := candidate.financial || tipo == models.GuardianTypeAmbos
	writePedagogic := candidate.pedagogic || tipo == models.GuardianTypeAmbos

	if writeFinancial {
		guardian.FinancialName = strPtr(candidate.name)
		guardian.FinancialTaxID = strPtr(candidate.taxID)
		guardian.FinancialEmail = optPtr(candidate.email)
		guardian.FinancialPhone = optPtr(candidate.phone)
	}
	if writePedagogic {
		guardian.PedagogicName = strPtr(candidate.name)
		guardian.PedagogicTaxID = strPtr(candidate.taxID)
		guardian.PedagogicEmail = optPtr(candidate.email)
		guardian.PedagogicPhone = optPtr(candidate.phone)
	}
}

// escalateType widens an existing type tag with the incoming one.
func escalateType(current, incoming models.GuardianType) models.GuardianType {
	if current == "" || current == incoming {
		return incoming
	}
	return models.GuardianTypeAmbos
}

// upsertAddress writes the residential address snapshot when it carries a
// street or city. Failures are tolerated: logged, never escalated.
func (s *ImportService) upsertAddress(ctx context.Context, guardianID string, candidate *guardianCandidate) {
	addr := candidate.address
	street := cleanField(addr.Street)
	city := cleanField(addr.City)
	if street == "" && city == "" {
		return
	}

	address := &models.Address{
		GuardianID: guardianID,
		Type:       models.AddressTypeResidential,
		Street:     street,
		Number:     cleanField(addr.Number),
		District:   cleanField(addr.District),
		City:       city,
		State:      cleanField(addr.State),
		ZipCode:    cleanField(addr.ZipCode),
	}
	if err := s.guardians.UpsertAddress(ctx, address); err != nil {
		s.logger.Warn("guardian address upsert failed",
			zap.String("guardian_id", guardianID),
			zap.Error(err))
	}
}

// syncLinks rebuilds the student's guardian links: delete everything, then
// insert one link per resolved guardian. Last import wins.
func (s *ImportService) syncLinks(ctx context.Context, registration, studentID string, resolved []resolvedGuardian) error {
	if err := s.links.DeleteByStudent(ctx, studentID); err != nil {
		return newStudentError(registration, "failed to clear student guardian links", err)
	}

	for _, rg := range resolved {
		if err := s.links.Insert(ctx, studentID, rg.guardianID); err != nil {
			s.logger.Warn("student guardian link insert failed",
				zap.String("student_id", studentID),
				zap.String("guardian_id", rg.guardianID),
				zap.Error(err))
		}
	}

	return nil
}

func strPtr(v string) *string {
	return &v
}

func optPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
