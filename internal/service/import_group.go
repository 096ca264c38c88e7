package service

import (
	"go.uber.org/zap"

	"github.com/escolare/portal-api/internal/dto"
	"github.com/escolare/portal-api/internal/models"
)

// recordGroup holds every import record of one student, in input order.
// Order matters: first-seen wins for conflicting contact data and for the
// financial guardian tie-break.
type recordGroup struct {
	registration string
	records      []dto.ImportRecord
}

// groupRecords folds the flat record list into one group per trimmed
// registration number, preserving first-appearance order. Records without a
// registration number are dropped silently; they count neither as processed
// nor as errors.
func groupRecords(records []dto.ImportRecord, logger *zap.Logger) []recordGroup {
	index := make(map[string]int, len(records))
	var groups []recordGroup

	for _, rec := range records {
		registration := cleanField(rec.RegistrationNumber)
		if registration == "" {
			logger.Debug("skipping record without registration number",
				zap.String("student_name", rec.StudentName))
			continue
		}
		if i, ok := index[registration]; ok {
			groups[i].records = append(groups[i].records, rec)
			continue
		}
		index[registration] = len(groups)
		groups = append(groups, recordGroup{registration: registration, records: []dto.ImportRecord{rec}})
	}

	return groups
}

// guardianCandidate is one deduplicated guardian within a student group,
// keyed by normalized tax-id. The role flags form the candidate's role-set.
type guardianCandidate struct {
	name      string
	taxID     string
	email     string
	phone     string
	address   dto.ImportAddress
	financial bool
	pedagogic bool
}

// guardianType resolves the role-set to the persisted type tag.
func (c *guardianCandidate) guardianType() models.GuardianType {
	switch {
	case c.financial && c.pedagogic:
		return models.GuardianTypeAmbos
	case c.financial:
		return models.GuardianTypeFinanceiro
	default:
		return models.GuardianTypePedagogico
	}
}

// collectGuardians extracts every usable guardian from the group's records,
// both roles of every record, merging recurrences of the same tax-id. A role
// block without a name or without a normalizable tax-id is not collected.
// Contact data and the address snapshot are first-seen wins; only the
// role-set grows on later sightings. The second return value counts how many
// role sightings landed on an already-collected tax-id.
func collectGuardians(group recordGroup) ([]*guardianCandidate, int) {
	index := make(map[string]*guardianCandidate)
	var ordered []*guardianCandidate
	var merged int

	add := func(block *dto.ImportGuardian, financial bool) {
		if block == nil {
			return
		}
		name := cleanField(block.Name)
		if name == "" {
			return
		}
		taxID, ok := normalizeTaxID(block.TaxID)
		if !ok {
			return
		}

		if existing, found := index[taxID]; found {
			merged++
			if financial {
				existing.financial = true
			} else {
				existing.pedagogic = true
			}
			return
		}

		email, _ := normalizeEmail(block.Email)
		candidate := &guardianCandidate{
			name:      name,
			taxID:     taxID,
			email:     email,
			phone:     cleanField(block.Phone),
			address:   block.Address,
			financial: financial,
			pedagogic: !financial,
		}
		index[taxID] = candidate
		ordered = append(ordered, candidate)
	}

	for _, rec := range group.records {
		add(rec.Financial, true)
		add(rec.Pedagogic, false)
	}

	return ordered, merged
}

// arbitrateFinancial enforces the exactly-one-financial-guardian invariant.
// With more than one financial candidate the first keeps the role and the
// rest are demoted to pedagogical-only; a demoted candidate left without any
// role is dropped. With none, the first pedagogical candidate is promoted.
// Failing to end up with a financial guardian fails the student.
// The returned slice puts the financial guardian first so it is resolved
// before the others.
func arbitrateFinancial(candidates []*guardianCandidate, registration string) ([]*guardianCandidate, error) {
	var financialIdx = -1
	for i, c := range candidates {
		if !c.financial {
			continue
		}
		if financialIdx == -1 {
			financialIdx = i
			continue
		}
		c.financial = false
	}

	if financialIdx == -1 {
		for i, c := range candidates {
			if c.pedagogic {
				c.financial = true
				financialIdx = i
				break
			}
		}
	}

	if financialIdx == -1 {
		return nil, noFinancialGuardianError(registration)
	}

	result := make([]*guardianCandidate, 0, len(candidates))
	result = append(result, candidates[financialIdx])
	for i, c := range candidates {
		if i == financialIdx {
			continue
		}
		if !c.financial && !c.pedagogic {
			// Demoted below and holding no other role.
			continue
		}
		result = append(result, c)
	}

	return result, nil
}
