package service

import (
	"strings"

	"github.com/escolare/portal-api/internal/models"
)

// classifySegment maps a class description and course type to a pedagogical
// segment using prioritized substring rules. The rule order is a direct
// carry-over from the legacy import routine and is load-bearing: changing it
// changes the classification of existing classes. In particular the "EM"
// check runs before the "EFAF" one and only yields when neither EFAF nor
// EFAI appears in the description.
func classifySegment(classDescription, courseType string) models.Segment {
	desc := strings.ToUpper(classDescription)

	if strings.Contains(desc, "EM") && !strings.Contains(desc, "EFAF") && !strings.Contains(desc, "EFAI") {
		return models.SegmentMedio
	}
	if strings.Contains(desc, "EFAF") {
		return models.SegmentEFAF
	}
	if strings.Contains(desc, "EFAI") {
		return models.SegmentEFAI
	}

	course := strings.ToUpper(courseType)
	switch {
	case strings.Contains(course, "INFANTIL"):
		return models.SegmentEducacaoInfantil
	case strings.Contains(course, "FUNDAMENTAL"):
		return models.SegmentFundamental
	case strings.Contains(course, "MÉDIO"), strings.Contains(course, "MEDIO"):
		return models.SegmentMedio
	}

	return models.SegmentOutro
}
