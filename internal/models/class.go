package models

import "time"

// Segment classifies the pedagogical stage of a class.
type Segment string

const (
	SegmentEducacaoInfantil Segment = "EDUCACAO_INFANTIL"
	SegmentEFAI             Segment = "EFAI"
	SegmentEFAF             Segment = "EFAF"
	SegmentFundamental      Segment = "FUNDAMENTAL"
	SegmentMedio            Segment = "MEDIO"
	SegmentOutro            Segment = "OUTRO"
)

// ClassStatus marks whether a class is currently offered.
type ClassStatus string

const (
	ClassStatusActive   ClassStatus = "ACTIVE"
	ClassStatusInactive ClassStatus = "INACTIVE"
)

// Class represents a school class ("turma"). Unique per company by
// description; the importer recomputes segment, course type and status on
// every run but never deletes a class.
type Class struct {
	ID          string      `db:"id" json:"id"`
	CompanyID   string      `db:"company_id" json:"company_id"`
	Description string      `db:"description" json:"description"`
	Segment     Segment     `db:"segment" json:"segment"`
	CourseType  string      `db:"course_type" json:"course_type"`
	Status      ClassStatus `db:"status" json:"status"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	CompanyID string
	Segment   Segment
	Status    ClassStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
