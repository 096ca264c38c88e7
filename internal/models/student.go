package models

import "time"

// StudentStatus marks enrollment state as reported by the external system.
type StudentStatus string

const (
	StudentStatusActive   StudentStatus = "ACTIVE"
	StudentStatusInactive StudentStatus = "INACTIVE"
)

// Student represents a learner registered in a company. Unique per company
// by registration number ("prontuário"). The class pointer is the exclusive
// current class and is overwritten on each import run.
type Student struct {
	ID                 string        `db:"id" json:"id"`
	CompanyID          string        `db:"company_id" json:"company_id"`
	RegistrationNumber string        `db:"registration_number" json:"registration_number"`
	Name               string        `db:"name" json:"name"`
	Status             StudentStatus `db:"status" json:"status"`
	ClassID            *string       `db:"class_id" json:"class_id,omitempty"`
	CreatedAt          time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at" json:"updated_at"`
}

// StudentDetail joins the current class description for list screens.
type StudentDetail struct {
	Student
	ClassDescription *string `db:"class_description" json:"class_description,omitempty"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	CompanyID string
	ClassID   string
	Status    StudentStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentGuardianLink associates a student with one of its guardians. The
// full link set for a student is rebuilt on every import run that touches
// that student.
type StudentGuardianLink struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	GuardianID string    `db:"guardian_id" json:"guardian_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
