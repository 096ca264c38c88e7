package dto

import "github.com/escolare/portal-api/internal/models"

// ImportAddress carries the raw residential address block of one guardian
// as supplied by the external system.
type ImportAddress struct {
	Street   string `json:"street"`
	Number   string `json:"number"`
	District string `json:"district"`
	City     string `json:"city"`
	State    string `json:"state"`
	ZipCode  string `json:"zipCode"`
}

// ImportGuardian is one guardian block of an import record. All fields are
// raw strings; normalization happens inside the import pipeline.
type ImportGuardian struct {
	Name    string        `json:"name"`
	TaxID   string        `json:"taxId"`
	Email   string        `json:"email"`
	Phone   string        `json:"phone"`
	Address ImportAddress `json:"address"`
}

// ImportRecord is one row of the external export: one student-class-guardian
// combination. The same registration number may appear on several records,
// one per guardian pairing.
type ImportRecord struct {
	StudentName        string          `json:"studentName"`
	RegistrationNumber string          `json:"registrationNumber"`
	ClassDescription   string          `json:"classDescription"`
	CourseType         string          `json:"courseType"`
	Status             string          `json:"status"`
	Financial          *ImportGuardian `json:"financial,omitempty"`
	Pedagogic          *ImportGuardian `json:"pedagogic,omitempty"`
}

// ImportRequest is the full payload of a student import run.
type ImportRequest struct {
	CompanyID string         `json:"companyId" validate:"required"`
	APIKey    string         `json:"apiKey" validate:"required"`
	Records   []ImportRecord `json:"records" validate:"required"`
}

// ImportResultError mirrors one per-student failure in the response.
type ImportResultError struct {
	Record string `json:"record"`
	Error  string `json:"error"`
}

// ImportResult is the outcome summary returned for a finished run.
type ImportResult struct {
	Success      bool                `json:"success"`
	LogID        string              `json:"logId"`
	Status       models.ImportStatus `json:"status"`
	TotalRecords int                 `json:"totalRecords"`
	Processed    int                 `json:"processed"`
	Created      int                 `json:"created"`
	Updated      int                 `json:"updated"`
	ErrorCount   int                 `json:"errorCount"`
	Errors       []ImportResultError `json:"errors"`
}

// QueuedImport acknowledges an asynchronous import submission.
type QueuedImport struct {
	LogID        string              `json:"logId"`
	Status       models.ImportStatus `json:"status"`
	TotalRecords int                 `json:"totalRecords"`
}
