package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ImportStatus captures the lifecycle of an import run.
type ImportStatus string

const (
	ImportStatusPending    ImportStatus = "PENDING"
	ImportStatusInProgress ImportStatus = "IN_PROGRESS"
	ImportStatusSuccess    ImportStatus = "SUCCESS"
	ImportStatusPartial    ImportStatus = "PARTIAL"
	ImportStatusError      ImportStatus = "ERROR"
)

// ImportError records one failed student group within a run.
type ImportError struct {
	RegistrationNumber string `json:"record"`
	Message            string `json:"error"`
}

// ImportErrorList persists the run's error records as JSONB.
type ImportErrorList []ImportError

// Value marshals the error list for persistence.
func (l ImportErrorList) Value() (driver.Value, error) {
	if l == nil {
		l = ImportErrorList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal import errors: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the error list.
func (l *ImportErrorList) Scan(value interface{}) error {
	if value == nil {
		*l = ImportErrorList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ImportErrorList", value)
	}
	if len(data) == 0 {
		*l = ImportErrorList{}
		return nil
	}
	if err := json.Unmarshal(data, l); err != nil {
		return fmt.Errorf("unmarshal import errors: %w", err)
	}
	return nil
}

// ImportLog is the persisted audit row for one import run. RawPayload keeps
// the original request body for replay.
type ImportLog struct {
	ID           string          `db:"id" json:"id"`
	CompanyID    string          `db:"company_id" json:"company_id"`
	Status       ImportStatus    `db:"status" json:"status"`
	TotalRecords int             `db:"total_records" json:"total_records"`
	Processed    int             `db:"processed" json:"processed"`
	Created      int             `db:"created" json:"created"`
	Updated      int             `db:"updated" json:"updated"`
	ErrorCount   int             `db:"error_count" json:"error_count"`
	Errors       ImportErrorList `db:"errors" json:"errors"`
	RawPayload   json.RawMessage `db:"raw_payload" json:"-"`
	StartedAt    time.Time       `db:"started_at" json:"started_at"`
	FinishedAt   *time.Time      `db:"finished_at" json:"finished_at,omitempty"`
}

// ImportLogFilter scopes import log listings.
type ImportLogFilter struct {
	CompanyID string
	Status    ImportStatus
	Page      int
	PageSize  int
}

// ImportProgress is the coarse live progress snapshot cached while a run
// executes. Percent is an estimate driven by stage markers, not a per-row
// counter.
type ImportProgress struct {
	LogID     string       `json:"log_id"`
	Status    ImportStatus `json:"status"`
	Stage     string       `json:"stage"`
	Percent   int          `json:"percent"`
	UpdatedAt time.Time    `json:"updated_at"`
}
