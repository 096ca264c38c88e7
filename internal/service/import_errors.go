package service

import "fmt"

// studentImportError marks a failure confined to one student group. The
// orchestrator catches it at the group boundary, records the registration
// number and carries on with the next group.
type studentImportError struct {
	registration string
	message      string
	err          error
}

func (e *studentImportError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}
	return e.message
}

func (e *studentImportError) Unwrap() error {
	return e.err
}

func newStudentError(registration, message string, err error) *studentImportError {
	return &studentImportError{registration: registration, message: message, err: err}
}

func noFinancialGuardianError(registration string) *studentImportError {
	return &studentImportError{
		registration: registration,
		message:      fmt.Sprintf("no financial guardian identifiable for registration %s", registration),
	}
}
