package plan

import "errors"

var (
	// Validation errors
	ErrValidation = errors.New("validation failed")

	// Lifecycle errors
	ErrInvalidTransition = errors.New("invalid plan state transition")

	// Plan errors
	ErrPlanNotFound  = errors.New("plan not found")
	ErrUnknownPreset = errors.New("unknown plan preset")

	// Invoice errors
	ErrInvoiceNotFound = errors.New("invoice not found")

	// Migration errors
	ErrMigrationFailure = errors.New("plan migration failed")
)
