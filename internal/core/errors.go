// Package core defines the fundamental types and errors for the adaptive
// health scheduling engine.
package core

import "errors"

// Validation errors, detected before a run starts. Each aborts Run with
// no partial state produced; the wrapping error (see internal/core/validate.go)
// identifies the offending object by ID.
var (
	ErrUnknownBackupActivity = errors.New("backup_activity_id does not resolve to a known activity")
	ErrBackupCycle           = errors.New("backup_activity_ids form a cycle")
	ErrPriorityOutOfRange    = errors.New("priority must be in [1, 5]")
	ErrDurationTooShort      = errors.New("duration_minutes must be >= 10")
	ErrPrepOutOfRange        = errors.New("prep_minutes must be in [0, 60]")
	ErrFrequencyCountInvalid = errors.New("frequency count out of range for its pattern")
	ErrPreferredDayInvalid   = errors.New("preferred_days entries must be in [0, 6] and only set for Weekly")
	ErrTimeWindowInvalid     = errors.New("time_window_end must be after time_window_start")
	ErrTravelPeriodInverted  = errors.New("travel period end_date before start_date")
	ErrMaintenanceInverted   = errors.New("maintenance interval end_date before start_date")
	ErrInvalidCapacity       = errors.New("max_concurrent value must be >= 1")
	ErrDuplicateID           = errors.New("duplicate id within a domain collection")
)

// ErrInvariant is the panic value used when a committed slot violates an
// invariant the Checker should have already enforced — a programmer error,
// never a scheduling outcome.
var ErrInvariant = errors.New("scheduler invariant violated")
