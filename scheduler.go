// Package adaptivescheduler is the public facade for the adaptive health
// scheduling engine: given a horizon and a set of validated recurring
// activities, specialists, equipment, and travel periods, it produces a
// concrete calendar plus a forensic record of any demand that could not
// be placed.
//
// The package itself is the integration surface; a host application
// supplies already-sanitized domain objects (activity/resource loading,
// JSON import, and CLI entry points are explicitly out of scope) and
// consumes the returned Result.
package adaptivescheduler

import (
	"time"

	"github.com/healthloop/adaptive-scheduler/internal/config"
	"github.com/healthloop/adaptive-scheduler/internal/core"
	"github.com/healthloop/adaptive-scheduler/internal/ledger"
	"github.com/healthloop/adaptive-scheduler/internal/scheduler"
)

// Re-exported domain types, so callers never need to import internal/core
// directly.
type (
	Activity            = core.Activity
	ActivityType        = core.ActivityType
	Location            = core.Location
	Frequency           = core.Frequency
	FrequencyPattern    = core.FrequencyPattern
	Specialist          = core.Specialist
	AvailabilityWindow  = core.AvailabilityWindow
	Equipment           = core.Equipment
	MaintenanceInterval = core.MaintenanceInterval
	TravelPeriod        = core.TravelPeriod
	TimeSlot            = core.TimeSlot
	ConstraintViolation = core.ConstraintViolation
	ViolationKind       = core.ViolationKind
	SchedulingAttempt   = core.SchedulingAttempt

	Config = config.Config

	DayContextInfo = ledger.DayContextInfo
	LoadIntensity  = ledger.LoadIntensity
	Statistics     = ledger.Statistics
)

const (
	ActivityFitness      = core.ActivityFitness
	ActivityFood         = core.ActivityFood
	ActivityMedication   = core.ActivityMedication
	ActivityTherapy      = core.ActivityTherapy
	ActivityConsultation = core.ActivityConsultation
	ActivityOther        = core.ActivityOther

	LocationHome     = core.LocationHome
	LocationGym      = core.LocationGym
	LocationClinic   = core.LocationClinic
	LocationOutdoors = core.LocationOutdoors
	LocationAny      = core.LocationAny

	FrequencyDaily   = core.FrequencyDaily
	FrequencyWeekly  = core.FrequencyWeekly
	FrequencyMonthly = core.FrequencyMonthly
)

// Input bundles the planning horizon and the fully validated domain
// collections a run needs. Config is optional; nil falls back to
// config.Default().
type Input = scheduler.Input

// Result is the serializable output of a run, matching the shape
// described for downstream (dashboard) consumption: the chronological
// schedule, the terminal failure report, per-day context, and summary
// statistics.
type Result struct {
	Schedule         map[string][]TimeSlot        `json:"schedule"`
	FailuresTerminal map[string]SchedulingAttempt `json:"failures_terminal"`
	DayContext       map[string]DayContextInfo    `json:"day_context"`
	Statistics       Statistics                   `json:"statistics"`
}

// Run validates the input and produces a complete Result. Validation
// failures abort before any state is produced; the returned error
// identifies the offending object.
func Run(input Input) (*Result, error) {
	state, err := scheduler.Run(input)
	if err != nil {
		return nil, err
	}
	// scheduler.Run resolves a zero HorizonDays from Config.Horizon.Days
	// on its own local copy of input; buildResult needs the same
	// resolved value to bound its horizon walk the same way.
	if input.HorizonDays <= 0 {
		input.HorizonDays = scheduler.EffectiveConfig(input).Horizon.Days
	}
	return buildResult(state, input), nil
}

func buildResult(state *ledger.State, input Input) *Result {
	d0 := core.CivilDate(input.StartDate)
	horizonEnd := HorizonEnd(input.StartDate, input.HorizonDays)

	schedule := make(map[string][]TimeSlot)
	dayContext := make(map[string]DayContextInfo)

	for day := d0; day.Before(horizonEnd); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")

		if slots := state.SlotsForDate(day); len(slots) > 0 {
			schedule[key] = slots
		}
		dayContext[key] = state.DayContext(day, input.TravelPeriods)
	}

	failures := make(map[string]SchedulingAttempt)
	for _, f := range state.FailureReport() {
		failures[f.ActivityID] = f
	}

	return &Result{
		Schedule:         schedule,
		FailuresTerminal: failures,
		DayContext:       dayContext,
		Statistics:       state.Statistics(),
	}
}

// HorizonEnd returns the exclusive end date of the planning horizon for
// the given start date and day count.
func HorizonEnd(start time.Time, horizonDays int) time.Time {
	return core.CivilDate(start).AddDate(0, 0, horizonDays)
}
