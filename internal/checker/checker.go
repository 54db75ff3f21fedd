// Package checker implements the ConstraintChecker: a pure, read-only
// gatekeeper that decides whether a candidate (activity, date, start
// time) may be committed. It never mutates the ledger it reads from.
package checker

import (
	"fmt"
	"time"

	"github.com/healthloop/adaptive-scheduler/internal/core"
	"github.com/healthloop/adaptive-scheduler/internal/ledger"
)

// Resources bundles the read-only domain collections the Checker needs
// alongside the Ledger: the supply side of the schedule.
type Resources struct {
	Specialists   map[string]*core.Specialist
	Equipment     map[string]*core.Equipment
	TravelPeriods []core.TravelPeriod
}

// Checker evaluates candidates against Resources and a ledger.State. A
// Checker is cheap to construct and holds no state of its own beyond the
// two read-only references.
type Checker struct {
	resources Resources
	state     *ledger.State
}

// New returns a Checker bound to the given resources and ledger.
func New(resources Resources, state *ledger.State) *Checker {
	return &Checker{resources: resources, state: state}
}

// Candidate is the (activity, date, start time) triple under evaluation.
type Candidate struct {
	Activity core.Activity
	Date     time.Time
	Start    time.Time
	IsBackup bool
}

// Check runs the five-stage validation pipeline in the contractual
// order: Travel, Specialist, Equipment, Overlap, TimeWindow. It returns
// nil on success, or the ConstraintViolation from the first stage that
// rejects the candidate.
func (c *Checker) Check(cand Candidate) *core.ConstraintViolation {
	if v := c.checkTravel(cand); v != nil {
		return v
	}
	if v := c.checkSpecialist(cand); v != nil {
		return v
	}
	if v := c.checkEquipment(cand); v != nil {
		return v
	}
	if v := c.checkOverlap(cand); v != nil {
		return v
	}
	if v := c.checkTimeWindow(cand); v != nil {
		return v
	}
	return nil
}

func violation(kind core.ViolationKind, activityID string, date time.Time, format string, args ...interface{}) *core.ConstraintViolation {
	return &core.ConstraintViolation{
		Kind:       kind,
		Reason:     fmt.Sprintf(format, args...),
		ActivityID: activityID,
		Date:       date,
	}
}

func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// travelPeriodFor returns the TravelPeriod covering date, or nil if the
// user is not traveling on that date.
func (c *Checker) travelPeriodFor(date time.Time) *core.TravelPeriod {
	for i := range c.resources.TravelPeriods {
		tp := &c.resources.TravelPeriods[i]
		if tp.Contains(date) {
			return tp
		}
	}
	return nil
}

// effectivelyRemote reports whether the activity counts as remote for
// travel purposes: it declares remote_capable, or every piece of
// equipment it requires is portable.
func (c *Checker) effectivelyRemote(a *core.Activity) bool {
	if a.RemoteCapable {
		return true
	}
	if len(a.EquipmentIDs) == 0 {
		return false
	}
	for _, eqID := range a.EquipmentIDs {
		eq, ok := c.resources.Equipment[eqID]
		if !ok || !eq.IsPortable {
			return false
		}
	}
	return true
}

func (c *Checker) checkTravel(cand Candidate) *core.ConstraintViolation {
	a := &cand.Activity

	tp := c.travelPeriodFor(cand.Date)
	if tp == nil {
		return nil
	}
	if cand.IsBackup {
		return nil // diplomatic immunity
	}

	remote := c.effectivelyRemote(a)

	if tp.RemoteActivitiesOnly && !remote {
		return violation(core.ViolationTravel, a.ID, cand.Date,
			"travel period %s is remote-activities-only and activity is not effectively remote", tp.ID)
	}

	if len(tp.AvailableEquipmentIDs) > 0 || tp.RemoteActivitiesOnly {
		available := make(map[string]bool, len(tp.AvailableEquipmentIDs))
		for _, id := range tp.AvailableEquipmentIDs {
			available[id] = true
		}
		for _, eqID := range a.EquipmentIDs {
			eq, ok := c.resources.Equipment[eqID]
			if ok && eq.IsPortable {
				continue
			}
			if !available[eqID] {
				return violation(core.ViolationTravel, a.ID, cand.Date,
					"required equipment %s is not portable and not available at %s", eqID, tp.Location)
			}
		}
	}

	if a.Location == core.LocationHome && !remote {
		return violation(core.ViolationTravel, a.ID, cand.Date,
			"activity requires Home location while traveling at %s", tp.Location)
	}

	return nil
}

func (c *Checker) checkSpecialist(cand Candidate) *core.ConstraintViolation {
	a := &cand.Activity
	if a.SpecialistID == "" {
		return nil
	}

	specialist, ok := c.resources.Specialists[a.SpecialistID]
	if !ok {
		return violation(core.ViolationSpecialist, a.ID, cand.Date, "unknown specialist %s", a.SpecialistID)
	}

	start := minutesOfDay(cand.Start)
	end := start + a.DurationMinutes
	weekday := cand.Date.Weekday()

	covered := false
	for _, w := range specialist.Availability {
		if w.Weekday != weekday {
			continue
		}
		if minutesOfDay(w.StartTime) <= start && end <= minutesOfDay(w.EndTime) {
			covered = true
			break
		}
	}
	if !covered {
		return violation(core.ViolationSpecialist, a.ID, cand.Date,
			"specialist %s has no availability window covering the requested time", a.SpecialistID)
	}

	civilDate := core.CivilDate(cand.Date)
	for _, blackout := range specialist.BlackoutDates {
		if core.CivilDate(blackout).Equal(civilDate) {
			return violation(core.ViolationSpecialist, a.ID, cand.Date,
				"specialist %s is blacked out on this date", a.SpecialistID)
		}
	}

	overlapping := 0
	for _, existing := range c.state.SpecialistBookings(a.SpecialistID, cand.Date) {
		if existing.EndMinutes() > start && end > existing.StartMinutes() {
			overlapping++
		}
	}
	if overlapping >= specialist.MaxConcurrentClients {
		return violation(core.ViolationSpecialist, a.ID, cand.Date,
			"specialist %s at capacity (%d/%d)", a.SpecialistID, overlapping, specialist.MaxConcurrentClients)
	}

	return nil
}

func (c *Checker) checkEquipment(cand Candidate) *core.ConstraintViolation {
	a := &cand.Activity
	if len(a.EquipmentIDs) == 0 {
		return nil
	}

	tp := c.travelPeriodFor(cand.Date)
	start := minutesOfDay(cand.Start)
	end := start + a.DurationMinutes

	for _, eqID := range a.EquipmentIDs {
		eq, ok := c.resources.Equipment[eqID]
		if !ok {
			return violation(core.ViolationEquipment, a.ID, cand.Date, "unknown equipment %s", eqID)
		}

		if tp != nil {
			if eq.IsPortable {
				continue
			}
			available := false
			for _, id := range tp.AvailableEquipmentIDs {
				if id == eqID {
					available = true
					break
				}
			}
			if !available {
				return violation(core.ViolationEquipment, a.ID, cand.Date,
					"equipment %s unavailable while traveling", eqID)
			}
			continue
		}

		civilDate := core.CivilDate(cand.Date)
		for _, m := range eq.MaintenanceWindows {
			if !civilDate.Before(core.CivilDate(m.StartDate)) && !civilDate.After(core.CivilDate(m.EndDate)) {
				return violation(core.ViolationEquipment, a.ID, cand.Date,
					"equipment %s is under maintenance", eqID)
			}
		}

		overlapping := 0
		for _, existing := range c.state.EquipmentBookings(eqID, cand.Date) {
			if existing.EndMinutes() > start && end > existing.StartMinutes() {
				overlapping++
			}
		}
		if overlapping >= eq.MaxConcurrentUsers {
			return violation(core.ViolationEquipment, a.ID, cand.Date,
				"equipment %s at capacity (%d/%d)", eqID, overlapping, eq.MaxConcurrentUsers)
		}
	}

	return nil
}

func (c *Checker) checkOverlap(cand Candidate) *core.ConstraintViolation {
	a := &cand.Activity

	candStart := minutesOfDay(cand.Start)
	candEffectiveStart := candStart - a.PrepMinutes
	candEnd := candStart + a.DurationMinutes

	for _, existing := range c.state.SlotsForDate(cand.Date) {
		existingEffectiveStart := existing.EffectiveStartMinutes()
		existingEnd := existing.EndMinutes()

		if candEffectiveStart < existingEnd && existingEffectiveStart < candEnd {
			return violation(core.ViolationOverlap, a.ID, cand.Date,
				"effective interval collides with existing booking %s", existing.ActivityID)
		}
	}

	return nil
}

func (c *Checker) checkTimeWindow(cand Candidate) *core.ConstraintViolation {
	a := &cand.Activity
	if !a.HasTimeWindow() {
		return nil
	}

	start := minutesOfDay(cand.Start)
	windowStart := minutesOfDay(*a.TimeWindowStart)
	windowEnd := minutesOfDay(*a.TimeWindowEnd)

	if start < windowStart || start+a.DurationMinutes > windowEnd {
		return violation(core.ViolationTimeWindow, a.ID, cand.Date,
			"start %d falls outside window [%d, %d]", start, windowStart, windowEnd)
	}

	return nil
}
