// Package ledger holds the mutable state accumulated over the course of a
// single scheduling run: every committed booking, the resource indices
// used to detect over-subscription, and the failure history used to
// produce the terminal exhaustion report.
package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/healthloop/adaptive-scheduler/internal/core"
)

// dateKey renders a civil date as a stable map key.
func dateKey(t time.Time) string {
	d := core.CivilDate(t)
	return d.Format("2006-01-02")
}

// State is the scheduler's ledger: everything committed so far, plus the
// indices needed to answer "is this resource already busy" in O(1)
// instead of rescanning the whole schedule. It is built up incrementally
// as the AdaptiveScheduler works through demand instances; nothing in
// State ever removes or edits a committed TimeSlot.
type State struct {
	mu sync.Mutex

	// runID stamps this ledger instance for log correlation — every
	// Run() produces a fresh one, the same way the host product tags
	// each ledger entry it writes.
	runID string

	scheduleByDate map[string][]core.TimeSlot

	// specialistBookings and equipmentBookings index committed slots by
	// resource ID and date, so the Checker can answer overlap questions
	// without scanning the full schedule.
	specialistBookings map[string]map[string][]core.TimeSlot
	equipmentBookings  map[string]map[string][]core.TimeSlot

	// activityOccurrences counts successful placements per *original*
	// activity ID: a backup slot counts against the original activity it
	// stands in for, never against itself.
	activityOccurrences map[string]int

	// backupActivations counts how many times a given backup activity ID
	// was used to stand in for some primary.
	backupActivations map[string]int

	// failures tracks, per activity, the most recent rejection seen
	// across every tier of the placement ladder.
	failures map[string]*core.SchedulingAttempt

	// weeklyPatterns records, per activity, how many times it has been
	// placed on each weekday — the raw material for the scorer's habit
	// component.
	weeklyPatterns map[string]map[time.Weekday]int
}

// New returns an empty ledger ready to receive bookings.
func New() *State {
	return &State{
		runID:               uuid.New().String(),
		scheduleByDate:      make(map[string][]core.TimeSlot),
		specialistBookings:  make(map[string]map[string][]core.TimeSlot),
		equipmentBookings:   make(map[string]map[string][]core.TimeSlot),
		activityOccurrences: make(map[string]int),
		backupActivations:   make(map[string]int),
		failures:            make(map[string]*core.SchedulingAttempt),
		weeklyPatterns:      make(map[string]map[time.Weekday]int),
	}
}

// RunID returns the unique identifier stamped on this ledger at
// creation, used to correlate a run's log lines.
func (s *State) RunID() string {
	return s.runID
}

// AddBooking commits a TimeSlot into the ledger. The caller (the
// scheduler orchestrator) must have already run the slot through the
// ConstraintChecker; AddBooking panics with core.ErrInvariant if it
// discovers a resource the checker should have caught is already busy,
// since that can only mean a programmer error upstream.
func (s *State) AddBooking(slot core.TimeSlot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dateKey(slot.Date)

	if s.specialistID(slot) != "" && s.resourceBusy(s.specialistBookings, s.specialistID(slot), key, slot) {
		panic(fmt.Errorf("%w: specialist %s double-booked on %s", core.ErrInvariant, s.specialistID(slot), key))
	}
	for _, eqID := range slot.EquipmentIDs {
		if s.resourceBusy(s.equipmentBookings, eqID, key, slot) {
			panic(fmt.Errorf("%w: equipment %s double-booked on %s", core.ErrInvariant, eqID, key))
		}
	}

	s.scheduleByDate[key] = insertSorted(s.scheduleByDate[key], slot)

	if slot.SpecialistID != "" {
		s.indexResource(s.specialistBookings, slot.SpecialistID, key, slot)
	}
	for _, eqID := range slot.EquipmentIDs {
		s.indexResource(s.equipmentBookings, eqID, key, slot)
	}

	creditID := slot.ActivityID
	if slot.IsBackup {
		creditID = slot.OriginalActivityID
		s.backupActivations[slot.ActivityID]++
	}
	s.activityOccurrences[creditID]++

	if _, ok := s.weeklyPatterns[slot.ActivityID]; !ok {
		s.weeklyPatterns[slot.ActivityID] = make(map[time.Weekday]int)
	}
	s.weeklyPatterns[slot.ActivityID][slot.Date.Weekday()]++
}

func (s *State) specialistID(slot core.TimeSlot) string {
	return slot.SpecialistID
}

func (s *State) resourceBusy(index map[string]map[string][]core.TimeSlot, resourceID, key string, slot core.TimeSlot) bool {
	if resourceID == "" {
		return false
	}
	for _, existing := range index[resourceID][key] {
		if existing.EndMinutes() > slot.StartMinutes() && slot.EndMinutes() > existing.StartMinutes() {
			return true
		}
	}
	return false
}

func (s *State) indexResource(index map[string]map[string][]core.TimeSlot, resourceID, key string, slot core.TimeSlot) {
	if _, ok := index[resourceID]; !ok {
		index[resourceID] = make(map[string][]core.TimeSlot)
	}
	index[resourceID][key] = append(index[resourceID][key], slot)
}

func insertSorted(slots []core.TimeSlot, slot core.TimeSlot) []core.TimeSlot {
	i := sort.Search(len(slots), func(i int) bool {
		return slots[i].StartMinutes() > slot.StartMinutes()
	})
	slots = append(slots, core.TimeSlot{})
	copy(slots[i+1:], slots[i:])
	slots[i] = slot
	return slots
}

// SlotsForDate returns the committed slots for a civil date, in start-time
// order. The returned slice is a copy; callers may not mutate the ledger
// through it.
func (s *State) SlotsForDate(date time.Time) []core.TimeSlot {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.scheduleByDate[dateKey(date)]
	out := make([]core.TimeSlot, len(existing))
	copy(out, existing)
	return out
}

// SpecialistBookings returns the committed slots for a specialist on a
// civil date.
func (s *State) SpecialistBookings(specialistID string, date time.Time) []core.TimeSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.TimeSlot(nil), s.specialistBookings[specialistID][dateKey(date)]...)
}

// EquipmentBookings returns the committed slots for a piece of equipment
// on a civil date.
func (s *State) EquipmentBookings(equipmentID string, date time.Time) []core.TimeSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.TimeSlot(nil), s.equipmentBookings[equipmentID][dateKey(date)]...)
}

// OccurrenceCount returns how many times an activity (by original ID) has
// been placed so far, counting both primary and backup-standing-in-for-it
// slots.
func (s *State) OccurrenceCount(activityID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activityOccurrences[activityID]
}

// WeekdayCount returns how many times an activity has been placed on the
// given weekday so far.
func (s *State) WeekdayCount(activityID string, weekday time.Weekday) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.weeklyPatterns[activityID][weekday]
}

// DailyScheduledMinutes returns the total duration committed on a civil
// date for activities with exactly the given priority. The daily
// priority-capacity quota uses DailyMinutesAtOrBelowImportance instead.
func (s *State) DailyScheduledMinutes(date time.Time, priority int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, slot := range s.scheduleByDate[dateKey(date)] {
		if slot.Priority == priority {
			total += slot.DurationMinutes
		}
	}
	return total
}

// DailyMinutesAtOrBelowImportance sums the committed minutes on date for
// every activity whose priority is numerically ≥ p — i.e. p itself and
// every less-important tier. This is the quantity the daily
// priority-capacity quota bounds: capacity_factor(p) shrinks as
// importance drops, so the least critical tier shares the smallest slice
// of the day while priority 1 is effectively unconstrained.
func (s *State) DailyMinutesAtOrBelowImportance(date time.Time, p int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, slot := range s.scheduleByDate[dateKey(date)] {
		if slot.Priority >= p {
			total += slot.DurationMinutes
		}
	}
	return total
}

// RecordFailure updates the last-seen rejection for an activity. Count is
// incremented on every call, regardless of kind, matching the semantics
// of the placement ladder: a SchedulingAttempt tracks how many candidate
// slots were tried and rejected in total, tagged with the most recent
// rejection reason. priority is the failing demand instance's own
// activity priority (not necessarily the candidate's, since a backup
// candidate's rejection is still recorded against the primary it stands
// in for) and feeds the per-priority breakdown in Statistics.
func (s *State) RecordFailure(activityID string, priority int, v core.ConstraintViolation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt, ok := s.failures[activityID]
	if !ok {
		attempt = &core.SchedulingAttempt{ActivityID: activityID, Priority: priority}
		s.failures[activityID] = attempt
	}
	attempt.LastKind = v.Kind
	attempt.LastReason = v.Reason
	attempt.LastDate = v.Date
	attempt.Count++
}

// ClearFailures removes the failure record for an activity — called once
// a demand instance is successfully placed, since a later success means
// the earlier rejections were not terminal.
func (s *State) ClearFailures(activityID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, activityID)
}

// FailureReport returns the terminal failures: activities with a recorded
// rejection and zero successful placements across the whole run. An
// activity that committed at least once is left out even if a later
// demand instance exhausted every tier. Order is by activity ID for
// determinism.
func (s *State) FailureReport() []core.SchedulingAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.failures))
	for id := range s.failures {
		if s.activityOccurrences[id] > 0 {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	report := make([]core.SchedulingAttempt, 0, len(ids))
	for _, id := range ids {
		report = append(report, *s.failures[id])
	}
	return report
}

// Statistics summarizes the ledger's contents for logging and reporting.
type Statistics struct {
	TotalScheduled  int            `json:"total_scheduled"`
	TotalBackups    int            `json:"total_backups"`
	TotalFailures   int            `json:"total_failures"`
	ByActivity      map[string]int `json:"by_activity"`
	DaysWithBooking int            `json:"days_with_booking"`

	// ResilienceRate is the percentage of all scheduled slots that were
	// placed via a backup rather than the primary activity — how much of
	// the plan is "adaptive" rather than "ideal".
	ResilienceRate float64 `json:"resilience_rate"`

	// PriorityBreakdown reports, per priority tier, the success rate
	// across every demand instance seen for that tier: successfully
	// scheduled slots against scheduled-plus-terminally-failed instances.
	PriorityBreakdown map[int]PriorityStats `json:"priority_breakdown"`

	// SpecialistUsageCount and EquipmentUsageCount report how many slots
	// used each specialist/equipment resource over the run.
	SpecialistUsageCount map[string]int `json:"specialist_usage_count"`
	EquipmentUsageCount  map[string]int `json:"equipment_usage_count"`
}

// PriorityStats is the success/failure breakdown for one priority tier.
type PriorityStats struct {
	Success int     `json:"success"`
	Failed  int     `json:"failed"`
	Total   int     `json:"total"`
	Rate    float64 `json:"rate"`
}

// Statistics computes a snapshot summary of the ledger.
func (s *State) Statistics() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Statistics{
		ByActivity:           make(map[string]int),
		SpecialistUsageCount: make(map[string]int),
		EquipmentUsageCount:  make(map[string]int),
	}

	priorityTotals := make(map[int]*PriorityStats)
	touchPriority := func(p int) *PriorityStats {
		ps, ok := priorityTotals[p]
		if !ok {
			ps = &PriorityStats{}
			priorityTotals[p] = ps
		}
		return ps
	}

	for _, slots := range s.scheduleByDate {
		if len(slots) > 0 {
			stats.DaysWithBooking++
		}
		for _, slot := range slots {
			stats.TotalScheduled++
			if slot.IsBackup {
				stats.TotalBackups++
			}
			stats.ByActivity[slot.ActivityID]++
			if slot.SpecialistID != "" {
				stats.SpecialistUsageCount[slot.SpecialistID]++
			}
			for _, eqID := range slot.EquipmentIDs {
				stats.EquipmentUsageCount[eqID]++
			}

			ps := touchPriority(slot.Priority)
			ps.Success++
			ps.Total++
		}
	}

	for _, attempt := range s.failures {
		ps := touchPriority(attempt.Priority)
		ps.Failed++
		ps.Total++
	}

	stats.TotalFailures = len(s.failures)
	if stats.TotalScheduled > 0 {
		stats.ResilienceRate = round1(float64(stats.TotalBackups) / float64(stats.TotalScheduled) * 100)
	}

	stats.PriorityBreakdown = make(map[int]PriorityStats, len(priorityTotals))
	for p, ps := range priorityTotals {
		if ps.Total > 0 {
			ps.Rate = round1(float64(ps.Success) / float64(ps.Total) * 100)
		}
		stats.PriorityBreakdown[p] = *ps
	}

	return stats
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

// Clear resets the ledger to its initial empty state: every committed
// booking, resource index, occurrence/backup counter, weekly pattern, and
// failure record is wiped, leaving the run ID untouched. Used when a
// caller wants to re-run placement from scratch against the same ledger
// instance instead of constructing a fresh one.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scheduleByDate = make(map[string][]core.TimeSlot)
	s.specialistBookings = make(map[string]map[string][]core.TimeSlot)
	s.equipmentBookings = make(map[string]map[string][]core.TimeSlot)
	s.activityOccurrences = make(map[string]int)
	s.backupActivations = make(map[string]int)
	s.failures = make(map[string]*core.SchedulingAttempt)
	s.weeklyPatterns = make(map[string]map[time.Weekday]int)
}

// LoadIntensity buckets a day's scheduled minutes into a coarse label for
// downstream display.
type LoadIntensity string

const (
	LoadRest   LoadIntensity = "Rest"
	LoadLow    LoadIntensity = "Low"
	LoadMedium LoadIntensity = "Medium"
	LoadHigh   LoadIntensity = "High"
)

// DayContextInfo summarizes a single civil date for downstream display:
// whether the user is traveling, the location label, and the load
// intensity implied by scheduled minutes.
type DayContextInfo struct {
	Date          time.Time     `json:"date"`
	IsTraveling   bool          `json:"is_traveling"`
	LocationLabel string        `json:"location_label"`
	LoadIntensity LoadIntensity `json:"load_intensity"`
}

// DayContext computes the context summary for a date. The ledger itself
// holds no notion of travel; callers pass the run's travel periods so the
// query stays a pure read against both the committed schedule and the
// caller-supplied context.
func (s *State) DayContext(date time.Time, travelPeriods []core.TravelPeriod) DayContextInfo {
	s.mu.Lock()
	minutes := 0
	for _, slot := range s.scheduleByDate[dateKey(date)] {
		minutes += slot.DurationMinutes
	}
	s.mu.Unlock()

	ctx := DayContextInfo{Date: core.CivilDate(date), LocationLabel: "Home"}
	for i := range travelPeriods {
		if travelPeriods[i].Contains(date) {
			ctx.IsTraveling = true
			ctx.LocationLabel = travelPeriods[i].Location
			break
		}
	}

	switch {
	case minutes == 0:
		ctx.LoadIntensity = LoadRest
	case minutes <= 60:
		ctx.LoadIntensity = LoadLow
	case minutes <= 180:
		ctx.LoadIntensity = LoadMedium
	default:
		ctx.LoadIntensity = LoadHigh
	}
	return ctx
}

// AllSlots returns every committed slot across the whole run, sorted by
// date then start time then activity ID — the canonical order used for
// JSON export and for the determinism property (two runs over identical
// input must produce byte-identical output).
func (s *State) AllSlots() []core.TimeSlot {
	s.mu.Lock()
	defer s.mu.Unlock()

	dates := make([]string, 0, len(s.scheduleByDate))
	for date := range s.scheduleByDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	var all []core.TimeSlot
	for _, date := range dates {
		slots := append([]core.TimeSlot(nil), s.scheduleByDate[date]...)
		sort.SliceStable(slots, func(i, j int) bool {
			if slots[i].StartMinutes() != slots[j].StartMinutes() {
				return slots[i].StartMinutes() < slots[j].StartMinutes()
			}
			return slots[i].ActivityID < slots[j].ActivityID
		})
		all = append(all, slots...)
	}
	return all
}
