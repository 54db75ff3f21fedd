// Package core defines the fundamental domain types for the adaptive
// health scheduling engine. These types are the DNA the rest of the
// engine operates on: Activities are demand, Specialists/Equipment are
// supply, TravelPeriods modify context, and TimeSlots are the output.
package core

import (
	"encoding/json"
	"time"
)

// -----------------------------------------------------------------------------
// ACTIVITY - a recurring demand
// -----------------------------------------------------------------------------

// ActivityType categorizes a health activity.
type ActivityType string

const (
	ActivityFitness      ActivityType = "Fitness"
	ActivityFood         ActivityType = "Food"
	ActivityMedication   ActivityType = "Medication"
	ActivityTherapy      ActivityType = "Therapy"
	ActivityConsultation ActivityType = "Consultation"
	ActivityOther        ActivityType = "Other"
)

// Location is the physical context an activity requires.
type Location string

const (
	LocationHome     Location = "Home"
	LocationGym      Location = "Gym"
	LocationClinic   Location = "Clinic"
	LocationOutdoors Location = "Outdoors"
	LocationAny      Location = "Any"
)

// FrequencyPattern is the recurrence shape of an activity's demand.
type FrequencyPattern string

const (
	FrequencyDaily   FrequencyPattern = "Daily"
	FrequencyWeekly  FrequencyPattern = "Weekly"
	FrequencyMonthly FrequencyPattern = "Monthly"
)

// Frequency configures how often an activity must occur.
//
// Count is meaningless for Daily (implicitly one instance per day).
// PreferredDays, when set, is only honored for Weekly: each weekly
// occurrence cycles through the list (occurrence index modulo list
// length) to pick its target weekday, narrowing that occurrence's
// placement search to just that day instead of scanning the whole week.
type Frequency struct {
	Pattern       FrequencyPattern `json:"pattern"`
	Count         int              `json:"count"`                    // Weekly: [1..7]; Monthly: [1..31]
	PreferredDays []int            `json:"preferred_days,omitempty"` // weekday indices 0..6
}

// Activity is a recurring health demand the engine must try to place.
type Activity struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Type     ActivityType `json:"type"`
	Priority int          `json:"priority"` // 1 (critical) .. 5 (optional)

	DurationMinutes int `json:"duration_minutes"`
	PrepMinutes     int `json:"prep_minutes"`

	Frequency Frequency `json:"frequency"`

	SpecialistID string   `json:"specialist_id,omitempty"`
	EquipmentIDs []string `json:"equipment_ids,omitempty"`

	Location      Location `json:"location"`
	RemoteCapable bool     `json:"remote_capable"`

	// TimeWindowStart/End are times-of-day (date component ignored),
	// inclusive-inclusive. Both set or both nil.
	TimeWindowStart *time.Time `json:"time_window_start,omitempty"`
	TimeWindowEnd   *time.Time `json:"time_window_end,omitempty"`

	BackupActivityIDs []string `json:"backup_activity_ids,omitempty"`
}

// HasTimeWindow reports whether the activity declares a time-of-day window.
func (a *Activity) HasTimeWindow() bool {
	return a.TimeWindowStart != nil && a.TimeWindowEnd != nil
}

// -----------------------------------------------------------------------------
// SPECIALIST - a human resource
// -----------------------------------------------------------------------------

// AvailabilityWindow is a standing weekly shift.
type AvailabilityWindow struct {
	Weekday   time.Weekday `json:"weekday"`
	StartTime time.Time    `json:"start_time"` // time-of-day only
	EndTime   time.Time    `json:"end_time"`   // time-of-day only
}

// Specialist is a human resource with bounded weekly availability.
type Specialist struct {
	ID                   string               `json:"id"`
	Type                 string               `json:"type"`
	Availability         []AvailabilityWindow `json:"availability"`
	BlackoutDates        []time.Time          `json:"blackout_dates,omitempty"` // civil dates
	MaxConcurrentClients int                  `json:"max_concurrent_clients"`
}

// -----------------------------------------------------------------------------
// EQUIPMENT - a physical resource
// -----------------------------------------------------------------------------

// MaintenanceInterval is an inclusive date range during which equipment
// is unavailable.
type MaintenanceInterval struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// Equipment is a physical resource with bounded concurrent use.
type Equipment struct {
	ID                 string                `json:"id"`
	Location           string                `json:"location"`
	IsPortable         bool                  `json:"is_portable"`
	MaintenanceWindows []MaintenanceInterval `json:"maintenance_windows,omitempty"`
	MaxConcurrentUsers int                   `json:"max_concurrent_users"`
}

// -----------------------------------------------------------------------------
// TRAVEL PERIOD - context modifier
// -----------------------------------------------------------------------------

// TravelPeriod marks an inclusive date range during which the user is away
// from home, optionally restricting activities to remote-capable ones.
type TravelPeriod struct {
	ID                    string    `json:"id"`
	Location              string    `json:"location"`
	StartDate             time.Time `json:"start_date"`
	EndDate               time.Time `json:"end_date"`
	RemoteActivitiesOnly  bool      `json:"remote_activities_only"`
	AvailableEquipmentIDs []string  `json:"available_equipment_ids,omitempty"`
}

// Contains reports whether date falls within this travel period.
func (t *TravelPeriod) Contains(date time.Time) bool {
	d := CivilDate(date)
	return !d.Before(CivilDate(t.StartDate)) && !d.After(CivilDate(t.EndDate))
}

// CivilDate truncates t to midnight UTC, discarding time-of-day and any
// other location, so that date comparisons are purely calendar-based.
func CivilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// -----------------------------------------------------------------------------
// TIMESLOT - a committed booking
// -----------------------------------------------------------------------------

// SlotStatus is the lifecycle state of a committed TimeSlot. Freshly
// committed bookings are always Scheduled; the engine never transitions
// a slot once committed.
type SlotStatus string

const (
	SlotScheduled SlotStatus = "Scheduled"
)

// TimeSlot is a committed block of time for a specific activity.
type TimeSlot struct {
	ActivityID      string    `json:"activity_id"`
	Priority        int       `json:"priority"`
	Date            time.Time `json:"date"`       // civil date
	StartTime       time.Time `json:"start_time"` // time-of-day only
	DurationMinutes int       `json:"duration_minutes"`
	PrepMinutes     int       `json:"prep_minutes"`

	SpecialistID string   `json:"specialist_id,omitempty"`
	EquipmentIDs []string `json:"equipment_ids,omitempty"`

	IsBackup           bool   `json:"is_backup"`
	OriginalActivityID string `json:"original_activity_id,omitempty"` // set iff IsBackup

	Status SlotStatus `json:"status"`
}

// StartMinutes returns the start time as minutes-from-midnight.
func (s *TimeSlot) StartMinutes() int {
	return minutesOfDay(s.StartTime)
}

// EffectiveStartMinutes returns the prep-adjusted start, in minutes-from-midnight.
func (s *TimeSlot) EffectiveStartMinutes() int {
	return s.StartMinutes() - s.PrepMinutes
}

// EndMinutes returns the activity end time, in minutes-from-midnight.
func (s *TimeSlot) EndMinutes() int {
	return s.StartMinutes() + s.DurationMinutes
}

func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// timeSlotWire is the persisted-state wire shape for a TimeSlot: Date and
// StartTime render as plain "YYYY-MM-DD" and "HH:MM:SS" strings rather
// than full RFC3339 timestamps, matching the dashboard export format.
type timeSlotWire struct {
	ActivityID         string     `json:"activity_id"`
	Priority           int        `json:"priority"`
	Date               string     `json:"date"`
	StartTime          string     `json:"start_time"`
	DurationMinutes    int        `json:"duration_minutes"`
	PrepMinutes        int        `json:"prep_minutes"`
	SpecialistID       string     `json:"specialist_id,omitempty"`
	EquipmentIDs       []string   `json:"equipment_ids,omitempty"`
	IsBackup           bool       `json:"is_backup"`
	OriginalActivityID string     `json:"original_activity_id,omitempty"`
	Status             SlotStatus `json:"status"`
}

// MarshalJSON renders the wire format described in §6: civil date and
// time-of-day as plain strings.
func (s TimeSlot) MarshalJSON() ([]byte, error) {
	return json.Marshal(timeSlotWire{
		ActivityID:         s.ActivityID,
		Priority:           s.Priority,
		Date:               s.Date.Format("2006-01-02"),
		StartTime:          s.StartTime.Format("15:04:05"),
		DurationMinutes:    s.DurationMinutes,
		PrepMinutes:        s.PrepMinutes,
		SpecialistID:       s.SpecialistID,
		EquipmentIDs:       s.EquipmentIDs,
		IsBackup:           s.IsBackup,
		OriginalActivityID: s.OriginalActivityID,
		Status:             s.Status,
	})
}

// UnmarshalJSON parses the wire format produced by MarshalJSON.
func (s *TimeSlot) UnmarshalJSON(data []byte) error {
	var wire timeSlotWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	date, err := time.Parse("2006-01-02", wire.Date)
	if err != nil {
		return err
	}
	start, err := time.Parse("15:04:05", wire.StartTime)
	if err != nil {
		return err
	}
	*s = TimeSlot{
		ActivityID:         wire.ActivityID,
		Priority:           wire.Priority,
		Date:               date,
		StartTime:          start,
		DurationMinutes:    wire.DurationMinutes,
		PrepMinutes:        wire.PrepMinutes,
		SpecialistID:       wire.SpecialistID,
		EquipmentIDs:       wire.EquipmentIDs,
		IsBackup:           wire.IsBackup,
		OriginalActivityID: wire.OriginalActivityID,
		Status:             wire.Status,
	}
	return nil
}

// -----------------------------------------------------------------------------
// CONSTRAINT VIOLATION
// -----------------------------------------------------------------------------

// ViolationKind is the tagged category of a ConstraintViolation.
type ViolationKind string

const (
	ViolationTravel     ViolationKind = "Travel"
	ViolationSpecialist ViolationKind = "Specialist"
	ViolationEquipment  ViolationKind = "Equipment"
	ViolationOverlap    ViolationKind = "Overlap"
	ViolationTimeWindow ViolationKind = "TimeWindow"
	ViolationCapacity   ViolationKind = "Capacity"
	ViolationExhaustion ViolationKind = "Exhaustion"
)

// ConstraintViolation records why a candidate slot was rejected.
type ConstraintViolation struct {
	Kind       ViolationKind `json:"kind"`
	Reason     string        `json:"reason"`
	ActivityID string        `json:"activity_id"`
	Date       time.Time     `json:"date"`
}

// -----------------------------------------------------------------------------
// SCHEDULING ATTEMPT - post-mortem record
// -----------------------------------------------------------------------------

// SchedulingAttempt tracks the last violation kind seen for an activity
// and how many times it was seen, across all tiers of the placement ladder.
type SchedulingAttempt struct {
	ActivityID string        `json:"activity_id"`
	Priority   int           `json:"priority"`
	LastKind   ViolationKind `json:"last_kind"`
	LastReason string        `json:"last_reason"`
	LastDate   time.Time     `json:"last_date"`
	Count      int           `json:"count"`
}
