package testutil

import (
	"time"

	"github.com/healthloop/adaptive-scheduler/internal/core"
)

// T parses a "15:04" time-of-day literal into the zero-date time.Time the
// domain types use for time-of-day fields. It panics on a malformed
// literal, which is only ever a fixture-authoring mistake.
func T(hhmm string) time.Time {
	parsed, err := time.Parse("15:04", hhmm)
	if err != nil {
		panic(err)
	}
	return parsed
}

// D returns the civil date for a year/month/day triple.
func D(year int, month time.Month, day int) time.Time {
	return core.CivilDate(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DefaultActivityFixture returns a baseline, fully valid Activity: priority
// 3, 30 minutes, daily, no specialist or equipment requirement.
func DefaultActivityFixture() core.Activity {
	return core.Activity{
		ID:              "activity-fixture",
		Name:            "Test Activity",
		Type:            core.ActivityFitness,
		Priority:        3,
		DurationMinutes: 30,
		Frequency:       core.Frequency{Pattern: core.FrequencyDaily},
		Location:        core.LocationAny,
	}
}

// ActivityFixtureBuilder builds Activity fixtures with a fluent interface.
type ActivityFixtureBuilder struct {
	fixture core.Activity
}

// NewActivityBuilder creates a new Activity fixture builder seeded with
// DefaultActivityFixture.
func NewActivityBuilder() *ActivityFixtureBuilder {
	return &ActivityFixtureBuilder{fixture: DefaultActivityFixture()}
}

// WithID sets the activity ID.
func (b *ActivityFixtureBuilder) WithID(id string) *ActivityFixtureBuilder {
	b.fixture.ID = id
	return b
}

// WithPriority sets the priority tier (1 critical .. 5 optional).
func (b *ActivityFixtureBuilder) WithPriority(priority int) *ActivityFixtureBuilder {
	b.fixture.Priority = priority
	return b
}

// WithDuration sets the duration in minutes.
func (b *ActivityFixtureBuilder) WithDuration(minutes int) *ActivityFixtureBuilder {
	b.fixture.DurationMinutes = minutes
	return b
}

// WithPrep sets the prep time in minutes.
func (b *ActivityFixtureBuilder) WithPrep(minutes int) *ActivityFixtureBuilder {
	b.fixture.PrepMinutes = minutes
	return b
}

// WithFrequency sets the recurrence pattern and count.
func (b *ActivityFixtureBuilder) WithFrequency(pattern core.FrequencyPattern, count int) *ActivityFixtureBuilder {
	b.fixture.Frequency = core.Frequency{Pattern: pattern, Count: count}
	return b
}

// WithPreferredDays sets the weekday cycle a Weekly activity's occurrences
// draw from. Call after WithFrequency.
func (b *ActivityFixtureBuilder) WithPreferredDays(weekdays ...int) *ActivityFixtureBuilder {
	b.fixture.Frequency.PreferredDays = weekdays
	return b
}

// WithTimeWindow sets the time-of-day window, both ends required.
func (b *ActivityFixtureBuilder) WithTimeWindow(start, end time.Time) *ActivityFixtureBuilder {
	b.fixture.TimeWindowStart = &start
	b.fixture.TimeWindowEnd = &end
	return b
}

// WithSpecialist sets the required specialist ID.
func (b *ActivityFixtureBuilder) WithSpecialist(specialistID string) *ActivityFixtureBuilder {
	b.fixture.SpecialistID = specialistID
	return b
}

// WithEquipment sets the required equipment IDs.
func (b *ActivityFixtureBuilder) WithEquipment(equipmentIDs ...string) *ActivityFixtureBuilder {
	b.fixture.EquipmentIDs = equipmentIDs
	return b
}

// WithLocation sets the required location.
func (b *ActivityFixtureBuilder) WithLocation(location core.Location) *ActivityFixtureBuilder {
	b.fixture.Location = location
	return b
}

// AsRemoteCapable marks the activity as performable remotely.
func (b *ActivityFixtureBuilder) AsRemoteCapable() *ActivityFixtureBuilder {
	b.fixture.RemoteCapable = true
	return b
}

// WithBackups sets the ordered backup activity IDs.
func (b *ActivityFixtureBuilder) WithBackups(ids ...string) *ActivityFixtureBuilder {
	b.fixture.BackupActivityIDs = ids
	return b
}

// Build returns the built Activity.
func (b *ActivityFixtureBuilder) Build() core.Activity {
	return b.fixture
}

// DefaultSpecialistFixture returns a baseline Specialist available every
// weekday 09:00-17:00 with room for one concurrent client.
func DefaultSpecialistFixture() core.Specialist {
	var availability []core.AvailabilityWindow
	for wd := time.Monday; wd <= time.Friday; wd++ {
		availability = append(availability, core.AvailabilityWindow{
			Weekday:   wd,
			StartTime: T("09:00"),
			EndTime:   T("17:00"),
		})
	}
	return core.Specialist{
		ID:                   "specialist-fixture",
		Type:                 "generalist",
		Availability:         availability,
		MaxConcurrentClients: 1,
	}
}

// SpecialistFixtureBuilder builds Specialist fixtures with a fluent
// interface.
type SpecialistFixtureBuilder struct {
	fixture core.Specialist
}

// NewSpecialistBuilder creates a new Specialist fixture builder seeded
// with DefaultSpecialistFixture.
func NewSpecialistBuilder() *SpecialistFixtureBuilder {
	return &SpecialistFixtureBuilder{fixture: DefaultSpecialistFixture()}
}

// WithID sets the specialist ID.
func (b *SpecialistFixtureBuilder) WithID(id string) *SpecialistFixtureBuilder {
	b.fixture.ID = id
	return b
}

// WithAvailability replaces the standing weekly availability.
func (b *SpecialistFixtureBuilder) WithAvailability(windows ...core.AvailabilityWindow) *SpecialistFixtureBuilder {
	b.fixture.Availability = windows
	return b
}

// WithBlackoutDates sets the blackout civil dates.
func (b *SpecialistFixtureBuilder) WithBlackoutDates(dates ...time.Time) *SpecialistFixtureBuilder {
	b.fixture.BlackoutDates = dates
	return b
}

// WithMaxConcurrentClients sets the concurrency cap.
func (b *SpecialistFixtureBuilder) WithMaxConcurrentClients(n int) *SpecialistFixtureBuilder {
	b.fixture.MaxConcurrentClients = n
	return b
}

// Build returns the built Specialist.
func (b *SpecialistFixtureBuilder) Build() core.Specialist {
	return b.fixture
}

// DefaultEquipmentFixture returns a baseline non-portable Equipment item
// with room for one concurrent user and no maintenance windows.
func DefaultEquipmentFixture() core.Equipment {
	return core.Equipment{
		ID:                 "equipment-fixture",
		Location:           "home",
		IsPortable:         false,
		MaxConcurrentUsers: 1,
	}
}

// EquipmentFixtureBuilder builds Equipment fixtures with a fluent
// interface.
type EquipmentFixtureBuilder struct {
	fixture core.Equipment
}

// NewEquipmentBuilder creates a new Equipment fixture builder seeded with
// DefaultEquipmentFixture.
func NewEquipmentBuilder() *EquipmentFixtureBuilder {
	return &EquipmentFixtureBuilder{fixture: DefaultEquipmentFixture()}
}

// WithID sets the equipment ID.
func (b *EquipmentFixtureBuilder) WithID(id string) *EquipmentFixtureBuilder {
	b.fixture.ID = id
	return b
}

// AsPortable marks the equipment as portable.
func (b *EquipmentFixtureBuilder) AsPortable() *EquipmentFixtureBuilder {
	b.fixture.IsPortable = true
	return b
}

// WithMaintenanceWindows sets the maintenance intervals.
func (b *EquipmentFixtureBuilder) WithMaintenanceWindows(windows ...core.MaintenanceInterval) *EquipmentFixtureBuilder {
	b.fixture.MaintenanceWindows = windows
	return b
}

// WithMaxConcurrentUsers sets the concurrency cap.
func (b *EquipmentFixtureBuilder) WithMaxConcurrentUsers(n int) *EquipmentFixtureBuilder {
	b.fixture.MaxConcurrentUsers = n
	return b
}

// Build returns the built Equipment.
func (b *EquipmentFixtureBuilder) Build() core.Equipment {
	return b.fixture
}

// DefaultTravelPeriodFixture returns a baseline week-long travel period
// with no restrictions.
func DefaultTravelPeriodFixture() core.TravelPeriod {
	return core.TravelPeriod{
		ID:        "travel-fixture",
		Location:  "abroad",
		StartDate: D(2026, time.March, 2),
		EndDate:   D(2026, time.March, 8),
	}
}

// TravelPeriodFixtureBuilder builds TravelPeriod fixtures with a fluent
// interface.
type TravelPeriodFixtureBuilder struct {
	fixture core.TravelPeriod
}

// NewTravelPeriodBuilder creates a new TravelPeriod fixture builder
// seeded with DefaultTravelPeriodFixture.
func NewTravelPeriodBuilder() *TravelPeriodFixtureBuilder {
	return &TravelPeriodFixtureBuilder{fixture: DefaultTravelPeriodFixture()}
}

// WithID sets the travel period ID.
func (b *TravelPeriodFixtureBuilder) WithID(id string) *TravelPeriodFixtureBuilder {
	b.fixture.ID = id
	return b
}

// WithDates sets the inclusive start and end civil dates.
func (b *TravelPeriodFixtureBuilder) WithDates(start, end time.Time) *TravelPeriodFixtureBuilder {
	b.fixture.StartDate = start
	b.fixture.EndDate = end
	return b
}

// AsRemoteOnly restricts the period to remote-capable activities.
func (b *TravelPeriodFixtureBuilder) AsRemoteOnly() *TravelPeriodFixtureBuilder {
	b.fixture.RemoteActivitiesOnly = true
	return b
}

// WithAvailableEquipment restricts which equipment IDs remain usable
// during the period.
func (b *TravelPeriodFixtureBuilder) WithAvailableEquipment(ids ...string) *TravelPeriodFixtureBuilder {
	b.fixture.AvailableEquipmentIDs = ids
	return b
}

// Build returns the built TravelPeriod.
func (b *TravelPeriodFixtureBuilder) Build() core.TravelPeriod {
	return b.fixture
}
