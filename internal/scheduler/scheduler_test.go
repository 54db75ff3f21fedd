package scheduler

import (
	"reflect"
	"testing"
	"time"

	"github.com/healthloop/adaptive-scheduler/internal/config"
	"github.com/healthloop/adaptive-scheduler/internal/core"
	"github.com/healthloop/adaptive-scheduler/internal/testutil"
)

func runInput(activities []core.Activity, specialists []core.Specialist, equipment []core.Equipment, travel []core.TravelPeriod) Input {
	return Input{
		StartDate:     testutil.D(2026, time.March, 2), // a Monday
		HorizonDays:   14,
		Activities:    activities,
		Specialists:   specialists,
		Equipment:     equipment,
		TravelPeriods: travel,
	}
}

func TestRun_DailyActivityPlacedEveryDay(t *testing.T) {
	a := testutil.NewActivityBuilder().WithID("walk").WithPriority(2).WithDuration(30).Build()

	state, err := Run(runInput([]core.Activity{a}, nil, nil, nil))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := state.OccurrenceCount("walk"); got != 14 {
		t.Errorf("OccurrenceCount(walk) = %d, want 14 (one per horizon day)", got)
	}
	if report := state.FailureReport(); len(report) != 0 {
		t.Errorf("expected no terminal failures, got %+v", report)
	}
}

func TestRun_WeeklyActivityPlacedCountTimesPerWeek(t *testing.T) {
	a := testutil.NewActivityBuilder().WithID("gym").WithPriority(2).WithDuration(45).
		WithFrequency(core.FrequencyWeekly, 2).Build()

	state, err := Run(runInput([]core.Activity{a}, nil, nil, nil))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// 14-day horizon spans two full ISO weeks, count=2 per week -> 4 placements.
	if got := state.OccurrenceCount("gym"); got != 4 {
		t.Errorf("OccurrenceCount(gym) = %d, want 4", got)
	}
}

func TestRun_BackupActivatedWhenPrimarySpecialistUnavailable(t *testing.T) {
	primary := testutil.NewActivityBuilder().WithID("physio").WithPriority(1).WithDuration(60).
		WithSpecialist("doc1").WithBackups("stretch").Build()
	backup := testutil.NewActivityBuilder().WithID("stretch").WithPriority(1).WithDuration(20).Build()

	// Specialist has no availability windows at all, so the primary can
	// never be placed and every instance must fall through to the backup.
	specialist := testutil.NewSpecialistBuilder().WithID("doc1").WithAvailability().Build()

	state, err := Run(runInput(
		[]core.Activity{primary, backup},
		[]core.Specialist{specialist},
		nil, nil,
	))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := state.OccurrenceCount("physio"); got != 14 {
		t.Errorf("OccurrenceCount(physio) = %d, want 14 (all satisfied via backup)", got)
	}
	if got := state.FailureReport(); len(got) != 0 {
		t.Errorf("expected rescued failures to be cleared, got %+v", got)
	}
}

func TestRun_ExhaustionRecordedWhenNoTierSucceeds(t *testing.T) {
	// A specialist with zero weekly availability and no backup leaves the
	// primary activity permanently unplaceable.
	a := testutil.NewActivityBuilder().WithID("consult").WithPriority(3).WithDuration(30).
		WithSpecialist("doc2").Build()
	specialist := testutil.NewSpecialistBuilder().WithID("doc2").WithAvailability().Build()

	state, err := Run(runInput([]core.Activity{a}, []core.Specialist{specialist}, nil, nil))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	report := state.FailureReport()
	if len(report) != 1 {
		t.Fatalf("expected 1 terminal failure, got %d: %+v", len(report), report)
	}
	if report[0].LastKind != core.ViolationExhaustion {
		t.Errorf("LastKind = %v, want Exhaustion", report[0].LastKind)
	}
	if got := state.OccurrenceCount("consult"); got != 0 {
		t.Errorf("OccurrenceCount(consult) = %d, want 0", got)
	}
}

func TestRun_LiquidOverflowClippedToHorizon(t *testing.T) {
	// Horizon length (10 days) isn't a multiple of 7, so the activity's
	// second weekly instance only has a 3-day clipped window
	// (Mon 2026-03-09 .. Wed 2026-03-11) before the horizon ends. The
	// specialist is blacked out for exactly those three days, so Tier-1
	// fails; Tier-3's overflow would reach into the following week, which
	// falls entirely past the horizon and must not produce a commit.
	a := testutil.NewActivityBuilder().WithID("physio").WithPriority(2).WithDuration(30).
		WithFrequency(core.FrequencyWeekly, 1).WithSpecialist("doc1").Build()
	specialist := testutil.NewSpecialistBuilder().WithID("doc1").WithBlackoutDates(
		testutil.D(2026, time.March, 9),
		testutil.D(2026, time.March, 10),
		testutil.D(2026, time.March, 11),
	).Build()

	input := runInput([]core.Activity{a}, []core.Specialist{specialist}, nil, nil)
	input.HorizonDays = 10 // Mon 2026-03-02 .. Wed 2026-03-11, exclusive end Thu 2026-03-12

	state, err := Run(input)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	horizonEnd := testutil.D(2026, time.March, 12)
	for _, slot := range state.AllSlots() {
		if !slot.Date.Before(horizonEnd) {
			t.Errorf("slot %+v booked on or after horizon end %v", slot, horizonEnd)
		}
	}

	if got := state.OccurrenceCount("physio"); got != 1 {
		t.Errorf("OccurrenceCount(physio) = %d, want 1 (only week 1 satisfied)", got)
	}

	// The clipped-away week-2 instance exhausts every tier, but physio
	// committed in week 1, so it is not a terminal failure.
	report := state.FailureReport()
	if len(report) != 0 {
		t.Fatalf("expected no terminal failure for physio, which has a week-1 commit, got %+v", report)
	}
}

func TestRun_PriorityCapacityQuotaEnforced(t *testing.T) {
	// Priority 5 caps at 40% of 1440 minutes = 576. Two 300-minute
	// daily demands of priority 5 cannot all fit on any single day.
	activities := []core.Activity{
		testutil.NewActivityBuilder().WithID("p5-a").WithPriority(5).WithDuration(300).Build(),
		testutil.NewActivityBuilder().WithID("p5-b").WithPriority(5).WithDuration(300).Build(),
	}

	state, err := Run(runInput(activities, nil, nil, nil))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	day := testutil.D(2026, time.March, 2)
	used := state.DailyMinutesAtOrBelowImportance(day, 5)
	if used > 576 {
		t.Errorf("priority-5 minutes on %s = %d, want <= 576", day, used)
	}
}

func TestRun_TravelRestrictsNonRemoteActivities(t *testing.T) {
	a := testutil.NewActivityBuilder().WithID("yoga").WithPriority(2).WithDuration(30).Build()
	travel := testutil.NewTravelPeriodBuilder().
		WithDates(testutil.D(2026, time.March, 2), testutil.D(2026, time.March, 8)).
		AsRemoteOnly().Build()

	state, err := Run(runInput([]core.Activity{a}, nil, nil, []core.TravelPeriod{travel}))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, slot := range state.AllSlots() {
		if !slot.Date.Before(travel.EndDate.AddDate(0, 0, 1)) && slot.Date.Before(travel.StartDate) {
			continue
		}
		if travel.Contains(slot.Date) && slot.ActivityID == "yoga" {
			t.Errorf("non-remote activity %q placed on travel date %s", slot.ActivityID, slot.Date)
		}
	}

	// The activity is not remote-capable and the period forbids non-remote
	// placement, so every instance inside the window must fail or be
	// pushed outside it; none may land inside [StartDate, EndDate].
	for _, slot := range state.AllSlots() {
		if travel.Contains(slot.Date) {
			t.Fatalf("unexpected booking inside remote-only travel window: %+v", slot)
		}
	}
}

func TestRun_DeterministicAcrossIdenticalRuns(t *testing.T) {
	activities := []core.Activity{
		testutil.NewActivityBuilder().WithID("meds").WithPriority(1).WithDuration(10).
			WithFrequency(core.FrequencyDaily, 0).Build(),
		testutil.NewActivityBuilder().WithID("lift").WithPriority(3).WithDuration(60).
			WithFrequency(core.FrequencyWeekly, 3).Build(),
	}

	state1, err := Run(runInput(activities, nil, nil, nil))
	if err != nil {
		t.Fatalf("Run (1) failed: %v", err)
	}
	state2, err := Run(runInput(activities, nil, nil, nil))
	if err != nil {
		t.Fatalf("Run (2) failed: %v", err)
	}

	slots1 := state1.AllSlots()
	slots2 := state2.AllSlots()
	if len(slots1) != len(slots2) {
		t.Fatalf("slot counts differ: %d vs %d", len(slots1), len(slots2))
	}
	for i := range slots1 {
		if !reflect.DeepEqual(slots1[i], slots2[i]) {
			t.Errorf("slot[%d] differs: %+v vs %+v", i, slots1[i], slots2[i])
		}
	}
}

func TestRun_HorizonDaysDefaultsFromConfigWhenUnset(t *testing.T) {
	a := testutil.NewActivityBuilder().WithID("walk").WithPriority(2).WithDuration(30).Build()

	cfg := config.Default()
	cfg.Horizon.Days = 5

	input := runInput([]core.Activity{a}, nil, nil, nil)
	input.HorizonDays = 0
	input.Config = cfg

	state, err := Run(input)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := state.OccurrenceCount("walk"); got != 5 {
		t.Errorf("OccurrenceCount(walk) = %d, want 5 (from Config.Horizon.Days)", got)
	}
}

func TestRun_InvalidInputRejectedBeforeAnyPlacement(t *testing.T) {
	bad := testutil.NewActivityBuilder().WithID("bad").WithPriority(9).Build()

	state, err := Run(runInput([]core.Activity{bad}, nil, nil, nil))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if state != nil {
		t.Error("expected nil state on validation failure")
	}
}

func TestRun_NoResourceDoubleBooking(t *testing.T) {
	activities := []core.Activity{
		testutil.NewActivityBuilder().WithID("session-a").WithPriority(2).WithDuration(45).
			WithSpecialist("shared-doc").Build(),
		testutil.NewActivityBuilder().WithID("session-b").WithPriority(2).WithDuration(45).
			WithSpecialist("shared-doc").Build(),
	}
	specialist := testutil.NewSpecialistBuilder().WithID("shared-doc").WithMaxConcurrentClients(1).Build()

	state, err := Run(runInput(activities, []core.Specialist{specialist}, nil, nil))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, date := range []time.Time{testutil.D(2026, time.March, 2), testutil.D(2026, time.March, 3)} {
		bookings := state.SpecialistBookings("shared-doc", date)
		for i := 0; i < len(bookings); i++ {
			for j := i + 1; j < len(bookings); j++ {
				if bookings[i].EndMinutes() > bookings[j].StartMinutes() && bookings[j].EndMinutes() > bookings[i].StartMinutes() {
					t.Errorf("overlapping specialist bookings on %s: %+v and %+v", date, bookings[i], bookings[j])
				}
			}
		}
	}
}

func TestExpandDemand_SortedByPriorityThenWindowThenID(t *testing.T) {
	s := &AdaptiveScheduler{
		input: runInput([]core.Activity{
			testutil.NewActivityBuilder().WithID("zzz").WithPriority(1).WithFrequency(core.FrequencyDaily, 0).Build(),
			testutil.NewActivityBuilder().WithID("aaa").WithPriority(1).WithFrequency(core.FrequencyDaily, 0).Build(),
			testutil.NewActivityBuilder().WithID("low").WithPriority(5).WithFrequency(core.FrequencyDaily, 0).Build(),
		}, nil, nil, nil),
	}
	s.input.HorizonDays = 1

	instances := s.expandDemand()
	if len(instances) != 3 {
		t.Fatalf("expected 3 instances, got %d", len(instances))
	}
	if instances[0].Activity.ID != "aaa" || instances[1].Activity.ID != "zzz" || instances[2].Activity.ID != "low" {
		t.Errorf("unexpected order: %s, %s, %s", instances[0].Activity.ID, instances[1].Activity.ID, instances[2].Activity.ID)
	}
}

func TestExpandDemand_PreferredDaysNarrowsWeeklyWindowToTargetWeekday(t *testing.T) {
	a := testutil.NewActivityBuilder().WithID("gym").WithPriority(2).
		WithFrequency(core.FrequencyWeekly, 2).WithPreferredDays(2, 4). // Wed, Fri
		Build()

	s := &AdaptiveScheduler{input: runInput([]core.Activity{a}, nil, nil, nil)}
	s.input.HorizonDays = 7 // one full week, starting Monday 2026-03-02

	instances := s.expandDemand()
	if len(instances) != 2 {
		t.Fatalf("expected 2 instances, got %d", len(instances))
	}

	wed := testutil.D(2026, time.March, 4)
	fri := testutil.D(2026, time.March, 6)

	if !instances[0].WindowStart.Equal(wed) || !instances[0].WindowEnd.Equal(wed) {
		t.Errorf("instance 0 window = %v..%v, want single day %v", instances[0].WindowStart, instances[0].WindowEnd, wed)
	}
	if !instances[1].WindowStart.Equal(fri) || !instances[1].WindowEnd.Equal(fri) {
		t.Errorf("instance 1 window = %v..%v, want single day %v", instances[1].WindowStart, instances[1].WindowEnd, fri)
	}
	// NaturalStart/NaturalEnd still span the whole week, since liquid
	// overflow needs the full natural period to compute "next week".
	if !instances[0].NaturalStart.Equal(testutil.D(2026, time.March, 2)) {
		t.Errorf("NaturalStart = %v, want week start 2026-03-02", instances[0].NaturalStart)
	}
}

func TestExpandDemand_PreferredDaysCyclesWhenFewerThanCount(t *testing.T) {
	a := testutil.NewActivityBuilder().WithID("gym").WithPriority(2).
		WithFrequency(core.FrequencyWeekly, 3).WithPreferredDays(0). // Monday only, 3 occurrences
		Build()

	s := &AdaptiveScheduler{input: runInput([]core.Activity{a}, nil, nil, nil)}
	s.input.HorizonDays = 7

	instances := s.expandDemand()
	if len(instances) != 3 {
		t.Fatalf("expected 3 instances, got %d", len(instances))
	}
	monday := testutil.D(2026, time.March, 2)
	for i, inst := range instances {
		if !inst.WindowStart.Equal(monday) || !inst.WindowEnd.Equal(monday) {
			t.Errorf("instance %d window = %v..%v, want single day %v", i, inst.WindowStart, inst.WindowEnd, monday)
		}
	}
}

func TestNextPeriod_WeeklyAdvancesSevenDays(t *testing.T) {
	start := testutil.D(2026, time.March, 2)
	end := testutil.D(2026, time.March, 8)

	nextStart, nextEnd := nextPeriod(core.FrequencyWeekly, start, end)
	if !nextStart.Equal(testutil.D(2026, time.March, 9)) {
		t.Errorf("nextStart = %v, want 2026-03-09", nextStart)
	}
	if !nextEnd.Equal(testutil.D(2026, time.March, 15)) {
		t.Errorf("nextEnd = %v, want 2026-03-15", nextEnd)
	}
}

func TestNextPeriod_MonthlyAdvancesOneMonth(t *testing.T) {
	start := testutil.D(2026, time.March, 1)
	end := testutil.D(2026, time.March, 31)

	nextStart, nextEnd := nextPeriod(core.FrequencyMonthly, start, end)
	if !nextStart.Equal(testutil.D(2026, time.April, 1)) {
		t.Errorf("nextStart = %v, want 2026-04-01", nextStart)
	}
	if !nextEnd.Equal(testutil.D(2026, time.April, 30)) {
		t.Errorf("nextEnd = %v, want 2026-04-30", nextEnd)
	}
}

func TestMondayOf(t *testing.T) {
	cases := []struct {
		date time.Time
		want time.Time
	}{
		{testutil.D(2026, time.March, 2), testutil.D(2026, time.March, 2)},  // Monday
		{testutil.D(2026, time.March, 4), testutil.D(2026, time.March, 2)},  // Wednesday
		{testutil.D(2026, time.March, 8), testutil.D(2026, time.March, 2)},  // Sunday
	}
	for _, c := range cases {
		if got := mondayOf(c.date); !got.Equal(c.want) {
			t.Errorf("mondayOf(%s) = %s, want %s", c.date.Format("2006-01-02"), got.Format("2006-01-02"), c.want.Format("2006-01-02"))
		}
	}
}
