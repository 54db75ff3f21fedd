// Package scheduler implements the AdaptiveScheduler: the orchestrator
// that expands recurring activities into concrete demand instances and
// places each one onto the calendar via the three-tier placement ladder
// (Primary, Backup, Liquid overflow).
package scheduler

import (
	"fmt"
	"sort"
	"time"

	"github.com/healthloop/adaptive-scheduler/internal/checker"
	"github.com/healthloop/adaptive-scheduler/internal/config"
	"github.com/healthloop/adaptive-scheduler/internal/core"
	"github.com/healthloop/adaptive-scheduler/internal/ledger"
	"github.com/healthloop/adaptive-scheduler/internal/logging"
	"github.com/healthloop/adaptive-scheduler/internal/scorer"
)

// Input bundles everything a run needs: the planning horizon and the
// fully validated domain collections. Config is optional; a nil Config
// falls back to config.Default().
type Input struct {
	StartDate time.Time
	// HorizonDays is how many days forward from StartDate to plan. Zero
	// or negative falls back to Config.Horizon.Days (config.Default's is
	// 90).
	HorizonDays   int
	Activities    []core.Activity
	Specialists   []core.Specialist
	Equipment     []core.Equipment
	TravelPeriods []core.TravelPeriod
	Config        *config.Config
}

// demandInstance is one concrete expected occurrence of an activity in a
// specific natural period. WindowStart/WindowEnd are clipped to the
// horizon and drive Tier-1 iteration; NaturalStart/NaturalEnd are the
// unclipped period boundaries, needed to compute the Tier-3 overflow
// window (the "next" period).
type demandInstance struct {
	Activity     core.Activity
	NaturalStart time.Time
	NaturalEnd   time.Time
	WindowStart  time.Time
	WindowEnd    time.Time
}

// AdaptiveScheduler places demand instances onto a ledger.State, one at a
// time, in strict single-threaded sequence.
type AdaptiveScheduler struct {
	input          Input
	cfg            *config.Config
	state          *ledger.State
	checker        *checker.Checker
	scorer         *scorer.Scorer
	activitiesByID map[string]*core.Activity
	horizonEnd     time.Time // exclusive; no commit may land on or after this date
}

// EffectiveConfig returns the Config that will govern a run: the
// caller-supplied Config, or config.Default() if none was given.
func EffectiveConfig(input Input) *config.Config {
	if input.Config != nil {
		return input.Config
	}
	return config.Default()
}

// Run validates the input, then expands and places every demand
// instance, returning the fully populated ledger. Validation failures
// abort before any state is produced.
func Run(input Input) (*ledger.State, error) {
	if err := core.ValidateActivities(input.Activities); err != nil {
		return nil, fmt.Errorf("validate activities: %w", err)
	}
	if err := core.ValidateSpecialists(input.Specialists); err != nil {
		return nil, fmt.Errorf("validate specialists: %w", err)
	}
	if err := core.ValidateEquipment(input.Equipment); err != nil {
		return nil, fmt.Errorf("validate equipment: %w", err)
	}
	if err := core.ValidateTravelPeriods(input.TravelPeriods); err != nil {
		return nil, fmt.Errorf("validate travel periods: %w", err)
	}

	cfg := EffectiveConfig(input)
	if input.HorizonDays <= 0 {
		input.HorizonDays = cfg.Horizon.Days
	}

	state := ledger.New()

	specialists := make(map[string]*core.Specialist, len(input.Specialists))
	for i := range input.Specialists {
		specialists[input.Specialists[i].ID] = &input.Specialists[i]
	}
	equipment := make(map[string]*core.Equipment, len(input.Equipment))
	for i := range input.Equipment {
		equipment[input.Equipment[i].ID] = &input.Equipment[i]
	}

	resources := checker.Resources{
		Specialists:   specialists,
		Equipment:     equipment,
		TravelPeriods: input.TravelPeriods,
	}

	activitiesByID := make(map[string]*core.Activity, len(input.Activities))
	for i := range input.Activities {
		activitiesByID[input.Activities[i].ID] = &input.Activities[i]
	}

	s := &AdaptiveScheduler{
		input:          input,
		cfg:            cfg,
		state:          state,
		checker:        checker.New(resources, state),
		scorer:         scorer.New(state, cfg.Scorer),
		activitiesByID: activitiesByID,
		horizonEnd:     core.CivilDate(input.StartDate).AddDate(0, 0, input.HorizonDays),
	}

	log := logging.WithFields(map[string]interface{}{
		"component": "scheduler",
		"run_id":    state.RunID(),
		"horizon":   input.HorizonDays,
	})
	log.Info("run starting: %d activities, %d specialists, %d equipment", len(input.Activities), len(input.Specialists), len(input.Equipment))

	instances := s.expandDemand()
	for _, inst := range instances {
		s.placeInstance(inst, log)
	}

	stats := state.Statistics()
	log.Info("run complete: %d scheduled, %d backups, %d terminal failures", stats.TotalScheduled, stats.TotalBackups, stats.TotalFailures)

	return state, nil
}

// expandDemand computes the deterministic ordered list of demand
// instances for every activity, sorted by ascending priority, then
// ascending window-start date, then ascending activity id.
func (s *AdaptiveScheduler) expandDemand() []demandInstance {
	d0 := core.CivilDate(s.input.StartDate)
	horizonEnd := d0.AddDate(0, 0, s.input.HorizonDays) // exclusive
	lastDay := horizonEnd.AddDate(0, 0, -1)

	var instances []demandInstance

	for _, activity := range s.input.Activities {
		switch activity.Frequency.Pattern {
		case core.FrequencyDaily:
			for day := d0; day.Before(horizonEnd); day = day.AddDate(0, 0, 1) {
				instances = append(instances, demandInstance{
					Activity:     activity,
					NaturalStart: day,
					NaturalEnd:   day,
					WindowStart:  day,
					WindowEnd:    day,
				})
			}

		case core.FrequencyWeekly:
			for weekStart := mondayOf(d0); !weekStart.After(lastDay); weekStart = weekStart.AddDate(0, 0, 7) {
				weekEnd := weekStart.AddDate(0, 0, 6)
				for i := 0; i < activity.Frequency.Count; i++ {
					windowStart := maxTime(weekStart, d0)
					windowEnd := minTime(weekEnd, lastDay)

					// PreferredDays cycles through this activity's weekly
					// occurrences, narrowing each one's Tier-1 scan to its
					// single target weekday instead of the whole week.
					if len(activity.Frequency.PreferredDays) > 0 {
						weekday := activity.Frequency.PreferredDays[i%len(activity.Frequency.PreferredDays)]
						preferred := weekStart.AddDate(0, 0, weekday)
						if !preferred.Before(windowStart) && !preferred.After(windowEnd) {
							windowStart, windowEnd = preferred, preferred
						}
					}

					instances = append(instances, demandInstance{
						Activity:     activity,
						NaturalStart: weekStart,
						NaturalEnd:   weekEnd,
						WindowStart:  windowStart,
						WindowEnd:    windowEnd,
					})
				}
			}

		case core.FrequencyMonthly:
			for monthStart := firstOfMonth(d0); !monthStart.After(lastDay); monthStart = monthStart.AddDate(0, 1, 0) {
				monthEnd := monthStart.AddDate(0, 1, -1)
				for i := 0; i < activity.Frequency.Count; i++ {
					instances = append(instances, demandInstance{
						Activity:     activity,
						NaturalStart: monthStart,
						NaturalEnd:   monthEnd,
						WindowStart:  maxTime(monthStart, d0),
						WindowEnd:    minTime(monthEnd, lastDay),
					})
				}
			}
		}
	}

	sort.SliceStable(instances, func(i, j int) bool {
		a, b := instances[i], instances[j]
		if a.Activity.Priority != b.Activity.Priority {
			return a.Activity.Priority < b.Activity.Priority
		}
		if !a.WindowStart.Equal(b.WindowStart) {
			return a.WindowStart.Before(b.WindowStart)
		}
		return a.Activity.ID < b.Activity.ID
	})

	return instances
}

// placeInstance runs the three-tier placement ladder for one demand
// instance, recording every intermediate rejection under the primary
// activity's id so the eventual report (if any) is keyed consistently.
func (s *AdaptiveScheduler) placeInstance(inst demandInstance, log *logging.Logger) {
	primary := inst.Activity
	reportID := primary.ID

	if s.tryWindow(primary, inst.WindowStart, inst.WindowEnd, false, "", reportID) {
		s.state.ClearFailures(reportID)
		return
	}

	for _, backupID := range primary.BackupActivityIDs {
		backup, ok := s.activitiesByID[backupID]
		if !ok {
			continue
		}
		if s.tryWindow(*backup, inst.WindowStart, inst.WindowEnd, true, primary.ID, reportID) {
			s.state.ClearFailures(reportID)
			log.WithTier(2).Debug("backup %s activated for %s on window %s", backup.ID, primary.ID, inst.WindowStart.Format("2006-01-02"))
			return
		}
	}

	if primary.Frequency.Pattern != core.FrequencyDaily {
		nextStart, nextEnd := nextPeriod(primary.Frequency.Pattern, inst.NaturalStart, inst.NaturalEnd)
		// Clip to the run's horizon the same way expandDemand clips Tier-1
		// windows: the next natural period can run past the horizon's last
		// day, and a commit out there would never show up in the
		// horizon-bounded schedule the caller sees.
		lastDay := s.horizonEnd.AddDate(0, 0, -1)
		nextEnd = minTime(nextEnd, lastDay)
		if !nextStart.After(nextEnd) && s.tryWindow(primary, nextStart, nextEnd, false, "", reportID) {
			s.state.ClearFailures(reportID)
			log.WithTier(3).Debug("liquid overflow placed %s in window %s..%s", primary.ID, nextStart.Format("2006-01-02"), nextEnd.Format("2006-01-02"))
			return
		}
	}

	s.state.RecordFailure(reportID, primary.Priority, core.ConstraintViolation{
		Kind:       core.ViolationExhaustion,
		Reason:     "no legal candidate found across all placement tiers",
		ActivityID: reportID,
		Date:       inst.WindowStart,
	})
}

// tryWindow attempts Tier-1-style placement of activity within
// [windowStart, windowEnd], day by day in ascending order. It commits the
// highest-scoring legal candidate on the first day that has one.
func (s *AdaptiveScheduler) tryWindow(activity core.Activity, windowStart, windowEnd time.Time, isBackup bool, originalID, reportID string) bool {
	for day := windowStart; !day.After(windowEnd); day = day.AddDate(0, 0, 1) {
		if s.alreadySatisfied(reportID, day) {
			continue
		}

		reportPriority := activity.Priority
		if reportActivity, ok := s.activitiesByID[reportID]; ok {
			reportPriority = reportActivity.Priority
		}

		cap := s.quotaMinutes(activity.Priority)
		used := s.state.DailyMinutesAtOrBelowImportance(day, activity.Priority)
		if used+activity.DurationMinutes > cap {
			s.state.RecordFailure(reportID, reportPriority, core.ConstraintViolation{
				Kind:       core.ViolationCapacity,
				Reason:     fmt.Sprintf("daily priority-capacity quota exceeded for priority %d", activity.Priority),
				ActivityID: reportID,
				Date:       day,
			})
			continue
		}

		candidates := s.enumerateCandidates(activity, day)

		bestScore := -1
		var bestStart time.Time
		found := false

		for _, start := range candidates {
			v := s.checker.Check(checker.Candidate{Activity: activity, Date: day, Start: start, IsBackup: isBackup})
			if v != nil {
				s.state.RecordFailure(reportID, reportPriority, *v)
				continue
			}
			score := s.scorer.Score(scorer.Candidate{Activity: activity, Date: day, Start: start})
			if score > bestScore {
				bestScore = score
				bestStart = start
				found = true
			}
		}

		if found {
			s.state.AddBooking(buildSlot(activity, day, bestStart, isBackup, originalID))
			return true
		}
	}
	return false
}

// enumerateCandidates produces the ordered, deduplicated candidate start
// times for an activity on a given date: either a 15-minute (configurable)
// step through the activity's declared time window, or the fixed anchor
// grid, plus "adjacent" candidates next to every existing booking that
// day.
func (s *AdaptiveScheduler) enumerateCandidates(activity core.Activity, day time.Time) []time.Time {
	var candidates []time.Time
	seen := make(map[int]bool)

	add := func(minutes int) {
		if minutes < 0 || minutes > 24*60 {
			return
		}
		if seen[minutes] {
			return
		}
		seen[minutes] = true
		candidates = append(candidates, minutesToTime(minutes))
	}

	if activity.HasTimeWindow() {
		start := minutesOfDay(*activity.TimeWindowStart)
		end := minutesOfDay(*activity.TimeWindowEnd)
		step := s.cfg.Candidates.StepMinutes
		if step <= 0 {
			step = 15
		}
		for m := start; m <= end-activity.DurationMinutes; m += step {
			add(m)
		}
	} else {
		for _, m := range s.cfg.Candidates.AnchorTimes {
			add(m)
		}
	}

	for _, existing := range s.state.SlotsForDate(day) {
		add(existing.EndMinutes())
		add(existing.StartMinutes() - activity.DurationMinutes - activity.PrepMinutes)
	}

	return candidates
}

// alreadySatisfied reports whether the primary activity identified by
// reportID already has a committed occurrence (primary or backup) on
// day. Weekly/Monthly demand instances for the same activity share a
// natural window, so without this check a later instance could double
// book the same day instead of spreading across the window.
func (s *AdaptiveScheduler) alreadySatisfied(reportID string, day time.Time) bool {
	for _, slot := range s.state.SlotsForDate(day) {
		creditID := slot.ActivityID
		if slot.IsBackup {
			creditID = slot.OriginalActivityID
		}
		if creditID == reportID {
			return true
		}
	}
	return false
}

func (s *AdaptiveScheduler) quotaMinutes(priority int) int {
	factor, ok := s.cfg.Capacity.Factors[priority]
	if !ok {
		factor = 1.0
	}
	return int(factor * 1440)
}

func buildSlot(activity core.Activity, day, start time.Time, isBackup bool, originalID string) core.TimeSlot {
	return core.TimeSlot{
		ActivityID:         activity.ID,
		Priority:           activity.Priority,
		Date:               core.CivilDate(day),
		StartTime:          start,
		DurationMinutes:    activity.DurationMinutes,
		PrepMinutes:        activity.PrepMinutes,
		SpecialistID:       activity.SpecialistID,
		EquipmentIDs:       activity.EquipmentIDs,
		IsBackup:           isBackup,
		OriginalActivityID: originalID,
		Status:             core.SlotScheduled,
	}
}

func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func minutesToTime(m int) time.Time {
	return time.Date(0, 1, 1, m/60, m%60, 0, 0, time.UTC)
}

func mondayOf(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

func firstOfMonth(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// nextPeriod computes the next natural period window (the following ISO
// week or calendar month) used by Tier-3 liquid overflow.
func nextPeriod(pattern core.FrequencyPattern, naturalStart, naturalEnd time.Time) (time.Time, time.Time) {
	switch pattern {
	case core.FrequencyWeekly:
		return naturalStart.AddDate(0, 0, 7), naturalEnd.AddDate(0, 0, 7)
	case core.FrequencyMonthly:
		next := naturalStart.AddDate(0, 1, 0)
		return next, next.AddDate(0, 1, -1)
	default:
		return naturalStart, naturalEnd
	}
}
