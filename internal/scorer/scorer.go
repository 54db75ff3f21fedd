// Package scorer implements the SlotScorer: a pure function that ranks
// already-legal candidates. It never decides legality — that is the
// ConstraintChecker's job — only preference among candidates the
// Checker has already approved.
package scorer

import (
	"math"
	"time"

	"github.com/healthloop/adaptive-scheduler/internal/config"
	"github.com/healthloop/adaptive-scheduler/internal/core"
	"github.com/healthloop/adaptive-scheduler/internal/ledger"
)

// Candidate is the legal (activity, date, start time) triple being
// scored.
type Candidate struct {
	Activity core.Activity
	Date     time.Time
	Start    time.Time
}

// Scorer ranks legal candidates using the ledger's accumulated history.
type Scorer struct {
	state   *ledger.State
	weights config.ScorerConfig
}

// New returns a Scorer bound to a ledger and a set of component weights.
func New(state *ledger.State, weights config.ScorerConfig) *Scorer {
	return &Scorer{state: state, weights: weights}
}

// Score returns an integer score in [0, 100]; higher is better. The base
// is 50; each component is additive and the result is clamped.
func (s *Scorer) Score(cand Candidate) int {
	total := 50.0
	total += s.timeWindowFidelity(cand)
	total += s.habitMatch(cand)
	total += s.clustering(cand)
	total += s.resilienceBuffer(cand)

	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}
	return int(math.Round(total))
}

func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func (s *Scorer) timeWindowFidelity(cand Candidate) float64 {
	a := &cand.Activity
	if !a.HasTimeWindow() {
		return 0
	}

	windowStart := float64(minutesOfDay(*a.TimeWindowStart))
	windowEnd := float64(minutesOfDay(*a.TimeWindowEnd))
	start := float64(minutesOfDay(cand.Start))
	denom := windowEnd - windowStart - float64(a.DurationMinutes)

	pos := 0.5
	if denom != 0 {
		pos = (start - windowStart) / denom
	}

	return math.Round(s.weights.TimeWindowFidelityWeight * (1 - 4*(pos-0.5)*(pos-0.5)))
}

func (s *Scorer) habitMatch(cand Candidate) float64 {
	count := s.state.WeekdayCount(cand.Activity.ID, cand.Date.Weekday())
	switch {
	case count >= 2:
		return s.weights.HabitMatchWeight
	case count == 1:
		return s.weights.HabitPartialWeight
	default:
		return 0
	}
}

// neighborGaps returns the gap, in minutes, to the nearest booking before
// and after the candidate on the same date. A gap of -1 means there is no
// neighbor on that side.
func (s *Scorer) neighborGaps(cand Candidate) (gapBefore, gapAfter int) {
	start := minutesOfDay(cand.Start)
	end := start + cand.Activity.DurationMinutes

	gapBefore, gapAfter = -1, -1

	for _, existing := range s.state.SlotsForDate(cand.Date) {
		if existing.EndMinutes() <= start {
			gap := start - existing.EndMinutes()
			if gapBefore == -1 || gap < gapBefore {
				gapBefore = gap
			}
		}
		if existing.StartMinutes() >= end {
			gap := existing.StartMinutes() - end
			if gapAfter == -1 || gap < gapAfter {
				gapAfter = gap
			}
		}
	}

	return gapBefore, gapAfter
}

func (s *Scorer) clustering(cand Candidate) float64 {
	gapBefore, gapAfter := s.neighborGaps(cand)

	minGap := gapBefore
	if gapAfter != -1 && (minGap == -1 || gapAfter < minGap) {
		minGap = gapAfter
	}
	if minGap != -1 && minGap < 15 {
		return s.weights.ClusteringBonusWeight
	}

	// An "island": both neighbors (that exist) are at least 60 minutes
	// away, in an otherwise free day segment.
	isolated := (gapBefore == -1 || gapBefore >= 60) && (gapAfter == -1 || gapAfter >= 60)
	if isolated && (gapBefore != -1 || gapAfter != -1) {
		return -s.weights.ClusteringPenaltyWeight
	}

	return 0
}

func (s *Scorer) resilienceBuffer(cand Candidate) float64 {
	gapBefore, _ := s.neighborGaps(cand)
	if gapBefore == -1 {
		// Nothing booked earlier in the day: no gap to reward or
		// penalize, so the component contributes nothing.
		return 0
	}
	switch {
	case gapBefore < 15:
		return -s.weights.ResilienceBufferWeight
	case gapBefore >= 15 && gapBefore <= 45:
		return s.weights.ResilienceBufferWeight
	default:
		return 0
	}
}
