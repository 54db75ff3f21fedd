package scorer

import (
	"testing"
	"time"

	"github.com/healthloop/adaptive-scheduler/internal/config"
	"github.com/healthloop/adaptive-scheduler/internal/core"
	"github.com/healthloop/adaptive-scheduler/internal/ledger"
)

func t15(hhmm string) time.Time {
	parsed, err := time.Parse("15:04", hhmm)
	if err != nil {
		panic(err)
	}
	return parsed
}

func civil(y int, m time.Month, d int) time.Time {
	return core.CivilDate(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func weights() config.ScorerConfig {
	return config.Default().Scorer
}

func baseActivity() core.Activity {
	return core.Activity{ID: "a1", DurationMinutes: 30, Priority: 3}
}

func TestScore_BaseWithNoComponents(t *testing.T) {
	s := New(ledger.New(), weights())
	cand := Candidate{Activity: baseActivity(), Date: civil(2026, 3, 2), Start: t15("09:00")}
	if got := s.Score(cand); got != 50 {
		t.Errorf("Score = %d, want 50", got)
	}
}

func TestScore_TimeWindowFidelity_CenterIsMax(t *testing.T) {
	s := New(ledger.New(), weights())

	ws := t15("07:00")
	we := t15("09:00") // window 120 min, duration 30, so usable range is 90 min; center start = 07:45
	a := baseActivity()
	a.TimeWindowStart = &ws
	a.TimeWindowEnd = &we

	cand := Candidate{Activity: a, Date: civil(2026, 3, 2), Start: t15("07:45")}
	got := s.Score(cand)
	if got != 70 {
		t.Errorf("Score at window center = %d, want 70 (50 base + 20 fidelity)", got)
	}
}

func TestScore_TimeWindowFidelity_EdgeIsLower(t *testing.T) {
	s := New(ledger.New(), weights())

	ws := t15("07:00")
	we := t15("09:00")
	a := baseActivity()
	a.TimeWindowStart = &ws
	a.TimeWindowEnd = &we

	center := Candidate{Activity: a, Date: civil(2026, 3, 2), Start: t15("07:45")}
	edge := Candidate{Activity: a, Date: civil(2026, 3, 2), Start: ws}

	if s.Score(edge) >= s.Score(center) {
		t.Errorf("edge score %d should be lower than center score %d", s.Score(edge), s.Score(center))
	}
}

func TestScore_HabitMatch_TwoOrMorePriorBookings(t *testing.T) {
	state := ledger.New()
	monday := civil(2026, 3, 2)
	nextMonday := civil(2026, 3, 9)

	state.AddBooking(core.TimeSlot{ActivityID: "a1", Priority: 3, Date: monday, StartTime: t15("09:00"), DurationMinutes: 30, Status: core.SlotScheduled})
	state.AddBooking(core.TimeSlot{ActivityID: "a1", Priority: 3, Date: nextMonday, StartTime: t15("09:00"), DurationMinutes: 30, Status: core.SlotScheduled})

	s := New(state, weights())
	cand := Candidate{Activity: baseActivity(), Date: civil(2026, 3, 16), Start: t15("18:00")}
	got := s.Score(cand)
	if got != 60 {
		t.Errorf("Score with 2 prior same-weekday bookings = %d, want 60 (50 base + 10 habit)", got)
	}
}

func TestScore_Clustering_TightGapBonus(t *testing.T) {
	state := ledger.New()
	day := civil(2026, 3, 2)
	state.AddBooking(core.TimeSlot{ActivityID: "x", Priority: 3, Date: day, StartTime: t15("08:00"), DurationMinutes: 30, Status: core.SlotScheduled})

	s := New(state, weights())
	// existing slot ends 08:30; candidate at 08:40 gives gap_before=10min (<15)
	cand := Candidate{Activity: baseActivity(), Date: day, Start: t15("08:40")}
	got := s.Score(cand)
	if got <= 50 {
		t.Errorf("Score with tight gap = %d, want > 50 (clustering bonus)", got)
	}
}

func TestScore_ResilienceBuffer_TooTightPenalty(t *testing.T) {
	state := ledger.New()
	day := civil(2026, 3, 2)
	state.AddBooking(core.TimeSlot{ActivityID: "x", Priority: 3, Date: day, StartTime: t15("08:00"), DurationMinutes: 30, Status: core.SlotScheduled})

	s := New(state, weights())
	// gap_before = 5 min (< 15) triggers both clustering bonus (<15) and
	// resilience penalty; net effect still computable directly.
	cand := Candidate{Activity: baseActivity(), Date: day, Start: t15("08:35")}
	gapBefore, _ := s.neighborGaps(Candidate{Activity: baseActivity(), Date: day, Start: t15("08:35")})
	if gapBefore != 5 {
		t.Fatalf("test setup: expected gap_before=5, got %d", gapBefore)
	}
	got := s.Score(cand)
	// 50 base + 15 clustering (gap<15) - 10 resilience (gap<15) = 55
	if got != 55 {
		t.Errorf("Score = %d, want 55", got)
	}
}

func TestScore_ResilienceBuffer_FirstBookingOfDayIsNeutral(t *testing.T) {
	s := New(ledger.New(), weights())
	day := civil(2026, 3, 2)

	got := s.resilienceBuffer(Candidate{Activity: baseActivity(), Date: day, Start: t15("08:00")})
	if got != 0 {
		t.Errorf("resilienceBuffer for an empty day = %v, want 0", got)
	}
}

func TestScore_Clamped(t *testing.T) {
	// Construct weights that would blow past 100 to verify clamping.
	big := weights()
	big.TimeWindowFidelityWeight = 1000
	s := New(ledger.New(), big)

	ws := t15("07:00")
	we := t15("09:00")
	a := baseActivity()
	a.TimeWindowStart = &ws
	a.TimeWindowEnd = &we

	cand := Candidate{Activity: a, Date: civil(2026, 3, 2), Start: t15("07:45")}
	if got := s.Score(cand); got != 100 {
		t.Errorf("Score = %d, want clamped to 100", got)
	}
}
