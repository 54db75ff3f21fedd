package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTimeSlot_JSONRoundTrip(t *testing.T) {
	start, err := time.Parse("15:04", "09:30")
	if err != nil {
		t.Fatal(err)
	}
	original := TimeSlot{
		ActivityID:      "gym",
		Priority:        2,
		Date:            CivilDate(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)),
		StartTime:       start,
		DurationMinutes: 45,
		PrepMinutes:     10,
		SpecialistID:    "coach1",
		EquipmentIDs:    []string{"treadmill"},
		Status:          SlotScheduled,
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var want map[string]interface{}
	if err := json.Unmarshal(data, &want); err != nil {
		t.Fatal(err)
	}
	if want["date"] != "2026-03-02" {
		t.Errorf("date = %v, want 2026-03-02", want["date"])
	}
	if want["start_time"] != "09:30:00" {
		t.Errorf("start_time = %v, want 09:30:00", want["start_time"])
	}

	var roundtripped TimeSlot
	if err := json.Unmarshal(data, &roundtripped); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if roundtripped.ActivityID != original.ActivityID ||
		roundtripped.DurationMinutes != original.DurationMinutes ||
		!roundtripped.Date.Equal(original.Date) ||
		roundtripped.StartTime.Format("15:04:05") != original.StartTime.Format("15:04:05") {
		t.Errorf("round trip mismatch: got %+v, want %+v", roundtripped, original)
	}
}

func TestTimeSlot_MinutesHelpers(t *testing.T) {
	start, _ := time.Parse("15:04", "09:00")
	s := TimeSlot{StartTime: start, DurationMinutes: 30, PrepMinutes: 15}

	if got := s.StartMinutes(); got != 9*60 {
		t.Errorf("StartMinutes = %d, want %d", got, 9*60)
	}
	if got := s.EffectiveStartMinutes(); got != 9*60-15 {
		t.Errorf("EffectiveStartMinutes = %d, want %d", got, 9*60-15)
	}
	if got := s.EndMinutes(); got != 9*60+30 {
		t.Errorf("EndMinutes = %d, want %d", got, 9*60+30)
	}
}

func TestTravelPeriod_Contains(t *testing.T) {
	tp := TravelPeriod{
		StartDate: CivilDate(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)),
		EndDate:   CivilDate(time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)),
	}

	cases := []struct {
		date time.Time
		want bool
	}{
		{time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC), true},
		{time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC), false},
	}
	for _, c := range cases {
		if got := tp.Contains(c.date); got != c.want {
			t.Errorf("Contains(%s) = %v, want %v", c.date.Format("2006-01-02"), got, c.want)
		}
	}
}
