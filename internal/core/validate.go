package core

import "fmt"

// ValidationError wraps one of the sentinel errors in errors.go with the id of the
// offending object, so a caller can report exactly what failed to load.
type ValidationError struct {
	ObjectID string
	Err      error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.ObjectID, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(objectID string, err error) *ValidationError {
	return &ValidationError{ObjectID: objectID, Err: err}
}

// ValidateActivities checks per-activity invariants (priority, duration,
// prep, frequency count, time window ordering) and the acyclicity of the
// backup_activity_ids graph across the whole collection. It does not
// require that every backup id also appear in primaries — backups may be
// activities scheduled only via another activity's fallback chain — but
// every backup id must resolve to *some* activity in the set.
func ValidateActivities(activities []Activity) error {
	byID := make(map[string]*Activity, len(activities))
	for i := range activities {
		a := &activities[i]
		if _, dup := byID[a.ID]; dup {
			return invalid(a.ID, ErrDuplicateID)
		}
		byID[a.ID] = a
	}

	for i := range activities {
		a := &activities[i]

		if a.Priority < 1 || a.Priority > 5 {
			return invalid(a.ID, ErrPriorityOutOfRange)
		}
		if a.DurationMinutes < 10 {
			return invalid(a.ID, ErrDurationTooShort)
		}
		if a.PrepMinutes < 0 || a.PrepMinutes > 60 {
			return invalid(a.ID, ErrPrepOutOfRange)
		}
		if err := validateFrequency(a.Frequency); err != nil {
			return invalid(a.ID, err)
		}
		if a.HasTimeWindow() {
			if !a.TimeWindowEnd.After(*a.TimeWindowStart) {
				return invalid(a.ID, ErrTimeWindowInvalid)
			}
		}
		for _, backupID := range a.BackupActivityIDs {
			if _, ok := byID[backupID]; !ok {
				return invalid(a.ID, ErrUnknownBackupActivity)
			}
		}
	}

	if err := checkBackupAcyclic(activities); err != nil {
		return err
	}
	return nil
}

func validateFrequency(f Frequency) error {
	switch f.Pattern {
	case FrequencyWeekly:
		if f.Count < 1 || f.Count > 7 {
			return ErrFrequencyCountInvalid
		}
	case FrequencyMonthly:
		if f.Count < 1 || f.Count > 31 {
			return ErrFrequencyCountInvalid
		}
	case FrequencyDaily:
		// Count is unused for Daily.
	}

	// PreferredDays cycles through a Weekly activity's occurrences to pick
	// each one's target weekday; it has no meaning for Daily or Monthly.
	if f.Pattern != FrequencyWeekly && len(f.PreferredDays) > 0 {
		return ErrPreferredDayInvalid
	}
	for _, d := range f.PreferredDays {
		if d < 0 || d > 6 {
			return ErrPreferredDayInvalid
		}
	}
	return nil
}

// checkBackupAcyclic walks the backup_activity_ids graph from every node
// using the standard white/gray/black DFS coloring; a gray node reached
// again means a cycle.
func checkBackupAcyclic(activities []Activity) error {
	byID := make(map[string]*Activity, len(activities))
	for i := range activities {
		byID[activities[i].ID] = &activities[i]
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(activities))

	var visit func(id string) error
	visit = func(id string) error {
		switch color[id] {
		case gray:
			return invalid(id, ErrBackupCycle)
		case black:
			return nil
		}
		color[id] = gray
		if a, ok := byID[id]; ok {
			for _, backupID := range a.BackupActivityIDs {
				if err := visit(backupID); err != nil {
					return err
				}
			}
		}
		color[id] = black
		return nil
	}

	for i := range activities {
		if err := visit(activities[i].ID); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSpecialists checks for duplicate IDs and capacity; the ordering
// of availability windows is not checked.
func ValidateSpecialists(specialists []Specialist) error {
	seen := make(map[string]bool, len(specialists))
	for _, s := range specialists {
		if seen[s.ID] {
			return invalid(s.ID, ErrDuplicateID)
		}
		seen[s.ID] = true
		if s.MaxConcurrentClients < 1 {
			return invalid(s.ID, ErrInvalidCapacity)
		}
	}
	return nil
}

// ValidateEquipment checks capacity and maintenance interval ordering.
func ValidateEquipment(equipment []Equipment) error {
	seen := make(map[string]bool, len(equipment))
	for _, e := range equipment {
		if seen[e.ID] {
			return invalid(e.ID, ErrDuplicateID)
		}
		seen[e.ID] = true
		if e.MaxConcurrentUsers < 1 {
			return invalid(e.ID, ErrInvalidCapacity)
		}
		for _, w := range e.MaintenanceWindows {
			if w.EndDate.Before(w.StartDate) {
				return invalid(e.ID, ErrMaintenanceInverted)
			}
		}
	}
	return nil
}

// ValidateTravelPeriods checks date ordering.
func ValidateTravelPeriods(periods []TravelPeriod) error {
	seen := make(map[string]bool, len(periods))
	for _, p := range periods {
		if seen[p.ID] {
			return invalid(p.ID, ErrDuplicateID)
		}
		seen[p.ID] = true
		if p.EndDate.Before(p.StartDate) {
			return invalid(p.ID, ErrTravelPeriodInverted)
		}
	}
	return nil
}
