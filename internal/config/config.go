// Package config handles adaptive scheduler configuration.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds all tunables for a scheduling run. Every field has a
// sensible Default; most callers only ever override HorizonDays.
type Config struct {
	// Paths
	DataDir string `json:"data_dir"`

	// Horizon is how many days forward from the run date the scheduler
	// plans.
	Horizon HorizonConfig `json:"horizon"`

	// Candidates controls how candidate start times are enumerated.
	Candidates CandidateConfig `json:"candidates"`

	// Capacity holds the daily priority-capacity factors.
	Capacity CapacityConfig `json:"capacity"`

	// Scorer holds the SlotScorer component weights.
	Scorer ScorerConfig `json:"scorer"`

	// Features for toggling optional behavior.
	Features FeatureConfig `json:"features"`
}

// HorizonConfig bounds how far forward the scheduler plans.
type HorizonConfig struct {
	Days int `json:"days"`
}

// CandidateConfig controls candidate time-slot enumeration.
type CandidateConfig struct {
	// StepMinutes is the stride used when stepping through an activity's
	// declared time window.
	StepMinutes int `json:"step_minutes"`

	// AnchorTimes, expressed as minutes-from-midnight, are the fixed grid
	// of start times tried for activities with no declared time window.
	AnchorTimes []int `json:"anchor_times"`
}

// CapacityConfig holds the per-priority daily capacity factor, applied
// against a 1440-minute day to produce the scheduled-minutes quota for
// each priority tier.
type CapacityConfig struct {
	Factors map[int]float64 `json:"factors"`
}

// ScorerConfig holds the additive weight ceilings for each SlotScorer
// component.
type ScorerConfig struct {
	TimeWindowFidelityWeight float64 `json:"time_window_fidelity_weight"`
	HabitMatchWeight         float64 `json:"habit_match_weight"`
	HabitPartialWeight       float64 `json:"habit_partial_weight"`
	ClusteringPenaltyWeight  float64 `json:"clustering_penalty_weight"`
	ClusteringBonusWeight    float64 `json:"clustering_bonus_weight"`
	ResilienceBufferWeight   float64 `json:"resilience_buffer_weight"`
}

// FeatureConfig for feature flags.
type FeatureConfig struct {
	DebugMode bool `json:"debug_mode"`
}

// Default returns the default configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		DataDir: filepath.Join(home, ".adaptive-scheduler"),
		Horizon: HorizonConfig{
			Days: 90,
		},
		Candidates: CandidateConfig{
			StepMinutes: 15,
			AnchorTimes: []int{
				6 * 60, 7 * 60, 8 * 60, 9 * 60,
				12 * 60, 14 * 60, 17 * 60, 18 * 60, 19 * 60, 20 * 60,
			},
		},
		Capacity: CapacityConfig{
			Factors: map[int]float64{
				1: 1.00,
				2: 0.80,
				3: 0.60,
				4: 0.50,
				5: 0.40,
			},
		},
		Scorer: ScorerConfig{
			TimeWindowFidelityWeight: 20,
			HabitMatchWeight:         10,
			HabitPartialWeight:       5,
			ClusteringPenaltyWeight:  5,
			ClusteringBonusWeight:    15,
			ResilienceBufferWeight:   10,
		},
		Features: FeatureConfig{
			DebugMode: false,
		},
	}
}

// Load loads config from file, falling back to defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = filepath.Join(cfg.DataDir, "config.json")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves config to file.
func (c *Config) Save(path string) error {
	if path == "" {
		path = filepath.Join(c.DataDir, "config.json")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
