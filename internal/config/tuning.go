package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds the heuristic strategy's thresholds. Fields absent from the
// YAML file keep their defaults.
type Tuning struct {
	// NeutralReach is the farthest a neutral cell may be from our nearest
	// cell to be captured after the first round.
	NeutralReach int `yaml:"neutral_reach"`
	// ProductionLead and UnitsLead gate expansion and upgrades: either lead
	// over the opponent allows them.
	ProductionLead int `yaml:"production_lead"`
	UnitsLead      int `yaml:"units_lead"`
	// SafeUpgradeDistance is the minimum distance to the enemy start for an
	// opening upgrade.
	SafeUpgradeDistance int `yaml:"safe_upgrade_distance"`
	EarlyBombRound      int `yaml:"early_bomb_round"`
	LateBombRound       int `yaml:"late_bomb_round"`
	OverlapTolerance    int `yaml:"overlap_tolerance"`
	InterceptLookback   int `yaml:"intercept_lookback"`
}

// DefaultTuning returns the thresholds the heuristic was tuned with.
func DefaultTuning() Tuning {
	return Tuning{
		NeutralReach:        8,
		ProductionLead:      2,
		UnitsLead:           50,
		SafeUpgradeDistance: 13,
		EarlyBombRound:      4,
		LateBombRound:       10,
		OverlapTolerance:    5,
		InterceptLookback:   20,
	}
}

// LoadTuning reads path over the defaults. An empty path returns the
// defaults unchanged.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}
	if err := loadYAML(path, &t); err != nil {
		return t, fmt.Errorf("load tuning %s: %w", path, err)
	}
	return t, nil
}

func loadYAML(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, out)
}
