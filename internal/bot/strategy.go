package bot

import (
	"github.com/freeeve/cellwar/internal/config"
	"github.com/freeeve/cellwar/internal/metrics"
	"github.com/freeeve/cellwar/pkg/conquest"
)

// Strategy queues requests for the current and future rounds. It runs once
// per round after the observation was applied and before orders are emitted.
type Strategy interface {
	Name() string
	Plan(s *conquest.State, r *conquest.Resolver)
}

// StrategyForName returns the strategy registered under name. Unknown names
// get the heuristic strategy.
func StrategyForName(name string, tuning config.Tuning, mc *metrics.Collector) Strategy {
	switch name {
	case "hold":
		return HoldStrategy{}
	case "random":
		return RandomStrategy{}
	default:
		return NewHeuristicStrategy(tuning, mc)
	}
}

// --- HoldStrategy ---

// HoldStrategy keeps every unit at home and only moves units out of the
// way of a bomb due next round.
type HoldStrategy struct{}

func (HoldStrategy) Name() string { return "hold" }

func (HoldStrategy) Plan(s *conquest.State, r *conquest.Resolver) {
	evacuateThreatened(s, r)
}

// --- RandomStrategy ---

// RandomStrategy sends part of each cell's units to a random neighbor and
// occasionally upgrades. Useful as a sparring partner.
type RandomStrategy struct{}

func (RandomStrategy) Name() string { return "random" }

func (RandomStrategy) Plan(s *conquest.State, r *conquest.Resolver) {
	g := s.Graph()
	ids := s.CellsOf(conquest.Friendly)
	botShuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	for _, id := range ids {
		c := s.Cell(id)
		nbs := g.Neighbors(id)
		if c.Units == 0 || len(nbs) == 0 {
			continue
		}
		if c.Units >= conquest.UpgradeCost && c.Production < conquest.MaxProduction && botFloat64() < 0.1 {
			r.Upgrade(id, 0)
			continue
		}
		if botFloat64() < 0.5 {
			to := nbs[botIntn(len(nbs))].ID
			r.StandardAttack(id, to, botIntn(c.Units)+1, 0)
		}
	}
	evacuateThreatened(s, r)
}

// evacuateThreatened flags every friendly cell with units that a bomb is
// due to hit next round.
func evacuateThreatened(s *conquest.State, r *conquest.Resolver) {
	bombs := s.Bombs()
	for _, id := range s.CellsOf(conquest.Friendly) {
		if s.Cell(id).Units > 0 && bombs.ImpactIn(id, 1) {
			r.Evacuate(id)
		}
	}
}
