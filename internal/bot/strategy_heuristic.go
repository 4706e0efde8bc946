package bot

import (
	"slices"

	"github.com/freeeve/cellwar/internal/config"
	"github.com/freeeve/cellwar/internal/metrics"
	"github.com/freeeve/cellwar/pkg/conquest"
)

// holdEverything is a reservation larger than any cell's garrison.
const holdEverything = 100

// HeuristicStrategy plays a scripted opening and then runs a fixed sequence
// of attack, defense and economy rules each round.
type HeuristicStrategy struct {
	tuning  config.Tuning
	metrics *metrics.Collector
}

// NewHeuristicStrategy creates a HeuristicStrategy. mc may be nil.
func NewHeuristicStrategy(tuning config.Tuning, mc *metrics.Collector) *HeuristicStrategy {
	return &HeuristicStrategy{tuning: tuning, metrics: mc}
}

func (h *HeuristicStrategy) Name() string { return "heuristic" }

// Plan implements Strategy.
func (h *HeuristicStrategy) Plan(s *conquest.State, r *conquest.Resolver) {
	if s.Round() == 0 {
		h.planOpening(s, r)
		return
	}
	h.earlyBomb(s, r)
	h.topUpNeutrals(s, r)
	h.standardAttack(s, r)
	h.standardBuffer(s, r)
	h.defend(s, r)
	h.captureNeutrals(s, r)
	h.upgrade(s, r)
	h.intercept(s, r)
	evacuateThreatened(s, r)
}

// planOpening spends the start cell's units on the best neutral cells and
// decides whether an early upgrade pays off.
func (h *HeuristicStrategy) planOpening(s *conquest.State, r *conquest.Resolver) {
	own, enemy := s.StartCells()
	start := s.Cell(own)
	if start == nil {
		return
	}
	g := s.Graph()
	tot := s.Totals()

	neutrals := s.CellsOf(conquest.Neutral)
	sortByScore(neutrals, func(id int) int {
		c := s.Cell(id)
		return 6*c.Production - distance(g, own, id) - c.Units
	})

	available := start.Units
	enemyDistance := distance(g, own, enemy)
	safe := enemyDistance > h.tuning.SafeUpgradeDistance

	// Many neutral units make captures expensive; grow the start cell instead.
	upgraded := false
	if tot.NeutralProduction > 1 && available-tot.NeutralUnits/2 < conquest.UpgradeCost &&
		available >= conquest.UpgradeCost && safe {
		r.Upgrade(own, 0)
		available -= conquest.UpgradeCost
		upgraded = true
	}

	for _, id := range neutrals {
		if available <= 0 {
			break
		}
		c := s.Cell(id)
		if available <= c.Units || c.Production == 0 || !g.Linked(own, id) {
			continue
		}
		toOwn, toEnemy := distance(g, id, own), distance(g, id, enemy)
		switch {
		case toOwn == toEnemy:
			// Contested: one unit now, one more next round to win the tie.
			r.NeutralAttack(own, id, 1, 0)
			r.NeutralAttack(own, id, 1, 1)
			available -= 2
		case toOwn < toEnemy:
			r.NeutralAttack(own, id, c.Units+1, 0)
			available -= c.Units + 1
		}
	}

	if !upgraded && len(neutrals) > 10 && available >= conquest.UpgradeCost && safe {
		r.Upgrade(own, 0)
	}

	if ec := s.Cell(enemy); ec != nil && ec.Production == conquest.MaxProduction && g.Linked(own, enemy) {
		r.LaunchBomb(own, enemy, 0)
	}
}

// earlyBomb spends the first bomb on the enemy start cell when it was
// upgraded, otherwise on the first enemy cell of worthwhile production.
func (h *HeuristicStrategy) earlyBomb(s *conquest.State, r *conquest.Resolver) {
	if s.OwnBombs() != conquest.StartingBombs {
		return
	}
	_, enemy := s.StartCells()
	if ec := s.Cell(enemy); ec != nil && ec.Owner == conquest.Enemy && ec.Production == conquest.MaxProduction {
		if f, ok := s.ClosestWithOwner(enemy, conquest.Friendly); ok {
			r.LaunchBomb(f.ID, enemy, 0)
		}
		return
	}

	tot := s.Totals()
	worthwhile := conquest.MaxProduction
	if s.Round() > 30 || tot.OwnUnits+h.tuning.UnitsLead < tot.EnemyUnits {
		worthwhile = 2
	}
	if s.Round() > 40 {
		worthwhile = 1
	}
	for _, id := range s.CellsOf(conquest.Enemy) {
		if s.Cell(id).Production != worthwhile {
			continue
		}
		if f, ok := s.ClosestWithOwner(id, conquest.Friendly); ok {
			r.LaunchBomb(f.ID, id, 0)
		}
		break
	}
}

// topUpNeutrals adds a unit to neutral cells both sides are racing for,
// unless our troops already take them.
func (h *HeuristicStrategy) topUpNeutrals(s *conquest.State, r *conquest.Resolver) {
	for _, id := range s.CellsOf(conquest.Neutral) {
		c := s.Cell(id)
		if c.Forecast.TotalFriendly() == 0 || c.Forecast.TotalEnemy() == 0 || conquest.AboutToBeConquered(c) {
			continue
		}
		if f, ok := s.ClosestWithOwner(id, conquest.Friendly); ok {
			r.NeutralAttack(f.ID, id, 1, 0)
		}
	}
}

// standardAttack picks the best enemy target, bombs it when worthwhile, and
// routes every friendly cell's units toward it.
func (h *HeuristicStrategy) standardAttack(s *conquest.State, r *conquest.Resolver) {
	enemies := s.CellsOf(conquest.Enemy)
	if len(enemies) == 0 {
		return
	}
	sortByScore(enemies, func(id int) int {
		return 6*s.Cell(id).Production - s.DistanceToClosest(id, conquest.Friendly)
	})
	target := enemies[0]
	launcher, ok := s.ClosestWithOwner(target, conquest.Friendly)
	if !ok {
		return
	}

	tot := s.Totals()
	tc := s.Cell(target)
	worthwhile := conquest.MaxProduction
	if s.Round() > 20 || tot.OwnUnits+20 < tot.EnemyUnits {
		worthwhile = 2
	}
	switch {
	case s.Round() >= h.tuning.EarlyBombRound && s.OwnBombs() > 0 && tc.Production == worthwhile &&
		!conquest.AboutToBeConquered(tc) && !s.Bombs().WouldOverlap(target, launcher.ID, s.OverlapTolerance()):
		r.LaunchBomb(launcher.ID, target, 0)
	case s.Round() >= h.tuning.LateBombRound && s.OwnBombs() > 0:
		h.bombBestProducer(s, r)
	}

	g := s.Graph()
	for _, id := range s.CellsOf(conquest.Friendly) {
		c := s.Cell(id)
		if c.Units == 0 {
			continue
		}
		to := s.Routes().NextHop(id, target)
		if to == conquest.NoCell {
			if !g.Linked(id, target) {
				continue
			}
			to = target
			h.metrics.RouteFallback()
		}
		if !s.Bombs().ArrivesOnImpact(id, to) {
			r.StandardAttack(id, to, c.Units, 0)
		}
	}
}

// bombBestProducer bombs the first fully upgraded enemy cell that is not
// already doomed or covered, following up with a unit to retake it.
func (h *HeuristicStrategy) bombBestProducer(s *conquest.State, r *conquest.Resolver) {
	for _, id := range s.CellsOf(conquest.Enemy) {
		c := s.Cell(id)
		if c.Production != conquest.MaxProduction {
			continue
		}
		f, ok := s.ClosestWithOwner(id, conquest.Friendly)
		if !ok || conquest.AboutToBeConquered(c) || s.Bombs().WouldOverlap(id, f.ID, s.OverlapTolerance()) {
			continue
		}
		r.LaunchBomb(f.ID, id, 0)
		r.SpecialAttack(f.ID, id, 1, 1)
		return
	}
}

// standardBuffer keeps enough units home to absorb the nearest enemy cell's
// garrison plus what is already inbound.
func (h *HeuristicStrategy) standardBuffer(s *conquest.State, r *conquest.Resolver) {
	for _, id := range s.CellsOf(conquest.Friendly) {
		e, ok := s.ClosestWithOwner(id, conquest.Enemy)
		if !ok {
			continue
		}
		c, ec := s.Cell(id), s.Cell(e.ID)
		needed := ec.Units + ec.Production - e.Distance*c.EffectiveProduction() -
			c.Forecast.Friendly(1) + ec.Forecast.Enemy(1)
		if needed > 0 {
			r.SaveForDefense(id, needed, 0)
		}
	}
}

// defend reacts to each friendly cell's threat posture.
func (h *HeuristicStrategy) defend(s *conquest.State, r *conquest.Resolver) {
	tot := s.Totals()
	g := s.Graph()
	for _, id := range s.CellsOf(conquest.Friendly) {
		c := s.Cell(id)
		switch c.Threat {
		case conquest.BeingConquered:
			if c.Production >= 1 && tot.OwnProduction > tot.EnemyProduction {
				required := conquest.UnitsToSave(c)
				for _, nb := range g.Neighbors(id) {
					if required <= 0 {
						break
					}
					n := s.Cell(nb.ID)
					if n.Owner == conquest.Friendly && n.Threat == conquest.Safe {
						r.DefendTransfer(nb.ID, id, required, 0)
						required -= n.Units
					}
				}
			}
			fallthrough
		case conquest.DefendByIncomingUnits:
			r.SaveForDefense(id, holdEverything, 0)
		case conquest.DefendBySavingUnits:
			r.SaveForDefense(id, conquest.UnitsToSave(c), 0)
		}
	}
}

// captureNeutrals takes one more productive neutral cell when we can afford
// to expand.
func (h *HeuristicStrategy) captureNeutrals(s *conquest.State, r *conquest.Resolver) {
	tot := s.Totals()
	round := s.Round()
	expand := (round < 10 && tot.OwnProduction < tot.EnemyProduction) ||
		tot.OwnProduction > tot.EnemyProduction+h.tuning.ProductionLead ||
		tot.OwnUnits > tot.EnemyUnits+h.tuning.UnitsLead ||
		round > 40
	if !expand {
		return
	}

	neutrals := s.CellsOf(conquest.Neutral)
	sortByScore(neutrals, func(id int) int {
		c := s.Cell(id)
		return 6*c.Production - s.DistanceToClosest(id, conquest.Friendly) - c.Units
	})
	for _, id := range neutrals {
		c := s.Cell(id)
		f, ok := s.ClosestWithOwner(id, conquest.Friendly)
		if !ok || c.Production == 0 || f.Distance > h.tuning.NeutralReach || conquest.AboutToBeConquered(c) ||
			f.Distance > s.DistanceToClosest(id, conquest.Enemy) {
			continue
		}
		r.NeutralAttack(f.ID, id, min(s.Cell(f.ID).Production, c.Units+1), 0)
		return
	}
}

// upgrade raises production on the safe cell farthest from the enemy when
// we are ahead.
func (h *HeuristicStrategy) upgrade(s *conquest.State, r *conquest.Resolver) {
	tot := s.Totals()
	if tot.OwnProduction <= tot.EnemyProduction+h.tuning.ProductionLead && tot.OwnUnits <= tot.EnemyUnits+h.tuning.UnitsLead {
		return
	}
	own := s.CellsOf(conquest.Friendly)
	sortByScore(own, func(id int) int { return s.DistanceToClosest(id, conquest.Enemy) })
	for _, id := range own {
		c := s.Cell(id)
		if c.Production >= conquest.MaxProduction || (c.Production == 0 && c.Units < conquest.UpgradeCost) {
			continue
		}
		if c.Threat != conquest.Safe || c.HitByBomb() {
			continue
		}
		// The upgrade must pay back its cost before a predicted bomb lands.
		payback := conquest.UpgradeCost + conquest.UpgradeCost/max(c.Production, 1)
		if s.Bombs().ImpactWithin(id, payback) {
			continue
		}
		r.Upgrade(id, 0)
		return
	}
}

// intercept times a strike on a neutral cell so it lands right after an
// enemy troop has captured it, beating the garrison the enemy leaves.
func (h *HeuristicStrategy) intercept(s *conquest.State, r *conquest.Resolver) {
	round := s.Round()
	history := s.History()
	for _, id := range s.CellsOf(conquest.Neutral) {
		c := s.Cell(id)
		if c.Production == 0 || c.Units == 0 || c.Forecast.TotalFriendly() != 0 || c.Forecast.TotalEnemy() == 0 {
			continue
		}
		f, ok := s.ClosestWithOwner(id, conquest.Friendly)
		if !ok {
			continue
		}
		if slot := r.Slot(f.ID, 0); slot == nil || slot.SpecialAttack != nil {
			continue
		}
		arrival := round + f.Distance + 1

	search:
		for i := 0; i < h.tuning.InterceptLookback && round-i >= 0; i++ {
			for _, t := range history.TroopsLaunched(round - i) {
				if t.Owner != conquest.Enemy || t.To != id || t.Arrival != arrival {
					continue
				}
				if rest := t.Units - c.Units; rest > 0 && s.Cell(f.ID).Units >= rest {
					r.SpecialAttack(f.ID, id, rest, 0)
				}
				break search
			}
		}
	}
}

// sortByScore orders ids by descending score, keeping id order on ties.
func sortByScore(ids []int, score func(int) int) {
	slices.SortStableFunc(ids, func(a, b int) int { return score(b) - score(a) })
}

// distance is the direct link length, or Unreachable when the cells are not
// linked or either is missing.
func distance(g *conquest.Graph, a, b int) int {
	if a == b {
		return 0
	}
	if a < 0 || b < 0 || !g.Linked(a, b) {
		return conquest.Unreachable
	}
	return g.Distance(a, b)
}
