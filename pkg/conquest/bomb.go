package conquest

import "errors"

// ErrAmbiguousImpact is returned by ReportImpact when several bombs were due
// at the hit cell in the same round. Nothing is resolved; a later signal may
// disambiguate.
var ErrAmbiguousImpact = errors.New("conquest: ambiguous bomb impact")

// DefaultOverlapTolerance is the round window inside which two impacts on
// the same cell count as overlapping.
const DefaultOverlapTolerance = 5

// PredictedImpact ties a bomb to the round it is expected to hit one cell.
type PredictedImpact struct {
	Bomb  int // bomb id
	Round int
}

// BombPredictor tracks, per cell, every known or candidate bomb impact.
// Own bombs have one exact record. Enemy bombs have an unknown target, so
// every reachable cell holds a candidate until the real one is identified or
// the candidate's round passes.
type BombPredictor struct {
	g       *Graph
	round   int
	impacts [][]PredictedImpact // per cell id
}

// NewBombPredictor returns an empty predictor over g.
func NewBombPredictor(g *Graph) *BombPredictor {
	return &BombPredictor{
		g:       g,
		impacts: make([][]PredictedImpact, g.Size()),
	}
}

// Advance moves the predictor to round and drops impacts whose round has
// passed.
func (p *BombPredictor) Advance(round int) {
	p.round = round
	for id, list := range p.impacts {
		kept := list[:0]
		for _, pi := range list {
			if pi.Round >= round {
				kept = append(kept, pi)
			}
		}
		p.impacts[id] = kept
	}
}

// Round returns the round the predictor was last advanced to.
func (p *BombPredictor) Round() int { return p.round }

// Launch registers impact predictions for a newly observed bomb.
func (p *BombPredictor) Launch(b Bomb) {
	if b.Owner == Friendly {
		if b.To >= 0 && b.To < len(p.impacts) {
			p.impacts[b.To] = append(p.impacts[b.To], PredictedImpact{Bomb: b.ID, Round: b.Impact})
		}
		return
	}
	for id := range p.impacts {
		if id == b.From || !p.g.Linked(b.From, id) {
			continue
		}
		p.impacts[id] = append(p.impacts[id], PredictedImpact{
			Bomb:  b.ID,
			Round: b.Launched + p.g.Distance(b.From, id),
		})
	}
}

// ReportImpact is called when cell shows the post-impact signal in the
// current round. If exactly one prediction at cell is due this round, that
// bomb is resolved and its records are removed from every cell. With more
// than one due, nothing changes and ErrAmbiguousImpact is returned. With
// none due but a single record left on the cell, that record's bomb is
// taken as the one that hit.
func (p *BombPredictor) ReportImpact(cell int) (int, error) {
	list := p.impacts[cell]
	bomb := NoCell
	for _, pi := range list {
		if pi.Round != p.round {
			continue
		}
		if bomb != NoCell {
			return NoCell, ErrAmbiguousImpact
		}
		bomb = pi.Bomb
	}
	if bomb == NoCell && len(list) == 1 {
		bomb = list[0].Bomb
	}
	if bomb == NoCell {
		return NoCell, nil
	}
	p.Remove(bomb)
	return bomb, nil
}

// Remove drops every record of the given bomb.
func (p *BombPredictor) Remove(bomb int) {
	for id, list := range p.impacts {
		kept := list[:0]
		for _, pi := range list {
			if pi.Bomb != bomb {
				kept = append(kept, pi)
			}
		}
		p.impacts[id] = kept
	}
}

// Impacts returns the predictions for a cell. Callers must not mutate it.
func (p *BombPredictor) Impacts(cell int) []PredictedImpact { return p.impacts[cell] }

// Expected reports whether any impact is predicted at cell.
func (p *BombPredictor) Expected(cell int) bool { return len(p.impacts[cell]) > 0 }

// ImpactIn reports an impact predicted exactly n rounds from now.
func (p *BombPredictor) ImpactIn(cell, n int) bool {
	for _, pi := range p.impacts[cell] {
		if pi.Round == p.round+n {
			return true
		}
	}
	return false
}

// ImpactWithin reports an impact predicted fewer than n rounds from now.
func (p *BombPredictor) ImpactWithin(cell, n int) bool {
	for _, pi := range p.impacts[cell] {
		if pi.Round < p.round+n {
			return true
		}
	}
	return false
}

// ImpactBeyond reports an impact predicted more than n rounds from now.
func (p *BombPredictor) ImpactBeyond(cell, n int) bool {
	for _, pi := range p.impacts[cell] {
		if pi.Round > p.round+n {
			return true
		}
	}
	return false
}

// ArrivesOnImpact reports whether units sent now from -> to would land in
// the round a bomb is predicted to hit to.
func (p *BombPredictor) ArrivesOnImpact(from, to int) bool {
	if len(p.impacts[to]) == 0 {
		return false
	}
	arrival := p.round + p.g.Distance(from, to) + 1
	for _, pi := range p.impacts[to] {
		if pi.Round == arrival {
			return true
		}
	}
	return false
}

// WouldOverlap reports whether a bomb launched now from launcher would hit
// target within tolerance rounds of an impact already predicted there.
func (p *BombPredictor) WouldOverlap(target, launcher, tolerance int) bool {
	if len(p.impacts[target]) == 0 {
		return false
	}
	impact := p.round + p.g.Distance(launcher, target) + 1
	for _, pi := range p.impacts[target] {
		if pi.Round-tolerance <= impact && impact <= pi.Round+tolerance {
			return true
		}
	}
	return false
}
