package conquest

import (
	"errors"
	"fmt"
	"math/rand"
)

// Options tunes a State. Zero values select the defaults.
type Options struct {
	RoutingCutoff    int
	OverlapTolerance int
	Rand             *rand.Rand
}

// Totals are the per-side aggregates recomputed from the arena every round.
// Units include troops in flight. Production is nominal, so a disabled cell
// still counts its production.
type Totals struct {
	OwnUnits          int
	EnemyUnits        int
	NeutralUnits      int
	OwnProduction     int
	EnemyProduction   int
	NeutralProduction int
}

// ThreatChange records a friendly cell whose posture changed this round.
type ThreatChange struct {
	Cell int
	From ThreatStatus
	To   ThreatStatus
}

// RoundReport summarizes what ApplyRound changed.
type RoundReport struct {
	Round         int
	NewTroops     int
	NewBombs      int
	ResolvedBombs []int // bomb ids identified by an impact this round
	Ambiguous     []int // cell ids whose impact could not be attributed yet
	OwnerChanges  int
	ThreatChanges []ThreatChange
}

type pendingTroop struct {
	owner   Owner
	to      int
	units   int
	arrival int
}

// State is the arena of cells plus everything derived from the observation
// stream. It is owned by a single goroutine.
type State struct {
	round      int
	cells      []Cell
	graph      *Graph
	routes     *RoutingTable
	bombs      *BombPredictor
	commands   *Resolver
	history    *History
	pending    []pendingTroop
	totals     Totals
	ownBombs   int
	enemyBombs int
	tolerance  int
	ownStart   int
	enemyStart int
}

// NewState builds the graph, routing table and arena from the setup
// observation. Routing is the only cubic step and runs here once.
func NewState(setup Setup, opts Options) (*State, error) {
	g, err := NewGraph(setup.CellCount, setup.Links)
	if err != nil {
		return nil, err
	}
	cutoff := opts.RoutingCutoff
	if cutoff <= 0 {
		cutoff = DefaultRoutingCutoff
	}
	tolerance := opts.OverlapTolerance
	if tolerance <= 0 {
		tolerance = DefaultOverlapTolerance
	}

	s := &State{
		cells:      make([]Cell, g.Size()),
		graph:      g,
		routes:     NewRoutingTable(g, cutoff),
		bombs:      NewBombPredictor(g),
		commands:   NewResolver(g.Size()),
		history:    NewHistory(),
		ownBombs:   StartingBombs,
		enemyBombs: StartingBombs,
		tolerance:  tolerance,
		ownStart:   NoCell,
		enemyStart: NoCell,
	}
	s.commands.SetRand(opts.Rand)
	for id := range s.cells {
		s.cells[id].ID = id
	}
	for _, f := range setup.Factories {
		if err := checkCell(len(s.cells), f.ID, "factory"); err != nil {
			return nil, err
		}
		c := &s.cells[f.ID]
		c.Owner = f.Owner
		c.Units = f.Units
		c.Production = f.Production
		switch {
		case f.Owner == Friendly && s.ownStart == NoCell:
			s.ownStart = f.ID
		case f.Owner == Enemy && s.enemyStart == NoCell:
			s.enemyStart = f.ID
		}
	}
	s.recomputeTotals(nil)
	return s, nil
}

// ApplyRound folds one round's observation into the state. The order is
// fixed: windows advance before any new arrival is recorded, and impacts are
// pruned before factories report new hits. Troops and bombs without an owner
// are ignored.
func (s *State) ApplyRound(u RoundUpdate) (RoundReport, error) {
	n := len(s.cells)
	for _, f := range u.Factories {
		if err := checkCell(n, f.ID, "factory"); err != nil {
			return RoundReport{}, err
		}
	}
	for _, t := range u.Troops {
		if err := checkCell(n, t.From, "troop origin"); err != nil {
			return RoundReport{}, err
		}
		if err := checkCell(n, t.To, "troop destination"); err != nil {
			return RoundReport{}, err
		}
	}
	for _, b := range u.Bombs {
		if err := checkCell(n, b.From, "bomb origin"); err != nil {
			return RoundReport{}, err
		}
		if b.Owner == Friendly {
			if err := checkCell(n, b.To, "bomb target"); err != nil {
				return RoundReport{}, err
			}
		}
	}

	s.round++
	rep := RoundReport{Round: s.round}
	for i := range s.cells {
		s.cells[i].Forecast.Advance()
	}
	s.bombs.Advance(s.round)

	var hit []int
	for _, f := range u.Factories {
		c := &s.cells[f.ID]
		if f.Disabled == MaxDisabled {
			hit = append(hit, f.ID)
		}
		if c.Owner != f.Owner {
			rep.OwnerChanges++
		}
		c.Owner = f.Owner
		c.Units = f.Units
		c.Disabled = f.Disabled
		if f.Disabled == 0 {
			c.Production = f.Production
		}
	}

	if err := s.resolveImpacts(hit, &rep); err != nil {
		return rep, err
	}

	s.flushPending()
	for _, t := range u.Troops {
		troop := Troop{
			ID:       t.ID,
			Owner:    t.Owner,
			From:     t.From,
			To:       t.To,
			Units:    t.Units,
			Launched: s.round,
			Arrival:  s.round + t.Remaining,
		}
		if t.Owner == Neutral || !s.history.AddTroop(troop) {
			continue
		}
		rep.NewTroops++
		if !s.cells[t.To].Forecast.AddIncoming(t.Owner, t.Units, t.Remaining) {
			s.pending = append(s.pending, pendingTroop{owner: t.Owner, to: t.To, units: t.Units, arrival: troop.Arrival})
		}
	}

	for _, b := range u.Bombs {
		bomb := Bomb{
			ID:       b.ID,
			Owner:    b.Owner,
			From:     b.From,
			To:       b.To,
			Launched: s.round,
			Impact:   -1,
		}
		if b.Owner == Friendly {
			bomb.Impact = s.round + b.Remaining
		} else {
			bomb.To = NoCell
		}
		if b.Owner == Neutral || !s.history.AddBomb(bomb) {
			continue
		}
		rep.NewBombs++
		s.bombs.Launch(bomb)
		if b.Owner == Friendly {
			s.ownBombs--
		} else {
			s.enemyBombs--
		}
	}

	s.recomputeTotals(u.Troops)

	for i := range s.cells {
		c := &s.cells[i]
		if c.Owner != Friendly {
			continue
		}
		prev := c.Threat
		c.Threat = Classify(c)
		if c.Threat != prev {
			rep.ThreatChanges = append(rep.ThreatChanges, ThreatChange{Cell: c.ID, From: prev, To: c.Threat})
		}
	}
	return rep, nil
}

// resolveImpacts attributes this round's impact signals. Resolving one bomb
// can leave a single candidate at a cell that was ambiguous earlier in the
// pass, so ambiguous cells are retried until a pass resolves nothing.
func (s *State) resolveImpacts(cells []int, rep *RoundReport) error {
	for len(cells) > 0 {
		var deferred []int
		for _, id := range cells {
			bomb, err := s.bombs.ReportImpact(id)
			switch {
			case errors.Is(err, ErrAmbiguousImpact):
				deferred = append(deferred, id)
			case err != nil:
				return fmt.Errorf("report impact at %d: %w", id, err)
			case bomb != NoCell:
				rep.ResolvedBombs = append(rep.ResolvedBombs, bomb)
			}
		}
		if len(deferred) == len(cells) {
			rep.Ambiguous = append(rep.Ambiguous, deferred...)
			return nil
		}
		cells = deferred
	}
	return nil
}

// flushPending moves troops whose arrival entered the window into their
// destination's forecast.
func (s *State) flushPending() {
	kept := s.pending[:0]
	for _, p := range s.pending {
		if !s.cells[p.to].Forecast.AddIncoming(p.owner, p.units, p.arrival-s.round) {
			kept = append(kept, p)
		}
	}
	s.pending = kept
}

func (s *State) recomputeTotals(troops []TroopReport) {
	var t Totals
	for i := range s.cells {
		c := &s.cells[i]
		switch c.Owner {
		case Friendly:
			t.OwnUnits += c.Units
			t.OwnProduction += c.Production
		case Enemy:
			t.EnemyUnits += c.Units
			t.EnemyProduction += c.Production
		default:
			t.NeutralUnits += c.Units
			t.NeutralProduction += c.Production
		}
	}
	for _, tr := range troops {
		switch tr.Owner {
		case Friendly:
			t.OwnUnits += tr.Units
		case Enemy:
			t.EnemyUnits += tr.Units
		}
	}
	s.totals = t
}

// Round returns the number of rounds applied so far.
func (s *State) Round() int { return s.round }

// Cells returns the arena. Callers may read but must not reorder it.
func (s *State) Cells() []Cell { return s.cells }

// Cell returns the cell with the given id, or nil.
func (s *State) Cell(id int) *Cell {
	if id < 0 || id >= len(s.cells) {
		return nil
	}
	return &s.cells[id]
}

// CellsOf returns the ids of cells held by owner, ascending.
func (s *State) CellsOf(owner Owner) []int {
	var ids []int
	for i := range s.cells {
		if s.cells[i].Owner == owner {
			ids = append(ids, i)
		}
	}
	return ids
}

func (s *State) Totals() Totals { return s.totals }
func (s *State) OwnBombs() int { return s.ownBombs }
func (s *State) EnemyBombs() int { return s.enemyBombs }
func (s *State) Graph() *Graph { return s.graph }
func (s *State) Routes() *RoutingTable { return s.routes }
func (s *State) Bombs() *BombPredictor { return s.bombs }
func (s *State) Commands() *Resolver { return s.commands }
func (s *State) History() *History { return s.history }
func (s *State) OverlapTolerance() int { return s.tolerance }
func (s *State) PendingTroops() int { return len(s.pending) }
func (s *State) StartCells() (own, enemy int) { return s.ownStart, s.enemyStart }

// ClosestWithOwner returns the nearest neighbor of id held by owner.
func (s *State) ClosestWithOwner(id int, owner Owner) (Neighbor, bool) {
	return s.graph.Closest(id, func(nb Neighbor) bool { return s.cells[nb.ID].Owner == owner })
}

// DistanceToClosest returns the distance from id to its nearest neighbor
// held by owner, or Horizon when there is none.
func (s *State) DistanceToClosest(id int, owner Owner) int {
	if nb, ok := s.ClosestWithOwner(id, owner); ok {
		return nb.Distance
	}
	return Horizon
}

// Emit resolves this round's queued requests into orders.
func (s *State) Emit() []Order { return s.commands.Emit(s) }

// EndRound rotates every request ring. Call it after the orders were sent.
func (s *State) EndRound() { s.commands.Rotate() }
