package conquest

import "math/rand"

// Transfer is a request to move units from the owning cell to To.
type Transfer struct {
	To    int
	Units int
}

// RoundCommands holds every request queued for one cell in one future round.
// Single-valued kinds keep the last request made; neutral attacks and bomb
// launches accumulate in request order.
type RoundCommands struct {
	StandardAttack *Transfer
	SpecialAttack  *Transfer
	DefendTransfer *Transfer
	NeutralAttacks []Transfer
	SaveForDefense int
	SaveForSpecial int
	Upgrade        bool
	Bombs          []int // target cell ids
	Evacuate       bool
}

func (rc *RoundCommands) reset() {
	rc.StandardAttack = nil
	rc.SpecialAttack = nil
	rc.DefendTransfer = nil
	rc.NeutralAttacks = rc.NeutralAttacks[:0]
	rc.SaveForDefense = 0
	rc.SaveForSpecial = 0
	rc.Upgrade = false
	rc.Bombs = rc.Bombs[:0]
	rc.Evacuate = false
}

// Empty reports whether no request is queued.
func (rc *RoundCommands) Empty() bool {
	return rc.StandardAttack == nil && rc.SpecialAttack == nil && rc.DefendTransfer == nil &&
		len(rc.NeutralAttacks) == 0 && rc.SaveForDefense == 0 && rc.SaveForSpecial == 0 &&
		!rc.Upgrade && len(rc.Bombs) == 0 && !rc.Evacuate
}

// Resolver owns a ring of Horizon request slots per cell and turns slot 0
// into orders each round. Slot i holds requests for i rounds from now.
type Resolver struct {
	rings [][Horizon]RoundCommands
	head  int
	rng   *rand.Rand
}

// NewResolver returns a resolver with empty rings for n cells.
func NewResolver(n int) *Resolver {
	return &Resolver{rings: make([][Horizon]RoundCommands, n)}
}

// SetRand sets the random source used for last-resort evacuation targets.
// A nil source uses the math/rand default.
func (r *Resolver) SetRand(rng *rand.Rand) { r.rng = rng }

// Slot returns the requests queued for cell in rounds from now, or nil when
// either is out of range. The request methods below drop requests that
// fall outside the ring.
func (r *Resolver) Slot(cell, in int) *RoundCommands {
	if cell < 0 || cell >= len(r.rings) || in < 0 || in >= Horizon {
		return nil
	}
	return &r.rings[cell][(r.head+in)%Horizon]
}

// StandardAttack queues the cell's main attack.
func (r *Resolver) StandardAttack(from, to, units, in int) {
	if rc := r.Slot(from, in); rc != nil {
		rc.StandardAttack = &Transfer{To: to, Units: units}
	}
}

// SpecialAttack queues an interception or other precisely timed attack.
func (r *Resolver) SpecialAttack(from, to, units, in int) {
	if rc := r.Slot(from, in); rc != nil {
		rc.SpecialAttack = &Transfer{To: to, Units: units}
	}
}

// DefendTransfer queues reinforcements sent to another friendly cell.
func (r *Resolver) DefendTransfer(from, to, units, in int) {
	if rc := r.Slot(from, in); rc != nil {
		rc.DefendTransfer = &Transfer{To: to, Units: units}
	}
}

// NeutralAttack appends a capture of a neutral cell.
func (r *Resolver) NeutralAttack(from, to, units, in int) {
	if rc := r.Slot(from, in); rc != nil {
		rc.NeutralAttacks = append(rc.NeutralAttacks, Transfer{To: to, Units: units})
	}
}

// SaveForDefense reserves units at the cell against an incoming attack.
func (r *Resolver) SaveForDefense(cell, units, in int) {
	if rc := r.Slot(cell, in); rc != nil {
		rc.SaveForDefense = units
	}
}

// SaveForSpecial reserves units at the cell for a later special attack.
func (r *Resolver) SaveForSpecial(cell, units, in int) {
	if rc := r.Slot(cell, in); rc != nil {
		rc.SaveForSpecial = units
	}
}

// Upgrade queues a production increase at the cell.
func (r *Resolver) Upgrade(cell, in int) {
	if rc := r.Slot(cell, in); rc != nil {
		rc.Upgrade = true
	}
}

// LaunchBomb appends a bomb launch from -> to.
func (r *Resolver) LaunchBomb(from, to, in int) {
	if rc := r.Slot(from, in); rc != nil {
		rc.Bombs = append(rc.Bombs, to)
	}
}

// Evacuate flags the cell to send every spare unit away this round.
func (r *Resolver) Evacuate(cell int) {
	if rc := r.Slot(cell, 0); rc != nil {
		rc.Evacuate = true
	}
}

// Rotate discards slot 0 of every ring and opens an empty slot at the far
// end. Call it once per round after Emit.
func (r *Resolver) Rotate() {
	for i := range r.rings {
		r.rings[i][r.head].reset()
	}
	r.head = (r.head + 1) % Horizon
}

// Emit resolves slot 0 of every friendly cell, in ascending id order, into
// this round's orders. It does not rotate.
func (r *Resolver) Emit(s *State) []Order {
	var orders []Order
	bombsLeft := s.OwnBombs()
	targeted := make(map[int]bool)
	for id := range s.cells {
		c := &s.cells[id]
		if c.Owner != Friendly {
			continue
		}
		orders = r.resolveCell(s, c, r.Slot(id, 0), orders, &bombsLeft, targeted)
	}
	return orders
}

// resolveCell spends c's units on its queued requests in fixed priority
// order. Every amount saturates to what is left.
func (r *Resolver) resolveCell(s *State, c *Cell, rc *RoundCommands, orders []Order, bombsLeft *int, targeted map[int]bool) []Order {
	n := len(s.cells)
	valid := func(to int) bool { return to >= 0 && to < n && to != c.ID }

	for _, to := range rc.Bombs {
		if *bombsLeft <= 0 {
			break
		}
		if !valid(to) || targeted[to] {
			continue
		}
		orders = append(orders, Order{Kind: OrderBomb, From: c.ID, To: to})
		targeted[to] = true
		*bombsLeft--
	}

	remaining := c.Units
	send := func(t *Transfer) {
		if t == nil || !valid(t.To) {
			return
		}
		units := min(t.Units, remaining)
		if units <= 0 {
			return
		}
		orders = append(orders, Order{Kind: OrderMove, From: c.ID, To: t.To, Units: units})
		remaining -= units
	}
	reserve := func(units int) {
		if units > 0 {
			remaining -= min(units, remaining)
		}
	}

	if remaining <= 0 {
		return orders
	}
	send(rc.SpecialAttack)
	if remaining <= 0 {
		return orders
	}
	if !rc.Evacuate {
		reserve(rc.SaveForSpecial)
		if remaining <= 0 {
			return orders
		}
	}
	send(rc.DefendTransfer)
	if remaining <= 0 {
		return orders
	}
	if !rc.Evacuate {
		reserve(rc.SaveForDefense)
		if remaining <= 0 {
			return orders
		}
	}
	if rc.Upgrade && !rc.Evacuate && remaining >= UpgradeCost && c.Production < MaxProduction {
		orders = append(orders, Order{Kind: OrderInc, From: c.ID})
		remaining -= UpgradeCost
		if remaining <= 0 {
			return orders
		}
	}
	for i := range rc.NeutralAttacks {
		send(&rc.NeutralAttacks[i])
		if remaining <= 0 {
			return orders
		}
	}
	send(rc.StandardAttack)

	if rc.Evacuate && remaining > 0 {
		dest := NoCell
		if rc.StandardAttack != nil && valid(rc.StandardAttack.To) {
			dest = rc.StandardAttack.To
		} else {
			dest = r.EvacuationTarget(s, c.ID)
		}
		if dest != NoCell {
			orders = append(orders, Order{Kind: OrderMove, From: c.ID, To: dest, Units: remaining})
		}
	}
	return orders
}

// EvacuationTarget picks where a cell's units go when they must leave and
// no attack destination was requested. Neighbors are scanned nearest first:
// a friendly cell with no impact due on arrival, then a weaker neutral, then
// a weaker enemy under the same impact condition, then any neighbor at
// random.
func (r *Resolver) EvacuationTarget(s *State, from int) int {
	src := &s.cells[from]
	nbs := s.graph.Neighbors(from)
	if len(nbs) == 0 {
		return NoCell
	}
	unhit := func(nb Neighbor) bool { return !s.bombs.ImpactIn(nb.ID, nb.Distance+1) }

	candidates := []func(Neighbor) bool{
		func(nb Neighbor) bool { return s.cells[nb.ID].Owner == Friendly && unhit(nb) },
		func(nb Neighbor) bool {
			c := &s.cells[nb.ID]
			return c.Owner == Neutral && src.Units > c.Units && unhit(nb)
		},
		func(nb Neighbor) bool {
			c := &s.cells[nb.ID]
			return c.Owner == Enemy && src.Units > c.Units && unhit(nb)
		},
	}
	for _, pred := range candidates {
		if nb, ok := s.graph.Closest(from, pred); ok {
			return nb.ID
		}
	}

	if r.rng != nil {
		return nbs[r.rng.Intn(len(nbs))].ID
	}
	return nbs[rand.Intn(len(nbs))].ID
}
