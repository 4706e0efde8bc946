package conquest

// Troop is the launch record of a unit group.
type Troop struct {
	ID       int
	Owner    Owner
	From     int
	To       int
	Units    int
	Launched int // round first observed
	Arrival  int // round it reaches To
}

// Bomb is the launch record of a bomb. Enemy bombs have an unknown target
// and impact round (NoCell / -1).
type Bomb struct {
	ID       int
	Owner    Owner
	From     int
	To       int
	Launched int
	Impact   int
}

// History records every troop and bomb exactly once, keyed by entity id.
type History struct {
	troopIDs map[int]bool
	bombIDs  map[int]bool
	byRound  map[int][]Troop
	bombs    []Bomb
}

// NewHistory returns an empty History.
func NewHistory() *History {
	return &History{
		troopIDs: make(map[int]bool),
		bombIDs:  make(map[int]bool),
		byRound:  make(map[int][]Troop),
	}
}

// AddTroop records t unless its id was already seen. It reports whether the
// troop is new.
func (h *History) AddTroop(t Troop) bool {
	if h.troopIDs[t.ID] {
		return false
	}
	h.troopIDs[t.ID] = true
	h.byRound[t.Launched] = append(h.byRound[t.Launched], t)
	return true
}

// AddBomb records b unless its id was already seen. It reports whether the
// bomb is new.
func (h *History) AddBomb(b Bomb) bool {
	if h.bombIDs[b.ID] {
		return false
	}
	h.bombIDs[b.ID] = true
	h.bombs = append(h.bombs, b)
	return true
}

// SeenTroop reports whether a troop id has been recorded.
func (h *History) SeenTroop(id int) bool { return h.troopIDs[id] }

// TroopsLaunched returns the troops first observed in the given round.
func (h *History) TroopsLaunched(round int) []Troop { return h.byRound[round] }

// Bombs returns every bomb seen so far, in observation order.
func (h *History) Bombs() []Bomb { return h.bombs }
