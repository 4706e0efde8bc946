package conquest

import (
	"math/rand"
	"testing"
)

func mustState(t *testing.T, setup Setup) *State {
	t.Helper()
	s, err := NewState(setup, Options{Rand: rand.New(rand.NewSource(1))})
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	return s
}

// evacuationSetup puts friendly cell 0 in the middle of a friendly, a
// neutral and an enemy neighbor, the friendly one farthest away.
func evacuationSetup() Setup {
	return Setup{
		CellCount: 4,
		Links:     []Link{{0, 1, 6}, {0, 2, 2}, {0, 3, 3}},
		Factories: []FactoryReport{
			{ID: 0, Owner: Friendly, Units: 12, Production: 2},
			{ID: 1, Owner: Friendly, Units: 3, Production: 1},
			{ID: 2, Owner: Neutral, Units: 1, Production: 1},
			{ID: 3, Owner: Enemy, Units: 2, Production: 2},
		},
	}
}

func assertOrders(t *testing.T, got []Order, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d orders %v, got %d: %v", len(want), want, len(got), got)
	}
	for i := range want {
		if got[i].String() != want[i] {
			t.Errorf("order %d: expected %q, got %q", i, want[i], got[i].String())
		}
	}
}

func TestEmit_EvacuatesToFriendlyNeighbor(t *testing.T) {
	s := mustState(t, evacuationSetup())
	s.Commands().Evacuate(0)
	assertOrders(t, s.Emit(), "MOVE 0 1 12")
}

func TestEmit_EvacuationFollowsStandardAttack(t *testing.T) {
	s := mustState(t, evacuationSetup())
	r := s.Commands()
	r.StandardAttack(0, 3, 4, 0)
	r.SaveForDefense(0, 5, 0)
	r.Evacuate(0)
	// The reservation is skipped, the attack gets 4 and the rest follows it.
	assertOrders(t, s.Emit(), "MOVE 0 3 4", "MOVE 0 3 8")
}

func TestEvacuationTarget_Fallbacks(t *testing.T) {
	s := mustState(t, evacuationSetup())

	// A bomb due at cell 1 the round our units would land rules it out.
	s.bombs.Launch(Bomb{ID: 1, Owner: Friendly, From: 3, To: 1, Launched: 0, Impact: 7})
	if got := s.Commands().EvacuationTarget(s, 0); got != 2 {
		t.Errorf("expected weaker neutral 2, got %d", got)
	}

	s.cells[2].Units = 50
	if got := s.Commands().EvacuationTarget(s, 0); got != 3 {
		t.Errorf("expected weaker enemy 3, got %d", got)
	}

	s.cells[3].Units = 50
	got := s.Commands().EvacuationTarget(s, 0)
	if got != 1 && got != 2 && got != 3 {
		t.Errorf("expected a random neighbor, got %d", got)
	}
}

func TestEmit_PriorityOrder(t *testing.T) {
	s := mustState(t, evacuationSetup())
	s.cells[0].Units = 30
	r := s.Commands()
	r.StandardAttack(0, 3, 100, 0)
	r.NeutralAttack(0, 2, 2, 0)
	r.Upgrade(0, 0)
	r.SaveForDefense(0, 3, 0)
	r.DefendTransfer(0, 1, 4, 0)
	r.SaveForSpecial(0, 2, 0)
	r.SpecialAttack(0, 3, 5, 0)
	r.LaunchBomb(0, 3, 0)

	// 30 - 5 special - 2 saved - 4 defend - 3 saved - 10 upgrade - 2 neutral = 4 left.
	assertOrders(t, s.Emit(),
		"BOMB 0 3",
		"MOVE 0 3 5",
		"MOVE 0 1 4",
		"INC 0",
		"MOVE 0 2 2",
		"MOVE 0 3 4",
	)
}

func TestEmit_StopsWhenBudgetSpent(t *testing.T) {
	s := mustState(t, evacuationSetup())
	r := s.Commands()
	r.SaveForDefense(0, 12, 0)
	r.StandardAttack(0, 3, 5, 0)
	if orders := s.Emit(); len(orders) != 0 {
		t.Errorf("expected no orders, got %v", orders)
	}
}

func TestEmit_UpgradeSkipped(t *testing.T) {
	tests := []struct {
		name  string
		units int
		prod  int
		evac  bool
	}{
		{"short budget", 9, 1, false},
		{"max production", 20, MaxProduction, false},
		{"evacuating", 20, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mustState(t, evacuationSetup())
			s.cells[0].Units = tt.units
			s.cells[0].Production = tt.prod
			s.Commands().Upgrade(0, 0)
			if tt.evac {
				s.Commands().Evacuate(0)
			}
			for _, o := range s.Emit() {
				if o.Kind == OrderInc {
					t.Errorf("unexpected %s", o)
				}
			}
		})
	}
}

func TestEmit_BombRules(t *testing.T) {
	setup := evacuationSetup()
	setup.Factories[1].Units = 8
	s := mustState(t, setup)
	r := s.Commands()
	r.LaunchBomb(0, 0, 0) // self
	r.LaunchBomb(0, 3, 0)
	r.LaunchBomb(0, 3, 0) // duplicate target
	r.LaunchBomb(1, 3, 0) // already targeted this round
	r.LaunchBomb(1, 2, 0)
	r.LaunchBomb(1, 2, 0)

	assertOrders(t, s.Emit(), "BOMB 0 3", "BOMB 1 2")

	s.ownBombs = 1
	r.LaunchBomb(1, 2, 0)
	assertOrders(t, s.Emit(), "BOMB 0 3")
}

func TestEmit_SkipsCellsNoLongerOwned(t *testing.T) {
	s := mustState(t, evacuationSetup())
	s.Commands().StandardAttack(1, 3, 2, 0)
	s.cells[1].Owner = Enemy
	if orders := s.Emit(); len(orders) != 0 {
		t.Errorf("expected no orders, got %v", orders)
	}
}

func TestResolver_RotateShiftsSlots(t *testing.T) {
	s := mustState(t, evacuationSetup())
	r := s.Commands()
	r.StandardAttack(0, 3, 5, 1)
	r.StandardAttack(0, 2, 1, Horizon) // out of range, dropped

	if orders := s.Emit(); len(orders) != 0 {
		t.Fatalf("expected nothing this round, got %v", orders)
	}
	s.EndRound()
	assertOrders(t, s.Emit(), "MOVE 0 3 5")
	s.EndRound()
	for id := range s.cells {
		for in := range Horizon {
			if !r.Slot(id, in).Empty() {
				t.Fatalf("slot %d of cell %d not empty after rotation", in, id)
			}
		}
	}
}

func TestEmit_NeverExceedsUnits(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for trial := range 200 {
		s := mustState(t, evacuationSetup())
		s.cells[0].Units = rng.Intn(40)
		s.cells[1].Units = rng.Intn(40)
		r := s.Commands()
		for range 10 {
			from := rng.Intn(2)
			to := rng.Intn(4)
			units := rng.Intn(25)
			switch rng.Intn(8) {
			case 0:
				r.StandardAttack(from, to, units, 0)
			case 1:
				r.SpecialAttack(from, to, units, 0)
			case 2:
				r.DefendTransfer(from, to, units, 0)
			case 3:
				r.NeutralAttack(from, to, units, 0)
			case 4:
				r.SaveForDefense(from, units, 0)
			case 5:
				r.SaveForSpecial(from, units, 0)
			case 6:
				r.Upgrade(from, 0)
			case 7:
				r.Evacuate(from)
			}
		}

		start := []int{s.cells[0].Units, s.cells[1].Units}
		spent := make([]int, 2)
		for _, o := range s.Emit() {
			if o.Kind == OrderMove && o.Units <= 0 {
				t.Fatalf("trial %d: zero-unit move %s", trial, o)
			}
			if o.Kind != OrderInc && o.From == o.To {
				t.Fatalf("trial %d: order to self %s", trial, o)
			}
			spent[o.From] += o.Cost()
		}
		for id := range spent {
			if spent[id] > start[id] {
				t.Fatalf("trial %d: cell %d spent %d of %d", trial, id, spent[id], start[id])
			}
		}
	}
}
