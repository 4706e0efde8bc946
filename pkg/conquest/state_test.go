package conquest

import (
	"errors"
	"testing"
)

func lineSetup() Setup {
	return Setup{
		CellCount: 3,
		Links:     []Link{{0, 1, 3}, {1, 2, 3}, {0, 2, 5}},
		Factories: []FactoryReport{
			{ID: 0, Owner: Friendly, Units: 10, Production: 2},
			{ID: 1, Owner: Neutral, Units: 4, Production: 1},
			{ID: 2, Owner: Enemy, Units: 10, Production: 2},
		},
	}
}

func factories(s *State) []FactoryReport {
	out := make([]FactoryReport, 0, len(s.cells))
	for _, c := range s.cells {
		out = append(out, FactoryReport{ID: c.ID, Owner: c.Owner, Units: c.Units, Production: c.Production, Disabled: c.Disabled})
	}
	return out
}

func mustApply(t *testing.T, s *State, u RoundUpdate) RoundReport {
	t.Helper()
	rep, err := s.ApplyRound(u)
	if err != nil {
		t.Fatalf("ApplyRound: %v", err)
	}
	return rep
}

func TestNewState_StartCellsAndTotals(t *testing.T) {
	s := mustState(t, lineSetup())
	own, enemy := s.StartCells()
	if own != 0 || enemy != 2 {
		t.Errorf("expected start cells 0/2, got %d/%d", own, enemy)
	}
	tot := s.Totals()
	if tot.OwnUnits != 10 || tot.NeutralProduction != 1 || tot.EnemyProduction != 2 {
		t.Errorf("unexpected totals %+v", tot)
	}
	if s.OwnBombs() != StartingBombs || s.EnemyBombs() != StartingBombs {
		t.Errorf("expected %d bombs each", StartingBombs)
	}
}

func TestApplyRound_TroopsCountedOnce(t *testing.T) {
	s := mustState(t, lineSetup())
	troop := TroopReport{ID: 20, Owner: Enemy, From: 2, To: 0, Units: 7, Remaining: 5}

	rep := mustApply(t, s, RoundUpdate{Factories: factories(s), Troops: []TroopReport{troop}})
	if rep.NewTroops != 1 {
		t.Errorf("expected 1 new troop, got %d", rep.NewTroops)
	}
	troop.Remaining = 4
	rep = mustApply(t, s, RoundUpdate{Factories: factories(s), Troops: []TroopReport{troop}})
	if rep.NewTroops != 0 {
		t.Errorf("expected repeat to be ignored, got %d", rep.NewTroops)
	}

	w := &s.Cell(0).Forecast
	if w.TotalEnemy() != 7 || w.Enemy(4) != 7 {
		t.Errorf("expected 7 enemy units in slot 4, got total %d slot %d", w.TotalEnemy(), w.Enemy(4))
	}
	if got := s.History().TroopsLaunched(1); len(got) != 1 || got[0].Arrival != 6 {
		t.Errorf("unexpected history %+v", got)
	}
	if s.Totals().EnemyUnits != 17 {
		t.Errorf("expected troop units in totals, got %d", s.Totals().EnemyUnits)
	}
}

func TestApplyRound_IgnoresOwnerlessEntities(t *testing.T) {
	s := mustState(t, lineSetup())
	u := RoundUpdate{
		Factories: factories(s),
		Troops:    []TroopReport{{ID: 40, Owner: Neutral, From: 1, To: 0, Units: 5, Remaining: Horizon + 3}},
		Bombs:     []BombReport{{ID: 41, Owner: Neutral, From: 1, To: NoCell, Remaining: NoCell}},
	}
	for range 3 {
		rep := mustApply(t, s, u)
		if rep.NewTroops != 0 || rep.NewBombs != 0 {
			t.Fatalf("expected nothing recorded, got %+v", rep)
		}
	}
	if len(s.pending) != 0 {
		t.Errorf("expected no pending troops, got %d", len(s.pending))
	}
	if s.EnemyBombs() != StartingBombs || s.Bombs().Expected(0) {
		t.Error("ownerless bomb counted as enemy")
	}
	if got := s.Totals().EnemyUnits; got != 10 {
		t.Errorf("expected 10 enemy units, got %d", got)
	}
}

func TestApplyRound_PendingTroopEntersWindow(t *testing.T) {
	s := mustState(t, lineSetup())
	troop := TroopReport{ID: 1, Owner: Friendly, From: 0, To: 2, Units: 3, Remaining: Horizon + 1}
	mustApply(t, s, RoundUpdate{Factories: factories(s), Troops: []TroopReport{troop}})
	if s.PendingTroops() != 1 || !s.Cell(2).Forecast.Empty() {
		t.Fatalf("expected troop held pending")
	}

	mustApply(t, s, RoundUpdate{Factories: factories(s)})
	if s.PendingTroops() != 1 {
		t.Fatalf("still beyond the horizon")
	}
	mustApply(t, s, RoundUpdate{Factories: factories(s)})
	if s.PendingTroops() != 0 {
		t.Fatalf("expected troop flushed")
	}
	if got := s.Cell(2).Forecast.Friendly(Horizon - 1); got != 3 {
		t.Errorf("expected 3 units in the last slot, got %d", got)
	}
}

func TestApplyRound_BombImpactResolved(t *testing.T) {
	s := mustState(t, lineSetup())
	bomb := BombReport{ID: 30, Owner: Enemy, From: 2, To: NoCell, Remaining: NoCell}
	rep := mustApply(t, s, RoundUpdate{Factories: factories(s), Bombs: []BombReport{bomb}})
	if rep.NewBombs != 1 || s.EnemyBombs() != StartingBombs-1 {
		t.Fatalf("expected enemy bomb recorded, report %+v", rep)
	}
	if !s.Bombs().Expected(0) || !s.Bombs().Expected(1) {
		t.Fatal("expected candidates on cells 0 and 1")
	}

	// Candidates: cell 1 at round 4, cell 0 at round 6.
	for range 2 {
		mustApply(t, s, RoundUpdate{Factories: factories(s), Bombs: []BombReport{bomb}})
	}
	f := factories(s)
	f[1].Disabled = MaxDisabled
	f[1].Production = 0
	rep = mustApply(t, s, RoundUpdate{Factories: f})
	if len(rep.ResolvedBombs) != 1 || rep.ResolvedBombs[0] != 30 {
		t.Fatalf("expected bomb 30 resolved, got %+v", rep)
	}
	if s.Bombs().Expected(0) {
		t.Error("resolved bomb still predicted at cell 0")
	}
	if s.Cell(1).Production != 1 {
		t.Errorf("production must not refresh while disabled, got %d", s.Cell(1).Production)
	}
}

func TestApplyRound_ImpactsResolvedInAnyOrder(t *testing.T) {
	// Bomb 10 from cell 0 may hit cells 1 or 2 at round 4. Bomb 11 from
	// cell 4 may hit cell 2 at round 4 or cell 3 at round 9.
	setup := Setup{
		CellCount: 5,
		Links:     []Link{{0, 1, 3}, {0, 2, 3}, {4, 2, 3}, {4, 3, 8}},
		Factories: []FactoryReport{
			{ID: 0, Owner: Enemy, Units: 10, Production: 2},
			{ID: 1, Owner: Friendly, Units: 10, Production: 2},
			{ID: 2, Owner: Friendly, Units: 10, Production: 2},
			{ID: 3, Owner: Neutral, Units: 2, Production: 1},
			{ID: 4, Owner: Enemy, Units: 10, Production: 2},
		},
	}
	bombs := []BombReport{
		{ID: 10, Owner: Enemy, From: 0, To: NoCell, Remaining: NoCell},
		{ID: 11, Owner: Enemy, From: 4, To: NoCell, Remaining: NoCell},
	}

	tests := []struct {
		name  string
		order []int
	}{
		{"single candidate first", []int{1, 2}},
		{"shared candidate first", []int{2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mustState(t, setup)
			for range 3 {
				mustApply(t, s, RoundUpdate{Factories: factories(s), Bombs: bombs})
			}

			all := factories(s)
			var f []FactoryReport
			for _, id := range tt.order {
				all[id].Disabled = MaxDisabled
				all[id].Production = 0
				f = append(f, all[id])
			}
			f = append(f, all[0], all[3], all[4])

			rep := mustApply(t, s, RoundUpdate{Factories: f})
			if len(rep.Ambiguous) != 0 {
				t.Errorf("expected no ambiguous cells, got %v", rep.Ambiguous)
			}
			if len(rep.ResolvedBombs) != 2 {
				t.Fatalf("expected 2 resolved bombs, got %v", rep.ResolvedBombs)
			}
			if s.Bombs().Expected(3) {
				t.Errorf("expected no candidates left on cell 3, got %v", s.Bombs().Impacts(3))
			}
		})
	}
}

func TestApplyRound_ThreatChanges(t *testing.T) {
	s := mustState(t, lineSetup())
	attack := TroopReport{ID: 5, Owner: Enemy, From: 2, To: 0, Units: 30, Remaining: 5}
	rep := mustApply(t, s, RoundUpdate{Factories: factories(s), Troops: []TroopReport{attack}})
	if len(rep.ThreatChanges) != 1 || rep.ThreatChanges[0].To != BeingConquered {
		t.Fatalf("expected cell 0 to become BEING_CONQUERED, got %+v", rep.ThreatChanges)
	}
	if s.Cell(0).Threat != BeingConquered {
		t.Errorf("unexpected threat %s", s.Cell(0).Threat)
	}
}

func TestApplyRound_OwnBombCountsDown(t *testing.T) {
	s := mustState(t, lineSetup())
	bomb := BombReport{ID: 9, Owner: Friendly, From: 0, To: 2, Remaining: 5}
	mustApply(t, s, RoundUpdate{Factories: factories(s), Bombs: []BombReport{bomb}})
	if s.OwnBombs() != StartingBombs-1 {
		t.Errorf("expected %d own bombs, got %d", StartingBombs-1, s.OwnBombs())
	}
	if !s.Bombs().ImpactIn(2, 5) {
		t.Error("expected exact impact on cell 2")
	}
}

func TestApplyRound_UnknownCell(t *testing.T) {
	s := mustState(t, lineSetup())
	_, err := s.ApplyRound(RoundUpdate{Troops: []TroopReport{{ID: 1, Owner: Enemy, From: 2, To: 9, Units: 1, Remaining: 1}}})
	if !errors.Is(err, ErrUnknownCell) {
		t.Errorf("expected ErrUnknownCell, got %v", err)
	}
	if s.Round() != 0 {
		t.Errorf("a rejected round must not advance the state, round=%d", s.Round())
	}
}

func TestState_ClosestWithOwner(t *testing.T) {
	s := mustState(t, lineSetup())
	if d := s.DistanceToClosest(0, Enemy); d != 5 {
		t.Errorf("expected 5, got %d", d)
	}
	s.cells[2].Owner = Neutral
	if d := s.DistanceToClosest(0, Enemy); d != Horizon {
		t.Errorf("expected Horizon when none, got %d", d)
	}
	if ids := s.CellsOf(Neutral); len(ids) != 2 {
		t.Errorf("expected 2 neutral cells, got %v", ids)
	}
}
