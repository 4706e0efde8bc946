package conquest

import (
	"errors"
	"fmt"
)

// ErrUnknownCell is returned when an observation refers to a cell id outside
// the match graph.
var ErrUnknownCell = errors.New("conquest: unknown cell")

// FactoryReport is the per-round observation of one cell.
type FactoryReport struct {
	ID         int
	Owner      Owner
	Units      int
	Production int
	Disabled   int
}

// TroopReport is the per-round observation of one unit group in flight.
type TroopReport struct {
	ID        int
	Owner     Owner
	From      int
	To        int
	Units     int
	Remaining int
}

// BombReport is the per-round observation of one bomb in flight. Enemy
// bombs report To and Remaining as -1.
type BombReport struct {
	ID        int
	Owner     Owner
	From      int
	To        int
	Remaining int
}

// Setup is the match description read once before the first round.
type Setup struct {
	CellCount int
	Links     []Link
	Factories []FactoryReport
}

// RoundUpdate is everything observed at the start of one round.
type RoundUpdate struct {
	Factories []FactoryReport
	Troops    []TroopReport
	Bombs     []BombReport
}

func checkCell(n, id int, what string) error {
	if id < 0 || id >= n {
		return fmt.Errorf("%s %d: %w", what, id, ErrUnknownCell)
	}
	return nil
}
