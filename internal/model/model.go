package model

import "time"

// Match represents one played match as seen by this bot.
type Match struct {
	ID         string     `json:"id"`
	Strategy   string     `json:"strategy"`
	Seed       int64      `json:"seed"`
	CellCount  int        `json:"cell_count"`
	Rounds     int        `json:"rounds"`
	Result     string     `json:"result,omitempty"` // won, lost, unknown
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Match results.
const (
	ResultWon     = "won"
	ResultLost    = "lost"
	ResultUnknown = "unknown"
)

// CellThreat is a friendly cell that is not safe at the end of a round.
type CellThreat struct {
	Cell   int    `json:"cell"`
	Status string `json:"status"`
}

// RoundRecord is the summary of one decided round, archived and broadcast
// to spectators.
type RoundRecord struct {
	MatchID         string       `json:"match_id"`
	Round           int          `json:"round"`
	Orders          []string     `json:"orders"`
	Message         string       `json:"message"`
	OwnUnits        int          `json:"own_units"`
	EnemyUnits      int          `json:"enemy_units"`
	OwnProduction   int          `json:"own_production"`
	EnemyProduction int          `json:"enemy_production"`
	OwnedCells      int          `json:"owned_cells"`
	EnemyCells      int          `json:"enemy_cells"`
	Threats         []CellThreat `json:"threats,omitempty"`
	DurationMS      int64        `json:"duration_ms"`
	CreatedAt       time.Time    `json:"created_at"`
}
