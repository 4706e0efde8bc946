package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/freeeve/cellwar/internal/model"
)

// MatchRepo handles match and round database operations.
type MatchRepo struct {
	db *sql.DB
}

// NewMatchRepo creates a MatchRepo.
func NewMatchRepo(db *sql.DB) *MatchRepo {
	return &MatchRepo{db: db}
}

// CreateMatch inserts m, stamping StartedAt when it is zero.
func (r *MatchRepo) CreateMatch(ctx context.Context, m *model.Match) error {
	if m.StartedAt.IsZero() {
		m.StartedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO matches (id, strategy, seed, cell_count, started_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.Strategy, m.Seed, m.CellCount, m.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("create match: %w", err)
	}
	return nil
}

// FinishMatch records the final round count and result.
func (r *MatchRepo) FinishMatch(ctx context.Context, matchID string, rounds int, result string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE matches SET rounds = $2, result = $3, finished_at = now() WHERE id = $1`,
		matchID, rounds, result,
	)
	if err != nil {
		return fmt.Errorf("finish match: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish match %s: %w", matchID, sql.ErrNoRows)
	}
	return nil
}

// FindMatch returns a match by id, or nil if it does not exist.
func (r *MatchRepo) FindMatch(ctx context.Context, matchID string) (*model.Match, error) {
	var m model.Match
	var result sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, strategy, seed, cell_count, rounds, result, started_at, finished_at
		 FROM matches WHERE id = $1`, matchID,
	).Scan(&m.ID, &m.Strategy, &m.Seed, &m.CellCount, &m.Rounds, &result, &m.StartedAt, &m.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find match: %w", err)
	}
	m.Result = result.String
	return &m, nil
}

// ListMatches returns the most recent matches first.
func (r *MatchRepo) ListMatches(ctx context.Context, limit int) ([]model.Match, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, strategy, seed, cell_count, rounds, result, started_at, finished_at
		 FROM matches ORDER BY started_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var matches []model.Match
	for rows.Next() {
		var m model.Match
		var result sql.NullString
		if err := rows.Scan(&m.ID, &m.Strategy, &m.Seed, &m.CellCount, &m.Rounds, &result, &m.StartedAt, &m.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		m.Result = result.String
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// SaveRound inserts one round record. Saving the same round twice keeps the
// first copy.
func (r *MatchRepo) SaveRound(ctx context.Context, rec model.RoundRecord) error {
	threats, err := json.Marshal(rec.Threats)
	if err != nil {
		return fmt.Errorf("marshal threats: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO rounds (match_id, round, orders, message, own_units, enemy_units,
		                     own_production, enemy_production, owned_cells, enemy_cells, threats, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (match_id, round) DO NOTHING`,
		rec.MatchID, rec.Round, pq.Array(rec.Orders), rec.Message, rec.OwnUnits, rec.EnemyUnits,
		rec.OwnProduction, rec.EnemyProduction, rec.OwnedCells, rec.EnemyCells, threats, rec.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("save round: %w", err)
	}
	return nil
}

// ListRounds returns every round of a match in order.
func (r *MatchRepo) ListRounds(ctx context.Context, matchID string) ([]model.RoundRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT match_id, round, orders, message, own_units, enemy_units, own_production,
		        enemy_production, owned_cells, enemy_cells, threats, duration_ms, created_at
		 FROM rounds WHERE match_id = $1 ORDER BY round`, matchID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	defer rows.Close()

	var rounds []model.RoundRecord
	for rows.Next() {
		var rec model.RoundRecord
		var threats []byte
		if err := rows.Scan(&rec.MatchID, &rec.Round, pq.Array(&rec.Orders), &rec.Message, &rec.OwnUnits, &rec.EnemyUnits,
			&rec.OwnProduction, &rec.EnemyProduction, &rec.OwnedCells, &rec.EnemyCells, &threats, &rec.DurationMS, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		if len(threats) > 0 {
			if err := json.Unmarshal(threats, &rec.Threats); err != nil {
				return nil, fmt.Errorf("decode threats: %w", err)
			}
		}
		rounds = append(rounds, rec)
	}
	return rounds, rows.Err()
}
