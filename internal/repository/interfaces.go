package repository

import (
	"context"

	"github.com/freeeve/cellwar/internal/model"
)

// RoundSink receives every decided round. Implementations are called off
// the round loop and may block on I/O.
type RoundSink interface {
	SaveRound(ctx context.Context, r model.RoundRecord) error
}

// MatchRepository defines match archive operations (Postgres).
type MatchRepository interface {
	RoundSink
	CreateMatch(ctx context.Context, m *model.Match) error
	FinishMatch(ctx context.Context, matchID string, rounds int, result string) error
	FindMatch(ctx context.Context, matchID string) (*model.Match, error)
	ListMatches(ctx context.Context, limit int) ([]model.Match, error)
	ListRounds(ctx context.Context, matchID string) ([]model.RoundRecord, error)
}

// RoundCache defines live round operations (Redis).
type RoundCache interface {
	RoundSink
	LatestRound(ctx context.Context, matchID string) (*model.RoundRecord, error)
	OrderHistory(ctx context.Context, matchID string) ([]string, error)
	DeleteMatch(ctx context.Context, matchID string) error
}
