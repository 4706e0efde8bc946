package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/freeeve/cellwar/internal/logger"
	"github.com/freeeve/cellwar/internal/metrics"
	"github.com/freeeve/cellwar/internal/model"
	"github.com/freeeve/cellwar/internal/watch"
	"github.com/freeeve/cellwar/pkg/conquest"
	"github.com/freeeve/cellwar/pkg/wire"
)

// Recorder receives match and round summaries for storage.
// Implemented by journal.Recorder.
type Recorder interface {
	StartMatch(m model.Match)
	Record(rec model.RoundRecord) bool
	FinishMatch(matchID string, rounds int, result string)
}

// Broadcaster sends real-time events to spectators.
// Implemented by the watch hub.
type Broadcaster interface {
	BroadcastMatchEvent(matchID string, eventType string, data any)
}

// NoopRecorder discards everything; used when no sink is configured.
type NoopRecorder struct{}

func (NoopRecorder) StartMatch(model.Match)          {}
func (NoopRecorder) Record(model.RoundRecord) bool   { return true }
func (NoopRecorder) FinishMatch(string, int, string) {}

// NoopBroadcaster is a no-op implementation for tests or when watching is disabled.
type NoopBroadcaster struct{}

func (NoopBroadcaster) BroadcastMatchEvent(string, string, any) {}

// PlayerConfig wires a Player. Only Strategy is required.
type PlayerConfig struct {
	MatchID     string
	Seed        int64
	Strategy    Strategy
	Engine      conquest.Options
	Metrics     *metrics.Collector
	Recorder    Recorder
	Broadcaster Broadcaster
	Clock       func() time.Time
}

// Player runs one match: it reads observations, lets the strategy plan,
// and writes one order line per round.
type Player struct {
	cfg    PlayerConfig
	reader *wire.Reader
	writer *wire.Writer
	log    zerolog.Logger
	state  *conquest.State
	rounds int
}

// NewPlayer creates a Player reading the match from in and answering on out.
func NewPlayer(in io.Reader, out io.Writer, cfg PlayerConfig) *Player {
	if cfg.Recorder == nil {
		cfg.Recorder = NoopRecorder{}
	}
	if cfg.Broadcaster == nil {
		cfg.Broadcaster = NoopBroadcaster{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Player{
		cfg:    cfg,
		reader: wire.NewReader(in),
		writer: wire.NewWriter(out),
		log:    logger.ForMatch(cfg.MatchID),
	}
}

// State returns the engine state, or nil before the setup was read.
func (p *Player) State() *conquest.State { return p.state }

// Run plays the match until the input ends, ctx is cancelled, or an
// unrecoverable error occurs. The end of input is a normal finish.
func (p *Player) Run(ctx context.Context) error {
	setup, err := p.reader.ReadSetup()
	if err != nil {
		return fmt.Errorf("read setup: %w", err)
	}
	start := p.cfg.Clock()
	state, err := conquest.NewState(setup, p.cfg.Engine)
	if err != nil {
		return fmt.Errorf("build state: %w", err)
	}
	p.state = state

	p.log.Info().
		Str("strategy", p.cfg.Strategy.Name()).
		Int("cells", setup.CellCount).
		Int("links", len(setup.Links)).
		Msg("Match started")

	match := model.Match{
		ID:        p.cfg.MatchID,
		Strategy:  p.cfg.Strategy.Name(),
		Seed:      p.cfg.Seed,
		CellCount: setup.CellCount,
		StartedAt: start.UTC(),
	}
	p.cfg.Recorder.StartMatch(match)
	p.cfg.Broadcaster.BroadcastMatchEvent(p.cfg.MatchID, watch.EventMatchStarted, match)

	if err := p.playRound(conquest.RoundReport{}, start); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("Context cancelled, stopping match")
			p.finish(model.ResultUnknown)
			return ctx.Err()
		default:
		}

		u, err := p.reader.ReadRound()
		if errors.Is(err, wire.ErrMatchOver) {
			p.finish(p.result())
			return nil
		}
		if err != nil {
			return fmt.Errorf("read round %d: %w", state.Round()+1, err)
		}
		start := p.cfg.Clock()
		rep, err := state.ApplyRound(u)
		if err != nil {
			return fmt.Errorf("apply round %d: %w", state.Round()+1, err)
		}
		p.logReport(rep)
		if err := p.playRound(rep, start); err != nil {
			return err
		}
	}
}

// playRound plans, emits and writes the current round, then publishes its
// summary to the side channels.
func (p *Player) playRound(rep conquest.RoundReport, start time.Time) error {
	s := p.state
	p.cfg.Strategy.Plan(s, s.Commands())
	orders := s.Emit()

	elapsed := p.cfg.Clock().Sub(start)
	tot := s.Totals()
	msg := fmt.Sprintf("%dms - %d/%d units - %d/%d production",
		elapsed.Milliseconds(), tot.OwnUnits, tot.EnemyUnits, tot.OwnProduction, tot.EnemyProduction)
	if err := p.writer.WriteRound(orders, msg); err != nil {
		return fmt.Errorf("round %d: %w", s.Round(), err)
	}
	s.EndRound()
	p.rounds++

	rec := p.roundRecord(orders, msg, elapsed)
	p.cfg.Metrics.ObserveRound(p.cfg.Clock().Sub(start), orders, rep, rec.OwnedCells)
	p.cfg.Recorder.Record(rec)
	p.cfg.Broadcaster.BroadcastMatchEvent(p.cfg.MatchID, watch.EventRound, rec)

	p.log.Debug().Int("round", s.Round()).Int("orders", len(orders)).Dur("elapsed", elapsed).Msg("Round played")
	return nil
}

func (p *Player) roundRecord(orders []conquest.Order, msg string, elapsed time.Duration) model.RoundRecord {
	s := p.state
	tot := s.Totals()
	rec := model.RoundRecord{
		MatchID:         p.cfg.MatchID,
		Round:           s.Round(),
		Orders:          make([]string, len(orders)),
		Message:         msg,
		OwnUnits:        tot.OwnUnits,
		EnemyUnits:      tot.EnemyUnits,
		OwnProduction:   tot.OwnProduction,
		EnemyProduction: tot.EnemyProduction,
		DurationMS:      elapsed.Milliseconds(),
		CreatedAt:       p.cfg.Clock().UTC(),
	}
	for i, o := range orders {
		rec.Orders[i] = o.String()
	}
	for _, c := range s.Cells() {
		switch c.Owner {
		case conquest.Friendly:
			rec.OwnedCells++
			if c.Threat != conquest.Safe {
				rec.Threats = append(rec.Threats, model.CellThreat{Cell: c.ID, Status: c.Threat.String()})
			}
		case conquest.Enemy:
			rec.EnemyCells++
		}
	}
	return rec
}

func (p *Player) logReport(rep conquest.RoundReport) {
	if len(rep.Ambiguous) > 0 {
		p.log.Debug().Int("round", rep.Round).Ints("cells", rep.Ambiguous).Msg("Ambiguous bomb impact")
	}
	for _, tc := range rep.ThreatChanges {
		p.log.Debug().
			Int("round", rep.Round).
			Int("cell", tc.Cell).
			Stringer("from", tc.From).
			Stringer("to", tc.To).
			Msg("Threat changed")
	}
}

// result judges the match from the last observation: a side with no cells
// and no units has lost, otherwise the larger army wins.
func (p *Player) result() string {
	s := p.state
	tot := s.Totals()
	switch {
	case tot.EnemyUnits == 0 && len(s.CellsOf(conquest.Enemy)) == 0:
		return model.ResultWon
	case tot.OwnUnits == 0 && len(s.CellsOf(conquest.Friendly)) == 0:
		return model.ResultLost
	case tot.OwnUnits > tot.EnemyUnits:
		return model.ResultWon
	case tot.OwnUnits < tot.EnemyUnits:
		return model.ResultLost
	default:
		return model.ResultUnknown
	}
}

func (p *Player) finish(result string) {
	p.log.Info().Int("rounds", p.rounds).Str("result", result).Msg("Match finished")
	p.cfg.Recorder.FinishMatch(p.cfg.MatchID, p.rounds, result)
	p.cfg.Broadcaster.BroadcastMatchEvent(p.cfg.MatchID, watch.EventMatchEnded, map[string]any{
		"rounds": p.rounds,
		"result": result,
	})
}
