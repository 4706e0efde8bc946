// Package journal ships round records to storage sinks from a background
// goroutine, so slow I/O never eats into the round deadline.
package journal

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/cellwar/internal/metrics"
	"github.com/freeeve/cellwar/internal/model"
	"github.com/freeeve/cellwar/internal/repository"
)

const (
	DefaultBuffer = 256
	writeTimeout  = 2 * time.Second
)

// lifecycle is implemented by sinks that also archive match rows.
type lifecycle interface {
	CreateMatch(ctx context.Context, m *model.Match) error
	FinishMatch(ctx context.Context, matchID string, rounds int, result string) error
}

type jobKind int

const (
	jobStart jobKind = iota
	jobRound
	jobFinish
)

type job struct {
	kind   jobKind
	match  model.Match
	round  model.RoundRecord
	rounds int
	result string
}

// Recorder fans records out to its sinks in the order they were queued.
type Recorder struct {
	sinks   []repository.RoundSink
	metrics *metrics.Collector

	mu     sync.RWMutex
	closed bool
	jobs   chan job
	done   chan struct{}
}

// New starts a Recorder with a queue of size buffer. A nil metrics collector
// is fine.
func New(mc *metrics.Collector, buffer int, sinks ...repository.RoundSink) *Recorder {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	r := &Recorder{
		sinks:   sinks,
		metrics: mc,
		jobs:    make(chan job, buffer),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// StartMatch queues the match row. It waits for queue space so the row is
// never lost ahead of its rounds.
func (r *Recorder) StartMatch(m model.Match) {
	r.enqueue(job{kind: jobStart, match: m}, true)
}

// Record queues one round. It never blocks: when the queue is full the record
// is dropped and false is returned.
func (r *Recorder) Record(rec model.RoundRecord) bool {
	if r.enqueue(job{kind: jobRound, round: rec}, false) {
		return true
	}
	r.metrics.Drop("journal")
	log.Warn().Str("matchId", rec.MatchID).Int("round", rec.Round).Msg("Dropping round record, journal full")
	return false
}

// FinishMatch queues the final match result.
func (r *Recorder) FinishMatch(matchID string, rounds int, result string) {
	r.enqueue(job{kind: jobFinish, match: model.Match{ID: matchID}, rounds: rounds, result: result}, true)
}

func (r *Recorder) enqueue(j job, wait bool) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return false
	}
	if wait {
		r.jobs <- j
		return true
	}
	select {
	case r.jobs <- j:
		return true
	default:
		return false
	}
}

// Close stops accepting records and waits until the queue drains or ctx is
// done.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.jobs)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for j := range r.jobs {
		for _, s := range r.sinks {
			r.apply(s, j)
		}
	}
}

func (r *Recorder) apply(s repository.RoundSink, j job) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	var err error
	switch j.kind {
	case jobStart:
		if lc, ok := s.(lifecycle); ok {
			m := j.match
			err = lc.CreateMatch(ctx, &m)
		}
	case jobRound:
		err = s.SaveRound(ctx, j.round)
	case jobFinish:
		if lc, ok := s.(lifecycle); ok {
			err = lc.FinishMatch(ctx, j.match.ID, j.rounds, j.result)
		}
	}
	if err != nil {
		log.Error().Err(err).Str("matchId", j.matchID()).Msg("Journal sink write failed")
	}
}

func (j job) matchID() string {
	if j.kind == jobRound {
		return j.round.MatchID
	}
	return j.match.ID
}
