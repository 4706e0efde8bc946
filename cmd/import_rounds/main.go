// Command import_rounds reads round records as JSON lines (the format written
// by matchlog -json) and imports them into the Postgres match archive.
//
// Usage:
//
//	go run ./cmd/import_rounds/ --input rounds.jsonl --db postgres://...
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/freeeve/cellwar/internal/model"
	"github.com/freeeve/cellwar/internal/repository"
	"github.com/freeeve/cellwar/internal/repository/postgres"
	"github.com/freeeve/cellwar/pkg/wire"
)

func main() {
	inputFile := flag.String("input", "", "Path to JSONL file")
	dbURL := flag.String("db", os.Getenv("DATABASE_URL"), "Postgres connection URL")
	strategy := flag.String("strategy", "imported", "Strategy name for matches not yet archived")
	flag.Parse()

	if *inputFile == "" {
		log.Fatal("--input is required")
	}
	if *dbURL == "" {
		log.Fatal("--db or DATABASE_URL is required")
	}

	ctx := context.Background()
	db, err := postgres.Connect(ctx, *dbURL)
	if err != nil {
		log.Fatalf("connect to postgres: %v", err)
	}
	defer db.Close()
	repo := postgres.NewMatchRepo(db)

	f, err := os.Open(*inputFile)
	if err != nil {
		log.Fatalf("open input: %v", err)
	}
	defer f.Close()

	byMatch, order, err := readRounds(f)
	if err != nil {
		log.Fatalf("read input: %v", err)
	}

	imported := 0
	for _, matchID := range order {
		rounds := byMatch[matchID]
		if err := importMatch(ctx, repo, matchID, *strategy, rounds); err != nil {
			log.Printf("ERROR: import match %s: %v", matchID, err)
			continue
		}
		imported++
		log.Printf("imported match %s (%d rounds)", matchID, len(rounds))
	}
	log.Printf("done: imported %d matches", imported)
}

// readRounds groups the input's records by match, keeping first-seen match
// order. Bad lines are reported and skipped.
func readRounds(r io.Reader) (map[string][]model.RoundRecord, []string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	byMatch := make(map[string][]model.RoundRecord)
	var order []string
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if strings.TrimSpace(string(line)) == "" {
			continue
		}
		rec, err := decodeRound(line)
		if err != nil {
			log.Printf("WARN: skip line %d: %v", lineNo, err)
			continue
		}
		if _, ok := byMatch[rec.MatchID]; !ok {
			order = append(order, rec.MatchID)
		}
		byMatch[rec.MatchID] = append(byMatch[rec.MatchID], rec)
	}
	return byMatch, order, scanner.Err()
}

// decodeRound parses one JSON line and checks that its orders are well formed.
func decodeRound(line []byte) (model.RoundRecord, error) {
	var rec model.RoundRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return rec, fmt.Errorf("bad JSON: %w", err)
	}
	if rec.MatchID == "" {
		return rec, errors.New("missing match_id")
	}
	if rec.Round < 0 {
		return rec, fmt.Errorf("negative round %d", rec.Round)
	}
	for _, o := range rec.Orders {
		if _, err := wire.ParseOrder(o); err != nil {
			return rec, fmt.Errorf("round %d: %w", rec.Round, err)
		}
	}
	return rec, nil
}

// importMatch creates the match row when missing, then saves its rounds.
// Rounds already archived are left as they are.
func importMatch(ctx context.Context, repo repository.MatchRepository, matchID, strategy string, rounds []model.RoundRecord) error {
	existing, err := repo.FindMatch(ctx, matchID)
	if err != nil {
		return fmt.Errorf("find match: %w", err)
	}
	if existing == nil {
		m := &model.Match{ID: matchID, Strategy: strategy}
		if len(rounds) > 0 {
			m.StartedAt = rounds[0].CreatedAt
		}
		if err := repo.CreateMatch(ctx, m); err != nil {
			return fmt.Errorf("create match: %w", err)
		}
	}

	last := -1
	for _, r := range rounds {
		if err := repo.SaveRound(ctx, r); err != nil {
			return fmt.Errorf("save round %d: %w", r.Round, err)
		}
		last = max(last, r.Round)
	}
	if existing == nil {
		if err := repo.FinishMatch(ctx, matchID, last+1, model.ResultUnknown); err != nil {
			return fmt.Errorf("finish match: %w", err)
		}
	}
	return nil
}
