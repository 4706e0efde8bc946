//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/freeeve/cellwar/internal/model"
	"github.com/freeeve/cellwar/internal/repository"
	"github.com/freeeve/cellwar/internal/testutil"
)

var _ repository.RoundCache = (*Client)(nil)

// setup connects per test since LiveCache closes the client on cleanup.
func setup(t *testing.T) *Client {
	t.Helper()
	return NewClientFromPool(testutil.LiveCache(t))
}

func TestSaveRoundRoundTrip(t *testing.T) {
	c := setup(t)
	ctx := context.Background()

	for round := 1; round <= 3; round++ {
		r := model.RoundRecord{
			MatchID:  "m1",
			Round:    round,
			Orders:   []string{"MOVE 0 1 5", "INC 2"},
			OwnUnits: 10 * round,
		}
		if err := c.SaveRound(ctx, r); err != nil {
			t.Fatalf("save round %d: %v", round, err)
		}
	}

	got, err := c.LatestRound(ctx, "m1")
	if err != nil {
		t.Fatalf("latest round: %v", err)
	}
	if got == nil || got.Round != 3 || got.OwnUnits != 30 {
		t.Fatalf("unexpected latest round %+v", got)
	}

	lines, err := c.OrderHistory(ctx, "m1")
	if err != nil {
		t.Fatalf("order history: %v", err)
	}
	if len(lines) != 3 || lines[0] != "1 MOVE 0 1 5;INC 2" {
		t.Fatalf("unexpected history %v", lines)
	}
}

func TestLatestRoundNotFound(t *testing.T) {
	c := setup(t)
	got, err := c.LatestRound(context.Background(), "missing")
	if err != nil {
		t.Fatalf("latest round: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestSaveRoundSetsTTL(t *testing.T) {
	c := setup(t)
	c.SetTTL(time.Minute)
	ctx := context.Background()
	if err := c.SaveRound(ctx, model.RoundRecord{MatchID: "m2", Round: 1}); err != nil {
		t.Fatalf("save round: %v", err)
	}
	ttl, err := testRDB.TTL(ctx, latestKey("m2")).Result()
	if err != nil {
		t.Fatalf("ttl: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("unexpected ttl %v", ttl)
	}
}

func TestDeleteMatch(t *testing.T) {
	c := setup(t)
	ctx := context.Background()
	if err := c.SaveRound(ctx, model.RoundRecord{MatchID: "m3", Round: 1}); err != nil {
		t.Fatalf("save round: %v", err)
	}
	if err := c.DeleteMatch(ctx, "m3"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	lines, _ := c.OrderHistory(ctx, "m3")
	if len(lines) != 0 {
		t.Errorf("expected history gone, got %v", lines)
	}
}
