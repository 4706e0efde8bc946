package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/freeeve/cellwar/internal/model"
)

// Key patterns for Redis match data.
func latestKey(matchID string) string { return "match:" + matchID + ":latest" }
func ordersKey(matchID string) string { return "match:" + matchID + ":orders" }

// SaveRound stores r as the match's latest round and appends its order line
// to the match's order history. Both keys get a fresh TTL.
func (c *Client) SaveRound(ctx context.Context, r model.RoundRecord) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal round: %w", err)
	}
	line := fmt.Sprintf("%d %s", r.Round, strings.Join(r.Orders, ";"))

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, latestKey(r.MatchID), data, c.ttl)
		pipe.RPush(ctx, ordersKey(r.MatchID), line)
		pipe.Expire(ctx, ordersKey(r.MatchID), c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save round: %w", err)
	}
	return nil
}

// LatestRound returns the last saved round of a match, or nil if none.
func (c *Client) LatestRound(ctx context.Context, matchID string) (*model.RoundRecord, error) {
	data, err := c.rdb.Get(ctx, latestKey(matchID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest round: %w", err)
	}
	var r model.RoundRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode latest round: %w", err)
	}
	return &r, nil
}

// OrderHistory returns every saved order line of a match, oldest first.
// Each line is "<round> <orders>".
func (c *Client) OrderHistory(ctx context.Context, matchID string) ([]string, error) {
	lines, err := c.rdb.LRange(ctx, ordersKey(matchID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("order history: %w", err)
	}
	return lines, nil
}

// DeleteMatch removes all Redis data for a match.
func (c *Client) DeleteMatch(ctx context.Context, matchID string) error {
	return c.rdb.Del(ctx, latestKey(matchID), ordersKey(matchID)).Err()
}
