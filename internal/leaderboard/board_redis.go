package leaderboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const boardKey = "leaderboard:xp"

// RedisBoard keeps the ranking in a Redis sorted set, scored by total XP.
// Ties are broken lexically by member, which Redis does natively.
type RedisBoard struct {
	client *redis.Client
}

// NewRedisBoard creates a Redis-backed board.
func NewRedisBoard(client *redis.Client) *RedisBoard {
	return &RedisBoard{client: client}
}

func (b *RedisBoard) SetXP(ctx context.Context, userID string, totalXP int) error {
	err := b.client.ZAdd(ctx, boardKey, redis.Z{Score: float64(totalXP), Member: userID}).Err()
	if err != nil {
		return fmt.Errorf("leaderboard set xp: %w", err)
	}
	return nil
}

func (b *RedisBoard) Top(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	zs, err := b.client.ZRevRangeWithScores(ctx, boardKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard top: %w", err)
	}

	entries := make([]Entry, 0, len(zs))
	for i, z := range zs {
		id, _ := z.Member.(string)
		entries = append(entries, Entry{UserID: id, XP: int(z.Score), Rank: i + 1})
	}
	return entries, nil
}

func (b *RedisBoard) Rank(ctx context.Context, userID string) (Entry, error) {
	rank, err := b.client.ZRevRank(ctx, boardKey, userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, ErrNotRanked
		}
		return Entry{}, fmt.Errorf("leaderboard rank: %w", err)
	}
	score, err := b.client.ZScore(ctx, boardKey, userID).Result()
	if err != nil {
		return Entry{}, fmt.Errorf("leaderboard score: %w", err)
	}
	return Entry{UserID: userID, XP: int(score), Rank: int(rank) + 1}, nil
}
