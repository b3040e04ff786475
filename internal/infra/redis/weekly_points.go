package redis

import (
	"context"
	"time"

	"dentallearn/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultWeekRetention keeps a week's sorted set long enough to serve as the
// "previous week" of the next one.
const DefaultWeekRetention = 15 * 24 * time.Hour

// WeeklyPoints keeps one sorted set per ISO week:
// ZINCRBY leaderboard:week:{2026-W43} {points} {userID}
type WeeklyPoints struct {
	client    *redis.Client
	retention time.Duration
}

// NewWeeklyPoints stores weeks for retention; anything shorter than two weeks
// falls back to DefaultWeekRetention.
func NewWeeklyPoints(client *redis.Client, retention time.Duration) *WeeklyPoints {
	if retention < 14*24*time.Hour {
		retention = DefaultWeekRetention
	}
	return &WeeklyPoints{client: client, retention: retention}
}

func (w *WeeklyPoints) key(week domain.Week) string {
	return "leaderboard:week:" + week.String()
}

func (w *WeeklyPoints) WeeklyPoints(ctx context.Context, week domain.Week) ([]domain.PointsEntry, error) {
	members, err := w.client.ZRevRangeWithScores(ctx, w.key(week), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.PointsEntry, 0, len(members))
	for _, m := range members {
		userID, ok := m.Member.(string)
		if !ok {
			continue
		}
		out = append(out, domain.PointsEntry{UserID: userID, Points: int(m.Score)})
	}
	return out, nil
}

func (w *WeeklyPoints) AddPoints(ctx context.Context, week domain.Week, userID string, points int) (int, error) {
	key := w.key(week)
	pipe := w.client.TxPipeline()
	incr := pipe.ZIncrBy(ctx, key, float64(points), userID)
	pipe.Expire(ctx, key, w.retention)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return int(incr.Val()), nil
}
