package postgres

import (
	"context"
	"fmt"

	"dentallearn/internal/domain"
	"github.com/Masterminds/squirrel"
)

// WeeklyPoints keeps the per-week point totals used by the leaderboard when
// no Redis is configured.
type WeeklyPoints struct {
	*Repository
}

func NewWeeklyPoints(repo *Repository) *WeeklyPoints {
	return &WeeklyPoints{Repository: repo}
}

func (w *WeeklyPoints) WeeklyPoints(ctx context.Context, week domain.Week) ([]domain.PointsEntry, error) {
	query, args, err := squirrel.
		Select("user_id", "points").
		From("weekly_points").
		Where(squirrel.Eq{"week": week.String()}).
		OrderBy("points DESC", "user_id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build weekly points query: %w", err)
	}

	rows, err := w.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.StorageError("weekly points", err)
	}
	defer rows.Close()

	entries := make([]domain.PointsEntry, 0)
	for rows.Next() {
		var e domain.PointsEntry
		if err := rows.Scan(&e.UserID, &e.Points); err != nil {
			return nil, domain.StorageError("scan weekly points", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError("weekly points", err)
	}
	return entries, nil
}

func (w *WeeklyPoints) AddPoints(ctx context.Context, week domain.Week, userID string, points int) (int, error) {
	query, args, err := squirrel.
		Insert("weekly_points").
		Columns("week", "user_id", "points").
		Values(week.String(), userID, points).
		Suffix("ON CONFLICT (week, user_id) DO UPDATE SET points = weekly_points.points + EXCLUDED.points RETURNING points").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build weekly points upsert query: %w", err)
	}

	var total int
	if err := w.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, domain.StorageError("add weekly points", err)
	}
	return total, nil
}
