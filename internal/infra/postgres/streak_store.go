package postgres

import (
	"context"
	"fmt"
	"time"

	"dentallearn/internal/domain"
	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
)

// StreakStore persists one user_streaks row per user.
type StreakStore struct {
	*Repository
}

func NewStreakStore(repo *Repository) *StreakStore {
	return &StreakStore{Repository: repo}
}

func (s *StreakStore) GetStreak(ctx context.Context, userID string) (domain.StreakState, bool, error) {
	query, args, err := squirrel.
		Select("current_streak", "longest_streak", "last_activity_date").
		From("user_streaks").
		Where(squirrel.Eq{"user_id": userID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return domain.StreakState{}, false, fmt.Errorf("failed to build streak query: %w", err)
	}

	var (
		state domain.StreakState
		last  *time.Time
	)
	err = s.pool.QueryRow(ctx, query, args...).Scan(&state.CurrentStreak, &state.LongestStreak, &last)
	if err == pgx.ErrNoRows {
		return domain.StreakState{}, false, nil
	}
	if err != nil {
		return domain.StreakState{}, false, domain.StorageError("get streak", err)
	}
	if last != nil {
		d := domain.DateOf(*last)
		state.LastActivityDate = &d
	}
	return state, true, nil
}

// UpsertStreak only overwrites a row whose last activity is strictly older
// than the new one, so concurrent updates for the same day apply once.
func (s *StreakStore) UpsertStreak(ctx context.Context, userID string, state domain.StreakState) (bool, error) {
	var last interface{}
	if state.LastActivityDate != nil {
		last = state.LastActivityDate.In(time.UTC)
	}
	query, args, err := squirrel.
		Insert("user_streaks").
		Columns("user_id", "current_streak", "longest_streak", "last_activity_date", "updated_at").
		Values(userID, state.CurrentStreak, state.LongestStreak, last, squirrel.Expr("now()")).
		Suffix(`ON CONFLICT (user_id) DO UPDATE SET
			current_streak = EXCLUDED.current_streak,
			longest_streak = EXCLUDED.longest_streak,
			last_activity_date = EXCLUDED.last_activity_date,
			updated_at = EXCLUDED.updated_at
			WHERE user_streaks.last_activity_date IS NULL
			   OR user_streaks.last_activity_date < EXCLUDED.last_activity_date`).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build streak upsert query: %w", err)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, domain.StorageError("upsert streak", err)
	}
	return tag.RowsAffected() == 1, nil
}
