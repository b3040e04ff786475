package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dentallearn/internal/domain"
	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
)

// AttemptStore persists completed daily quiz attempts. The unique
// (user_id, quiz_date) index is what makes a day's quiz one-shot.
type AttemptStore struct {
	*Repository
}

func NewAttemptStore(repo *Repository) *AttemptStore {
	return &AttemptStore{Repository: repo}
}

func (s *AttemptStore) GetAttempt(ctx context.Context, userID string, date domain.Date) (domain.DailyQuizAttempt, bool, error) {
	query, args, err := squirrel.
		Select("id", "question_ids", "answers", "score", "bonus", "total_points", "completed_at").
		From("daily_quiz_attempts").
		Where(squirrel.Eq{"user_id": userID, "quiz_date": date.In(time.UTC)}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return domain.DailyQuizAttempt{}, false, fmt.Errorf("failed to build attempt query: %w", err)
	}

	attempt := domain.DailyQuizAttempt{UserID: userID, QuizDate: date}
	var answers []byte
	err = s.pool.QueryRow(ctx, query, args...).Scan(
		&attempt.ID,
		&attempt.QuestionIDs,
		&answers,
		&attempt.Score,
		&attempt.Bonus,
		&attempt.TotalPoints,
		&attempt.CompletedAt,
	)
	if err == pgx.ErrNoRows {
		return domain.DailyQuizAttempt{}, false, nil
	}
	if err != nil {
		return domain.DailyQuizAttempt{}, false, domain.StorageError("get attempt", err)
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &attempt.Answers); err != nil {
			return domain.DailyQuizAttempt{}, false, fmt.Errorf("decode attempt answers: %w", err)
		}
	}
	return attempt, true, nil
}

func (s *AttemptStore) InsertAttempt(ctx context.Context, attempt domain.DailyQuizAttempt) error {
	answers, err := json.Marshal(attempt.Answers)
	if err != nil {
		return fmt.Errorf("encode attempt answers: %w", err)
	}
	query, args, err := squirrel.
		Insert("daily_quiz_attempts").
		SetMap(map[string]interface{}{
			"id":           attempt.ID,
			"user_id":      attempt.UserID,
			"quiz_date":    attempt.QuizDate.In(time.UTC),
			"question_ids": attempt.QuestionIDs,
			"answers":      string(answers),
			"score":        attempt.Score,
			"bonus":        attempt.Bonus,
			"total_points": attempt.TotalPoints,
			"completed_at": attempt.CompletedAt,
		}).
		Suffix("ON CONFLICT (user_id, quiz_date) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build attempt insert query: %w", err)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return domain.StorageError("insert attempt", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyCompleted
	}
	return nil
}
