package postgres

import (
	"context"
	"fmt"

	"dentallearn/internal/domain"
	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
)

// QuestionStore reads and writes rows of the questions table. Options are
// stored as JSONB next to their question_type tag.
type QuestionStore struct {
	*Repository
}

func NewQuestionStore(repo *Repository) *QuestionStore {
	return &QuestionStore{Repository: repo}
}

func (s *QuestionStore) LoadEligibleQuestions(ctx context.Context) ([]domain.Question, error) {
	query, args, err := squirrel.
		Select("id", "text", "question_type", "options", "points").
		From("questions").
		Where(squirrel.Eq{"eligible_for_daily_quiz": true}).
		OrderBy("id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build eligible questions query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.StorageError("load eligible questions", err)
	}
	defer rows.Close()

	questions := make([]domain.Question, 0)
	for rows.Next() {
		var (
			q       domain.Question
			typ     string
			options []byte
		)
		if err := rows.Scan(&q.ID, &q.Text, &typ, &options, &q.Points); err != nil {
			return nil, domain.StorageError("scan question", err)
		}
		q.Kind, err = domain.DecodeQuestionKind(domain.QuestionType(typ), options)
		if err != nil {
			return nil, fmt.Errorf("question %s: %w", q.ID, err)
		}
		q.EligibleForDaily = true
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError("load eligible questions", err)
	}
	return questions, nil
}

// UpsertQuestions writes every question in one transaction and returns how
// many rows were written.
func (s *QuestionStore) UpsertQuestions(ctx context.Context, questions []domain.Question) (int, error) {
	written := 0
	err := s.Transaction(ctx, func(tx pgx.Tx) error {
		for _, q := range questions {
			typ, options, err := domain.EncodeQuestionKind(q.Kind)
			if err != nil {
				return fmt.Errorf("question %s: %w", q.ID, err)
			}
			query, args, err := squirrel.
				Insert("questions").
				SetMap(map[string]interface{}{
					"id":                      q.ID,
					"text":                    q.Text,
					"question_type":           string(typ),
					"options":                 string(options),
					"points":                  q.Points,
					"eligible_for_daily_quiz": q.EligibleForDaily,
				}).
				Suffix(`ON CONFLICT (id) DO UPDATE SET
					text = EXCLUDED.text,
					question_type = EXCLUDED.question_type,
					options = EXCLUDED.options,
					points = EXCLUDED.points,
					eligible_for_daily_quiz = EXCLUDED.eligible_for_daily_quiz`).
				PlaceholderFormat(squirrel.Dollar).
				ToSql()
			if err != nil {
				return fmt.Errorf("failed to build question upsert query: %w", err)
			}
			if _, err := tx.Exec(ctx, query, args...); err != nil {
				return domain.StorageError("upsert question "+q.ID, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}
