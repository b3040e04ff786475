package app

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"dentallearn/internal/domain"
	"github.com/google/uuid"
)

const (
	DefaultDailyQuizSize   = 10
	DefaultPerfectBonus    = 50
	DefaultQuestionTimeout = 60 * time.Second
)

// QuestionPool loads the questions flagged for the daily quiz.
type QuestionPool interface {
	EligibleDailyQuestions(ctx context.Context) ([]domain.Question, error)
}

// AttemptStore persists completed daily quiz attempts, unique per (user, date).
type AttemptStore interface {
	GetAttempt(ctx context.Context, userID string, date domain.Date) (domain.DailyQuizAttempt, bool, error)
	// InsertAttempt must fail with domain.ErrAlreadyCompleted when an attempt
	// for the same (user, date) exists, and never overwrite it.
	InsertAttempt(ctx context.Context, attempt domain.DailyQuizAttempt) error
}

// QuizSettings tunes the daily quiz. Zero values fall back to the defaults.
type QuizSettings struct {
	DailySize       int
	PerfectBonus    int
	QuestionTimeout time.Duration
}

func (s QuizSettings) withDefaults() QuizSettings {
	if s.DailySize <= 0 {
		s.DailySize = DefaultDailyQuizSize
	}
	if s.PerfectBonus < 0 {
		s.PerfectBonus = 0
	}
	if s.QuestionTimeout <= 0 {
		s.QuestionTimeout = DefaultQuestionTimeout
	}
	return s
}

// SubmissionGrace is how long after midnight the previous day's quiz may
// still be submitted: one full timer per question.
func (s QuizSettings) SubmissionGrace() time.Duration {
	return time.Duration(s.DailySize) * s.QuestionTimeout
}

// DailyQuizEngine serves one deterministic quiz per user per civil day.
type DailyQuizEngine struct {
	pool     QuestionPool
	attempts AttemptStore
	settings QuizSettings
	now      func() time.Time
}

func NewDailyQuizEngine(pool QuestionPool, attempts AttemptStore, settings QuizSettings) *DailyQuizEngine {
	return NewDailyQuizEngineWithClock(pool, attempts, settings, time.Now)
}

// NewDailyQuizEngineWithClock pins the completion timestamp clock, for tests.
func NewDailyQuizEngineWithClock(pool QuestionPool, attempts AttemptStore, settings QuizSettings, now func() time.Time) *DailyQuizEngine {
	return &DailyQuizEngine{
		pool:     pool,
		attempts: attempts,
		settings: settings.withDefaults(),
		now:      now,
	}
}

// Settings returns the effective settings.
func (e *DailyQuizEngine) Settings() QuizSettings {
	return e.settings
}

// DailyQuestions returns the user's questions for date. Repeated calls before
// completion return the same ordered list.
func (e *DailyQuizEngine) DailyQuestions(ctx context.Context, userID string, date domain.Date) ([]domain.Question, error) {
	_, done, err := e.attempts.GetAttempt(ctx, userID, date)
	if err != nil {
		return nil, domain.StorageError("get attempt", err)
	}
	if done {
		return nil, domain.ErrAlreadyCompleted
	}

	pool, err := e.pool.EligibleDailyQuestions(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNoEligibleQuestions) {
			return nil, err
		}
		return nil, domain.StorageError("load question pool", err)
	}

	questions := SelectDailyQuestions(pool, userID, date, e.settings.DailySize)
	if len(questions) == 0 {
		return nil, domain.ErrNoEligibleQuestions
	}
	return questions, nil
}

// Status returns the completed attempt for date, if any.
func (e *DailyQuizEngine) Status(ctx context.Context, userID string, date domain.Date) (domain.DailyQuizAttempt, bool, error) {
	attempt, ok, err := e.attempts.GetAttempt(ctx, userID, date)
	if err != nil {
		return domain.DailyQuizAttempt{}, false, domain.StorageError("get attempt", err)
	}
	return attempt, ok, nil
}

// Begin starts the user's attempt for date.
func (e *DailyQuizEngine) Begin(ctx context.Context, userID string, date domain.Date) (*Attempt, error) {
	questions, err := e.DailyQuestions(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	a := newAttempt(userID, date, questions)
	a.state = AttemptInProgress
	return a, nil
}

// AttemptResult is the outcome of a completed attempt.
type AttemptResult struct {
	Score          int
	TotalQuestions int
	BasePoints     int
	Bonus          int
	TotalPoints    int
	Perfect        bool
	Attempt        domain.DailyQuizAttempt
}

// Complete scores and persists a fully answered attempt. A perfect run earns
// the configured bonus. Completing twice fails with domain.ErrAlreadyCompleted.
func (e *DailyQuizEngine) Complete(ctx context.Context, a *Attempt) (AttemptResult, error) {
	switch a.state {
	case AttemptCompleted:
		return AttemptResult{}, domain.ErrAlreadyCompleted
	case AttemptNotStarted:
		return AttemptResult{}, fmt.Errorf("%w: attempt not started", domain.ErrAttemptIncomplete)
	}
	if a.Remaining() > 0 {
		return AttemptResult{}, fmt.Errorf("%w: %d of %d unanswered", domain.ErrAttemptIncomplete, a.Remaining(), len(a.questions))
	}

	total := len(a.questions)
	perfect := total > 0 && a.score == total
	bonus := 0
	if perfect {
		bonus = e.settings.PerfectBonus
	}

	completedAt := e.now().UTC()
	questionIDs := make([]string, total)
	for i, q := range a.questions {
		questionIDs[i] = q.ID
	}
	answers := make(map[string]domain.AnswerRecord, len(a.answers))
	for id, rec := range a.answers {
		answers[id] = rec
	}
	record := domain.DailyQuizAttempt{
		ID:          uuid.NewString(),
		UserID:      a.userID,
		QuizDate:    a.date,
		QuestionIDs: questionIDs,
		Answers:     answers,
		Score:       a.score,
		Bonus:       bonus,
		TotalPoints: a.points + bonus,
		CompletedAt: &completedAt,
	}

	if err := e.attempts.InsertAttempt(ctx, record); err != nil {
		if errors.Is(err, domain.ErrAlreadyCompleted) {
			a.state = AttemptCompleted
			return AttemptResult{}, err
		}
		return AttemptResult{}, domain.StorageError("insert attempt", err)
	}
	a.state = AttemptCompleted

	return AttemptResult{
		Score:          a.score,
		TotalQuestions: total,
		BasePoints:     a.points,
		Bonus:          bonus,
		TotalPoints:    record.TotalPoints,
		Perfect:        perfect,
		Attempt:        record,
	}, nil
}

// SubmittedAnswer is one answer of a client-driven attempt.
type SubmittedAnswer struct {
	QuestionID string
	Response   domain.Response
}

// Submission is a whole attempt as reported by the client once it finished.
// Claimed values are optional and, when present, must agree with the answers.
type Submission struct {
	// QuizDate is the day the quiz was served; nil means the current day.
	QuizDate            *domain.Date
	QuestionIDs         []string
	Answers             []SubmittedAnswer
	ClaimedScore        *int
	ClaimedPoints       *int
	ClaimedQuestionSize *int
}

// Replay rebuilds an attempt from a client submission, checks it against the
// server's selection and claimed totals, and completes it.
func (e *DailyQuizEngine) Replay(ctx context.Context, userID string, date domain.Date, sub Submission) (AttemptResult, error) {
	a, err := e.Begin(ctx, userID, date)
	if err != nil {
		return AttemptResult{}, err
	}
	if len(sub.QuestionIDs) > 0 && !sameOrder(sub.QuestionIDs, a.questions) {
		return AttemptResult{}, fmt.Errorf("%w: question set differs from the quiz served on %s", domain.ErrScoreMismatch, date)
	}
	if sub.ClaimedQuestionSize != nil && *sub.ClaimedQuestionSize != len(a.questions) {
		return AttemptResult{}, fmt.Errorf("%w: claimed %d questions, quiz has %d", domain.ErrScoreMismatch, *sub.ClaimedQuestionSize, len(a.questions))
	}
	for _, ans := range sub.Answers {
		if _, err := a.Submit(ans.QuestionID, ans.Response); err != nil {
			return AttemptResult{}, err
		}
	}
	if a.Remaining() > 0 {
		return AttemptResult{}, fmt.Errorf("%w: %d of %d unanswered", domain.ErrAttemptIncomplete, a.Remaining(), len(a.questions))
	}

	if sub.ClaimedScore != nil && *sub.ClaimedScore != a.score {
		return AttemptResult{}, fmt.Errorf("%w: claimed score %d, answers give %d", domain.ErrScoreMismatch, *sub.ClaimedScore, a.score)
	}
	if sub.ClaimedPoints != nil {
		expected := a.points
		if a.score == len(a.questions) {
			expected += e.settings.PerfectBonus
		}
		if *sub.ClaimedPoints != expected {
			return AttemptResult{}, fmt.Errorf("%w: claimed %d points, answers give %d", domain.ErrScoreMismatch, *sub.ClaimedPoints, expected)
		}
	}
	return e.Complete(ctx, a)
}

// servedOn reports whether ids is the user's selection for date.
func (e *DailyQuizEngine) servedOn(ctx context.Context, userID string, date domain.Date, ids []string) bool {
	pool, err := e.pool.EligibleDailyQuestions(ctx)
	if err != nil {
		return false
	}
	return sameOrder(ids, SelectDailyQuestions(pool, userID, date, e.settings.DailySize))
}

func sameOrder(ids []string, questions []domain.Question) bool {
	if len(ids) != len(questions) {
		return false
	}
	for i, q := range questions {
		if ids[i] != q.ID {
			return false
		}
	}
	return true
}

// SelectDailyQuestions picks up to size eligible questions with a shuffle
// seeded by (userID, date). The pool is sorted by id first so the result does
// not depend on the order the store returned it in.
func SelectDailyQuestions(pool []domain.Question, userID string, date domain.Date, size int) []domain.Question {
	eligible := make([]domain.Question, 0, len(pool))
	for _, q := range pool {
		if q.EligibleForDaily {
			eligible = append(eligible, q)
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].ID < eligible[j].ID
	})

	rnd := rand.New(rand.NewSource(dailySeed(userID, date)))
	for i := len(eligible) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		eligible[i], eligible[j] = eligible[j], eligible[i]
	}

	if size > 0 && len(eligible) > size {
		eligible = eligible[:size]
	}
	return eligible
}

func dailySeed(userID string, date domain.Date) int64 {
	sum := sha256.Sum256([]byte(userID + ":" + date.String()))
	return int64(binary.BigEndian.Uint64(sum[:8]))
}
