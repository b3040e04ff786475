package app

import (
	"fmt"

	"dentallearn/internal/domain"
)

// AttemptState is the lifecycle of a daily quiz attempt.
type AttemptState int

const (
	AttemptNotStarted AttemptState = iota
	AttemptInProgress
	AttemptCompleted
)

func (s AttemptState) String() string {
	switch s {
	case AttemptNotStarted:
		return "not_started"
	case AttemptInProgress:
		return "in_progress"
	case AttemptCompleted:
		return "completed"
	default:
		return fmt.Sprintf("AttemptState(%d)", int(s))
	}
}

// AnswerResult is the outcome of one submitted answer.
type AnswerResult struct {
	QuestionID    string `json:"questionId"`
	Correct       bool   `json:"correct"`
	TimedOut      bool   `json:"timedOut"`
	PointsAwarded int    `json:"pointsAwarded"`
	Score         int    `json:"score"`
	TotalPoints   int    `json:"totalPoints"`
}

// Attempt walks a user through the day's questions in order.
type Attempt struct {
	userID    string
	date      domain.Date
	questions []domain.Question
	cursor    int
	score     int
	points    int
	answers   map[string]domain.AnswerRecord
	state     AttemptState
}

func newAttempt(userID string, date domain.Date, questions []domain.Question) *Attempt {
	return &Attempt{
		userID:    userID,
		date:      date,
		questions: questions,
		answers:   make(map[string]domain.AnswerRecord, len(questions)),
	}
}

func (a *Attempt) UserID() string      { return a.userID }
func (a *Attempt) Date() domain.Date   { return a.date }
func (a *Attempt) State() AttemptState { return a.state }
func (a *Attempt) Score() int          { return a.score }
func (a *Attempt) Points() int         { return a.points }
func (a *Attempt) Remaining() int      { return len(a.questions) - a.cursor }
func (a *Attempt) Questions() []domain.Question {
	out := make([]domain.Question, len(a.questions))
	copy(out, a.questions)
	return out
}

// Current returns the question awaiting an answer.
func (a *Attempt) Current() (domain.Question, bool) {
	if a.state != AttemptInProgress || a.cursor >= len(a.questions) {
		return domain.Question{}, false
	}
	return a.questions[a.cursor], true
}

// Submit grades the answer to the current question and advances the cursor.
// Pass domain.TimedOut{} when the question timer expired.
func (a *Attempt) Submit(questionID string, r domain.Response) (AnswerResult, error) {
	switch a.state {
	case AttemptCompleted:
		return AnswerResult{}, domain.ErrAlreadyCompleted
	case AttemptNotStarted:
		return AnswerResult{}, fmt.Errorf("%w: attempt not started", domain.ErrQuestionOutOfOrder)
	}

	q, ok := a.Current()
	if !ok {
		return AnswerResult{}, fmt.Errorf("%w: no question left to answer", domain.ErrQuestionOutOfOrder)
	}
	if q.ID != questionID {
		if _, answered := a.answers[questionID]; answered {
			return AnswerResult{}, fmt.Errorf("%w: question %s already answered", domain.ErrQuestionOutOfOrder, questionID)
		}
		return AnswerResult{}, fmt.Errorf("%w: expected %s, got %s", domain.ErrQuestionOutOfOrder, q.ID, questionID)
	}

	correct, selected, err := q.Check(r)
	if err != nil {
		return AnswerResult{}, err
	}
	_, timedOut := r.(domain.TimedOut)

	awarded := 0
	if correct {
		awarded = q.Points
		a.score++
		a.points += awarded
	}
	a.answers[q.ID] = domain.AnswerRecord{
		QuestionID: q.ID,
		Selected:   selected,
		Correct:    correct,
		TimedOut:   timedOut,
		Points:     awarded,
	}
	a.cursor++

	return AnswerResult{
		QuestionID:    q.ID,
		Correct:       correct,
		TimedOut:      timedOut,
		PointsAwarded: awarded,
		Score:         a.score,
		TotalPoints:   a.points,
	}, nil
}
