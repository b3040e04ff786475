package domain

import (
	"encoding/json"
	"time"
)

// StreakState is a user's consecutive-days-of-activity counter.
type StreakState struct {
	CurrentStreak    int   `json:"currentStreak"`
	LongestStreak    int   `json:"longestStreak"`
	LastActivityDate *Date `json:"lastActivityDate,omitempty"`
}

// AnswerRecord is the stored outcome of one daily quiz question.
type AnswerRecord struct {
	QuestionID string `json:"questionId"`
	Selected   string `json:"selectedValue"`
	Correct    bool   `json:"isCorrect"`
	TimedOut   bool   `json:"timedOut,omitempty"`
	Points     int    `json:"points"`
}

// DailyQuizAttempt is the persisted daily quiz of one user for one civil day.
// Once CompletedAt is set it is never rewritten.
type DailyQuizAttempt struct {
	ID          string                  `json:"id"`
	UserID      string                  `json:"userId"`
	QuizDate    Date                    `json:"quizDate"`
	QuestionIDs []string                `json:"questionIds"`
	Answers     map[string]AnswerRecord `json:"answers"`
	Score       int                     `json:"score"`
	Bonus       int                     `json:"bonus"`
	TotalPoints int                     `json:"totalPoints"`
	CompletedAt *time.Time              `json:"completedAt,omitempty"`
}

// PointsEntry is one user's points for a leaderboard period.
type PointsEntry struct {
	UserID string `json:"userId"`
	Points int    `json:"points"`
}

// Evolution is the rank movement since the previous period. Delta is
// previousRank - currentRank, so positive means the user moved up.
type Evolution struct {
	New   bool
	Delta int
}

// MarshalJSON renders "NEW" for first-time entries and the signed delta otherwise.
func (e Evolution) MarshalJSON() ([]byte, error) {
	if e.New {
		return []byte(`"NEW"`), nil
	}
	return json.Marshal(e.Delta)
}

// RankedEntry is a PointsEntry placed in the weekly order.
type RankedEntry struct {
	UserID    string    `json:"userId"`
	Points    int       `json:"points"`
	Rank      int       `json:"rank"`
	Evolution Evolution `json:"evolution"`
}
