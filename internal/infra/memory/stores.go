package memory

import (
	"context"
	"sync"

	"dentallearn/internal/domain"
)

// StreakStore is an in-memory implementation of app.StreakStore.
type StreakStore struct {
	mu      sync.Mutex
	streaks map[string]domain.StreakState
}

func NewStreakStore() *StreakStore {
	return &StreakStore{streaks: make(map[string]domain.StreakState)}
}

func (s *StreakStore) GetStreak(_ context.Context, userID string) (domain.StreakState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.streaks[userID]
	return copyStreak(state), ok, nil
}

func (s *StreakStore) UpsertStreak(_ context.Context, userID string, state domain.StreakState) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.streaks[userID]; ok && prev.LastActivityDate != nil {
		if state.LastActivityDate == nil || !prev.LastActivityDate.Before(*state.LastActivityDate) {
			return false, nil
		}
	}
	s.streaks[userID] = copyStreak(state)
	return true, nil
}

// Put seeds a streak row unconditionally.
func (s *StreakStore) Put(userID string, state domain.StreakState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaks[userID] = copyStreak(state)
}

func copyStreak(state domain.StreakState) domain.StreakState {
	if state.LastActivityDate != nil {
		d := *state.LastActivityDate
		state.LastActivityDate = &d
	}
	return state
}

type attemptKey struct {
	userID string
	date   domain.Date
}

// AttemptStore is an in-memory implementation of app.AttemptStore.
type AttemptStore struct {
	mu       sync.Mutex
	attempts map[attemptKey]domain.DailyQuizAttempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{attempts: make(map[attemptKey]domain.DailyQuizAttempt)}
}

func (s *AttemptStore) GetAttempt(_ context.Context, userID string, date domain.Date) (domain.DailyQuizAttempt, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[attemptKey{userID, date}]
	return attempt, ok, nil
}

func (s *AttemptStore) InsertAttempt(_ context.Context, attempt domain.DailyQuizAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := attemptKey{attempt.UserID, attempt.QuizDate}
	if _, exists := s.attempts[key]; exists {
		return domain.ErrAlreadyCompleted
	}
	s.attempts[key] = attempt
	return nil
}

// WeeklyPoints is an in-memory implementation of app.WeeklyPoints.
type WeeklyPoints struct {
	mu    sync.Mutex
	weeks map[domain.Week]map[string]int
}

func NewWeeklyPoints() *WeeklyPoints {
	return &WeeklyPoints{weeks: make(map[domain.Week]map[string]int)}
}

func (w *WeeklyPoints) WeeklyPoints(_ context.Context, week domain.Week) ([]domain.PointsEntry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	totals := w.weeks[week]
	out := make([]domain.PointsEntry, 0, len(totals))
	for userID, points := range totals {
		out = append(out, domain.PointsEntry{UserID: userID, Points: points})
	}
	return out, nil
}

func (w *WeeklyPoints) AddPoints(_ context.Context, week domain.Week, userID string, points int) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	totals, ok := w.weeks[week]
	if !ok {
		totals = make(map[string]int)
		w.weeks[week] = totals
	}
	totals[userID] += points
	return totals[userID], nil
}
