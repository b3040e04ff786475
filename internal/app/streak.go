package app

import (
	"context"
	"time"

	"dentallearn/internal/domain"
)

// StreakStore persists one streak row per user.
type StreakStore interface {
	// GetStreak returns the stored state; ok is false when the user has none yet.
	GetStreak(ctx context.Context, userID string) (state domain.StreakState, ok bool, err error)
	// UpsertStreak writes state atomically. It must only apply when the stored
	// last activity date is absent or strictly before state.LastActivityDate,
	// and reports whether the write applied.
	UpsertStreak(ctx context.Context, userID string, state domain.StreakState) (applied bool, err error)
}

// StreakTracker maintains consecutive-day activity counters in a single civil
// timezone shared by all users.
type StreakTracker struct {
	store    StreakStore
	calendar domain.Calendar
	now      func() time.Time
}

func NewStreakTracker(store StreakStore, calendar domain.Calendar) *StreakTracker {
	return NewStreakTrackerWithClock(store, calendar, time.Now)
}

// NewStreakTrackerWithClock pins the clock, for tests.
func NewStreakTrackerWithClock(store StreakStore, calendar domain.Calendar, now func() time.Time) *StreakTracker {
	return &StreakTracker{store: store, calendar: calendar, now: now}
}

// Update records activity for today and returns the resulting state. Calling
// it again on the same civil day returns the state unchanged.
func (t *StreakTracker) Update(ctx context.Context, userID string) (domain.StreakState, error) {
	state, _, err := t.UpdateOn(ctx, userID, t.calendar.Today(t.now()))
	return state, err
}

// UpdateOn records activity on day. changed is false when the stored state
// already counts day or a later one, in which case the stored state is returned.
func (t *StreakTracker) UpdateOn(ctx context.Context, userID string, day domain.Date) (domain.StreakState, bool, error) {
	prev, _, err := t.store.GetStreak(ctx, userID)
	if err != nil {
		return domain.StreakState{}, false, domain.StorageError("get streak", err)
	}

	next, changed := AdvanceStreak(prev, day)
	if !changed {
		return next, false, nil
	}

	applied, err := t.store.UpsertStreak(ctx, userID, next)
	if err != nil {
		return domain.StreakState{}, false, domain.StorageError("upsert streak", err)
	}
	if !applied {
		// a concurrent request already recorded this day
		stored, _, err := t.store.GetStreak(ctx, userID)
		if err != nil {
			return domain.StreakState{}, false, domain.StorageError("get streak", err)
		}
		return stored, false, nil
	}
	return next, true, nil
}

// Get returns the user's streak as it stands today. A streak whose last
// activity is older than yesterday reads as broken (current 0); nothing is
// written.
func (t *StreakTracker) Get(ctx context.Context, userID string) (domain.StreakState, error) {
	state, _, err := t.store.GetStreak(ctx, userID)
	if err != nil {
		return domain.StreakState{}, domain.StorageError("get streak", err)
	}
	today := t.calendar.Today(t.now())
	if state.LastActivityDate == nil || state.LastActivityDate.Before(today.AddDays(-1)) {
		state.CurrentStreak = 0
	}
	return state, nil
}

// AtRisk reports whether the user has a running streak that today's activity
// has not extended yet.
func (t *StreakTracker) AtRisk(ctx context.Context, userID string) (bool, error) {
	state, err := t.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	today := t.calendar.Today(t.now())
	return state.CurrentStreak > 0 && *state.LastActivityDate != today, nil
}

// AdvanceStreak applies one day of activity on today to prev. changed is false
// when prev already counts today or a later day.
func AdvanceStreak(prev domain.StreakState, today domain.Date) (domain.StreakState, bool) {
	if prev.LastActivityDate != nil && !prev.LastActivityDate.Before(today) {
		return prev, false
	}

	next := prev
	if prev.LastActivityDate != nil && *prev.LastActivityDate == today.AddDays(-1) {
		next.CurrentStreak = prev.CurrentStreak + 1
	} else {
		next.CurrentStreak = 1
	}
	if next.LongestStreak < next.CurrentStreak {
		next.LongestStreak = next.CurrentStreak
	}
	day := today
	next.LastActivityDate = &day
	return next, true
}
