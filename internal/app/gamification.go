package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dentallearn/internal/domain"
)

// Observer is told about gamification events. The metrics package implements it.
// StreakRecorded only fires when a day was newly counted.
type Observer interface {
	QuizCompleted(result AttemptResult)
	QuizRejected(err error)
	StreakRecorded(state domain.StreakState)
}

type nopObserver struct{}

func (nopObserver) QuizCompleted(AttemptResult)       {}
func (nopObserver) QuizRejected(error)                {}
func (nopObserver) StreakRecorded(domain.StreakState) {}

// Gamification ties the daily quiz, streaks and the weekly leaderboard
// together for one request, always against today's civil date.
type Gamification struct {
	quiz     *DailyQuizEngine
	streaks  *StreakTracker
	board    *LeaderboardService
	calendar domain.Calendar
	observer Observer
	now      func() time.Time
}

func NewGamification(quiz *DailyQuizEngine, streaks *StreakTracker, board *LeaderboardService, calendar domain.Calendar, observer Observer) *Gamification {
	return NewGamificationWithClock(quiz, streaks, board, calendar, observer, time.Now)
}

// NewGamificationWithClock pins the clock, for tests.
func NewGamificationWithClock(quiz *DailyQuizEngine, streaks *StreakTracker, board *LeaderboardService, calendar domain.Calendar, observer Observer, now func() time.Time) *Gamification {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Gamification{
		quiz:     quiz,
		streaks:  streaks,
		board:    board,
		calendar: calendar,
		observer: observer,
		now:      now,
	}
}

// Today is the current civil date.
func (g *Gamification) Today() domain.Date {
	return g.calendar.Today(g.now())
}

// Settings exposes the quiz settings clients need, such as the answer timeout.
func (g *Gamification) Settings() QuizSettings {
	return g.quiz.Settings()
}

// TodayQuestions returns today's questions for the user.
func (g *Gamification) TodayQuestions(ctx context.Context, userID string) (domain.Date, []domain.Question, error) {
	today := g.Today()
	qs, err := g.quiz.DailyQuestions(ctx, userID, today)
	return today, qs, err
}

// TodayStatus returns today's completed attempt, if any.
func (g *Gamification) TodayStatus(ctx context.Context, userID string) (domain.Date, domain.DailyQuizAttempt, bool, error) {
	today := g.Today()
	attempt, ok, err := g.quiz.Status(ctx, userID, today)
	return today, attempt, ok, err
}

// DailyQuizOutcome is the result of a submitted daily quiz.
type DailyQuizOutcome struct {
	Result AttemptResult
	Streak domain.StreakState
	// Deferred holds failures of the steps after the attempt was stored. The
	// attempt stands either way.
	Deferred error
}

// SubmitDailyQuiz replays and stores the user's quiz for the day it was
// served, credits the points to that day's week and counts the day for the
// streak. A quiz served yesterday is accepted until the grace period after
// midnight runs out.
func (g *Gamification) SubmitDailyQuiz(ctx context.Context, userID string, sub Submission) (DailyQuizOutcome, error) {
	now := g.now()
	day, err := g.quizDay(ctx, userID, sub, now)
	if err != nil {
		g.observer.QuizRejected(err)
		return DailyQuizOutcome{}, err
	}

	result, err := g.quiz.Replay(ctx, userID, day, sub)
	if err != nil {
		g.observer.QuizRejected(err)
		return DailyQuizOutcome{}, err
	}
	g.observer.QuizCompleted(result)

	at := now
	if day != g.calendar.Today(now) {
		at = day.In(g.calendar.Location())
	}
	out := DailyQuizOutcome{Result: result}
	var deferred []error
	if err := g.board.Record(ctx, userID, result.TotalPoints, at); err != nil {
		deferred = append(deferred, err)
	}
	streak, changed, err := g.streaks.UpdateOn(ctx, userID, day)
	if err != nil {
		deferred = append(deferred, err)
	} else {
		if changed {
			g.observer.StreakRecorded(streak)
		}
		out.Streak = streak
	}
	out.Deferred = errors.Join(deferred...)
	return out, nil
}

// quizDay resolves the day a submission belongs to. Without an explicit date,
// question ids that match yesterday's selection but not today's pick
// yesterday while the grace period lasts.
func (g *Gamification) quizDay(ctx context.Context, userID string, sub Submission, now time.Time) (domain.Date, error) {
	today := g.calendar.Today(now)
	yesterday := today.AddDays(-1)
	inGrace := now.Sub(today.In(g.calendar.Location())) <= g.quiz.Settings().SubmissionGrace()

	if sub.QuizDate != nil {
		switch {
		case *sub.QuizDate == today:
			return today, nil
		case *sub.QuizDate == yesterday && inGrace:
			return yesterday, nil
		}
		return domain.Date{}, fmt.Errorf("%w: %s", domain.ErrQuizClosed, *sub.QuizDate)
	}

	if inGrace && len(sub.QuestionIDs) > 0 &&
		!g.quiz.servedOn(ctx, userID, today, sub.QuestionIDs) &&
		g.quiz.servedOn(ctx, userID, yesterday, sub.QuestionIDs) {
		return yesterday, nil
	}
	return today, nil
}

// RecordActivity counts today for the user's streak.
func (g *Gamification) RecordActivity(ctx context.Context, userID string) (domain.StreakState, error) {
	state, changed, err := g.streaks.UpdateOn(ctx, userID, g.Today())
	if err != nil {
		return domain.StreakState{}, err
	}
	if changed {
		g.observer.StreakRecorded(state)
	}
	return state, nil
}

// Streak returns the user's streak as it reads today.
func (g *Gamification) Streak(ctx context.Context, userID string) (domain.StreakState, error) {
	return g.streaks.Get(ctx, userID)
}

// StreakAtRisk reports whether today's activity is still missing from a running streak.
func (g *Gamification) StreakAtRisk(ctx context.Context, userID string) (bool, error) {
	return g.streaks.AtRisk(ctx, userID)
}

// Leaderboard returns this week's ranking as seen by the user.
func (g *Gamification) Leaderboard(ctx context.Context, userID string, window int) (LeaderboardView, error) {
	if window <= 0 {
		window = DefaultNeighborWindow
	}
	return g.board.Current(ctx, userID, window)
}

// Subscribe follows weekly point changes. Without a feed the channel never
// delivers.
func (g *Gamification) Subscribe() (<-chan WeekUpdate, func()) {
	if g.board.feed == nil {
		return nil, func() {}
	}
	return g.board.feed.Subscribe()
}
