package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dentallearn/internal/domain"
)

// DefaultNeighborWindow is how many entries above and below the user are shown.
const DefaultNeighborWindow = 2

// WeeklyPoints is the per-ISO-week points aggregate.
type WeeklyPoints interface {
	WeeklyPoints(ctx context.Context, week domain.Week) ([]domain.PointsEntry, error)
	// AddPoints increments the user's total for week and returns the new total.
	AddPoints(ctx context.Context, week domain.Week, userID string, points int) (int, error)
}

// LeaderboardService composes the weekly aggregate with Rank.
type LeaderboardService struct {
	points   WeeklyPoints
	calendar domain.Calendar
	feed     *LeaderboardFeed
	now      func() time.Time
}

func NewLeaderboardService(points WeeklyPoints, calendar domain.Calendar, feed *LeaderboardFeed) *LeaderboardService {
	return NewLeaderboardServiceWithClock(points, calendar, feed, time.Now)
}

// NewLeaderboardServiceWithClock pins the clock, for tests.
func NewLeaderboardServiceWithClock(points WeeklyPoints, calendar domain.Calendar, feed *LeaderboardFeed, now func() time.Time) *LeaderboardService {
	return &LeaderboardService{points: points, calendar: calendar, feed: feed, now: now}
}

// LeaderboardView is the current week as seen by one user.
type LeaderboardView struct {
	Week         string                 `json:"week"`
	Participants int                    `json:"participants"`
	Podium       [3]*domain.RankedEntry `json:"podium"`
	Me           *domain.RankedEntry    `json:"me,omitempty"`
	Neighbors    []domain.RankedEntry   `json:"neighbors"`
	Gap          *MilestoneGap          `json:"gap,omitempty"`
}

// CurrentRanking ranks the current week against the previous one.
func (s *LeaderboardService) CurrentRanking(ctx context.Context) (domain.Week, Ranking, error) {
	week := s.calendar.Week(s.now())

	current, err := s.points.WeeklyPoints(ctx, week)
	if err != nil {
		return week, Ranking{}, domain.StorageError("weekly points", err)
	}
	previous, err := s.points.WeeklyPoints(ctx, week.Previous())
	if err != nil {
		return week, Ranking{}, domain.StorageError("previous weekly points", err)
	}

	prevRanks := Rank(nonZero(previous), nil).Ranks()
	return week, Rank(nonZero(current), prevRanks), nil
}

// Current builds the user's view of this week's leaderboard. A user without
// points this week still gets the podium, with Me left empty.
func (s *LeaderboardService) Current(ctx context.Context, userID string, window int) (LeaderboardView, error) {
	week, ranking, err := s.CurrentRanking(ctx)
	if err != nil {
		return LeaderboardView{}, err
	}

	view := LeaderboardView{
		Week:         week.String(),
		Participants: ranking.Len(),
		Podium:       ranking.Podium(),
		Neighbors:    []domain.RankedEntry{},
	}

	me, err := ranking.Entry(userID)
	if errors.Is(err, domain.ErrNotFound) {
		return view, nil
	}
	if err != nil {
		return LeaderboardView{}, err
	}
	view.Me = &me

	if view.Neighbors, err = ranking.Neighbors(userID, window); err != nil {
		return LeaderboardView{}, err
	}
	gap, err := ranking.NextMilestoneGap(userID)
	if err != nil {
		return LeaderboardView{}, err
	}
	view.Gap = &gap
	return view, nil
}

// Record credits points to the user's week containing at and notifies the feed.
func (s *LeaderboardService) Record(ctx context.Context, userID string, points int, at time.Time) error {
	if points < 0 {
		return fmt.Errorf("%w: negative points %d", domain.ErrInvalidResponse, points)
	}
	if points == 0 {
		return nil
	}
	week := s.calendar.Week(at)
	total, err := s.points.AddPoints(ctx, week, userID, points)
	if err != nil {
		return domain.StorageError("add weekly points", err)
	}
	if s.feed != nil {
		s.feed.Publish(WeekUpdate{Week: week.String(), UserID: userID, Points: total, At: at})
	}
	return nil
}

// nonZero drops users without points; they are not ranked.
func nonZero(entries []domain.PointsEntry) []domain.PointsEntry {
	out := entries[:0:0]
	for _, e := range entries {
		if e.Points > 0 {
			out = append(out, e)
		}
	}
	return out
}
