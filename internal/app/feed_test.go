package app_test

import (
	"testing"
	"time"

	"dentallearn/internal/app"
)

func TestFeedDeliversUpdates(t *testing.T) {
	feed := app.NewLeaderboardFeed()
	ch, cancel := feed.Subscribe()
	defer cancel()

	feed.Publish(app.WeekUpdate{Week: "2026-W43", UserID: "u1", Points: 10})

	select {
	case u := <-ch:
		if u.UserID != "u1" || u.Points != 10 {
			t.Fatalf("unexpected update %+v", u)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected update")
	}
}

func TestFeedDropsStaleUpdatesForSlowSubscribers(t *testing.T) {
	feed := app.NewLeaderboardFeed()
	ch, cancel := feed.Subscribe()
	defer cancel()

	for i := 1; i <= 20; i++ {
		feed.Publish(app.WeekUpdate{UserID: "u1", Points: i})
	}

	var last app.WeekUpdate
	for len(ch) > 0 {
		last = <-ch
	}
	if last.Points != 20 {
		t.Fatalf("expected latest update to survive, got %+v", last)
	}
}

func TestFeedCancelClosesChannel(t *testing.T) {
	feed := app.NewLeaderboardFeed()
	ch, cancel := feed.Subscribe()
	if feed.Subscribers() != 1 {
		t.Fatalf("expected one subscriber")
	}
	cancel()
	cancel() // second cancel is a no-op

	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	if feed.Subscribers() != 0 {
		t.Fatalf("expected no subscribers")
	}
	feed.Publish(app.WeekUpdate{UserID: "u1"})
}
