package app

import (
	"sync"
	"time"
)

// WeekUpdate announces that a user's weekly points changed.
type WeekUpdate struct {
	Week   string    `json:"week"`
	UserID string    `json:"userId"`
	Points int       `json:"points"`
	At     time.Time `json:"at"`
}

// LeaderboardFeed fans weekly point changes out to live subscribers.
type LeaderboardFeed struct {
	mu          sync.Mutex
	subscribers map[chan WeekUpdate]struct{}
}

func NewLeaderboardFeed() *LeaderboardFeed {
	return &LeaderboardFeed{
		subscribers: make(map[chan WeekUpdate]struct{}),
	}
}

// Subscribe returns a channel of updates. The caller must invoke the returned
// cancel function to avoid leaks.
func (f *LeaderboardFeed) Subscribe() (<-chan WeekUpdate, func()) {
	ch := make(chan WeekUpdate, 8)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers u to every subscriber without blocking. A subscriber whose
// buffer is full loses its oldest pending update.
func (f *LeaderboardFeed) Publish(u WeekUpdate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		select {
		case ch <- u:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- u
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (f *LeaderboardFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}
