package app

import (
	"fmt"
	"sort"

	"dentallearn/internal/domain"
)

// TopTen is the rank threshold tracked by NextMilestoneGap.
const TopTen = 10

// Ranking is a strict total order over one period's points. Ties in points are
// broken by ascending user id, so every entry gets a distinct rank.
type Ranking struct {
	entries []domain.RankedEntry
	index   map[string]int
}

// Rank orders entries by points descending, then user id ascending, and
// computes each entry's evolution against previous (user id -> rank). Duplicate
// user ids are summed.
func Rank(entries []domain.PointsEntry, previous map[string]int) Ranking {
	totals := make(map[string]int, len(entries))
	for _, e := range entries {
		totals[e.UserID] += e.Points
	}

	ranked := make([]domain.RankedEntry, 0, len(totals))
	for userID, points := range totals {
		ranked = append(ranked, domain.RankedEntry{UserID: userID, Points: points})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Points != ranked[j].Points {
			return ranked[i].Points > ranked[j].Points
		}
		return ranked[i].UserID < ranked[j].UserID
	})

	index := make(map[string]int, len(ranked))
	for i := range ranked {
		ranked[i].Rank = i + 1
		if prev, ok := previous[ranked[i].UserID]; ok {
			ranked[i].Evolution = domain.Evolution{Delta: prev - ranked[i].Rank}
		} else {
			ranked[i].Evolution = domain.Evolution{New: true}
		}
		index[ranked[i].UserID] = i
	}
	return Ranking{entries: ranked, index: index}
}

// Len is the number of ranked participants.
func (r Ranking) Len() int {
	return len(r.entries)
}

// Entries returns the ranking in order.
func (r Ranking) Entries() []domain.RankedEntry {
	out := make([]domain.RankedEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Ranks returns user id -> rank, suitable as the previous map of the next period.
func (r Ranking) Ranks() map[string]int {
	out := make(map[string]int, len(r.entries))
	for _, e := range r.entries {
		out[e.UserID] = e.Rank
	}
	return out
}

func (r Ranking) position(userID string) (int, error) {
	i, ok := r.index[userID]
	if !ok {
		return 0, fmt.Errorf("%w: user %s is not ranked", domain.ErrNotFound, userID)
	}
	return i, nil
}

// Entry returns the user's ranked entry.
func (r Ranking) Entry(userID string) (domain.RankedEntry, error) {
	i, err := r.position(userID)
	if err != nil {
		return domain.RankedEntry{}, err
	}
	return r.entries[i], nil
}

// Evolution returns the user's movement since the previous period.
func (r Ranking) Evolution(userID string) (domain.Evolution, error) {
	e, err := r.Entry(userID)
	if err != nil {
		return domain.Evolution{}, err
	}
	return e.Evolution, nil
}

// Podium returns the top three entries; a slot is nil when there are fewer
// participants.
func (r Ranking) Podium() [3]*domain.RankedEntry {
	var podium [3]*domain.RankedEntry
	for i := 0; i < len(podium) && i < len(r.entries); i++ {
		e := r.entries[i]
		podium[i] = &e
	}
	return podium
}

// Neighbors returns up to window entries above and below the user, plus the
// user's own entry, in rank order.
func (r Ranking) Neighbors(userID string, window int) ([]domain.RankedEntry, error) {
	i, err := r.position(userID)
	if err != nil {
		return nil, err
	}
	if window < 0 {
		window = 0
	}
	lo := i - window
	if lo < 0 {
		lo = 0
	}
	hi := i + window + 1
	if hi > len(r.entries) {
		hi = len(r.entries)
	}
	out := make([]domain.RankedEntry, hi-lo)
	copy(out, r.entries[lo:hi])
	return out, nil
}

// MilestoneGap holds the points still needed to climb. A nil field means the
// milestone is already reached.
type MilestoneGap struct {
	ToNextRank *int `json:"toNextRank"`
	ToTopTen   *int `json:"toTopTen"`
}

// NextMilestoneGap returns the points needed to overtake the entry one rank
// above and to enter the top ten.
func (r Ranking) NextMilestoneGap(userID string) (MilestoneGap, error) {
	i, err := r.position(userID)
	if err != nil {
		return MilestoneGap{}, err
	}
	me := r.entries[i]

	var gap MilestoneGap
	if i > 0 {
		n := pointsToOvertake(me, r.entries[i-1])
		gap.ToNextRank = &n
	}
	if me.Rank > TopTen {
		n := pointsToOvertake(me, r.entries[TopTen-1])
		gap.ToTopTen = &n
	}
	return gap, nil
}

// pointsToOvertake is the smallest increase that places me ahead of target
// under the points-then-id order.
func pointsToOvertake(me, target domain.RankedEntry) int {
	needed := target.Points - me.Points
	if me.UserID > target.UserID {
		needed++
	}
	if needed < 0 {
		needed = 0
	}
	return needed
}
