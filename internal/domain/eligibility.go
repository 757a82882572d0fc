package domain

import (
	"sort"
	"time"
)

const (
	minuteHeadroomWeight = 0.4
	dayHeadroomWeight    = 0.6
)

// Candidate is an eligible credential together with its priority score and
// the advanced (possibly reset, not yet persisted) window state.
type Candidate struct {
	Credential Credential
	Score      float64

	MinuteStart time.Time
	MinuteCount int
	DayStart    time.Time
	DayCount    int
}

// Evaluate decides whether a credential is usable at now and, if so, scores
// it by remaining headroom. Day headroom is weighted higher than minute
// headroom because daily exhaustion is the costlier failure mode.
func Evaluate(c Credential, now time.Time) (Candidate, bool) {
	if !c.Enabled {
		return Candidate{}, false
	}
	if !c.CooldownUntil.IsZero() && now.Before(c.CooldownUntil) {
		return Candidate{}, false
	}
	if c.RPMLimit <= 0 || c.RPDLimit <= 0 {
		return Candidate{}, false
	}

	minuteStart, minuteCount := AdvanceWindow(c.MinuteWindowStart, c.MinuteWindowCount, MinuteWindow, now)
	dayStart, dayCount := AdvanceWindow(c.DayWindowStart, c.DayWindowCount, DayWindow, now)

	if minuteCount >= c.RPMLimit || dayCount >= c.RPDLimit {
		return Candidate{}, false
	}

	minuteHeadroom := float64(c.RPMLimit-minuteCount) / float64(c.RPMLimit)
	dayHeadroom := float64(c.RPDLimit-dayCount) / float64(c.RPDLimit)

	return Candidate{
		Credential:  c,
		Score:       minuteHeadroomWeight*minuteHeadroom + dayHeadroomWeight*dayHeadroom,
		MinuteStart: minuteStart,
		MinuteCount: minuteCount,
		DayStart:    dayStart,
		DayCount:    dayCount,
	}, true
}

// SortCandidates orders candidates by descending score, then by ascending
// last-used time. A credential that was never used sorts before any that
// was, so equally scored keys round-robin least-recently-used first.
func SortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		left := candidates[i].Credential.LastUsedAt
		right := candidates[j].Credential.LastUsedAt
		if left.IsZero() != right.IsZero() {
			return left.IsZero()
		}
		return left.Before(right)
	})
}
