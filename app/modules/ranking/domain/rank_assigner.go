package rankingdomain

import (
	"cmp"
	"math"
	"slices"
)

// RankPolicy selects the ordering used by AssignRanks.
type RankPolicy struct {
	PPBearing bool
	Golf      bool
}

// PolicyFor derives the ranking policy of a leaderboard status under a context.
func PolicyFor(status DifficultyStatus, ctx Context) RankPolicy {
	return RankPolicy{PPBearing: status.PPBearing(), Golf: ctx == ContextGolf}
}

// RankEntry is the minimal projection of a score needed to rank it.
type RankEntry struct {
	ID            int64
	PP            float64
	Accuracy      float64
	ModifiedScore int
	Priority      int
	Timepost      int64
}

// RankAssignment is the rank given to one entry.
type RankAssignment struct {
	ID   int64
	Rank int
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// CompareForRanking orders a before b when it returns a negative number.
// Every comparison ends on timepost then id, so no two distinct entries tie.
func CompareForRanking(a, b RankEntry, p RankPolicy) int {
	accOrder := func() int {
		if p.Golf {
			return cmp.Compare(Round(a.Accuracy, 4), Round(b.Accuracy, 4))
		}
		return cmp.Compare(Round(b.Accuracy, 4), Round(a.Accuracy, 4))
	}

	if p.PPBearing {
		if c := cmp.Compare(Round(b.PP, 2), Round(a.PP, 2)); c != 0 {
			return c
		}
		if c := accOrder(); c != 0 {
			return c
		}
	} else {
		if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
			return c
		}
		scoreOrder := cmp.Compare(b.ModifiedScore, a.ModifiedScore)
		if p.Golf {
			scoreOrder = -scoreOrder
		}
		if scoreOrder != 0 {
			return scoreOrder
		}
		if c := accOrder(); c != 0 {
			return c
		}
	}

	if c := cmp.Compare(a.Timepost, b.Timepost); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// SortForRanking sorts entries in place into rank order.
func SortForRanking(entries []RankEntry, p RankPolicy) {
	slices.SortFunc(entries, func(a, b RankEntry) int {
		return CompareForRanking(a, b, p)
	})
}

// AssignRanks returns dense 1-based ranks for entries in rank order.
// The input slice is not modified.
func AssignRanks(entries []RankEntry, p RankPolicy) []RankAssignment {
	sorted := slices.Clone(entries)
	SortForRanking(sorted, p)

	out := make([]RankAssignment, len(sorted))
	for i, e := range sorted {
		out[i] = RankAssignment{ID: e.ID, Rank: i + 1}
	}
	return out
}
