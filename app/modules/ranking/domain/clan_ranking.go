package rankingdomain

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// ClanScore is one eligible score on a leaderboard together with the clans
// of the player who set it.
type ClanScore struct {
	ScoreID       int64
	PlayerID      string
	ClanIDs       []uuid.UUID
	PP            float64
	Accuracy      float64
	Rank          int
	ModifiedScore int
}

// ClanScorePolicy combines one clan's member scores on a leaderboard into a
// single competing value.
type ClanScorePolicy interface {
	Name() string
	Combine(scores []ClanScore) float64
}

// WeightedPPPolicy sums member pp sorted descending with PPWeightDecay^i.
type WeightedPPPolicy struct{}

func (WeightedPPPolicy) Name() string { return "weighted_pp" }

func (WeightedPPPolicy) Combine(scores []ClanScore) float64 {
	pps := make([]float64, 0, len(scores))
	for _, s := range scores {
		pps = append(pps, s.PP)
	}
	slices.SortFunc(pps, func(a, b float64) int { return cmp.Compare(b, a) })

	total, weight := 0.0, 1.0
	for _, pp := range pps {
		total += pp * weight
		weight *= PPWeightDecay
	}
	return Sanitize(total)
}

// TopScorePolicy uses the single best member pp.
type TopScorePolicy struct{}

func (TopScorePolicy) Name() string { return "top_score" }

func (TopScorePolicy) Combine(scores []ClanScore) float64 {
	best := 0.0
	for _, s := range scores {
		best = max(best, s.PP)
	}
	return Sanitize(best)
}

// ClanPolicyByName resolves a configured policy name. Empty selects the default.
func ClanPolicyByName(name string) (ClanScorePolicy, error) {
	switch name {
	case "", WeightedPPPolicy{}.Name():
		return WeightedPPPolicy{}, nil
	case TopScorePolicy{}.Name():
		return TopScorePolicy{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownClanPolicy, name)
	}
}

// ClanStanding is one clan's result on one leaderboard.
type ClanStanding struct {
	ClanID          uuid.UUID
	Rank            int
	PP              float64
	AverageRank     float64
	AverageAccuracy float64
	TotalScore      int64
	Members         int
}

// CaptureChange records a captor transition on a leaderboard. A nil id means
// nobody held, or holds, the leaderboard.
type CaptureChange struct {
	LeaderboardID    string
	PreviousCaptorID *uuid.UUID
	CurrentCaptorID  *uuid.UUID
}

// ClanCapture is the outcome of ranking clans on one leaderboard.
type ClanCapture struct {
	Standings []ClanStanding
	CaptorID  *uuid.UUID
	// Change is nil when the captor did not change.
	Change *CaptureChange
}

// RankClans groups eligible scores by clan, combines each group with policy
// and orders clans by combined pp desc, total score desc, clan id asc. The top
// clan captures the leaderboard. When several clans tie exactly on pp at the
// top, previous keeps the leaderboard if it is one of them; otherwise the
// leaderboard is contested and has no captor.
func RankClans(leaderboardID string, scores []ClanScore, previous *uuid.UUID, policy ClanScorePolicy) ClanCapture {
	if policy == nil {
		policy = WeightedPPPolicy{}
	}

	groups := make(map[uuid.UUID][]ClanScore)
	for _, s := range scores {
		for _, clanID := range s.ClanIDs {
			groups[clanID] = append(groups[clanID], s)
		}
	}

	standings := make([]ClanStanding, 0, len(groups))
	for clanID, members := range groups {
		st := ClanStanding{
			ClanID:  clanID,
			PP:      policy.Combine(members),
			Members: len(members),
		}
		var rankSum, accSum float64
		for _, m := range members {
			rankSum += float64(m.Rank)
			accSum += m.Accuracy
			st.TotalScore += int64(m.ModifiedScore)
		}
		st.AverageRank = Sanitize(rankSum / float64(len(members)))
		st.AverageAccuracy = Sanitize(accSum / float64(len(members)))
		standings = append(standings, st)
	}

	slices.SortFunc(standings, func(a, b ClanStanding) int {
		if c := cmp.Compare(b.PP, a.PP); c != 0 {
			return c
		}
		if c := cmp.Compare(b.TotalScore, a.TotalScore); c != 0 {
			return c
		}
		return cmp.Compare(a.ClanID.String(), b.ClanID.String())
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}

	captor := pickCaptor(standings, previous)
	out := ClanCapture{Standings: standings, CaptorID: captor}
	if !sameClan(previous, captor) {
		out.Change = &CaptureChange{
			LeaderboardID:    leaderboardID,
			PreviousCaptorID: previous,
			CurrentCaptorID:  captor,
		}
	}
	return out
}

func pickCaptor(standings []ClanStanding, previous *uuid.UUID) *uuid.UUID {
	if len(standings) == 0 || standings[0].PP <= 0 {
		return nil
	}
	top := standings[0].PP
	tied := 1
	for tied < len(standings) && standings[tied].PP == top {
		tied++
	}
	if tied == 1 {
		id := standings[0].ClanID
		return &id
	}
	if previous != nil {
		for _, st := range standings[:tied] {
			if st.ClanID == *previous {
				id := st.ClanID
				return &id
			}
		}
	}
	return nil
}

func sameClan(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ClanMember is a member's context-wide aggregate used for clan aggregates.
type ClanMember struct {
	PlayerID        string
	PP              float64
	Rank            int
	RankedAccuracy  float64
	RankedPlayCount int
}

// ClanAggregate is the cluster-wide summary of a clan.
type ClanAggregate struct {
	PP                        float64
	AverageAccuracy           float64
	AverageRank               float64
	RankedPoolPercentCaptured float64
	CaptureLeaderboardsCount  int
	PlayersCount              int
}

// CaptureCounts is how many leaderboards a clan captures. Ranked counts only
// the captures on leaderboards in the ranked pool.
type CaptureCounts struct {
	Total  int
	Ranked int
}

// AggregateClan recomputes a clan's aggregate from its full membership and its
// current captures. The captured share of rankedPool never exceeds 1.
func AggregateClan(members []ClanMember, captures CaptureCounts, rankedPool int) ClanAggregate {
	out := ClanAggregate{
		PlayersCount:             len(members),
		CaptureLeaderboardsCount: captures.Total,
	}
	if rankedPool > 0 {
		ranked := min(captures.Ranked, rankedPool)
		out.RankedPoolPercentCaptured = Sanitize(float64(ranked) / float64(rankedPool))
	}

	sorted := slices.Clone(members)
	slices.SortFunc(sorted, func(a, b ClanMember) int {
		if c := cmp.Compare(b.PP, a.PP); c != 0 {
			return c
		}
		return cmp.Compare(a.PlayerID, b.PlayerID)
	})

	weight := 1.0
	var accs, ranks []float64
	for _, m := range sorted {
		out.PP += m.PP * weight
		weight *= PPWeightDecay
		if m.RankedPlayCount > 0 {
			accs = append(accs, m.RankedAccuracy)
		}
		if m.Rank > 0 {
			ranks = append(ranks, float64(m.Rank))
		}
	}
	out.PP = Sanitize(out.PP)
	out.AverageAccuracy = mean(accs)
	out.AverageRank = mean(ranks)
	return out
}
