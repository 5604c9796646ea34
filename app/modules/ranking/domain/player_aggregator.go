package rankingdomain

import (
	"cmp"
	"math"
	"slices"
)

const (
	// PPWeightDecay is the per-position decay applied to a player's pp-sorted scores.
	PPWeightDecay = 0.965
	// AccuracyWeightDecay is the decay of the windowed weighted accuracy.
	AccuracyWeightDecay = 0.95
	// RankWeightGrowth is the growth of the windowed weighted rank.
	RankWeightGrowth = 1.05
	// WeightedWindow is the number of scores the windowed averages look at.
	WeightedWindow = 100
	// RecentWindow is the number of latest scores the histograms look at.
	RecentWindow = 50
	// MissingRankPenalty is multiplied by the slot index for empty window slots.
	MissingRankPenalty = 10
)

// PlayerScore is one score as seen by the player aggregator.
type PlayerScore struct {
	ID            int64
	LeaderboardID string
	PP            float64
	AccPP         float64
	PassPP        float64
	TechPP        float64
	BonusPP       float64
	Accuracy      float64
	ModifiedScore int
	Rank          int
	Timepost      int64
	// Ranked is true for pp-bearing scores that are not part of a qualification.
	Ranked   bool
	Platform string
	HMD      string
}

// ScoreWeight is the decayed weight assigned to one score.
type ScoreWeight struct {
	ScoreID int64
	Weight  float64
}

// WeightedPP is a player's decayed pp total and its components.
type WeightedPP struct {
	PP      float64
	AccPP   float64
	PassPP  float64
	TechPP  float64
	Weights []ScoreWeight
}

// PartitionStats summarises one subset of a player's scores.
type PartitionStats struct {
	PlayCount       int     `json:"play_count"`
	TotalScore      int64   `json:"total_score"`
	AverageScore    float64 `json:"average_score"`
	MedianScore     float64 `json:"median_score"`
	AverageAccuracy float64 `json:"average_accuracy"`
	MedianAccuracy  float64 `json:"median_accuracy"`
	TopAccuracy     float64 `json:"top_accuracy"`
	AverageRank     float64 `json:"average_rank"`
	MedianRank      float64 `json:"median_rank"`
	TopRank         int     `json:"top_rank"`
	TopPP           float64 `json:"top_pp"`
}

// PlayerScoreStats is the wide statistics snapshot stored per player and context.
type PlayerScoreStats struct {
	All      PartitionStats `json:"all"`
	Ranked   PartitionStats `json:"ranked"`
	Unranked PartitionStats `json:"unranked"`

	AverageWeightedRankedAccuracy float64 `json:"average_weighted_ranked_accuracy"`
	AverageWeightedRankedRank     float64 `json:"average_weighted_ranked_rank"`

	TopBonusPP float64 `json:"top_bonus_pp"`

	Top1Count       int            `json:"top1_count"`
	RankedTop1Count int            `json:"ranked_top1_count"`
	DailyStreak     int            `json:"daily_streak"`
	MaxDailyStreak  int            `json:"max_daily_streak"`
	TopPlatform     string         `json:"top_platform"`
	TopHMD          string         `json:"top_hmd"`
	Platforms       map[string]int `json:"platforms,omitempty"`
	HMDs            map[string]int `json:"hmds,omitempty"`
	LastScoreTime   int64          `json:"last_score_time"`
}

// PlayerAggregate is everything derived from one player's scores in one context.
type PlayerAggregate struct {
	Weighted WeightedPP
	Stats    PlayerScoreStats
}

// AggregatePlayer recomputes a player's aggregate from scratch.
func AggregatePlayer(scores []PlayerScore) PlayerAggregate {
	return PlayerAggregate{
		Weighted: ComputeWeightedPP(scores),
		Stats:    ComputeStats(scores),
	}
}

// comparePP orders ranked scores by pp descending with a stable tie-break.
func comparePP(a, b PlayerScore) int {
	if c := cmp.Compare(b.PP, a.PP); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Timepost, b.Timepost); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// ComputeWeightedPP sums the player's ranked scores by pp descending with
// weight PPWeightDecay^i. Unranked scores receive weight zero.
func ComputeWeightedPP(scores []PlayerScore) WeightedPP {
	var ranked []PlayerScore
	var out WeightedPP
	for _, s := range scores {
		if s.Ranked {
			ranked = append(ranked, s)
		} else {
			out.Weights = append(out.Weights, ScoreWeight{ScoreID: s.ID})
		}
	}
	slices.SortFunc(ranked, comparePP)

	weight := 1.0
	for _, s := range ranked {
		out.PP += s.PP * weight
		out.AccPP += s.AccPP * weight
		out.PassPP += s.PassPP * weight
		out.TechPP += s.TechPP * weight
		out.Weights = append(out.Weights, ScoreWeight{ScoreID: s.ID, Weight: weight})
		weight *= PPWeightDecay
	}

	out.PP = Sanitize(out.PP)
	out.AccPP = Sanitize(out.AccPP)
	out.PassPP = Sanitize(out.PassPP)
	out.TechPP = Sanitize(out.TechPP)
	slices.SortFunc(out.Weights, func(a, b ScoreWeight) int { return cmp.Compare(a.ScoreID, b.ScoreID) })
	return out
}

// ComputeStats builds the statistics snapshot. Empty input yields zeros.
func ComputeStats(scores []PlayerScore) PlayerScoreStats {
	var ranked, unranked []PlayerScore
	for _, s := range scores {
		if s.Ranked {
			ranked = append(ranked, s)
		} else {
			unranked = append(unranked, s)
		}
	}

	stats := PlayerScoreStats{
		All:      partitionStats(scores),
		Ranked:   partitionStats(ranked),
		Unranked: partitionStats(unranked),

		AverageWeightedRankedAccuracy: weightedAccuracy(ranked),
		AverageWeightedRankedRank:     weightedRank(ranked),
	}

	for _, s := range scores {
		stats.TopBonusPP = max(stats.TopBonusPP, s.BonusPP)
		stats.LastScoreTime = max(stats.LastScoreTime, s.Timepost)
	}

	recent := recentScores(scores, RecentWindow)
	if len(recent) > 0 {
		stats.Platforms = map[string]int{}
		stats.HMDs = map[string]int{}
	}
	for _, s := range recent {
		if s.Rank == 1 {
			stats.Top1Count++
			if s.Ranked {
				stats.RankedTop1Count++
			}
		}
		if s.Platform != "" {
			stats.Platforms[s.Platform]++
		}
		if s.HMD != "" {
			stats.HMDs[s.HMD]++
		}
	}
	stats.TopPlatform = topKey(stats.Platforms)
	stats.TopHMD = topKey(stats.HMDs)
	if len(stats.Platforms) == 0 {
		stats.Platforms = nil
	}
	if len(stats.HMDs) == 0 {
		stats.HMDs = nil
	}
	stats.DailyStreak, stats.MaxDailyStreak = dailyStreaks(recent)

	return stats
}

func partitionStats(scores []PlayerScore) PartitionStats {
	if len(scores) == 0 {
		return PartitionStats{}
	}

	n := len(scores)
	modified := make([]float64, 0, n)
	accuracies := make([]float64, 0, n)
	var ranks []float64

	out := PartitionStats{PlayCount: n}
	var accSum float64
	for _, s := range scores {
		out.TotalScore += int64(s.ModifiedScore)
		modified = append(modified, float64(s.ModifiedScore))
		accuracies = append(accuracies, s.Accuracy)
		accSum += s.Accuracy
		out.TopAccuracy = max(out.TopAccuracy, s.Accuracy)
		out.TopPP = max(out.TopPP, s.PP)
		if s.Rank > 0 {
			ranks = append(ranks, float64(s.Rank))
			if out.TopRank == 0 || s.Rank < out.TopRank {
				out.TopRank = s.Rank
			}
		}
	}

	out.AverageScore = float64(out.TotalScore) / float64(n)
	out.MedianScore = median(modified)
	out.AverageAccuracy = Sanitize(accSum / float64(n))
	out.MedianAccuracy = median(accuracies)
	out.AverageRank = mean(ranks)
	out.MedianRank = median(ranks)
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return Sanitize(sum / float64(len(values)))
}

// median returns the middle value, or the mean of the two middle values for
// an even count. values is sorted in place.
func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	slices.Sort(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}

func weightedAccuracy(ranked []PlayerScore) float64 {
	accs := make([]float64, 0, len(ranked))
	for _, s := range ranked {
		accs = append(accs, s.Accuracy)
	}
	slices.SortFunc(accs, func(a, b float64) int { return cmp.Compare(b, a) })
	if len(accs) > WeightedWindow {
		accs = accs[:WeightedWindow]
	}

	var sum, weights float64
	weight := 1.0
	for _, acc := range accs {
		sum += acc * weight
		weights += weight
		weight *= AccuracyWeightDecay
	}
	if weights == 0 {
		return 0
	}
	return Sanitize(sum / weights)
}

// weightedRank averages the best ranks with growing weights. Slots past the
// player's score count are filled with a penalty of i*MissingRankPenalty.
func weightedRank(ranked []PlayerScore) float64 {
	if len(ranked) == 0 {
		return 0
	}
	ranks := make([]int, 0, len(ranked))
	for _, s := range ranked {
		if s.Rank > 0 {
			ranks = append(ranks, s.Rank)
		}
	}
	slices.Sort(ranks)

	var sum, weights float64
	for i := 0; i < WeightedWindow; i++ {
		weight := math.Pow(RankWeightGrowth, float64(i))
		rank := float64(i * MissingRankPenalty)
		if i < len(ranks) {
			rank = float64(ranks[i])
		}
		sum += rank * weight
		weights += weight
	}
	return Sanitize(sum / weights)
}

func recentScores(scores []PlayerScore, n int) []PlayerScore {
	recent := slices.Clone(scores)
	slices.SortFunc(recent, func(a, b PlayerScore) int {
		if c := cmp.Compare(b.Timepost, a.Timepost); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if len(recent) > n {
		recent = recent[:n]
	}
	return recent
}

// topKey returns the most frequent key, lowest key first on equal counts.
func topKey(counts map[string]int) string {
	best, bestCount := "", 0
	for k, c := range counts {
		if c > bestCount || (c == bestCount && k < best) {
			best, bestCount = k, c
		}
	}
	return best
}

// dailyStreaks counts consecutive UTC days with at least one score. current is
// the streak ending on the latest scored day; longest is the best in the window.
func dailyStreaks(recent []PlayerScore) (current, longest int) {
	days := make([]int64, 0, len(recent))
	for _, s := range recent {
		day := s.Timepost / 86400
		if len(days) == 0 || days[len(days)-1] != day {
			days = append(days, day)
		}
	}
	if len(days) == 0 {
		return 0, 0
	}
	slices.SortFunc(days, func(a, b int64) int { return cmp.Compare(b, a) })
	days = slices.Compact(days)

	run := 1
	longest = 1
	current = 0
	for i := 1; i < len(days); i++ {
		if days[i-1]-days[i] == 1 {
			run++
		} else {
			if current == 0 {
				current = run
			}
			run = 1
		}
		longest = max(longest, run)
	}
	if current == 0 {
		current = run
	}
	return current, longest
}
