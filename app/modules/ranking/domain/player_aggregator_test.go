package rankingdomain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const day = 86400

func TestComputeWeightedPP(t *testing.T) {
	scores := []PlayerScore{
		{ID: 1, PP: 100, AccPP: 10, Ranked: true, Timepost: 1},
		{ID: 2, PP: 300, AccPP: 30, Ranked: true, Timepost: 2},
		{ID: 3, PP: 200, AccPP: 20, Ranked: true, Timepost: 3},
		{ID: 4, PP: 999, Ranked: false, Timepost: 4},
	}
	got := ComputeWeightedPP(scores)

	want := 300 + 200*PPWeightDecay + 100*PPWeightDecay*PPWeightDecay
	assert.InDelta(t, want, got.PP, 1e-9)
	assert.InDelta(t, want/10, got.AccPP, 1e-9)

	require.Len(t, got.Weights, 4)
	weights := map[int64]float64{}
	for _, w := range got.Weights {
		weights[w.ScoreID] = w.Weight
	}
	assert.Equal(t, 1.0, weights[2])
	assert.InDelta(t, PPWeightDecay, weights[3], 1e-12)
	assert.InDelta(t, PPWeightDecay*PPWeightDecay, weights[1], 1e-12)
	assert.Zero(t, weights[4], "unranked scores carry no weight")
	assert.Equal(t, int64(1), got.Weights[0].ScoreID, "weights are ordered by score id")
}

func TestComputeWeightedPP_SwapInvariance(t *testing.T) {
	a := []PlayerScore{
		{ID: 1, PP: 50, Ranked: true},
		{ID: 2, PP: 70, Ranked: true},
		{ID: 3, PP: 60, Ranked: true},
	}
	b := []PlayerScore{a[2], a[0], a[1]}
	assert.Equal(t, ComputeWeightedPP(a), ComputeWeightedPP(b))
}

func TestComputeWeightedPP_TiesAreStable(t *testing.T) {
	scores := []PlayerScore{
		{ID: 2, PP: 100, Ranked: true, Timepost: 5},
		{ID: 1, PP: 100, Ranked: true, Timepost: 5},
		{ID: 3, PP: 100, Ranked: true, Timepost: 1},
	}
	got := ComputeWeightedPP(scores)
	weights := map[int64]float64{}
	for _, w := range got.Weights {
		weights[w.ScoreID] = w.Weight
	}
	assert.Equal(t, 1.0, weights[3])
	assert.InDelta(t, PPWeightDecay, weights[1], 1e-12)
	assert.InDelta(t, PPWeightDecay*PPWeightDecay, weights[2], 1e-12)
}

func TestAggregatePlayer_EmptyIsZero(t *testing.T) {
	got := AggregatePlayer(nil)
	assert.Equal(t, PlayerAggregate{}, got)
}

func TestComputeStats(t *testing.T) {
	scores := []PlayerScore{
		{ID: 1, ModifiedScore: 100, Accuracy: 0.90, Rank: 1, Ranked: true, Timepost: 10 * day, Platform: "steam", HMD: "index"},
		{ID: 2, ModifiedScore: 300, Accuracy: 0.80, Rank: 4, Ranked: true, Timepost: 11 * day, Platform: "steam", HMD: "quest3"},
		{ID: 3, ModifiedScore: 200, Accuracy: 0.70, Rank: 2, Ranked: true, Timepost: 12 * day, Platform: "oculus", HMD: "quest3", BonusPP: 7},
		{ID: 4, ModifiedScore: 400, Accuracy: 0.60, Rank: 1, Ranked: false, Timepost: 20 * day, Platform: "steam"},
	}
	got := ComputeStats(scores)

	assert.Equal(t, 3, got.Ranked.PlayCount)
	assert.Equal(t, int64(600), got.Ranked.TotalScore)
	assert.Equal(t, 200.0, got.Ranked.MedianScore)
	assert.InDelta(t, 0.8, got.Ranked.AverageAccuracy, 1e-12)
	assert.Equal(t, 0.8, got.Ranked.MedianAccuracy)
	assert.Equal(t, 0.9, got.Ranked.TopAccuracy)
	assert.Equal(t, 1, got.Ranked.TopRank)
	assert.InDelta(t, 7.0/3, got.Ranked.AverageRank, 1e-12)

	assert.Equal(t, 4, got.All.PlayCount)
	assert.Equal(t, 250.0, got.All.MedianScore, "even count takes the mean of the middle pair")
	assert.Equal(t, 1.5, got.All.MedianRank)
	assert.Equal(t, 1, got.Unranked.PlayCount)

	assert.Equal(t, 2, got.Top1Count)
	assert.Equal(t, 1, got.RankedTop1Count)
	assert.Equal(t, 7.0, got.TopBonusPP)
	assert.Equal(t, int64(20*day), got.LastScoreTime)
	assert.Equal(t, "steam", got.TopPlatform)
	assert.Equal(t, "quest3", got.TopHMD)
	assert.Equal(t, map[string]int{"steam": 3, "oculus": 1}, got.Platforms)

	assert.Equal(t, 1, got.DailyStreak, "latest day stands alone")
	assert.Equal(t, 3, got.MaxDailyStreak)
}

func TestComputeStats_WeightedAccuracyAndRank(t *testing.T) {
	scores := []PlayerScore{
		{ID: 1, Accuracy: 0.9, Rank: 3, Ranked: true},
		{ID: 2, Accuracy: 0.8, Rank: 1, Ranked: true},
	}
	got := ComputeStats(scores)

	assert.InDelta(t, (0.9+0.8*AccuracyWeightDecay)/(1+AccuracyWeightDecay), got.AverageWeightedRankedAccuracy, 1e-12)

	var sum, weights float64
	for i := 0; i < WeightedWindow; i++ {
		w := math.Pow(RankWeightGrowth, float64(i))
		r := float64(i * MissingRankPenalty)
		switch i {
		case 0:
			r = 1
		case 1:
			r = 3
		}
		sum += r * w
		weights += w
	}
	assert.InDelta(t, sum/weights, got.AverageWeightedRankedRank, 1e-9)
}

func TestComputeStats_RecentWindow(t *testing.T) {
	var scores []PlayerScore
	for i := 0; i < RecentWindow+10; i++ {
		platform := "old"
		if i >= 10 {
			platform = "new"
		}
		scores = append(scores, PlayerScore{ID: int64(i + 1), Timepost: int64(i) * day, Platform: platform, Rank: 1})
	}
	got := ComputeStats(scores)

	assert.Equal(t, map[string]int{"new": RecentWindow}, got.Platforms)
	assert.Equal(t, RecentWindow, got.Top1Count)
	assert.Equal(t, RecentWindow, got.DailyStreak)
	assert.Nil(t, got.HMDs)
}
