package rankingdomain

import (
	"cmp"
	"slices"
)

// PlayerStanding is a player's aggregate pp in one context.
type PlayerStanding struct {
	PlayerID string
	Country  string
	PP       float64
}

// GlobalRank is the global and country rank of one player. Zero means unranked.
type GlobalRank struct {
	PlayerID    string
	Country     string
	PP          float64
	Rank        int
	CountryRank int
}

// AssignGlobalRanks ranks players with positive pp by pp descending, player id
// ascending, and assigns per-country ranks in the same pass. Players with
// pp <= 0 are returned after the ranked ones with both ranks zero.
func AssignGlobalRanks(players []PlayerStanding) []GlobalRank {
	ranked := make([]PlayerStanding, 0, len(players))
	var unranked []PlayerStanding
	for _, p := range players {
		if Sanitize(p.PP) > 0 {
			ranked = append(ranked, p)
		} else {
			unranked = append(unranked, p)
		}
	}

	slices.SortFunc(ranked, func(a, b PlayerStanding) int {
		if c := cmp.Compare(b.PP, a.PP); c != 0 {
			return c
		}
		return cmp.Compare(a.PlayerID, b.PlayerID)
	})
	slices.SortFunc(unranked, func(a, b PlayerStanding) int {
		return cmp.Compare(a.PlayerID, b.PlayerID)
	})

	out := make([]GlobalRank, 0, len(players))
	countries := make(map[string]int)
	for i, p := range ranked {
		countries[p.Country]++
		out = append(out, GlobalRank{
			PlayerID:    p.PlayerID,
			Country:     p.Country,
			PP:          p.PP,
			Rank:        i + 1,
			CountryRank: countries[p.Country],
		})
	}
	for _, p := range unranked {
		out = append(out, GlobalRank{PlayerID: p.PlayerID, Country: p.Country, PP: p.PP})
	}
	return out
}
