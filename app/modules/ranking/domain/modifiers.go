package rankingdomain

import (
	"fmt"
	"slices"
	"strings"
)

// Modifier codes recognised by the engine.
const (
	ModDisappearingArrows = "DA"
	ModFasterSong         = "FS"
	ModSuperFastSong      = "SF"
	ModSlowerSong         = "SS"
	ModGhostNotes         = "GN"
	ModNoArrows           = "NA"
	ModNoBombs            = "NB"
	ModNoFail             = "NF"
	ModNoObstacles        = "NO"
	ModProMode            = "PM"
	ModSmallCubes         = "SC"
	ModStrictAngles       = "SA"
	ModOldDots            = "OP"
)

// ModifierValues maps a modifier code to its additive multiplier value.
// Positive values reward, negative values penalise.
type ModifierValues map[string]float64

// DefaultModifierValues returns the values used when a leaderboard carries none.
func DefaultModifierValues() ModifierValues {
	return ModifierValues{
		ModDisappearingArrows: 0.0,
		ModFasterSong:         0.20,
		ModSuperFastSong:      0.36,
		ModSlowerSong:         -0.30,
		ModGhostNotes:         0.04,
		ModNoArrows:           -0.30,
		ModNoBombs:            -0.20,
		ModNoFail:             -0.50,
		ModNoObstacles:        -0.20,
		ModProMode:            0.0,
		ModSmallCubes:         0.0,
		ModStrictAngles:       0.0,
		ModOldDots:            0.0,
	}
}

// NegativeMultiplier is 1 plus the sum of the negative values of mods, floored at zero.
func (v ModifierValues) NegativeMultiplier(mods []string) float64 {
	m := 1.0
	for _, mod := range mods {
		if val := v[mod]; val < 0 {
			m += val
		}
	}
	return max(m, 0)
}

// PositiveMultiplier is 1 plus the sum of the positive values of mods.
func (v ModifierValues) PositiveMultiplier(mods []string) float64 {
	m := 1.0
	for _, mod := range mods {
		if val := v[mod]; val > 0 {
			m += val
		}
	}
	return m
}

// TotalMultiplier is 1 plus the sum of all values of mods. Speed modifiers are
// skipped when includeSpeed is false, as their effect is carried by the
// per-speed ratings instead.
func (v ModifierValues) TotalMultiplier(mods []string, includeSpeed bool) float64 {
	m := 1.0
	for _, mod := range mods {
		if !includeSpeed && isSpeedModifier(mod) {
			continue
		}
		m += v[mod]
	}
	return max(m, 0)
}

func isSpeedModifier(mod string) bool {
	return mod == ModFasterSong || mod == ModSuperFastSong || mod == ModSlowerSong
}

// ModifierRatings holds difficulty ratings re-measured under each speed modifier.
type ModifierRatings struct {
	FSAccRating  float64 `json:"fs_acc_rating"`
	FSPassRating float64 `json:"fs_pass_rating"`
	FSTechRating float64 `json:"fs_tech_rating"`
	SFAccRating  float64 `json:"sf_acc_rating"`
	SFPassRating float64 `json:"sf_pass_rating"`
	SFTechRating float64 `json:"sf_tech_rating"`
	SSAccRating  float64 `json:"ss_acc_rating"`
	SSPassRating float64 `json:"ss_pass_rating"`
	SSTechRating float64 `json:"ss_tech_rating"`
}

// RatingsFor returns the acc, pass and tech ratings for the speed modifier in
// mods. ok is false when mods has no speed modifier or the ratings are unset.
func (r *ModifierRatings) RatingsFor(mods []string) (acc, pass, tech float64, ok bool) {
	if r == nil {
		return 0, 0, 0, false
	}
	switch {
	case slices.Contains(mods, ModSuperFastSong):
		acc, pass, tech = r.SFAccRating, r.SFPassRating, r.SFTechRating
	case slices.Contains(mods, ModFasterSong):
		acc, pass, tech = r.FSAccRating, r.FSPassRating, r.FSTechRating
	case slices.Contains(mods, ModSlowerSong):
		acc, pass, tech = r.SSAccRating, r.SSPassRating, r.SSTechRating
	default:
		return 0, 0, 0, false
	}
	if acc == 0 && pass == 0 && tech == 0 {
		return 0, 0, 0, false
	}
	return acc, pass, tech, true
}

// ParseModifiers splits a comma separated modifier string into codes.
// Codes are two or three upper-case letters; duplicates are collapsed.
func ParseModifiers(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		code := strings.TrimSpace(part)
		if !validModifierCode(code) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidModifiers, s)
		}
		if !slices.Contains(out, code) {
			out = append(out, code)
		}
	}
	return out, nil
}

func validModifierCode(code string) bool {
	if len(code) < 2 || len(code) > 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// Priority is the tie-break class of a modifier set: NF is 3, NB or NA is 2,
// NO is 1 and everything else is 0. The highest class present wins.
func Priority(mods []string) int {
	switch {
	case slices.Contains(mods, ModNoFail):
		return 3
	case slices.Contains(mods, ModNoBombs), slices.Contains(mods, ModNoArrows):
		return 2
	case slices.Contains(mods, ModNoObstacles):
		return 1
	default:
		return 0
	}
}
