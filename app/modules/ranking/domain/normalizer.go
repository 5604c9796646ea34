package rankingdomain

import "math"

// MaxAccuracy is the accuracy ceiling. Replays whose note count disagrees with
// the map can exceed the theoretical max score.
const MaxAccuracy = 1.29

// ScorePerNote is the base score of one perfectly hit note.
const ScorePerNote = 115

// NormalizeInput is the raw material for one normalization.
type NormalizeInput struct {
	BaseScore int
	Modifiers string
	// MaxScore is the leaderboard's explicit max score. Zero means derive it from Notes.
	MaxScore  int
	Notes     int
	PPBearing bool
	Values    ModifierValues
}

// Normalized is the derived score triple plus the parsed modifier codes.
type Normalized struct {
	ModifiedScore int
	Accuracy      float64
	Priority      int
	Modifiers     []string
}

// Normalize derives ModifiedScore, Accuracy and Priority from a raw score.
func Normalize(in NormalizeInput) (Normalized, error) {
	mods, err := ParseModifiers(in.Modifiers)
	if err != nil {
		return Normalized{}, err
	}

	values := in.Values
	if values == nil {
		values = DefaultModifierValues()
	}

	maxScore := in.MaxScore
	if maxScore <= 0 {
		maxScore = MaxScoreForNotes(in.Notes)
	}

	base := float64(in.BaseScore)
	var modified float64
	if in.PPBearing {
		modified = base * values.NegativeMultiplier(mods)
	} else {
		bonus := (float64(maxScore) - base) * (values.PositiveMultiplier(mods) - 1)
		modified = (base + bonus) * values.NegativeMultiplier(mods)
	}

	accuracy := 0.0
	if maxScore > 0 {
		accuracy = Sanitize(base / float64(maxScore))
	}
	accuracy = min(accuracy, MaxAccuracy)

	return Normalized{
		ModifiedScore: int(math.Round(Sanitize(modified))),
		Accuracy:      accuracy,
		Priority:      Priority(mods),
		Modifiers:     mods,
	}, nil
}

// MaxScoreForNotes computes the max score of a map from its note count using
// the combo multiplier ladder: 1x for the first note, 2x for the next 4,
// 4x for the next 8 and 8x for the rest.
func MaxScoreForNotes(notes int) int {
	switch {
	case notes <= 0:
		return 0
	case notes <= 1:
		return ScorePerNote * notes
	case notes <= 5:
		return ScorePerNote * (1 + (notes-1)*2)
	case notes <= 13:
		return ScorePerNote * (1 + 4*2 + (notes-5)*4)
	default:
		return ScorePerNote * (1 + 4*2 + 8*4 + (notes-13)*8)
	}
}

// Sanitize replaces NaN and infinities with zero.
func Sanitize(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
