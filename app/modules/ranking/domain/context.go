package rankingdomain

import (
	"fmt"
	"strings"
)

// Context is a leaderboard context flag. A score's ValidContexts field is a
// bitset of these flags.
type Context int

const (
	ContextNone     Context = 0
	ContextGeneral  Context = 1 << 1
	ContextNoMods   Context = 1 << 2
	ContextNoPause  Context = 1 << 3
	ContextGolf     Context = 1 << 4
	ContextSpeedrun Context = 1 << 5
)

// AllContexts lists every concrete context in processing order.
var AllContexts = []Context{ContextGeneral, ContextNoMods, ContextNoPause, ContextGolf, ContextSpeedrun}

var contextNames = map[Context]string{
	ContextGeneral:  "general",
	ContextNoMods:   "nomods",
	ContextNoPause:  "nopause",
	ContextGolf:     "golf",
	ContextSpeedrun: "speedrun",
}

func (c Context) String() string {
	if name, ok := contextNames[c]; ok {
		return name
	}
	return fmt.Sprintf("context(%d)", int(c))
}

// Has reports whether every flag in other is set on c.
func (c Context) Has(other Context) bool {
	return other != ContextNone && c&other == other
}

// Split returns the concrete contexts contained in the bitset, in processing order.
func (c Context) Split() []Context {
	out := make([]Context, 0, len(AllContexts))
	for _, ctx := range AllContexts {
		if c.Has(ctx) {
			out = append(out, ctx)
		}
	}
	return out
}

// ParseContext parses a single context name.
func ParseContext(s string) (Context, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for ctx, name := range contextNames {
		if name == s {
			return ctx, nil
		}
	}
	return ContextNone, fmt.Errorf("%w: %q", ErrUnknownContext, s)
}

// ParseContexts parses a comma separated list of context names. An empty
// string yields AllContexts.
func ParseContexts(s string) ([]Context, error) {
	if strings.TrimSpace(s) == "" {
		return append([]Context(nil), AllContexts...), nil
	}
	var out []Context
	seen := map[Context]bool{}
	for _, part := range strings.Split(s, ",") {
		ctx, err := ParseContext(part)
		if err != nil {
			return nil, err
		}
		if !seen[ctx] {
			seen[ctx] = true
			out = append(out, ctx)
		}
	}
	return out, nil
}

// DifficultyStatus is the ranking status of a leaderboard's difficulty.
type DifficultyStatus int

const (
	StatusUnranked   DifficultyStatus = 0
	StatusNominated  DifficultyStatus = 1
	StatusQualified  DifficultyStatus = 2
	StatusRanked     DifficultyStatus = 3
	StatusUnrankable DifficultyStatus = 4
	StatusOutdated   DifficultyStatus = 5
	StatusInEvent    DifficultyStatus = 6
)

// PPBearing reports whether scores on a difficulty with this status earn pp.
func (s DifficultyStatus) PPBearing() bool {
	return s == StatusRanked || s == StatusQualified || s == StatusInEvent
}

func (s DifficultyStatus) String() string {
	switch s {
	case StatusUnranked:
		return "unranked"
	case StatusNominated:
		return "nominated"
	case StatusQualified:
		return "qualified"
	case StatusRanked:
		return "ranked"
	case StatusUnrankable:
		return "unrankable"
	case StatusOutdated:
		return "outdated"
	case StatusInEvent:
		return "inevent"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}
