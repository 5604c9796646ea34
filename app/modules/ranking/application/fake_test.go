package rankingservice

import (
	"context"
	"slices"
	"strings"
	"sync"

	rankingdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain"
	rankingevents "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain/events"
	rankingdb "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/infrastructure/repositories"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Ranking Repo
// ------------------------

// FakeRankingRepo is an in-memory Repository with the same filtering rules as
// the bun implementation. Func fields override single methods.
type FakeRankingRepo struct {
	mu    sync.Mutex
	trace []string

	scores       map[int64]*rankingdb.Score
	exts         map[int64]*rankingdb.ScoreContextExtension
	leaderboards map[string]*rankingdb.Leaderboard
	players      map[string]*rankingdb.Player
	playerExts   map[playerKey]*rankingdb.PlayerContextExtension
	clans        map[uuid.UUID]*rankingdb.Clan
	members      []rankingdb.ClanMember
	clanRankings map[string][]rankingdb.ClanRanking
	changes      []rankingdb.ClanRankingChange

	PatchScoresFunc       func(ctx context.Context, db bun.IDB, patches []rankingdb.ScorePatch) error
	PatchPlayersFunc      func(ctx context.Context, db bun.IDB, patches []rankingdb.PlayerPatch) error
	GetLeaderboardFunc    func(ctx context.Context, db bun.IDB, leaderboardID string) (*rankingdb.Leaderboard, error)
	ReplaceClanRankingsFn func(ctx context.Context, db bun.IDB, leaderboardID string, rankings []rankingdb.ClanRanking) error
}

func NewFakeRankingRepo() *FakeRankingRepo {
	return &FakeRankingRepo{
		trace:        []string{},
		scores:       map[int64]*rankingdb.Score{},
		exts:         map[int64]*rankingdb.ScoreContextExtension{},
		leaderboards: map[string]*rankingdb.Leaderboard{},
		players:      map[string]*rankingdb.Player{},
		playerExts:   map[playerKey]*rankingdb.PlayerContextExtension{},
		clans:        map[uuid.UUID]*rankingdb.Clan{},
		clanRankings: map[string][]rankingdb.ClanRanking{},
	}
}

func (f *FakeRankingRepo) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

// --- Seeding helpers ---

func (f *FakeRankingRepo) AddLeaderboard(lb rankingdb.Leaderboard) {
	f.leaderboards[lb.ID] = &lb
}

func (f *FakeRankingRepo) AddPlayer(p rankingdb.Player) {
	f.players[p.ID] = &p
}

func (f *FakeRankingRepo) AddScore(s rankingdb.Score) {
	if s.ValidContexts == 0 {
		s.ValidContexts = rankingdomain.ContextGeneral
	}
	f.scores[s.ID] = &s
}

func (f *FakeRankingRepo) AddExtension(e rankingdb.ScoreContextExtension) {
	f.exts[e.ID] = &e
}

func (f *FakeRankingRepo) AddClan(c rankingdb.Clan, playerIDs ...string) {
	f.clans[c.ID] = &c
	for _, id := range playerIDs {
		f.members = append(f.members, rankingdb.ClanMember{ClanID: c.ID, PlayerID: id})
	}
}

// --- Accessors for assertions ---

func (f *FakeRankingRepo) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeRankingRepo) Count(step string) int {
	n := 0
	for _, s := range f.Trace() {
		if s == step {
			n++
		}
	}
	return n
}

func (f *FakeRankingRepo) Score(id int64) rankingdb.Score {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.scores[id]
}

func (f *FakeRankingRepo) Extension(id int64) rankingdb.ScoreContextExtension {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.exts[id]
}

func (f *FakeRankingRepo) Leaderboard(id string) rankingdb.Leaderboard {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.leaderboards[id]
}

func (f *FakeRankingRepo) PlayerExt(id string, c rankingdomain.Context) (rankingdb.PlayerContextExtension, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ext, ok := f.playerExts[playerKey{context: c, playerID: id}]
	if !ok {
		return rankingdb.PlayerContextExtension{}, false
	}
	return *ext, true
}

func (f *FakeRankingRepo) Clan(id uuid.UUID) rankingdb.Clan {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.clans[id]
}

func (f *FakeRankingRepo) ClanRankings(leaderboardID string) []rankingdb.ClanRanking {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.clanRankings[leaderboardID])
}

func (f *FakeRankingRepo) Changes() []rankingdb.ClanRankingChange {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.changes)
}

// snapshot is the persisted derived state compared across runs.
type snapshot struct {
	Scores       map[int64]rankingdb.ScoreFields
	Extensions   map[int64]rankingdb.ScoreFields
	Players      map[string]rankingdb.PlayerFields
	Plays        map[string]int
	Captors      map[string]string
	ClanRankings map[string][]rankingdb.ClanRanking
	Clans        map[uuid.UUID]rankingdb.Clan
}

func (f *FakeRankingRepo) Snapshot() snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := snapshot{
		Scores:       map[int64]rankingdb.ScoreFields{},
		Extensions:   map[int64]rankingdb.ScoreFields{},
		Players:      map[string]rankingdb.PlayerFields{},
		Plays:        map[string]int{},
		Captors:      map[string]string{},
		ClanRankings: map[string][]rankingdb.ClanRanking{},
		Clans:        map[uuid.UUID]rankingdb.Clan{},
	}
	for id, s := range f.scores {
		out.Scores[id] = scoreFieldsOf(s.ModifiedScore, s.Accuracy, s.PP, s.AccPP, s.PassPP, s.TechPP, s.BonusPP, s.Rank, s.Priority, s.Weight)
	}
	for id, e := range f.exts {
		out.Extensions[id] = scoreFieldsOf(e.ModifiedScore, e.Accuracy, e.PP, e.AccPP, e.PassPP, e.TechPP, e.BonusPP, e.Rank, e.Priority, e.Weight)
	}
	for k, p := range f.playerExts {
		out.Players[k.context.String()+"/"+k.playerID] = rankingdb.PlayerFields{
			PP: p.PP, AccPP: p.AccPP, PassPP: p.PassPP, TechPP: p.TechPP,
			Rank: p.Rank, CountryRank: p.CountryRank, Stats: p.Stats,
		}
	}
	for id, lb := range f.leaderboards {
		out.Plays[id] = lb.Plays
		if lb.CaptorClanID != nil {
			out.Captors[id] = lb.CaptorClanID.String()
		}
	}
	for id, rs := range f.clanRankings {
		cp := slices.Clone(rs)
		for i := range cp {
			cp[i].LastUpdateTime = cp[i].LastUpdateTime.UTC()
		}
		out.ClanRankings[id] = cp
	}
	for id, c := range f.clans {
		cc := *c
		cc.UpdatedAt = cc.UpdatedAt.UTC()
		out.Clans[id] = cc
	}
	return out
}

func scoreFieldsOf(ms int, acc, pp, accPP, passPP, techPP, bonusPP float64, rank, priority int, weight float64) rankingdb.ScoreFields {
	return rankingdb.ScoreFields{
		ModifiedScore: ms, Accuracy: acc, PP: pp, AccPP: accPP, PassPP: passPP,
		TechPP: techPP, BonusPP: bonusPP, Rank: rank, Priority: priority, Weight: weight,
	}
}

func applyScoreColumns(dst *rankingdb.ScoreFields, src rankingdb.ScoreFields, cols []string) {
	for _, col := range cols {
		switch col {
		case rankingdb.ColModifiedScore:
			dst.ModifiedScore = src.ModifiedScore
		case rankingdb.ColAccuracy:
			dst.Accuracy = src.Accuracy
		case rankingdb.ColPP:
			dst.PP = src.PP
		case rankingdb.ColAccPP:
			dst.AccPP = src.AccPP
		case rankingdb.ColPassPP:
			dst.PassPP = src.PassPP
		case rankingdb.ColTechPP:
			dst.TechPP = src.TechPP
		case rankingdb.ColBonusPP:
			dst.BonusPP = src.BonusPP
		case rankingdb.ColRank:
			dst.Rank = src.Rank
		case rankingdb.ColPriority:
			dst.Priority = src.Priority
		case rankingdb.ColWeight:
			dst.Weight = src.Weight
		}
	}
}

// --- Repository Interface Implementation ---

func (f *FakeRankingRepo) GetScore(ctx context.Context, db bun.IDB, scoreID int64) (*rankingdb.Score, error) {
	f.record("GetScore")
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scores[scoreID]
	if !ok {
		return nil, rankingdb.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *FakeRankingRepo) ListLeaderboardScores(ctx context.Context, db bun.IDB, leaderboardID string, c rankingdomain.Context) ([]rankingdb.ScoreRow, error) {
	f.record("ListLeaderboardScores")
	f.mu.Lock()
	defer f.mu.Unlock()

	stale := func(rank int, pp, weight float64) bool { return rank != 0 || pp != 0 || weight != 0 }

	var rows []rankingdb.ScoreRow
	if c == rankingdomain.ContextGeneral {
		for _, s := range f.scores {
			if s.LeaderboardID != leaderboardID {
				continue
			}
			excluded := s.Banned || !s.ValidContexts.Has(c)
			if excluded && !stale(s.Rank, s.PP, s.Weight) {
				continue
			}
			rows = append(rows, rankingdb.ScoreRow{
				RowID: s.ID, ScoreID: s.ID, PlayerID: s.PlayerID, BaseScore: s.BaseScore,
				Modifiers: s.Modifiers, Timepost: s.Timepost, Qualification: s.Qualification,
				ModifiedScore: s.ModifiedScore, Accuracy: s.Accuracy, PP: s.PP, AccPP: s.AccPP,
				PassPP: s.PassPP, TechPP: s.TechPP, BonusPP: s.BonusPP, Rank: s.Rank,
				Priority: s.Priority, Weight: s.Weight, Excluded: excluded,
			})
		}
	} else {
		for _, e := range f.exts {
			if e.LeaderboardID != leaderboardID || e.Context != c || e.ScoreID == nil {
				continue
			}
			s, ok := f.scores[*e.ScoreID]
			if !ok {
				continue
			}
			excluded := e.Banned || s.Banned || !s.ValidContexts.Has(c)
			if excluded && !stale(e.Rank, e.PP, e.Weight) {
				continue
			}
			rows = append(rows, rankingdb.ScoreRow{
				RowID: e.ID, ScoreID: s.ID, PlayerID: e.PlayerID, BaseScore: e.BaseScore,
				Modifiers: e.Modifiers, Timepost: e.Timepost, Qualification: e.Qualification,
				ModifiedScore: e.ModifiedScore, Accuracy: e.Accuracy, PP: e.PP, AccPP: e.AccPP,
				PassPP: e.PassPP, TechPP: e.TechPP, BonusPP: e.BonusPP, Rank: e.Rank,
				Priority: e.Priority, Weight: e.Weight, Excluded: excluded,
			})
		}
	}
	slices.SortFunc(rows, func(a, b rankingdb.ScoreRow) int { return int(a.RowID - b.RowID) })
	return rows, nil
}

func (f *FakeRankingRepo) PatchScores(ctx context.Context, db bun.IDB, patches []rankingdb.ScorePatch) error {
	f.record("PatchScores")
	if f.PatchScoresFunc != nil {
		if err := f.PatchScoresFunc(ctx, db, patches); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range patches {
		if p.Context == rankingdomain.ContextGeneral {
			s, ok := f.scores[p.RowID]
			if !ok {
				continue
			}
			cur := scoreFieldsOf(s.ModifiedScore, s.Accuracy, s.PP, s.AccPP, s.PassPP, s.TechPP, s.BonusPP, s.Rank, s.Priority, s.Weight)
			applyScoreColumns(&cur, p.Fields, p.Columns)
			s.ModifiedScore, s.Accuracy, s.PP, s.AccPP, s.PassPP = cur.ModifiedScore, cur.Accuracy, cur.PP, cur.AccPP, cur.PassPP
			s.TechPP, s.BonusPP, s.Rank, s.Priority, s.Weight = cur.TechPP, cur.BonusPP, cur.Rank, cur.Priority, cur.Weight
			continue
		}
		e, ok := f.exts[p.RowID]
		if !ok {
			continue
		}
		cur := scoreFieldsOf(e.ModifiedScore, e.Accuracy, e.PP, e.AccPP, e.PassPP, e.TechPP, e.BonusPP, e.Rank, e.Priority, e.Weight)
		applyScoreColumns(&cur, p.Fields, p.Columns)
		e.ModifiedScore, e.Accuracy, e.PP, e.AccPP, e.PassPP = cur.ModifiedScore, cur.Accuracy, cur.PP, cur.AccPP, cur.PassPP
		e.TechPP, e.BonusPP, e.Rank, e.Priority, e.Weight = cur.TechPP, cur.BonusPP, cur.Rank, cur.Priority, cur.Weight
	}
	return nil
}

func (f *FakeRankingRepo) ResetScoreColumn(ctx context.Context, db bun.IDB, c rankingdomain.Context, column string) (int64, error) {
	f.record("ResetScoreColumn")
	if !slices.Contains([]string{
		rankingdb.ColModifiedScore, rankingdb.ColAccuracy, rankingdb.ColPP, rankingdb.ColAccPP,
		rankingdb.ColPassPP, rankingdb.ColTechPP, rankingdb.ColBonusPP, rankingdb.ColRank,
		rankingdb.ColPriority, rankingdb.ColWeight,
	}, column) {
		return 0, rankingdb.ErrUnknownColumn
	}

	var patches []rankingdb.ScorePatch
	f.mu.Lock()
	if c == rankingdomain.ContextGeneral {
		for id, s := range f.scores {
			if s.ValidContexts.Has(c) {
				patches = append(patches, rankingdb.ScorePatch{RowID: id, Context: c, Columns: []string{column}})
			}
		}
	} else {
		for id, e := range f.exts {
			if e.Context == c {
				patches = append(patches, rankingdb.ScorePatch{RowID: id, Context: c, Columns: []string{column}})
			}
		}
	}
	f.mu.Unlock()

	saved := f.PatchScoresFunc
	f.PatchScoresFunc = nil
	defer func() { f.PatchScoresFunc = saved }()
	if err := f.PatchScores(ctx, db, patches); err != nil {
		return 0, err
	}
	return int64(len(patches)), nil
}

func (f *FakeRankingRepo) GetLeaderboard(ctx context.Context, db bun.IDB, leaderboardID string) (*rankingdb.Leaderboard, error) {
	f.record("GetLeaderboard")
	if f.GetLeaderboardFunc != nil {
		return f.GetLeaderboardFunc(ctx, db, leaderboardID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	lb, ok := f.leaderboards[leaderboardID]
	if !ok {
		return nil, rankingdb.ErrNotFound
	}
	cp := *lb
	return &cp, nil
}

func (f *FakeRankingRepo) ListLeaderboardsPage(ctx context.Context, db bun.IDB, afterID string, limit int) ([]rankingdb.Leaderboard, error) {
	f.record("ListLeaderboardsPage")
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []rankingdb.Leaderboard
	for id, lb := range f.leaderboards {
		if id > afterID {
			out = append(out, *lb)
		}
	}
	slices.SortFunc(out, func(a, b rankingdb.Leaderboard) int { return strings.Compare(a.ID, b.ID) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *FakeRankingRepo) PatchLeaderboards(ctx context.Context, db bun.IDB, patches []rankingdb.LeaderboardPatch) error {
	f.record("PatchLeaderboards")
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range patches {
		if lb, ok := f.leaderboards[p.ID]; ok {
			lb.Plays = p.Plays
		}
	}
	return nil
}

func (f *FakeRankingRepo) CountRankedLeaderboards(ctx context.Context, db bun.IDB) (int, error) {
	f.record("CountRankedLeaderboards")
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, lb := range f.leaderboards {
		if lb.Status == rankingdomain.StatusRanked {
			n++
		}
	}
	return n, nil
}

func (f *FakeRankingRepo) GetPlayer(ctx context.Context, db bun.IDB, playerID string) (*rankingdb.Player, error) {
	f.record("GetPlayer")
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[playerID]
	if !ok {
		return nil, rankingdb.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *FakeRankingRepo) ListPlayerIDsPage(ctx context.Context, db bun.IDB, afterID string, limit int) ([]string, error) {
	f.record("ListPlayerIDsPage")
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id := range f.players {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (f *FakeRankingRepo) ListPlayerScores(ctx context.Context, db bun.IDB, playerID string, c rankingdomain.Context) ([]rankingdb.PlayerScoreRow, error) {
	f.record("ListPlayerScores")
	f.mu.Lock()
	defer f.mu.Unlock()

	var rows []rankingdb.PlayerScoreRow
	for _, s := range f.scores {
		if s.PlayerID != playerID || s.Banned || s.IgnoreForStats || !s.ValidContexts.Has(c) {
			continue
		}
		lb := f.leaderboards[s.LeaderboardID]
		if lb == nil {
			continue
		}
		if c == rankingdomain.ContextGeneral {
			rows = append(rows, rankingdb.PlayerScoreRow{
				RowID: s.ID, LeaderboardID: s.LeaderboardID, Status: lb.Status, Qualification: s.Qualification,
				ModifiedScore: s.ModifiedScore, Accuracy: s.Accuracy, PP: s.PP, AccPP: s.AccPP,
				PassPP: s.PassPP, TechPP: s.TechPP, BonusPP: s.BonusPP, Rank: s.Rank, Weight: s.Weight,
				Timepost: s.Timepost, Platform: s.Platform, HMD: s.HMD,
			})
			continue
		}
		for _, e := range f.exts {
			if e.ScoreID == nil || *e.ScoreID != s.ID || e.Context != c || e.Banned {
				continue
			}
			rows = append(rows, rankingdb.PlayerScoreRow{
				RowID: e.ID, LeaderboardID: e.LeaderboardID, Status: lb.Status, Qualification: e.Qualification,
				ModifiedScore: e.ModifiedScore, Accuracy: e.Accuracy, PP: e.PP, AccPP: e.AccPP,
				PassPP: e.PassPP, TechPP: e.TechPP, BonusPP: e.BonusPP, Rank: e.Rank, Weight: e.Weight,
				Timepost: e.Timepost, Platform: s.Platform, HMD: s.HMD,
			})
		}
	}
	slices.SortFunc(rows, func(a, b rankingdb.PlayerScoreRow) int { return int(a.RowID - b.RowID) })
	return rows, nil
}

func (f *FakeRankingRepo) GetPlayerExtension(ctx context.Context, db bun.IDB, playerID string, c rankingdomain.Context) (*rankingdb.PlayerContextExtension, error) {
	f.record("GetPlayerExtension")
	f.mu.Lock()
	defer f.mu.Unlock()
	ext, ok := f.playerExts[playerKey{context: c, playerID: playerID}]
	if !ok {
		return nil, rankingdb.ErrNotFound
	}
	cp := *ext
	return &cp, nil
}

func (f *FakeRankingRepo) ListPlayerStandings(ctx context.Context, db bun.IDB, c rankingdomain.Context) ([]rankingdb.PlayerStandingRow, error) {
	f.record("ListPlayerStandings")
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []rankingdb.PlayerStandingRow
	for id, p := range f.players {
		row := rankingdb.PlayerStandingRow{PlayerID: id, Country: p.Country}
		if ext, ok := f.playerExts[playerKey{context: c, playerID: id}]; ok {
			row.Rank, row.CountryRank = ext.Rank, ext.CountryRank
			if !p.Banned {
				row.PP = ext.PP
			}
		}
		rows = append(rows, row)
	}
	slices.SortFunc(rows, func(a, b rankingdb.PlayerStandingRow) int { return strings.Compare(a.PlayerID, b.PlayerID) })
	return rows, nil
}

func (f *FakeRankingRepo) PatchPlayers(ctx context.Context, db bun.IDB, patches []rankingdb.PlayerPatch) error {
	f.record("PatchPlayers")
	if f.PatchPlayersFunc != nil {
		if err := f.PatchPlayersFunc(ctx, db, patches); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range patches {
		key := playerKey{context: p.Context, playerID: p.PlayerID}
		ext, ok := f.playerExts[key]
		if !ok {
			ext = &rankingdb.PlayerContextExtension{
				PlayerID: p.PlayerID, Context: p.Context,
				PP: p.Fields.PP, AccPP: p.Fields.AccPP, PassPP: p.Fields.PassPP, TechPP: p.Fields.TechPP,
				Rank: p.Fields.Rank, CountryRank: p.Fields.CountryRank, Stats: p.Fields.Stats,
			}
			f.playerExts[key] = ext
			continue
		}
		for _, col := range p.Columns {
			switch col {
			case rankingdb.ColPP:
				ext.PP = p.Fields.PP
			case rankingdb.ColAccPP:
				ext.AccPP = p.Fields.AccPP
			case rankingdb.ColPassPP:
				ext.PassPP = p.Fields.PassPP
			case rankingdb.ColTechPP:
				ext.TechPP = p.Fields.TechPP
			case rankingdb.ColRank:
				ext.Rank = p.Fields.Rank
			case rankingdb.ColCountryRank:
				ext.CountryRank = p.Fields.CountryRank
			case rankingdb.ColStats:
				ext.Stats = p.Fields.Stats
			}
		}
	}
	return nil
}

func (f *FakeRankingRepo) GetClan(ctx context.Context, db bun.IDB, clanID uuid.UUID) (*rankingdb.Clan, error) {
	f.record("GetClan")
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clans[clanID]
	if !ok {
		return nil, rankingdb.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *FakeRankingRepo) ListClans(ctx context.Context, db bun.IDB) ([]rankingdb.Clan, error) {
	f.record("ListClans")
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []rankingdb.Clan
	for _, c := range f.clans {
		out = append(out, *c)
	}
	slices.SortFunc(out, func(a, b rankingdb.Clan) int { return strings.Compare(a.ID.String(), b.ID.String()) })
	return out, nil
}

func (f *FakeRankingRepo) ListClanScores(ctx context.Context, db bun.IDB, leaderboardID string) ([]rankingdb.ClanScoreRow, error) {
	f.record("ListClanScores")
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []rankingdb.ClanScoreRow
	for _, s := range f.scores {
		if s.LeaderboardID != leaderboardID || s.Banned || s.Qualification || s.PP <= 0 ||
			!s.ValidContexts.Has(rankingdomain.ContextGeneral) {
			continue
		}
		if p := f.players[s.PlayerID]; p == nil || p.Banned {
			continue
		}
		for _, m := range f.members {
			if m.PlayerID != s.PlayerID {
				continue
			}
			rows = append(rows, rankingdb.ClanScoreRow{
				ScoreID: s.ID, PlayerID: s.PlayerID, ClanID: m.ClanID, PP: s.PP,
				Accuracy: s.Accuracy, Rank: s.Rank, ModifiedScore: s.ModifiedScore,
			})
		}
	}
	slices.SortFunc(rows, func(a, b rankingdb.ClanScoreRow) int {
		if a.ScoreID != b.ScoreID {
			return int(a.ScoreID - b.ScoreID)
		}
		return strings.Compare(a.ClanID.String(), b.ClanID.String())
	})
	return rows, nil
}

func (f *FakeRankingRepo) ReplaceClanRankings(ctx context.Context, db bun.IDB, leaderboardID string, rankings []rankingdb.ClanRanking) error {
	f.record("ReplaceClanRankings")
	if f.ReplaceClanRankingsFn != nil {
		if err := f.ReplaceClanRankingsFn(ctx, db, leaderboardID, rankings); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(rankings) == 0 {
		delete(f.clanRankings, leaderboardID)
		return nil
	}
	f.clanRankings[leaderboardID] = slices.Clone(rankings)
	return nil
}

func (f *FakeRankingRepo) SetLeaderboardCaptor(ctx context.Context, db bun.IDB, leaderboardID string, clanID *uuid.UUID) error {
	f.record("SetLeaderboardCaptor")
	f.mu.Lock()
	defer f.mu.Unlock()
	if lb, ok := f.leaderboards[leaderboardID]; ok {
		if clanID == nil {
			lb.CaptorClanID = nil
		} else {
			id := *clanID
			lb.CaptorClanID = &id
		}
	}
	return nil
}

func (f *FakeRankingRepo) InsertClanRankingChange(ctx context.Context, db bun.IDB, change *rankingdb.ClanRankingChange) error {
	f.record("InsertClanRankingChange")
	f.mu.Lock()
	defer f.mu.Unlock()
	change.ID = int64(len(f.changes) + 1)
	f.changes = append(f.changes, *change)
	return nil
}

func (f *FakeRankingRepo) ListClanMembers(ctx context.Context, db bun.IDB, clanID uuid.UUID) ([]rankingdb.ClanMemberRow, error) {
	f.record("ListClanMembers")
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []rankingdb.ClanMemberRow
	for _, m := range f.members {
		if m.ClanID != clanID {
			continue
		}
		if p := f.players[m.PlayerID]; p == nil || p.Banned {
			continue
		}
		row := rankingdb.ClanMemberRow{PlayerID: m.PlayerID}
		if ext, ok := f.playerExts[playerKey{context: rankingdomain.ContextGeneral, playerID: m.PlayerID}]; ok {
			row.PP = ext.PP
			row.Rank = ext.Rank
			row.RankedAccuracy = ext.Stats.Ranked.AverageAccuracy
			row.RankedPlayCount = ext.Stats.Ranked.PlayCount
		}
		rows = append(rows, row)
	}
	slices.SortFunc(rows, func(a, b rankingdb.ClanMemberRow) int { return strings.Compare(a.PlayerID, b.PlayerID) })
	return rows, nil
}

func (f *FakeRankingRepo) CountCapturedLeaderboards(ctx context.Context, db bun.IDB, clanID uuid.UUID) (rankingdomain.CaptureCounts, error) {
	f.record("CountCapturedLeaderboards")
	f.mu.Lock()
	defer f.mu.Unlock()
	var counts rankingdomain.CaptureCounts
	for _, lb := range f.leaderboards {
		if lb.CaptorClanID != nil && *lb.CaptorClanID == clanID {
			counts.Total++
			if lb.Status == rankingdomain.StatusRanked {
				counts.Ranked++
			}
		}
	}
	return counts, nil
}

func (f *FakeRankingRepo) UpdateClanAggregate(ctx context.Context, db bun.IDB, clan *rankingdb.Clan) error {
	f.record("UpdateClanAggregate")
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.clans[clan.ID]
	if !ok {
		return nil
	}
	cur.PP = clan.PP
	cur.AverageAccuracy = clan.AverageAccuracy
	cur.AverageRank = clan.AverageRank
	cur.RankedPoolPercentCaptured = clan.RankedPoolPercentCaptured
	cur.CaptureLeaderboardsCount = clan.CaptureLeaderboardsCount
	cur.PlayersCount = clan.PlayersCount
	return nil
}

func (f *FakeRankingRepo) ListClanLeaderboardIDs(ctx context.Context, db bun.IDB, clanID uuid.UUID) ([]string, error) {
	f.record("ListClanLeaderboardIDs")
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[string]bool{}
	for _, m := range f.members {
		if m.ClanID != clanID {
			continue
		}
		for _, s := range f.scores {
			if s.PlayerID != m.PlayerID {
				continue
			}
			if lb := f.leaderboards[s.LeaderboardID]; lb != nil && lb.Status.PPBearing() {
				seen[lb.ID] = true
			}
		}
	}
	for id, lb := range f.leaderboards {
		if lb.CaptorClanID != nil && *lb.CaptorClanID == clanID {
			seen[id] = true
		}
	}
	for id, rankings := range f.clanRankings {
		for _, cr := range rankings {
			if cr.ClanID == clanID {
				seen[id] = true
			}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (f *FakeRankingRepo) ListClanRankedLeaderboardIDs(ctx context.Context, db bun.IDB) ([]string, error) {
	f.record("ListClanRankedLeaderboardIDs")
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.clanRankings))
	for id, rankings := range f.clanRankings {
		if len(rankings) > 0 {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// Ensure the fake actually satisfies the interface
var _ rankingdb.Repository = (*FakeRankingRepo)(nil)

// ------------------------
// Fake Notifier
// ------------------------

type FakeNotifier struct {
	mu       sync.Mutex
	Scores   []string
	Captures []string

	PublishScoreFunc func(ctx context.Context, contextName string) error
}

func (n *FakeNotifier) PublishScore(ctx context.Context, ev rankingevents.ScoreUpdatedEvent) error {
	n.mu.Lock()
	n.Scores = append(n.Scores, ev.Context)
	n.mu.Unlock()
	if n.PublishScoreFunc != nil {
		return n.PublishScoreFunc(ctx, ev.Context)
	}
	return nil
}

func (n *FakeNotifier) PublishClanCapture(ctx context.Context, ev rankingevents.ClanCaptureChangedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Captures = append(n.Captures, ev.Description)
	return nil
}

var _ Notifier = (*FakeNotifier)(nil)
