package rankcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	rankingdomain "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain"
	"github.com/redis/go-redis/v9"
)

// ErrEmpty is returned by Top when the mirror holds nothing for a context.
var ErrEmpty = errors.New("rankcache: no rankings mirrored")

// Mirror keeps the global ranking of each context in Redis. Ranks live in a
// sorted set scored by rank; the rest of each row lives in a hash.
type Mirror struct {
	rdb    redis.UniversalClient
	prefix string
	logger *slog.Logger
}

// NewMirror creates a Redis-backed ranking mirror. Keys are namespaced by prefix.
func NewMirror(rdb redis.UniversalClient, prefix string, logger *slog.Logger) *Mirror {
	if prefix == "" {
		prefix = "ranking"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{rdb: rdb, prefix: prefix, logger: logger}
}

type entry struct {
	Country     string  `json:"c"`
	PP          float64 `json:"pp"`
	CountryRank int     `json:"cr"`
}

func (m *Mirror) ranksKey(c rankingdomain.Context) string {
	return fmt.Sprintf("%s:global:%s", m.prefix, c)
}

func (m *Mirror) rowsKey(c rankingdomain.Context) string {
	return fmt.Sprintf("%s:rows:%s", m.prefix, c)
}

// Replace swaps the mirrored ranking of c for ranks. Unranked rows are not stored.
// The new data is staged under temporary keys and renamed in one transaction.
func (m *Mirror) Replace(ctx context.Context, c rankingdomain.Context, ranks []rankingdomain.GlobalRank) error {
	ranksKey, rowsKey := m.ranksKey(c), m.rowsKey(c)
	stageRanks, stageRows := ranksKey+":staging", rowsKey+":staging"

	members := make([]redis.Z, 0, len(ranks))
	rows := make(map[string]any, len(ranks))
	for _, r := range ranks {
		if r.Rank == 0 {
			continue
		}
		data, err := json.Marshal(entry{Country: r.Country, PP: r.PP, CountryRank: r.CountryRank})
		if err != nil {
			return fmt.Errorf("rankcache.Replace: %w", err)
		}
		members = append(members, redis.Z{Score: float64(r.Rank), Member: r.PlayerID})
		rows[r.PlayerID] = data
	}

	_, err := m.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, stageRanks, stageRows)
		if len(members) == 0 {
			pipe.Del(ctx, ranksKey, rowsKey)
			return nil
		}
		pipe.ZAdd(ctx, stageRanks, members...)
		pipe.HSet(ctx, stageRows, rows)
		pipe.Rename(ctx, stageRanks, ranksKey)
		pipe.Rename(ctx, stageRows, rowsKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("rankcache.Replace: %w", err)
	}

	m.logger.DebugContext(ctx, "Ranking mirror replaced",
		slog.String("context", c.String()),
		slog.Int("players", len(members)),
	)
	return nil
}

// Top returns the best n mirrored players of c.
func (m *Mirror) Top(ctx context.Context, c rankingdomain.Context, n int) ([]rankingdomain.GlobalRank, error) {
	if n <= 0 {
		return nil, nil
	}
	ids, err := m.rdb.ZRange(ctx, m.ranksKey(c), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("rankcache.Top: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrEmpty
	}

	values, err := m.rdb.HMGet(ctx, m.rowsKey(c), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("rankcache.Top: %w", err)
	}

	out := make([]rankingdomain.GlobalRank, 0, len(ids))
	for i, id := range ids {
		raw, ok := values[i].(string)
		if !ok {
			return nil, fmt.Errorf("rankcache.Top: row for %s missing", id)
		}
		var e entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("rankcache.Top: %w", err)
		}
		out = append(out, rankingdomain.GlobalRank{
			PlayerID:    id,
			Country:     e.Country,
			PP:          e.PP,
			Rank:        i + 1,
			CountryRank: e.CountryRank,
		})
	}
	return out, nil
}
