package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/apas/internal/domain/model"
	"github.com/okian/apas/pkg/metrics"
)

const defaultRedisKey = "apas:leaderboard"

// submitScript keeps the best score per athlete. The sorted set score packs
// the points above a descending insertion sequence so ZREVRANGE yields
// score DESC, first-reached ASC.
//
// KEYS: zset, entries hash, sequence counter. ARGV: athlete id, score, entry json.
// Returns 0 when kept, 1 when inserted, 2 when improved.
var submitScript = redis.NewScript(`
local cur = redis.call("HGET", KEYS[2], ARGV[1])
if cur then
    local old = cjson.decode(cur)
    if tonumber(old.score) >= tonumber(ARGV[2]) then
        return 0
    end
end
local seq = redis.call("INCR", KEYS[3])
local packed = tonumber(ARGV[2]) * 1000000000 + (1000000000 - seq)
redis.call("ZADD", KEYS[1], string.format("%.0f", packed), ARGV[1])
redis.call("HSET", KEYS[2], ARGV[1], ARGV[3])
if cur then
    return 2
end
return 1
`)

// RedisLeaderboard is a Leaderboard shared between portal replicas.
type RedisLeaderboard struct {
	rdb redis.UniversalClient
	key string
}

// NewRedisLeaderboard wraps a connected client.
func NewRedisLeaderboard(rdb redis.UniversalClient, opts ...RedisOption) *RedisLeaderboard {
	l := &RedisLeaderboard{rdb: rdb, key: defaultRedisKey}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *RedisLeaderboard) entriesKey() string { return l.key + ":entries" }
func (l *RedisLeaderboard) seqKey() string     { return l.key + ":seq" }

func (l *RedisLeaderboard) Submit(ctx context.Context, e model.LeaderboardEntry) (bool, error) {
	if err := validEntry(e); err != nil {
		metrics.RecordLeaderboardWrite("error")
		return false, err
	}
	start := time.Now()
	e.Rank = 0
	payload, err := json.Marshal(e)
	if err != nil {
		return false, fmt.Errorf("encode entry: %w", err)
	}
	res, err := submitScript.Run(ctx, l.rdb,
		[]string{l.key, l.entriesKey(), l.seqKey()},
		e.AthleteID, e.Score, string(payload),
	).Int()
	if err != nil {
		metrics.RecordLeaderboardWrite("error")
		return false, fmt.Errorf("redis submit: %w", err)
	}
	metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Nanoseconds()) / 1e6)
	switch res {
	case 0:
		metrics.RecordLeaderboardWrite("kept")
		return false, nil
	case 2:
		metrics.RecordLeaderboardWrite("improved")
	default:
		metrics.RecordLeaderboardWrite("inserted")
	}
	if n, err := l.rdb.ZCard(ctx, l.key).Result(); err == nil {
		metrics.UpdateLeaderboardSize(int(n))
	}
	return true, nil
}

func (l *RedisLeaderboard) TopN(ctx context.Context, n int, q Query) ([]model.LeaderboardEntry, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Nanoseconds()) / 1e6)
	}()

	stop := int64(n - 1)
	if q != (Query{}) {
		stop = -1
	}
	ids, err := l.rdb.ZRevRange(ctx, l.key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis range: %w", err)
	}
	if len(ids) == 0 {
		return []model.LeaderboardEntry{}, nil
	}
	raw, err := l.rdb.HMGet(ctx, l.entriesKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis entries: %w", err)
	}

	out := make([]model.LeaderboardEntry, 0, min(n, len(ids)))
	for i, v := range raw {
		if len(out) == n {
			break
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		var e model.LeaderboardEntry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			return nil, fmt.Errorf("decode entry %s: %w", ids[i], err)
		}
		e.Rank = i + 1
		if q.matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (l *RedisLeaderboard) Rank(ctx context.Context, athleteID string) (model.LeaderboardEntry, error) {
	pos, err := l.rdb.ZRevRank(ctx, l.key, athleteID).Result()
	if errors.Is(err, redis.Nil) {
		return model.LeaderboardEntry{}, fmt.Errorf("athlete %s: %w", athleteID, ErrNotFound)
	}
	if err != nil {
		return model.LeaderboardEntry{}, fmt.Errorf("redis rank: %w", err)
	}
	s, err := l.rdb.HGet(ctx, l.entriesKey(), athleteID).Result()
	if errors.Is(err, redis.Nil) {
		return model.LeaderboardEntry{}, fmt.Errorf("athlete %s: %w", athleteID, ErrNotFound)
	}
	if err != nil {
		return model.LeaderboardEntry{}, fmt.Errorf("redis entry: %w", err)
	}
	var e model.LeaderboardEntry
	if err := json.Unmarshal([]byte(s), &e); err != nil {
		return model.LeaderboardEntry{}, fmt.Errorf("decode entry %s: %w", athleteID, err)
	}
	e.Rank = int(pos) + 1
	return e, nil
}

func (l *RedisLeaderboard) Count(ctx context.Context) (int, error) {
	n, err := l.rdb.ZCard(ctx, l.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis count: %w", err)
	}
	return int(n), nil
}

// Reset drops every key the board owns.
func (l *RedisLeaderboard) Reset(ctx context.Context) error {
	return l.rdb.Del(ctx, l.key, l.entriesKey(), l.seqKey()).Err()
}
