package analytics

import (
	"context"
	"encoding/binary"
	"errors"
	"hash/fnv"
	"math"
	"strconv"
	"time"

	"RegimeEdge/pkg/cache"
	"RegimeEdge/pkg/logger"

	"golang.org/x/sync/singleflight"
)

// ScoreSnapshot is the cached input of a rolling scan together with its scores.
// Score k covers observations [k, k+Window).
type ScoreSnapshot struct {
	Window  int       `json:"window"`
	MaxLag  int       `json:"max_lag"`
	Times   []int64   `json:"times"`
	Leading []float64 `json:"leading"`
	Target  []float64 `json:"target"`
	Scores  []float64 `json:"scores"`
}

// ScoreResolution is what Resolve hands back to the classifier.
type ScoreResolution struct {
	Scores   []float64
	Reused   int
	Failures int
}

// ComputeFunc scores windows from index from to the end of the input.
type ComputeFunc func(ctx context.Context, from int) (scores []float64, failures int, err error)

// ScoreCache keeps the last rolling scan per pair and hands back the scores whose
// windows are unchanged in a new input.
type ScoreCache struct {
	svc     cache.Service
	ttl     time.Duration
	lockTTL time.Duration
	group   singleflight.Group
	log     *logger.Logger
}

func NewScoreCache(svc cache.Service, ttl time.Duration, log *logger.Logger) *ScoreCache {
	if log == nil {
		log = logger.Nop()
	}
	return &ScoreCache{svc: svc, ttl: ttl, lockTTL: 30 * time.Second, log: log}
}

// ReusableScores returns how many leading scores of cached stay valid for in.
// A score is valid only when every observation of its window is bit-identical.
func ReusableScores(cached, in ScoreSnapshot) int {
	if cached.Window != in.Window || cached.MaxLag != in.MaxLag || in.Window <= 0 {
		return 0
	}
	p := commonPrefix(cached, in)
	k := p - in.Window + 1
	if k < 0 {
		k = 0
	}
	if k > len(cached.Scores) {
		k = len(cached.Scores)
	}
	if total := len(in.Times) - in.Window; k > total {
		k = total
	}
	if k < 0 {
		return 0
	}
	return k
}

func commonPrefix(a, b ScoreSnapshot) int {
	n := min(len(a.Times), len(b.Times), len(a.Leading), len(b.Leading), len(a.Target), len(b.Target))
	for i := 0; i < n; i++ {
		if a.Times[i] != b.Times[i] ||
			math.Float64bits(a.Leading[i]) != math.Float64bits(b.Leading[i]) ||
			math.Float64bits(a.Target[i]) != math.Float64bits(b.Target[i]) {
			return i
		}
	}
	return n
}

// Resolve returns the scores of in, computing only windows the cache cannot serve.
// Concurrent calls for the same key and input share one computation. The refreshed
// snapshot is written only by the holder of the key's cache lock. Cache failures
// are logged and never fail the scan.
func (c *ScoreCache) Resolve(ctx context.Context, key string, in ScoreSnapshot, compute ComputeFunc) (ScoreResolution, error) {
	v, err, shared := c.group.Do(key+":"+fingerprint(in), func() (interface{}, error) {
		return c.refresh(ctx, key, in, compute)
	})
	if err != nil {
		return ScoreResolution{}, err
	}
	res := v.(ScoreResolution)
	if shared {
		res.Scores = append([]float64(nil), res.Scores...)
	}
	return res, nil
}

func (c *ScoreCache) refresh(ctx context.Context, key string, in ScoreSnapshot, compute ComputeFunc) (ScoreResolution, error) {
	var cached ScoreSnapshot
	if err := c.svc.Get(ctx, key, &cached); err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		c.log.Warn("score cache read failed", logger.String("key", key), logger.Error(err))
		cached = ScoreSnapshot{}
	}

	reuse := ReusableScores(cached, in)
	fresh, failures, err := compute(ctx, reuse)
	if err != nil {
		return ScoreResolution{}, err
	}

	scores := make([]float64, 0, reuse+len(fresh))
	scores = append(scores, cached.Scores[:reuse]...)
	scores = append(scores, fresh...)

	c.log.Debug("score cache resolved",
		logger.String("key", key),
		logger.Int("reused", reuse),
		logger.Int("computed", len(fresh)),
	)

	snap := in
	snap.Scores = scores
	c.store(ctx, key, snap)

	return ScoreResolution{Scores: scores, Reused: reuse, Failures: failures}, nil
}

func (c *ScoreCache) store(ctx context.Context, key string, snap ScoreSnapshot) {
	lockKey := key + ":lock"
	ok, err := c.svc.TryLock(ctx, lockKey, c.lockTTL)
	if err != nil {
		c.log.Warn("score cache lock failed", logger.String("key", key), logger.Error(err))
		return
	}
	if !ok {
		c.log.Debug("score cache write skipped, lock held elsewhere", logger.String("key", key))
		return
	}
	defer func() {
		if err := c.svc.Unlock(ctx, lockKey); err != nil {
			c.log.Warn("score cache unlock failed", logger.String("key", key), logger.Error(err))
		}
	}()

	if err := c.svc.Set(ctx, key, snap, c.ttl); err != nil {
		c.log.Warn("score cache write failed", logger.String("key", key), logger.Error(err))
	}
}

func fingerprint(s ScoreSnapshot) string {
	h := fnv.New64a()
	var buf [8]byte
	put := func(u uint64) {
		binary.LittleEndian.PutUint64(buf[:], u)
		_, _ = h.Write(buf[:])
	}
	put(uint64(s.Window))
	put(uint64(s.MaxLag))
	for i := range s.Times {
		put(uint64(s.Times[i]))
	}
	for i := range s.Leading {
		put(math.Float64bits(s.Leading[i]))
	}
	for i := range s.Target {
		put(math.Float64bits(s.Target[i]))
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
