package worker

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdemStore 幂等窗口：SeenOnce 第一次见到 key 返回 false 并记录，窗口内再见返回 true。
type IdemStore interface {
	SeenOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// ----- 内存实现（单进程，测试/单机用） -----

type memIdem struct {
	mu  sync.Mutex
	m   map[string]time.Time // key → 过期时刻
	ttl time.Duration
}

func NewMemIdem(defaultTTL time.Duration) IdemStore {
	return &memIdem{m: make(map[string]time.Time), ttl: defaultTTL}
}

// SeenOnce 顺手清掉已过期的 key，不起后台 goroutine
func (mi *memIdem) SeenOnce(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = mi.ttl
	}
	mi.mu.Lock()
	defer mi.mu.Unlock()
	now := time.Now()
	for k, exp := range mi.m {
		if !exp.After(now) {
			delete(mi.m, k)
		}
	}
	if _, ok := mi.m[key]; ok {
		return true, nil
	}
	mi.m[key] = now.Add(ttl)
	return false, nil
}

// ----- Redis 实现（多 worker 实例共享窗口） -----

type redisIdem struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisIdem(rdb *redis.Client, prefix string) IdemStore {
	if prefix == "" {
		prefix = "event:idem:"
	}
	return &redisIdem{rdb: rdb, prefix: prefix}
}

func (ri *redisIdem) SeenOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	ok, err := ri.rdb.SetNX(ctx, ri.prefix+key, 1, ttl).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}
