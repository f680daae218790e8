package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// localCache 本地缓存实现，基于带过期时间的 LRU
type localCache struct {
	lru *lru.LRU[string, []byte]
}

// NewLocalCache 创建本地缓存
func NewLocalCache(config Config) (Cache, error) {
	size := config.MaxSize
	if size <= 0 {
		size = 1024
	}
	return &localCache{
		lru: lru.NewLRU[string, []byte](size, nil, time.Minute),
	}, nil
}

func (lc *localCache) Get(_ context.Context, key string) ([]byte, bool) {
	return lc.lru.Get(key)
}

func (lc *localCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	// expirable.LRU 的 TTL 在构造时固定；条目级过期由 gocache/redis 后端提供
	lc.lru.Add(key, value)
	return nil
}

func (lc *localCache) Delete(_ context.Context, key string) error {
	lc.lru.Remove(key)
	return nil
}

func (lc *localCache) Close() error { return nil }
