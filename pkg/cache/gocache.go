package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// goCache 基于 patrickmn/go-cache 的实现，支持条目级过期
type goCache struct {
	c *gocache.Cache
}

// NewGoCache 创建 go-cache 缓存
func NewGoCache(_ Config) Cache {
	return &goCache{
		c: gocache.New(5*time.Minute, 10*time.Minute),
	}
}

func (g *goCache) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := g.c.Get(key)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

func (g *goCache) Set(_ context.Context, key string, value []byte, expiration time.Duration) error {
	g.c.Set(key, value, expiration)
	return nil
}

func (g *goCache) Delete(_ context.Context, key string) error {
	g.c.Delete(key)
	return nil
}

func (g *goCache) Close() error { return nil }
