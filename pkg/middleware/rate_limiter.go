package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RateLimiterConfig 限流配置
//
// Rate: "100-M"、PerRouteRates: {"/api/diaries": "30-M"}
// SkipPaths: ["/api/system/health", "/metrics"] 前缀匹配
// AddHeaders: 是否写标准限流响应头；DenyStatus/DenyMessage: 自定义拒绝响应
type RateLimiterConfig struct {
	Rate          string            `json:"rate"`
	PerRouteRates map[string]string `json:"per_route_rates"`
	SkipPaths     []string          `json:"skip_paths"`
	AddHeaders    bool              `json:"add_headers"`
	DenyStatus    int               `json:"deny_status"`
	DenyMessage   string            `json:"deny_message"`
}

var (
	rlMu    sync.RWMutex
	rlCfg   = RateLimiterConfig{Rate: "300-M", AddHeaders: true}
	rlStore = memory.NewStore()
)

// SetRateLimiterConfig 运行时更新限流配置
func SetRateLimiterConfig(cfg RateLimiterConfig) {
	rlMu.Lock()
	defer rlMu.Unlock()
	rlCfg = cfg
}

func GetRateLimiterConfig() RateLimiterConfig {
	rlMu.RLock()
	defer rlMu.RUnlock()
	return rlCfg
}

// RateLimiter 基于内存 store 的 IP+路由限流
func RateLimiter() gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg := GetRateLimiterConfig()
		path := c.Request.URL.Path

		for _, skip := range cfg.SkipPaths {
			if strings.HasPrefix(path, skip) {
				c.Next()
				return
			}
		}

		rateStr := cfg.Rate
		if override, ok := cfg.PerRouteRates[path]; ok {
			rateStr = override
		}
		rate, err := limiter.NewRateFromFormatted(rateStr)
		if err != nil {
			// 配置非法时放行，避免把整个服务限死
			c.Next()
			return
		}

		lim := limiter.New(rlStore, rate)
		lctx, err := lim.Get(c, c.ClientIP()+":"+path)
		if err != nil {
			c.Next()
			return
		}

		if cfg.AddHeaders {
			c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
			c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
			c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))
		}

		if lctx.Reached {
			status := cfg.DenyStatus
			if status == 0 {
				status = http.StatusTooManyRequests
			}
			msg := cfg.DenyMessage
			if msg == "" {
				msg = "too many requests"
			}
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}
		c.Next()
	}
}
