package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	handlers "voiary/internal/handler"
	"voiary/internal/models"
	"voiary/internal/sweep"
	"voiary/pkg/cache"
	"voiary/pkg/config"
	"voiary/pkg/logger"
	"voiary/pkg/metrics"
	"voiary/pkg/middleware"
	"voiary/pkg/scheduler"
	stores "voiary/pkg/storage"
	"voiary/pkg/util"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	if err := config.Load(); err != nil {
		panic(err)
	}
	cfg := config.GlobalConfig

	logger.Init(cfg.Log)
	defer logger.Sync()

	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := util.OpenDatabase(cfg.DBDriver, cfg.DSN)
	if err != nil {
		logger.Error("open database failed", zap.Error(err))
		os.Exit(1)
	}
	if err := models.Migrate(db); err != nil {
		logger.Error("migrate failed", zap.Error(err))
		os.Exit(1)
	}

	store, err := stores.NewStore(cfg.Storage)
	if err != nil {
		logger.Error("init object storage failed", zap.Error(err))
		os.Exit(1)
	}

	appCache, err := cache.NewCache(cfg.Cache)
	if err != nil {
		logger.Error("init cache failed", zap.Error(err))
		os.Exit(1)
	}
	defer appCache.Close()

	engine := gin.New()
	engine.Use(gin.Recovery())

	secret := cfg.SessionSecret
	if secret == "" {
		logger.Warn("SESSION_SECRET not set, using an insecure development secret")
		secret = "voiary-dev-secret"
	}
	sessionStore := cookie.NewStore([]byte(secret))
	expireDays := cfg.SessionExpireDays
	if expireDays <= 0 {
		expireDays = 7
	}
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   expireDays * 24 * 60 * 60,
		HttpOnly: true,
	})
	engine.Use(sessions.Sessions("voiary_session", sessionStore))

	engine.Use(middleware.RequestLog())
	engine.Use(metrics.MonitorMiddleware())

	// 上传接口单独限流，健康检查和抓取端点不限
	middleware.SetRateLimiterConfig(middleware.RateLimiterConfig{
		Rate:          "300-M",
		PerRouteRates: map[string]string{cfg.APIPrefix + "/diaries": cfg.UploadRate},
		SkipPaths:     []string{cfg.APIPrefix + "/system/health", "/metrics"},
		AddHeaders:    true,
	})
	engine.Use(middleware.RateLimiter())

	engine.GET("/metrics", metrics.Handler())

	// 本地存储时由服务自己吐音频文件
	if local, ok := store.(*stores.LocalStore); ok {
		engine.Static("/uploads", local.Dir())
	}

	handlers.NewHandlers(db, store, appCache).Register(engine)

	sweeper := sweep.New(db, store, time.Duration(cfg.SweepGraceMinutes)*time.Minute)
	sweepJob := scheduler.FuncJob(func(ctx context.Context) {
		if _, err := sweeper.Run(ctx); err != nil {
			logger.Warn("orphan sweep failed", zap.Error(err))
		}
	})

	cron := scheduler.NewCron(nil)
	if _, err := cron.Add(cfg.SweepSchedule, sweepJob); err != nil {
		logger.Error("schedule orphan sweep failed", zap.Error(err))
		os.Exit(1)
	}
	cron.Start()
	defer cron.Stop()

	// 启动后先补扫一轮，重启不用等下一个整点
	sched := scheduler.New()
	defer sched.Stop()
	sched.OnceAfter(time.Minute, sweepJob)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
