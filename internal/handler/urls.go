package handlers

import (
	"time"

	"voiary/internal/models"
	"voiary/pkg/cache"
	"voiary/pkg/config"
	"voiary/pkg/middleware"
	"voiary/pkg/notification"
	stores "voiary/pkg/storage"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handlers struct {
	db        *gorm.DB
	store     stores.Store
	cache     cache.Cache
	mail      *notification.MailNotification // nil 表示未配置邮件
	publicTTL time.Duration
}

func NewHandlers(db *gorm.DB, store stores.Store, c cache.Cache) *Handlers {
	h := &Handlers{
		db:        db,
		store:     store,
		cache:     c,
		publicTTL: time.Duration(config.GlobalConfig.PublicFeedTTL) * time.Second,
	}
	if config.GlobalConfig.Mail.Enabled() {
		h.mail = notification.NewMailNotification(config.GlobalConfig.Mail)
	}
	return h
}

func (h *Handlers) Register(engine *gin.Engine) {
	r := engine.Group(config.GlobalConfig.APIPrefix)

	// Register Global Singleton DB
	r.Use(middleware.InjectDB(h.db))
	// Register System Module Routes
	h.registerSystemRoutes(r)

	// Register Business Module Routes
	h.registerAuthRoutes(r)
	h.registerDiaryRoutes(r)
}

// User Module
func (h *Handlers) registerAuthRoutes(r *gin.RouterGroup) {
	auth := r.Group(config.GlobalConfig.AuthPrefix)
	{
		auth.POST("/register", h.handleUserSignup)

		auth.GET("/confirm", h.handleUserConfirm)

		auth.POST("/login", h.handleUserSignin)

		auth.GET("/logout", models.AuthRequired, h.handleUserLogout)

		auth.GET("/info", models.AuthRequired, h.handleUserInfo)
	}
}

// Diary Module
func (h *Handlers) registerDiaryRoutes(r *gin.RouterGroup) {
	r.GET("/diaries", models.AuthRequired, h.handleListDiaries)

	r.POST("/diaries", models.AuthRequired, h.handleCreateDiary)

	r.GET("/public-diaries", h.handleListPublicDiaries)
}

func (h *Handlers) registerSystemRoutes(r *gin.RouterGroup) {
	system := r.Group("system")
	{
		system.POST("/rate-limiter/config", h.UpdateRateLimiterConfig)

		system.GET("/health", h.HealthCheck)
	}
}
