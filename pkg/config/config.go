package config

import (
	"log"
	"os"

	"voiary/pkg/cache"
	"voiary/pkg/logger"
	"voiary/pkg/notification"
	storage "voiary/pkg/storage"
	"voiary/pkg/util"
)

// config/config.go
type Config struct {
	Addr              string `env:"ADDR"`
	Mode              string `env:"MODE"`
	DBDriver          string `env:"DB_DRIVER"`
	DSN               string `env:"DSN"`
	APIPrefix         string `env:"API_PREFIX"`
	AuthPrefix        string `env:"AUTH_PREFIX"`
	SessionSecret     string `env:"SESSION_SECRET"`
	SessionExpireDays int    `env:"SESSION_EXPIRE_DAYS"`
	BaseURL           string `env:"BASE_URL"`
	Log               logger.LogConfig
	Mail              notification.MailConfig
	Storage           storage.Config
	Cache             cache.Config
	UploadRate        string `env:"UPLOAD_RATE"`   // e.g. "30-M"
	PublicFeedTTL     int    `env:"PUBLIC_FEED_TTL"` // seconds
	SweepSchedule     string `env:"SWEEP_SCHEDULE"`  // cron expression
	SweepGraceMinutes int    `env:"SWEEP_GRACE_MINUTES"`
}

var GlobalConfig *Config

func Load() error {
	// 1. 根据环境加载 .env 文件
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	if err := util.LoadEnv(env); err != nil {
		log.Printf("Failed to load .env file: %v", err)
	}

	// 2. 加载全局配置
	GlobalConfig = &Config{
		Addr:              defaultStr(util.GetEnv("ADDR"), ":8080"),
		Mode:              util.GetEnv("MODE"),
		DBDriver:          util.GetEnv("DB_DRIVER"),
		DSN:               util.GetEnv("DSN"),
		APIPrefix:         defaultStr(util.GetEnv("API_PREFIX"), "/api"),
		AuthPrefix:        defaultStr(util.GetEnv("AUTH_PREFIX"), "auth"),
		SessionSecret:     util.GetEnv("SESSION_SECRET"),
		SessionExpireDays: int(util.GetIntEnv("SESSION_EXPIRE_DAYS")),
		BaseURL:           defaultStr(util.GetEnv("BASE_URL"), "http://localhost:8080"),
		Log: logger.LogConfig{
			Level:      util.GetEnv("LOG_LEVEL"),
			Filename:   util.GetEnv("LOG_FILENAME"),
			MaxSize:    int(util.GetIntEnv("LOG_MAX_SIZE")),
			MaxAge:     int(util.GetIntEnv("LOG_MAX_AGE")),
			MaxBackups: int(util.GetIntEnv("LOG_MAX_BACKUPS")),
		},
		Mail: notification.MailConfig{
			Host:     util.GetEnv("MAIL_HOST"),
			Username: util.GetEnv("MAIL_USERNAME"),
			Password: util.GetEnv("MAIL_PASSWORD"),
			Port:     int(util.GetIntEnv("MAIL_PORT")),
			From:     util.GetEnv("MAIL_FROM"),
		},
		Storage: storage.Config{
			Type:      defaultStr(util.GetEnv("STORAGE_TYPE"), "local"),
			LocalDir:  defaultStr(util.GetEnv("STORAGE_LOCAL_DIR"), "data/uploads"),
			Endpoint:  util.GetEnv("MINIO_ENDPOINT"),
			AccessKey: util.GetEnv("MINIO_ACCESS_KEY"),
			SecretKey: util.GetEnv("MINIO_SECRET_KEY"),
			Bucket:    defaultStr(util.GetEnv("MINIO_BUCKET"), "audio-uploads"),
			UseSSL:    util.GetBoolEnv("MINIO_USE_SSL"),
			BaseURL:   util.GetEnv("STORAGE_PUBLIC_BASE"),
		},
		Cache: cache.Config{
			Type:      defaultStr(util.GetEnv("CACHE_TYPE"), "local"),
			RedisAddr: util.GetEnv("REDIS_ADDR"),
			RedisPass: util.GetEnv("REDIS_PASSWORD"),
			RedisDB:   int(util.GetIntEnv("REDIS_DB")),
			MaxSize:   int(util.GetIntEnv("CACHE_MAX_SIZE")),
		},
		UploadRate:        defaultStr(util.GetEnv("UPLOAD_RATE"), "30-M"),
		PublicFeedTTL:     defaultInt(int(util.GetIntEnv("PUBLIC_FEED_TTL")), 30),
		SweepSchedule:     defaultStr(util.GetEnv("SWEEP_SCHEDULE"), "@hourly"),
		SweepGraceMinutes: defaultInt(int(util.GetIntEnv("SWEEP_GRACE_MINUTES")), 60),
	}
	return nil
}

func defaultStr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func defaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
