package stores

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"voiary/pkg/errors"
)

// Store 对象存储接口：音频文件的持久化边界
type Store interface {
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Read(ctx context.Context, key string) (io.ReadCloser, int64, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	PublicURL(key string) string
}

type ObjectInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
}

type Config struct {
	Type      string `env:"STORAGE_TYPE"` // "local" 或 "minio"
	LocalDir  string `env:"STORAGE_LOCAL_DIR"`
	Endpoint  string `env:"MINIO_ENDPOINT"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	Bucket    string `env:"MINIO_BUCKET"`
	UseSSL    bool   `env:"MINIO_USE_SSL"`
	BaseURL   string `env:"STORAGE_PUBLIC_BASE"` // 对外访问域名，可选
}

// NewStore 根据配置创建存储实例
func NewStore(cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "local":
		return NewLocalStore(cfg)
	case "minio":
		return NewMinioStore(cfg), nil
	default:
		return nil, errors.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// ObjectKey 生成音频对象键：<用户ID>/<毫秒时间戳><扩展名>
func ObjectKey(userID uint, mimeType string) string {
	return fmt.Sprintf("%d/%d%s", userID, time.Now().UnixMilli(), ExtForMIME(mimeType))
}

// ExtForMIME maps a recording MIME type to a file extension.
func ExtForMIME(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	switch strings.TrimSpace(base) {
	case "audio/mp4":
		return ".mp4"
	case "audio/webm":
		return ".webm"
	case "audio/ogg":
		return ".ogg"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	}
	return ".bin"
}
