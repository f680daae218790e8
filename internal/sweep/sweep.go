package sweep

import (
	"context"
	"time"

	"voiary/internal/models"
	"voiary/pkg/errors"
	"voiary/pkg/logger"
	"voiary/pkg/metrics"
	stores "voiary/pkg/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sweeper 清理没有任何日记行引用的音频对象。
// 行插入失败后的补偿删除也可能失败，这里兜底把漏网的孤儿收掉。
type Sweeper struct {
	db    *gorm.DB
	store stores.Store
	grace time.Duration // 太年轻的对象不动，可能正处于先写块后写行的窗口
}

func New(db *gorm.DB, store stores.Store, grace time.Duration) *Sweeper {
	if grace <= 0 {
		grace = time.Hour
	}
	return &Sweeper{db: db, store: store, grace: grace}
}

// Run 扫一遍对象存储，删除超过宽限期且无行引用的对象，返回删除数量。
// 单个对象的失败只记日志，不中断整轮清理。
func (s *Sweeper) Run(ctx context.Context) (int, error) {
	objects, err := s.store.List(ctx, "")
	if err != nil {
		return 0, errors.Wrap(err, "list audio objects")
	}

	cutoff := time.Now().Add(-s.grace)
	deleted := 0
	for _, obj := range objects {
		select {
		case <-ctx.Done():
			return deleted, ctx.Err()
		default:
		}
		if obj.ModTime.After(cutoff) {
			continue
		}
		n, err := models.CountDiariesByAudioURL(s.db, s.store.PublicURL(obj.Key))
		if err != nil {
			logger.Warn("sweep: count references failed", zap.String("key", obj.Key), zap.Error(err))
			continue
		}
		if n > 0 {
			continue
		}
		if err := s.store.Delete(ctx, obj.Key); err != nil {
			logger.Warn("sweep: delete orphan failed", zap.String("key", obj.Key), zap.Error(err))
			continue
		}
		logger.Info("sweep: deleted orphan audio", zap.String("key", obj.Key), zap.Int64("size", obj.Size))
		deleted++
	}
	if deleted > 0 {
		metrics.AddSweepDeleted(deleted)
	}
	return deleted, nil
}
