package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"voiary/internal/models"
	"voiary/pkg/logger"
	"voiary/pkg/metrics"
	stores "voiary/pkg/storage"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

const publicFeedCacheKey = "feed:public"

// 获取当前用户的日记列表，按创建时间倒序
func (h *Handlers) handleListDiaries(c *gin.Context) {
	user := models.CurrentUser(c)

	diaries, err := models.ListDiariesByUser(h.db, user.ID)
	if err != nil {
		logger.Error("list diaries failed", zap.Uint("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load diaries"})
		return
	}

	entries := make([]models.DiaryEntry, 0, len(diaries))
	for i := range diaries {
		entries = append(entries, diaries[i].Entry())
	}
	c.JSON(http.StatusOK, entries)
}

// 上传一条新的语音日记：先写音频对象，再插元数据行。
// 行插入失败时尽力删除已写入的对象，避免留下孤儿文件。
func (h *Handlers) handleCreateDiary(c *gin.Context) {
	user := models.CurrentUser(c)

	file, err := c.FormFile("audio")
	durationStr := c.PostForm("duration")
	if err != nil || durationStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing audio file or duration"})
		return
	}
	duration, err := strconv.Atoi(durationStr)
	if err != nil || duration < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid duration"})
		return
	}
	isPublic := cast.ToBool(c.PostForm("is_public"))

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable audio file"})
		return
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ctx := c.Request.Context()
	key := stores.ObjectKey(user.ID, contentType)
	if err := h.store.Write(ctx, key, src, file.Size, contentType); err != nil {
		logger.Error("audio object write failed", zap.String("key", key), zap.Error(err))
		metrics.ObserveUpload(metrics.UploadStorageError)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}

	diary, err := models.CreateDiary(h.db, user, duration, h.store.PublicURL(key), isPublic)
	if err != nil {
		logger.Error("diary insert failed", zap.String("key", key), zap.Error(err))
		// 对象已落盘而行没写进去，尽力补偿删除；删除失败只记日志
		if derr := h.store.Delete(ctx, key); derr != nil {
			logger.Warn("orphan cleanup failed", zap.String("key", key), zap.Error(derr))
		}
		metrics.ObserveUpload(metrics.UploadDBError)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}

	metrics.ObserveUpload(metrics.UploadOK)
	if isPublic {
		if err := h.cache.Delete(ctx, publicFeedCacheKey); err != nil {
			logger.Warn("public feed cache invalidation failed", zap.Error(err))
		}
	}
	c.JSON(http.StatusCreated, diary.Entry())
}

// 获取最新的公开日记，无需登录，短 TTL 缓存
func (h *Handlers) handleListPublicDiaries(c *gin.Context) {
	ctx := c.Request.Context()

	if body, ok := h.cache.Get(ctx, publicFeedCacheKey); ok {
		c.Data(http.StatusOK, "application/json; charset=utf-8", body)
		return
	}

	diaries, err := models.ListPublicDiaries(h.db, models.PublicFeedLimit)
	if err != nil {
		logger.Error("list public diaries failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load public diaries"})
		return
	}

	entries := make([]models.DiaryEntry, 0, len(diaries))
	for i := range diaries {
		entries = append(entries, diaries[i].Entry())
	}

	body, err := json.Marshal(entries)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load public diaries"})
		return
	}
	if err := h.cache.Set(ctx, publicFeedCacheKey, body, h.publicTTL); err != nil {
		logger.Warn("public feed cache write failed", zap.Error(err))
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
