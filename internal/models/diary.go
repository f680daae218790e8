package models

import (
	"time"

	"gorm.io/gorm"
)

// TranscriptPlaceholder 转录占位文本，接入语音识别前所有新日记都用它
const TranscriptPlaceholder = "这是刚刚录制的语音日记内容。"

// PublicFeedLimit 公开日记流单次返回的最大条数
const PublicFeedLimit = 20

type Diary struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	UserID          uint      `json:"userId" gorm:"index"` // 录音者
	Duration        int       `json:"duration"`            // 秒
	AudioURL        string    `json:"audioUrl" gorm:"size:1024"` // 对象存储里的公开访问地址
	Transcript      string    `json:"transcript" gorm:"type:text"`
	IsPublic        bool      `json:"isPublic" gorm:"index"`
	UserDisplayName string    `json:"userDisplayName" gorm:"size:128"` // 创建时的昵称快照
	CreatedAt       time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt       time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// DiaryEntry 对外暴露的日记条目结构，date/time 由 CreatedAt 派生
type DiaryEntry struct {
	ID              uint   `json:"id"`
	Date            string `json:"date"` // YYYY-MM-DD
	Time            string `json:"time"` // HH:MM
	Duration        int    `json:"duration"`
	AudioURL        string `json:"audioUrl"`
	Transcript      string `json:"transcript"`
	Timestamp       int64  `json:"timestamp"` // unix 毫秒
	UserDisplayName string `json:"userDisplayName,omitempty"`
	IsPublic        bool   `json:"isPublic,omitempty"`
}

// Entry 是行记录到对外结构的唯一转换点
func (d *Diary) Entry() DiaryEntry {
	return DiaryEntry{
		ID:              d.ID,
		Date:            d.CreatedAt.Format("2006-01-02"),
		Time:            d.CreatedAt.Format("15:04"),
		Duration:        d.Duration,
		AudioURL:        d.AudioURL,
		Transcript:      d.Transcript,
		Timestamp:       d.CreatedAt.UnixMilli(),
		UserDisplayName: d.UserDisplayName,
		IsPublic:        d.IsPublic,
	}
}

// CreateDiary 插入一条新日记，昵称取创建时刻的快照
func CreateDiary(db *gorm.DB, user *User, duration int, audioURL string, isPublic bool) (*Diary, error) {
	diary := &Diary{
		UserID:          user.ID,
		Duration:        duration,
		AudioURL:        audioURL,
		Transcript:      TranscriptPlaceholder,
		IsPublic:        isPublic,
		UserDisplayName: user.DisplayName,
	}
	if err := db.Create(diary).Error; err != nil {
		return nil, err
	}
	return diary, nil
}

// ListDiariesByUser 按创建时间倒序返回某个用户的全部日记，
// 时间相同的按 id 倒序保证顺序稳定
func ListDiariesByUser(db *gorm.DB, userID uint) ([]Diary, error) {
	var diaries []Diary
	err := db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&diaries).Error
	return diaries, err
}

// ListPublicDiaries 返回最新的公开日记
func ListPublicDiaries(db *gorm.DB, limit int) ([]Diary, error) {
	if limit <= 0 || limit > PublicFeedLimit {
		limit = PublicFeedLimit
	}
	var diaries []Diary
	err := db.Where("is_public = ?", true).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&diaries).Error
	return diaries, err
}

// CountDiariesByAudioURL 统计引用某个音频地址的行数，孤儿清理用
func CountDiariesByAudioURL(db *gorm.DB, audioURL string) (int64, error) {
	var n int64
	err := db.Model(&Diary{}).Where("audio_url = ?", audioURL).Count(&n).Error
	return n, err
}

// Migrate 建表
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &Diary{})
}
