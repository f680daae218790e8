package feed

import (
	"context"
	"sync"

	"voiary/internal/models"

	"golang.org/x/text/language"
	"golang.org/x/text/search"
)

// FetchFunc 拉取一次服务端日记快照
type FetchFunc func(ctx context.Context) ([]models.DiaryEntry, error)

// Store 客户端侧的日记流，持有服务端快照加上乐观插入的新条目。
// 条目始终按 timestamp 倒序、相同时间按 id 倒序排列。
type Store struct {
	mu        sync.Mutex
	entries   []models.DiaryEntry
	hydrating bool
	pending   []models.DiaryEntry
}

func NewStore() *Store {
	return &Store{}
}

// Hydrate 用服务端快照整体替换本地条目。拉取期间到达的乐观插入
// 先排队，快照落地后再逐条补回，不会被覆盖丢失。
func (s *Store) Hydrate(ctx context.Context, fetch FetchFunc) error {
	s.mu.Lock()
	if s.hydrating {
		s.mu.Unlock()
		return nil
	}
	s.hydrating = true
	s.mu.Unlock()

	snapshot, err := fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrating = false
	if err != nil {
		s.pending = nil
		return err
	}
	s.entries = make([]models.DiaryEntry, len(snapshot))
	copy(s.entries, snapshot)
	for _, e := range s.pending {
		s.insertLocked(e)
	}
	s.pending = nil
	return nil
}

// InsertNew 乐观插入一条刚上传成功的日记
func (s *Store) InsertNew(e models.DiaryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hydrating {
		s.pending = append(s.pending, e)
		return
	}
	s.insertLocked(e)
}

// insertLocked 按序插入，id 已存在时跳过（快照里已经带上了这条）
func (s *Store) insertLocked(e models.DiaryEntry) {
	for _, held := range s.entries {
		if held.ID == e.ID {
			return
		}
	}
	i := 0
	for i < len(s.entries) {
		held := s.entries[i]
		if e.Timestamp > held.Timestamp ||
			(e.Timestamp == held.Timestamp && e.ID > held.ID) {
			break
		}
		i++
	}
	s.entries = append(s.entries, models.DiaryEntry{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = e
}

// Filter 在转录文本和日期串上做大小写折叠的子串匹配。
// 空查询返回全部条目，结果保持原有顺序。
func (s *Store) Filter(query string) []models.DiaryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if query == "" {
		return s.copyLocked(s.entries)
	}
	m := search.New(language.Und, search.Loose)
	var out []models.DiaryEntry
	for _, e := range s.entries {
		if start, _ := m.IndexString(e.Transcript, query); start >= 0 {
			out = append(out, e)
			continue
		}
		if start, _ := m.IndexString(e.Date, query); start >= 0 {
			out = append(out, e)
		}
	}
	return out
}

// Entries 当前全部条目的副本
func (s *Store) Entries() []models.DiaryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked(s.entries)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Reset 清空本地条目，登出后调用
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.pending = nil
}

func (s *Store) copyLocked(src []models.DiaryEntry) []models.DiaryEntry {
	out := make([]models.DiaryEntry, len(src))
	copy(out, src)
	return out
}
