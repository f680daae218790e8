package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"voiary/internal/models"
	"voiary/pkg/cache"
	"voiary/pkg/config"
	stores "voiary/pkg/storage"
	"voiary/pkg/util"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	engine *gin.Engine
	h      *Handlers
	store  *stores.LocalStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config.GlobalConfig = &config.Config{
		APIPrefix:     "/api",
		AuthPrefix:    "auth",
		BaseURL:       "http://voiary.test",
		PublicFeedTTL: 30,
	}

	db, err := util.OpenDatabase("", "")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.Migrate(db))

	store, err := stores.NewLocalStore(stores.Config{LocalDir: t.TempDir(), BaseURL: "http://cdn.test"})
	require.NoError(t, err)

	c, err := cache.NewLocalCache(cache.Config{MaxSize: 16})
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(sessions.Sessions("voiary_session", cookie.NewStore([]byte("test-secret"))))

	h := NewHandlers(db, store, c)
	h.Register(engine)
	return &testServer{engine: engine, h: h, store: store}
}

func (ts *testServer) do(req *http.Request, sessionCookie string) *httptest.ResponseRecorder {
	if sessionCookie != "" {
		req.Header.Set("Cookie", sessionCookie)
	}
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

// signUpAndIn registers an activated user and returns the session cookie.
func (ts *testServer) signUpAndIn(t *testing.T, email, displayName string) string {
	t.Helper()

	body, _ := json.Marshal(gin.H{"email": email, "password": "secret123", "displayName": displayName})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := ts.do(req, "")
	require.Equal(t, http.StatusOK, w.Code)

	body, _ = json.Marshal(gin.H{"email": email, "password": "secret123"})
	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = ts.do(req, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 0, resp.Code, "login should succeed: %s", w.Body.String())

	cookies := w.Header().Values("Set-Cookie")
	require.NotEmpty(t, cookies)
	return cookies[0]
}

func uploadRequest(t *testing.T, fields map[string]string, audio []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if audio != nil {
		fw, err := mw.CreateFormFile("audio", "diary-recording.webm")
		require.NoError(t, err)
		_, err = fw.Write(audio)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/diaries", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestListDiariesUnauthenticated(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/api/diaries", nil), "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["error"])
}

func TestCreateDiary(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.signUpAndIn(t, "a@example.com", "小鹿")

	w := ts.do(uploadRequest(t, map[string]string{"duration": "42"}, []byte("opus-bytes")), cookie)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var entry models.DiaryEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entry))
	assert.Equal(t, 42, entry.Duration)
	assert.NotEmpty(t, entry.AudioURL)
	assert.Equal(t, models.TranscriptPlaceholder, entry.Transcript)
	assert.NotZero(t, entry.ID)
	assert.NotEmpty(t, entry.Date)
	assert.NotEmpty(t, entry.Time)

	// 对象真实落盘
	infos, err := ts.store.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, infos, 1)

	// 列表返回刚创建的条目
	w = ts.do(httptest.NewRequest(http.MethodGet, "/api/diaries", nil), cookie)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []models.DiaryEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)
}

func TestCreateDiaryMissingAudio(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.signUpAndIn(t, "a@example.com", "小鹿")

	w := ts.do(uploadRequest(t, map[string]string{"duration": "42"}, nil), cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 失败的上传不会在列表里留下半截条目
	w = ts.do(httptest.NewRequest(http.MethodGet, "/api/diaries", nil), cookie)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []models.DiaryEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Empty(t, entries)
}

func TestCreateDiaryMissingDuration(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.signUpAndIn(t, "a@example.com", "小鹿")

	w := ts.do(uploadRequest(t, nil, []byte("opus-bytes")), cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateDiaryRowInsertFailureCleansUpBlob(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.signUpAndIn(t, "a@example.com", "小鹿")

	// 删掉表，强制行插入失败
	require.NoError(t, ts.h.db.Migrator().DropTable(&models.Diary{}))

	w := ts.do(uploadRequest(t, map[string]string{"duration": "5"}, []byte("opus-bytes")), cookie)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	// 补偿删除已执行，没有孤儿对象
	infos, err := ts.store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, infos)

	// 恢复表后列表依旧为空
	require.NoError(t, models.Migrate(ts.h.db))
	w = ts.do(httptest.NewRequest(http.MethodGet, "/api/diaries", nil), cookie)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []models.DiaryEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Empty(t, entries)
}

func TestDiariesAreOwnerScoped(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signUpAndIn(t, "alice@example.com", "alice")
	bob := ts.signUpAndIn(t, "bob@example.com", "bob")

	w := ts.do(uploadRequest(t, map[string]string{"duration": "3"}, []byte("a")), alice)
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(httptest.NewRequest(http.MethodGet, "/api/diaries", nil), bob)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []models.DiaryEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Empty(t, entries)
}

func TestPublicDiaries(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.signUpAndIn(t, "a@example.com", "小鹿")

	for i := 0; i < models.PublicFeedLimit+3; i++ {
		w := ts.do(uploadRequest(t, map[string]string{
			"duration":  fmt.Sprintf("%d", i),
			"is_public": "true",
		}, []byte("opus")), cookie)
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w := ts.do(uploadRequest(t, map[string]string{"duration": "1"}, []byte("opus")), cookie)
	require.Equal(t, http.StatusCreated, w.Code)

	// 公开流无需登录
	w = ts.do(httptest.NewRequest(http.MethodGet, "/api/public-diaries", nil), "")
	require.Equal(t, http.StatusOK, w.Code)

	var entries []models.DiaryEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Len(t, entries, models.PublicFeedLimit)
	for i, e := range entries {
		assert.True(t, e.IsPublic)
		assert.Equal(t, "小鹿", e.UserDisplayName)
		if i > 0 {
			assert.GreaterOrEqual(t, entries[i-1].Timestamp, e.Timestamp)
			if entries[i-1].Timestamp == e.Timestamp {
				assert.Greater(t, entries[i-1].ID, e.ID)
			}
		}
	}
}

func TestPublicDiariesCacheInvalidation(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.signUpAndIn(t, "a@example.com", "小鹿")

	// 预热缓存
	w := ts.do(httptest.NewRequest(http.MethodGet, "/api/public-diaries", nil), "")
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(uploadRequest(t, map[string]string{"duration": "2", "is_public": "1"}, []byte("opus")), cookie)
	require.Equal(t, http.StatusCreated, w.Code)

	// 新公开条目使缓存失效，立刻可见
	w = ts.do(httptest.NewRequest(http.MethodGet, "/api/public-diaries", nil), "")
	require.Equal(t, http.StatusOK, w.Code)
	var entries []models.DiaryEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Len(t, entries, 1)
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(httptest.NewRequest(http.MethodGet, "/api/system/health", nil), "")
	assert.Equal(t, http.StatusOK, w.Code)
}
