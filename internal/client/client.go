package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"voiary/internal/models"
	"voiary/internal/recorder"
	"voiary/pkg/response"
	stores "voiary/pkg/storage"
)

// ErrUnauthorized 会话缺失或已过期
var ErrUnauthorized = errors.New("not signed in")

// ErrUploadFailed 上传失败的统一错误，失败的录音不会出现在任何列表里
var ErrUploadFailed = errors.New("upload failed")

// Client 访问日记服务的 HTTP 客户端，cookie 罐里保存会话。
// 所有请求带 60 秒超时，录音上传不允许无限挂起。
type Client struct {
	base string
	http *http.Client

	authenticated bool
}

func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Jar: jar, Timeout: 60 * time.Second},
	}, nil
}

// Authenticated 实现 recorder.AccessGate
func (c *Client) Authenticated() bool { return c.authenticated }

var _ recorder.AccessGate = (*Client)(nil)

func (c *Client) SignUp(ctx context.Context, email, password, displayName string) error {
	return c.postEnvelope(ctx, "/api/auth/register", map[string]string{
		"email":       email,
		"password":    password,
		"displayName": displayName,
	})
}

func (c *Client) SignIn(ctx context.Context, email, password string) error {
	err := c.postEnvelope(ctx, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return err
	}
	c.authenticated = true
	return nil
}

func (c *Client) SignOut(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/auth/logout", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	c.authenticated = false
	return nil
}

// Upload 上传一段录音。服务端返回 201 时得到完整条目用于乐观插入；
// 其余情况一律归并为 ErrUploadFailed。
func (c *Client) Upload(ctx context.Context, clip *recorder.Clip, isPublic bool) (*models.DiaryEntry, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="audio"; filename="%d%s"`,
			time.Now().UnixMilli(), stores.ExtForMIME(clip.MIME)))
	hdr.Set("Content-Type", clip.MIME)
	part, err := w.CreatePart(hdr)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(clip.Data); err != nil {
		return nil, err
	}
	if err := w.WriteField("duration", strconv.Itoa(clip.Duration)); err != nil {
		return nil, err
	}
	if err := w.WriteField("is_public", strconv.FormatBool(isPublic)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/diaries", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		var entry models.DiaryEntry
		if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
		}
		return &entry, nil
	case http.StatusUnauthorized:
		c.authenticated = false
		return nil, ErrUnauthorized
	default:
		return nil, fmt.Errorf("%w: status %d", ErrUploadFailed, resp.StatusCode)
	}
}

// Diaries 拉取当前用户的日记列表
func (c *Client) Diaries(ctx context.Context) ([]models.DiaryEntry, error) {
	return c.getEntries(ctx, "/api/diaries")
}

// PublicDiaries 拉取公开日记流，无需登录
func (c *Client) PublicDiaries(ctx context.Context) ([]models.DiaryEntry, error) {
	return c.getEntries(ctx, "/api/public-diaries")
}

func (c *Client) getEntries(ctx context.Context, path string) ([]models.DiaryEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.authenticated = false
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list diaries: status %d", resp.StatusCode)
	}
	var entries []models.DiaryEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// postEnvelope 发 JSON 请求并解析统一响应壳，code 非 0 时把 message 变成错误
func (c *Client) postEnvelope(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var envelope response.Body
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("unexpected response: %s", raw)
	}
	if envelope.Code != 0 {
		return errors.New(envelope.Message)
	}
	return nil
}

// AudioURL 把相对的音频路径补全成绝对地址，本地磁盘存储返回的是相对路径
func (c *Client) AudioURL(audioURL string) string {
	if u, err := url.Parse(audioURL); err == nil && u.IsAbs() {
		return audioURL
	}
	return c.base + audioURL
}
