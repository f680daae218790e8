package stores

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore 本地磁盘实现，开发环境使用
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(cfg Config) (*LocalStore, error) {
	if err := os.MkdirAll(cfg.LocalDir, 0o755); err != nil {
		return nil, err
	}
	base := cfg.BaseURL
	if base == "" {
		base = "/uploads"
	}
	return &LocalStore{dir: cfg.LocalDir, baseURL: base}, nil
}

// Dir returns the root directory served as /uploads.
func (l *LocalStore) Dir() string { return l.dir }

func (l *LocalStore) path(key string) string {
	return filepath.Join(l.dir, filepath.FromSlash(key))
}

func (l *LocalStore) Write(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	p := l.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.Create(p)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(p)
		return err
	}
	return f.Close()
}

func (l *LocalStore) Read(_ context.Context, key string) (io.ReadCloser, int64, error) {
	f, err := os.Open(l.path(key))
	if err != nil {
		return nil, 0, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, st.Size(), nil
}

func (l *LocalStore) Delete(_ context.Context, key string) error {
	err := os.Remove(l.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (l *LocalStore) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(l.path(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (l *LocalStore) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	var infos []ObjectInfo
	err := filepath.Walk(l.dir, func(p string, fi os.FileInfo, err error) error {
		if err != nil || fi.IsDir() {
			return err
		}
		rel, err := filepath.Rel(l.dir, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}
		infos = append(infos, ObjectInfo{Key: key, Size: fi.Size(), ModTime: fi.ModTime()})
		return nil
	})
	return infos, err
}

func (l *LocalStore) PublicURL(key string) string {
	return strings.TrimRight(l.baseURL, "/") + "/" + key
}
