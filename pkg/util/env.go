package util

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cast"
)

// GetEnv 读取环境变量
func GetEnv(key string) string {
	return os.Getenv(key)
}

func GetIntEnv(key string) int64 {
	return cast.ToInt64(os.Getenv(key))
}

func GetBoolEnv(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || cast.ToBool(v)
}

// LoadEnv 按环境加载 .env 文件（.env.<env> 优先，其次 .env）
// 已存在的环境变量不会被覆盖
func LoadEnv(env string) error {
	for _, name := range []string{fmt.Sprintf(".env.%s", env), ".env"} {
		if err := loadEnvFile(name); err == nil {
			return nil
		}
	}
	return fmt.Errorf("no .env file found for %q", env)
}

func loadEnvFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}
	return sc.Err()
}
