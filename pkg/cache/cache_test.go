package cache

import (
	"context"
	"testing"
	"time"
)

func TestLocalCache(t *testing.T) {
	cache, err := NewLocalCache(Config{MaxSize: 100})
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer cache.Close()

	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		key := "test_key"
		value := []byte("test_value")

		if err := cache.Set(ctx, key, value, time.Minute); err != nil {
			t.Errorf("Failed to set cache: %v", err)
		}

		if retrieved, exists := cache.Get(ctx, key); !exists {
			t.Error("Cache value not found")
		} else if string(retrieved) != string(value) {
			t.Errorf("Expected %s, got %s", value, retrieved)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		key := "to_delete"
		if err := cache.Set(ctx, key, []byte("v"), time.Minute); err != nil {
			t.Fatalf("Failed to set cache: %v", err)
		}
		if err := cache.Delete(ctx, key); err != nil {
			t.Errorf("Failed to delete cache: %v", err)
		}
		if _, exists := cache.Get(ctx, key); exists {
			t.Error("Cache value still present after delete")
		}
	})
}

func TestGoCacheExpiration(t *testing.T) {
	cache := NewGoCache(Config{})
	defer cache.Close()

	ctx := context.Background()
	if err := cache.Set(ctx, "ephemeral", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("Failed to set cache: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, exists := cache.Get(ctx, "ephemeral"); exists {
		t.Error("Cache value should have expired")
	}
}

func TestFactoryUnsupportedType(t *testing.T) {
	if _, err := NewCache(Config{Type: "memcached"}); err == nil {
		t.Error("Expected error for unsupported cache type")
	}
}
