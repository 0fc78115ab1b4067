package cache

import (
	"context"
	"testing"
	"time"
)

func TestLRUCacheBasic(t *testing.T) {
	c := NewLRUCache(10)
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		if err := c.Set(ctx, "key1", []byte("value1"), time.Minute); err != nil {
			t.Fatalf("set failed: %v", err)
		}
		val, err := c.Get(ctx, "key1")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if string(val) != "value1" {
			t.Errorf("got %q, want value1", val)
		}
	})

	t.Run("miss returns nil nil", func(t *testing.T) {
		val, err := c.Get(ctx, "missing")
		if err != nil || val != nil {
			t.Errorf("got %v, %v, want nil, nil", val, err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		c.Set(ctx, "key2", []byte("v"), time.Minute)
		if err := c.Delete(ctx, "key2"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		val, _ := c.Get(ctx, "key2")
		if val != nil {
			t.Error("value survived delete")
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		c.Set(ctx, "key3", []byte("old"), time.Minute)
		c.Set(ctx, "key3", []byte("new"), time.Minute)
		val, _ := c.Get(ctx, "key3")
		if string(val) != "new" {
			t.Errorf("got %q, want new", val)
		}
	})
}

func TestLRUCacheTTL(t *testing.T) {
	c := NewLRUCache(10)
	ctx := context.Background()

	c.Set(ctx, "ephemeral", []byte("v"), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	val, err := c.Get(ctx, "ephemeral")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if val != nil {
		t.Error("expired entry still readable")
	}
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache(3)
	ctx := context.Background()

	c.Set(ctx, "a", []byte("1"), time.Minute)
	c.Set(ctx, "b", []byte("2"), time.Minute)
	c.Set(ctx, "c", []byte("3"), time.Minute)

	// Touch "a" so "b" becomes the oldest.
	c.Get(ctx, "a")

	c.Set(ctx, "d", []byte("4"), time.Minute)

	if val, _ := c.Get(ctx, "b"); val != nil {
		t.Error("expected b to be evicted")
	}
	if val, _ := c.Get(ctx, "a"); val == nil {
		t.Error("recently used a should survive")
	}

	size, capacity := c.Stats()
	if size != 3 || capacity != 3 {
		t.Errorf("stats = %d/%d, want 3/3", size, capacity)
	}
}

func TestNewFactory(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		c, err := New(testMemoryConfig())
		if err != nil {
			t.Fatalf("factory failed: %v", err)
		}
		defer c.Close()
		if _, ok := c.(*LRUCache); !ok {
			t.Errorf("got %T, want *LRUCache", c)
		}
	})

	t.Run("unsupported type", func(t *testing.T) {
		cfg := testMemoryConfig()
		cfg.Type = "memcached"
		if _, err := New(cfg); err == nil {
			t.Error("expected error for unsupported type")
		}
	})
}
