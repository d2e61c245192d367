package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rushteam/revrec/core"
)

// TestRedisStore 需要可用的 Redis，通过 REVREC_TEST_REDIS_ADDR 指定地址
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REVREC_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("需要设置 REVREC_TEST_REDIS_ADDR 指向可用的 Redis 才能运行")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := NewRedisStore(ctx, addr, 0)
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}
	defer s.Close()

	key := "revrec:test:" + time.Now().Format("150405.000000")
	if _, err := s.Get(ctx, key); !core.IsStoreNotFound(err) {
		t.Fatalf("Get(missing) error = %v, want not found", err)
	}
	if err := s.Set(ctx, key, []byte("v"), 30); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got, err := s.Get(ctx, key); err != nil || string(got) != "v" {
		t.Fatalf("Get() = %q, %v", got, err)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}
