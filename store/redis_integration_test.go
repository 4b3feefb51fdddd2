package store

import (
	"os"
	"strconv"
	"testing"
)

func redisStore(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping Redis integration test")
	}
	s := NewRedisStore(addr, "", 0)
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Ping(t.Context()); err != nil {
		t.Fatalf("cannot reach Redis at %s: %v", addr, err)
	}
	return s
}

func TestRedisStore_Contract(t *testing.T) {
	s := redisStore(t)

	// Start from a clean keyspace so contract assertions hold.
	if err := s.Clear(t.Context(), ""); err != nil {
		t.Fatalf("pre-test clear failed: %v", err)
	}
	storeContract(t, s)
}

func TestRedisStore_ClearScansLargeNamespace(t *testing.T) {
	s := redisStore(t)
	ctx := t.Context()

	// More entries than one SCAN page, so Clear has to iterate.
	for i := 0; i < clearScanCount+50; i++ {
		key := "bulk-" + strconv.Itoa(i)
		if err := s.AddCached(ctx, "bulkns", key, []byte("x")); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}
	if err := s.Clear(ctx, "bulkns"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, ok, _ := s.GetCached(ctx, "bulkns", "bulk-0"); ok {
		t.Error("entry survived namespace clear")
	}
}
