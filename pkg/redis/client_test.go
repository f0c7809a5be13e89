package redis

import (
	"context"
	"testing"
	"time"

	"github.com/apebear-labs/bearmarket-backend/pkg/config"
	"github.com/redis/go-redis/v9"
)

func TestOptionsFromConfigRequiresTarget(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error when url and address are missing")
	}
}

func TestOptionsFromConfigParsesURL(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{
		URL:      "redis://:secret@localhost:6380/2",
		PoolSize: 7,
	})
	if err != nil {
		t.Fatalf("optionsFromConfig: %v", err)
	}
	if opts.Addr != "localhost:6380" {
		t.Fatalf("unexpected addr %s", opts.Addr)
	}
	if opts.DB != 2 {
		t.Fatalf("unexpected db %d", opts.DB)
	}
	if opts.PoolSize != 7 {
		t.Fatalf("expected pool size fallback, got %d", opts.PoolSize)
	}
}

func TestLockKeyNamespacing(t *testing.T) {
	client := &Client{}
	if got := client.LockKey("cron-worker"); got != "bm:lock:cron-worker" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := client.LockKey(""); got != "bm:lock" {
		t.Fatalf("empty scope should collapse, got %s", got)
	}
}

func TestSetNXAndDelRoundTrip(t *testing.T) {
	mock := newMockCmdable()
	client := &Client{store: mock}
	ctx := context.Background()

	ok, err := client.SetNX(ctx, "bm:lock:x", "owner-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first SetNX should win: ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, "bm:lock:x", "owner-2", time.Minute)
	if err != nil || ok {
		t.Fatalf("second SetNX should lose: ok=%v err=%v", ok, err)
	}

	value, err := client.Get(ctx, "bm:lock:x")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if value != "owner-1" {
		t.Fatalf("expected original owner, got %q", value)
	}

	if err := client.Del(ctx, "bm:lock:x"); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, "bm:lock:x"); err != redis.Nil {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

type mockCmdable struct {
	data map[string]string
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{data: make(map[string]string)}
}

func (m *mockCmdable) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("PONG")
	return cmd
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	m.data[key] = toString(value)
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if value, ok := m.data[key]; ok {
		cmd.SetVal(value)
	} else {
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	if _, exists := m.data[key]; exists {
		cmd.SetVal(false)
		return cmd
	}
	m.data[key] = toString(value)
	cmd.SetVal(true)
	return cmd
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	var removed int64
	for _, key := range keys {
		if _, ok := m.data[key]; ok {
			delete(m.data, key)
			removed++
		}
	}
	cmd.SetVal(removed)
	return cmd
}

func toString(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return ""
}
