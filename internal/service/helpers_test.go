package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/styleguard/styleguard/internal/config"
	"github.com/styleguard/styleguard/internal/db"
	"github.com/styleguard/styleguard/internal/events"
	"github.com/styleguard/styleguard/internal/repo"
	"github.com/styleguard/styleguard/internal/tokens"
)

func newTestRepo(t *testing.T) *repo.GormRepo {
	t.Helper()

	ctx := context.Background()
	gdb, err := db.Open(ctx, config.DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })
	return repo.New(gdb)
}

func newTestTokens(t *testing.T) *tokens.Service {
	t.Helper()
	ts, err := tokens.NewService([]byte("test-jwt-secret"), "HS256", 24*time.Hour, 7*24*time.Hour)
	require.NoError(t, err)
	return ts
}

type recordedEvent struct {
	Topic string
	Key   string
	Event events.Event
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (f *fakePublisher) PublishEvent(_ context.Context, topic, key string, ev events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{Topic: topic, Key: key, Event: ev})
	return f.err
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Event.Type)
	}
	return out
}

func newTestAuthService(t *testing.T) (*AuthService, *repo.GormRepo, *fakePublisher) {
	t.Helper()
	r := newTestRepo(t)
	pub := &fakePublisher{}
	return &AuthService{
		Users:      r,
		Tokens:     newTestTokens(t),
		Events:     pub,
		BcryptCost: bcrypt.MinCost,
	}, r, pub
}

type fakeGenerator struct {
	mu      sync.Mutex
	out     string
	err     error
	delay   time.Duration
	prompts []string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.out, f.err
}
