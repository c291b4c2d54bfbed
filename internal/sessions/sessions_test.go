package sessions

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"cv-tailor/internal/profile"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func sampleSession() Session {
	return Session{
		UserID:             "guest:abc",
		Profile:            profile.Profile{FullName: "Jane Doe", Skills: []string{"Go"}}.Normalize(),
		TailoredSummary:    "Tailored",
		TailoredExperience: []profile.Experience{{Title: "Engineer", Company: "Acme"}},
		MotivationLetter:   "Dear team",
		Keywords:           []string{"Go"},
	}
}

func mustCreate(t *testing.T, store Store) string {
	t.Helper()
	id, err := store.Create(context.Background(), sampleSession())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id == "" {
		t.Fatalf("expected session id")
	}
	return id
}

func mustGet(t *testing.T, store Store, id string) Session {
	t.Helper()
	got, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get(%s): %v", id, err)
	}
	return got
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStoreWithClock(clock.Now)

	id := mustCreate(t, store)
	got := mustGet(t, store, id)
	if got.ID != id || !got.CreatedAt.Equal(clock.Now()) {
		t.Fatalf("unexpected identity: %s %v", got.ID, got.CreatedAt)
	}
	if got.TailoredSummary != "Tailored" {
		t.Fatalf("unexpected summary %q", got.TailoredSummary)
	}
	if got.HasCVPDF() || got.HasLetterPDF() {
		t.Fatalf("expected no pdfs yet")
	}

	got.Keywords[0] = "mutated"
	if again := mustGet(t, store, id); again.Keywords[0] != "Go" {
		t.Fatalf("stored session was mutated through a returned copy")
	}
}

func TestMemoryStore_AttachFlags(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	id := mustCreate(t, store)

	if err := store.AttachCV(ctx, id, []byte("%PDF-cv")); err != nil {
		t.Fatalf("AttachCV: %v", err)
	}
	got := mustGet(t, store, id)
	if !got.HasCVPDF() || got.HasLetterPDF() {
		t.Fatalf("unexpected flags after cv attach")
	}

	if err := store.AttachLetter(ctx, id, []byte("%PDF-letter")); err != nil {
		t.Fatalf("AttachLetter: %v", err)
	}
	got = mustGet(t, store, id)
	if !bytes.Equal(got.CVPDF, []byte("%PDF-cv")) || !bytes.Equal(got.LetterPDF, []byte("%PDF-letter")) {
		t.Fatalf("unexpected pdf bytes %q %q", got.CVPDF, got.LetterPDF)
	}
}

func TestMemoryStore_UnknownID(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get: expected ErrNotFound, got %v", err)
	}
	if err := store.AttachCV(ctx, "missing", []byte("x")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("AttachCV: expected ErrNotFound, got %v", err)
	}
	if err := store.AttachLetter(ctx, "missing", []byte("x")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("AttachLetter: expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_Sweep(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStoreWithClock(clock.Now)
	ctx := context.Background()

	oldID := mustCreate(t, store)
	clock.Advance(40 * time.Minute)
	freshID := mustCreate(t, store)
	clock.Advance(30 * time.Minute)

	mustGet(t, store, oldID)

	removed, err := store.Sweep(ctx, time.Hour)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := store.Get(ctx, oldID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected old session gone, got %v", err)
	}
	mustGet(t, store, freshID)
}

func TestMemoryStore_ConcurrentAttach(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	ids := make([]string, 20)
	for i := range ids {
		ids[i] = mustCreate(t, store)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(2)
		go func(id string) {
			defer wg.Done()
			_ = store.AttachCV(ctx, id, []byte("%PDF-cv"))
		}(id)
		go func(id string) {
			defer wg.Done()
			_, _ = store.Get(ctx, id)
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		if !mustGet(t, store, id).HasCVPDF() {
			t.Fatalf("session %s lost its cv", id)
		}
	}
}

func TestSweeper_SweepOnceAndStop(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStoreWithClock(clock.Now)
	ctx := context.Background()
	mustCreate(t, store)
	mustCreate(t, store)

	sweeper := NewSweeper(store, time.Minute, time.Hour)
	if err := sweeper.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if n := sweeper.SweepOnce(ctx); n != 0 {
		t.Fatalf("expected nothing swept yet, got %d", n)
	}
	clock.Advance(2 * time.Minute)
	sweeper.Stop(ctx)
	if n := store.Len(); n != 0 {
		t.Fatalf("expected final sweep to empty the store, have %d", n)
	}
}

func TestRedisKeys(t *testing.T) {
	tests := map[string]string{
		metaKey("abc"):   "cvsession:abc",
		cvKey("abc"):     "cvsession:abc:cv",
		letterKey("abc"): "cvsession:abc:letter",
	}
	for got, want := range tests {
		if got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
}

func TestNewRedisStoreValidation(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	if _, err := NewRedisStore(nil, time.Minute); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if _, err := NewRedisStore(client, 0); err == nil {
		t.Fatalf("expected error for zero ttl")
	}
}

func TestRedisStore_SweepLeavesExpiryToRedis(t *testing.T) {
	// No server is listening; Sweep must not touch the connection.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	store, err := NewRedisStore(client, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	for _, ttl := range []time.Duration{-1, 0, time.Hour} {
		removed, err := store.Sweep(context.Background(), ttl)
		if err != nil || removed != 0 {
			t.Fatalf("Sweep(%v): removed=%d err=%v", ttl, removed, err)
		}
	}
}

func TestRedisStore_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	store, err := NewRedisStore(client, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	ctx := context.Background()

	id := mustCreate(t, store)
	defer client.Del(ctx, metaKey(id), cvKey(id), letterKey(id))

	if err := store.AttachCV(ctx, id, []byte("%PDF-cv")); err != nil {
		t.Fatalf("AttachCV: %v", err)
	}
	got := mustGet(t, store, id)
	if got.TailoredSummary != "Tailored" || !got.HasCVPDF() || got.HasLetterPDF() {
		t.Fatalf("unexpected session %+v", got)
	}

	ttl, err := client.PTTL(ctx, cvKey(id)).Result()
	if err != nil {
		t.Fatalf("PTTL: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected pdf to share the session ttl, got %v", ttl)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get: expected ErrNotFound, got %v", err)
	}
	if err := store.AttachLetter(ctx, "missing", []byte("x")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("AttachLetter: expected ErrNotFound, got %v", err)
	}
}
