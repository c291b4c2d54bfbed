package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "cvsession:"

// RedisStore keeps sessions in Redis so several API replicas share them.
// Every key expires after the TTL given at creation.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore constructs a RedisStore. ttl must be positive.
func NewRedisStore(client redis.Cmdable, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	return &RedisStore{client: client, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}, nil
}

func metaKey(id string) string   { return redisKeyPrefix + id }
func cvKey(id string) string     { return redisKeyPrefix + id + ":cv" }
func letterKey(id string) string { return redisKeyPrefix + id + ":letter" }

func (r *RedisStore) Create(ctx context.Context, s Session) (string, error) {
	s.ID = uuid.NewString()
	s.CreatedAt = r.now()
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, metaKey(s.ID), data, r.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session %s: %w", s.ID, err)
	}
	return s.ID, nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (Session, error) {
	data, err := r.client.Get(ctx, metaKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session %s: %w", id, err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("decode session %s: %w", id, err)
	}

	pdfs, err := r.client.MGet(ctx, cvKey(id), letterKey(id)).Result()
	if err != nil {
		return Session{}, fmt.Errorf("load session pdfs %s: %w", id, err)
	}
	s.CVPDF = bytesOf(pdfs[0])
	s.LetterPDF = bytesOf(pdfs[1])
	return s, nil
}

func bytesOf(v any) []byte {
	if s, ok := v.(string); ok && s != "" {
		return []byte(s)
	}
	return nil
}

func (r *RedisStore) AttachCV(ctx context.Context, id string, pdf []byte) error {
	return r.attach(ctx, id, cvKey(id), pdf)
}

func (r *RedisStore) AttachLetter(ctx context.Context, id string, pdf []byte) error {
	return r.attach(ctx, id, letterKey(id), pdf)
}

// attach writes a PDF with the metadata key's remaining TTL so both expire together.
func (r *RedisStore) attach(ctx context.Context, id, key string, pdf []byte) error {
	remaining, err := r.client.PTTL(ctx, metaKey(id)).Result()
	if err != nil {
		return fmt.Errorf("session ttl %s: %w", id, err)
	}
	// -2 means the key is missing, -1 that it has no expiry.
	if remaining == -2 {
		return ErrNotFound
	}
	if remaining <= 0 {
		remaining = r.ttl
	}
	if err := r.client.Set(ctx, key, pdf, remaining).Err(); err != nil {
		return fmt.Errorf("store pdf %s: %w", key, err)
	}
	return nil
}

// Sweep is a no-op. Keys carry the expiry fixed by NewRedisStore and Redis
// removes them itself; the ttl argument is ignored.
func (r *RedisStore) Sweep(ctx context.Context, ttl time.Duration) (int, error) {
	return 0, nil
}
