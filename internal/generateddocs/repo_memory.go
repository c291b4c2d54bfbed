package generateddocs

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores generation records in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu        sync.RWMutex
	bySession map[string]GenerationRecord
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{bySession: make(map[string]GenerationRecord)}
}

func (r *MemoryRepo) Create(ctx context.Context, rec GenerationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bySession[rec.SessionID] = rec
	return nil
}

func (r *MemoryRepo) GetBySession(ctx context.Context, sessionID string) (GenerationRecord, error) {
	if err := ctx.Err(); err != nil {
		return GenerationRecord{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.bySession[sessionID]
	if !ok {
		return GenerationRecord{}, ErrNotFound
	}
	return rec, nil
}

// ListByUser returns records for a user, newest first, with limit/offset.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]GenerationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	recs := make([]GenerationRecord, 0)
	for _, rec := range r.bySession {
		if rec.UserID == userID {
			recs = append(recs, rec)
		}
	}
	r.mu.RUnlock()

	sort.Slice(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	if offset >= len(recs) {
		return []GenerationRecord{}, nil
	}
	end := len(recs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return recs[offset:end], nil
}

func (r *MemoryRepo) DeleteByUser(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, rec := range r.bySession {
		if rec.UserID == userID {
			delete(r.bySession, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) Reassign(ctx context.Context, fromUserID, toUserID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, rec := range r.bySession {
		if rec.UserID == fromUserID {
			rec.UserID = toUserID
			r.bySession[id] = rec
			n++
		}
	}
	return n, nil
}

var _ Repo = (*MemoryRepo)(nil)
