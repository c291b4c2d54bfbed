package profile

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo stores profiles in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu     sync.RWMutex
	byUser map[string]StoredProfile
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byUser: make(map[string]StoredProfile)}
}

func (r *MemoryRepo) Upsert(ctx context.Context, stored StoredProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stored.Profile = stored.Profile.Clone()
	stored.AdditionalURLs = append([]string(nil), stored.AdditionalURLs...)
	stored.UpdatedAt = time.Now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[stored.UserID] = stored
	return nil
}

func (r *MemoryRepo) GetByUser(ctx context.Context, userID string) (StoredProfile, error) {
	if err := ctx.Err(); err != nil {
		return StoredProfile{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.byUser[userID]
	if !ok {
		return StoredProfile{}, ErrNotFound
	}
	stored.Profile = stored.Profile.Clone()
	stored.AdditionalURLs = append([]string(nil), stored.AdditionalURLs...)
	return stored, nil
}

func (r *MemoryRepo) DeleteByUser(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byUser, userID)
	return nil
}

// Reassign moves a profile to another user unless the target already has one.
func (r *MemoryRepo) Reassign(ctx context.Context, fromUserID, toUserID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byUser[fromUserID]
	if !ok {
		return 0, nil
	}
	if _, exists := r.byUser[toUserID]; exists {
		return 0, nil
	}
	delete(r.byUser, fromUserID)
	stored.UserID = toUserID
	r.byUser[toUserID] = stored
	return 1, nil
}

var _ Repo = (*MemoryRepo)(nil)
