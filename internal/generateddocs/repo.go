package generateddocs

import "context"

// Repo defines persistence operations for generation records.
type Repo interface {
	Create(ctx context.Context, rec GenerationRecord) error
	GetBySession(ctx context.Context, sessionID string) (GenerationRecord, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]GenerationRecord, error)
	DeleteByUser(ctx context.Context, userID string) (int, error)
	Reassign(ctx context.Context, fromUserID, toUserID string) (int, error)
}
