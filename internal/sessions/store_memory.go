package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]Session
	now   func() time.Time
	newID func() string
}

// NewMemoryStore constructs a MemoryStore using the wall clock.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(func() time.Time { return time.Now().UTC() })
}

// NewMemoryStoreWithClock constructs a MemoryStore with an injected clock.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		byID:  make(map[string]Session),
		now:   now,
		newID: uuid.NewString,
	}
}

func (m *MemoryStore) Create(ctx context.Context, s Session) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s = s.Clone()
	s.ID = m.newID()
	s.CreatedAt = m.now()
	s.CVPDF = nil
	s.LetterPDF = nil

	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[s.ID] = s
	return s.ID, nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byID[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) AttachCV(ctx context.Context, id string, pdf []byte) error {
	return m.attach(ctx, id, func(s *Session) { s.CVPDF = append([]byte(nil), pdf...) })
}

func (m *MemoryStore) AttachLetter(ctx context.Context, id string, pdf []byte) error {
	return m.attach(ctx, id, func(s *Session) { s.LetterPDF = append([]byte(nil), pdf...) })
}

func (m *MemoryStore) attach(ctx context.Context, id string, set func(*Session)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	set(&s)
	m.byID[id] = s
	return nil
}

// Sweep drops sessions whose age exceeds ttl. Reads do not refresh the age.
func (m *MemoryStore) Sweep(ctx context.Context, ttl time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.byID {
		if now.Sub(s.CreatedAt) > ttl {
			delete(m.byID, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}
