package session

import (
	"context"
	"sync"

	"github.com/desertthunder/imusic/internal/models"
)

// MemoryStore is an in-process [Store], used when no database is configured.
type MemoryStore struct {
	mu sync.Mutex
	s  models.Session
}

func (m *MemoryStore) Load(ctx context.Context) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s, nil
}

func (m *MemoryStore) Save(ctx context.Context, s models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = s
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = models.Session{}
	return nil
}
