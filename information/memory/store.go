package memory

import (
	"context"
	"sync"

	"github.com/code-payments/flipchat-purchases/information"
)

type InMemoryStore struct {
	mu    sync.RWMutex
	infos map[string]information.Information
}

func NewInMemory() information.Store {
	return &InMemoryStore{
		infos: map[string]information.Information{},
	}
}

func (s *InMemoryStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.infos = make(map[string]information.Information)
}

func (s *InMemoryStore) GetInformation(_ context.Context, identifier string) (information.Information, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.infos[identifier]
	if !ok {
		return information.Unavailable, information.ErrNotFound
	}
	return info.Clone(), nil
}

func (s *InMemoryStore) PutInformation(_ context.Context, identifier string, info information.Information) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.infos[identifier] = info.Clone()
	return nil
}

func (s *InMemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.infos = make(map[string]information.Information)
	return nil
}
