package tokenstore

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu    sync.RWMutex
	flags Flags
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags.Token = token
	return nil
}

func (s *MemoryStore) Load(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.flags.Token == "" {
		return "", ErrAbsent
	}
	return s.flags.Token, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags = Flags{}
	return nil
}

func (s *MemoryStore) SaveUserID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags.UserID = id
	return nil
}

func (s *MemoryStore) LoadUserID(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.flags.UserID == "" {
		return "", ErrAbsent
	}
	return s.flags.UserID, nil
}

func (s *MemoryStore) Put(_ context.Context, flags Flags) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags = flags
	return nil
}

func (s *MemoryStore) Snapshot(_ context.Context) (Flags, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags, nil
}

func (s *MemoryStore) Close() error { return nil }
