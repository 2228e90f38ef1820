// Package memory provides an in-memory orchestration store for tests and
// local development. All state is lost on restart.
package memory

import (
	"context"
	"sync"

	apperrors "line-membership-bot/internal/common/errors"
	"line-membership-bot/internal/orchestration"
)

type Store struct {
	mu        sync.RWMutex
	instances map[string]*orchestration.Instance
}

func NewStore() *Store {
	return &Store{
		instances: make(map[string]*orchestration.Instance),
	}
}

func (s *Store) SaveInstance(_ context.Context, inst *orchestration.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *inst
	s.instances[inst.UserID] = &cp
	return nil
}

func (s *Store) GetInstance(_ context.Context, userID string) (*orchestration.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.instances[userID]
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeInstanceNotFound, "no instance for user")
	}
	cp := *inst
	return &cp, nil
}

func (s *Store) UpdateInstance(_ context.Context, inst *orchestration.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.instances[inst.UserID]; !ok {
		return apperrors.New(apperrors.ErrCodeInstanceNotFound, "no instance for user")
	}
	cp := *inst
	s.instances[inst.UserID] = &cp
	return nil
}
