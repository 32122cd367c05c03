package inmem

import (
	"context"
	"sync"

	"github.com/trezcool/classroom/core"
)

type Store struct {
	table map[string]string
	mutex sync.RWMutex
}

var _ core.TokenStore = (*Store)(nil)

// NewStore returns an empty store; its content dies with the process.
func NewStore() *Store {
	return &Store{table: make(map[string]string)}
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.table[key], nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.table[key] = value
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.table, key)
	return nil
}
