package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"whatsapp-relay/internal/adapter/docstore"
	"whatsapp-relay/internal/domain"
)

// Store is an in-process document backend. Documents are kept JSON-encoded
// so callers never share memory with stored values.
type Store struct {
	mu          sync.Mutex
	collections map[string]map[string][]byte
}

func NewStore() *Store {
	return &Store{
		collections: make(map[string]map[string][]byte),
	}
}

func (s *Store) Get(_ context.Context, collection, id string, dst any) error {
	s.mu.Lock()
	raw, ok := s.collections[collection][id]
	s.mu.Unlock()

	if !ok {
		return domain.ErrNotFound
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformed, err)
	}
	return nil
}

func (s *Store) Set(_ context.Context, collection, id string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string][]byte)
		s.collections[collection] = docs
	}
	docs[id] = raw
	return nil
}

// SetRaw stores an already-encoded document.
func (s *Store) SetRaw(collection, id string, raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string][]byte)
		s.collections[collection] = docs
	}
	docs[id] = append([]byte(nil), raw...)
}

func (s *Store) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections[collection], id)
	return nil
}

// List visits documents in id order over a snapshot of the collection.
func (s *Store) List(ctx context.Context, collection string, fn func(id string, decode docstore.DecodeFunc) error) error {
	s.mu.Lock()
	snapshot := make(map[string][]byte, len(s.collections[collection]))
	for id, raw := range s.collections[collection] {
		snapshot[id] = raw
	}
	s.mu.Unlock()

	ids := make([]string, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw := snapshot[id]
		decode := func(dst any) error {
			if err := json.Unmarshal(raw, dst); err != nil {
				return fmt.Errorf("%w: %v", domain.ErrMalformed, err)
			}
			return nil
		}
		if err := fn(id, decode); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}
