// Package memory provides an in-process MemoryBackend.
//
// It keeps items in a map keyed by namespace prefix and is the default
// backend for tests and single-process deployments.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petroagent/memcurator-go/pkg/backend"
	"github.com/petroagent/memcurator-go/pkg/namespace"
)

// Store is an in-process MemoryBackend implementation.
type Store struct {
	mu     sync.RWMutex
	items  map[string]map[int64]*backend.MemoryItem // prefix -> id -> item
	nextID int64
}

// NewStore creates an empty in-process store.
func NewStore() *Store {
	return &Store{
		items: make(map[string]map[int64]*backend.MemoryItem),
	}
}

// Put stores an item under its namespace prefix, assigning an ID if the
// item has none.
func (s *Store) Put(ctx context.Context, item *backend.MemoryItem) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == 0 {
		item.ID = atomic.AddInt64(&s.nextID, 1)
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}

	prefix := item.Namespace.Prefix()
	bucket, ok := s.items[prefix]
	if !ok {
		bucket = make(map[int64]*backend.MemoryItem)
		s.items[prefix] = bucket
	}
	stored := *item
	bucket[item.ID] = &stored

	return item.ID, nil
}

// Get retrieves an item by namespace and ID.
func (s *Store) Get(ctx context.Context, ns namespace.Namespace, id int64) (*backend.MemoryItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if bucket, ok := s.items[ns.Prefix()]; ok {
		if item, ok := bucket[id]; ok {
			out := *item
			return &out, nil
		}
	}
	return nil, fmt.Errorf("memory backend: item %d not found in %s", id, ns.Prefix())
}

// Search returns items whose namespace prefix starts with namespacePrefix,
// ranked by lexical match against query.
func (s *Store) Search(ctx context.Context, namespacePrefix, query string, limit int) ([]*backend.MemoryItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	var matched []*backend.MemoryItem
	for prefix, bucket := range s.items {
		if !strings.HasPrefix(prefix, namespacePrefix) {
			continue
		}
		for _, item := range bucket {
			out := *item
			matched = append(matched, &out)
		}
	}
	s.mu.RUnlock()

	return backend.RankByLexicalScore(matched, query, limit), nil
}

// Delete removes an item by namespace and ID.
func (s *Store) Delete(ctx context.Context, ns namespace.Namespace, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.items[ns.Prefix()]
	if !ok {
		return fmt.Errorf("memory backend: item %d not found in %s", id, ns.Prefix())
	}
	if _, ok := bucket[id]; !ok {
		return fmt.Errorf("memory backend: item %d not found in %s", id, ns.Prefix())
	}
	delete(bucket, id)
	return nil
}

// Touch replays an advisory access onto the stored item.
func (s *Store) Touch(ctx context.Context, ns namespace.Namespace, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.items[ns.Prefix()]
	if !ok {
		return fmt.Errorf("memory backend: item %d not found in %s", id, ns.Prefix())
	}
	item, ok := bucket[id]
	if !ok {
		return fmt.Errorf("memory backend: item %d not found in %s", id, ns.Prefix())
	}
	now := time.Now()
	item.AccessCount++
	item.LastAccessedAt = &now
	return nil
}

// Close is a no-op for the in-process store.
func (s *Store) Close() error {
	return nil
}
