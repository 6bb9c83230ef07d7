package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"

	"canopy/internal/core"
)

var (
	ErrNamespaceNotFound = errors.New("namespace not found")
	ErrNamespaceExists   = errors.New("namespace already exists")
	ErrLimitReached      = errors.New("namespace limit reached")
)

// Store defines the interface for namespace storage backends.
type Store interface {
	Create(ctx context.Context, ns *Namespace) error
	Get(ctx context.Context, id string) (*Namespace, error)
	Touch(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Expired(ctx context.Context) ([]*Namespace, error)
	Stats(ctx context.Context) (*Stats, error)
	Len() int
}

// MemoryStore keeps namespaces in process memory. Nothing survives a
// restart.
type MemoryStore struct {
	mu         sync.RWMutex
	namespaces map[string]*Namespace
	created    int64
	accesses   int64
	limit      int
	clock      clock.Clock
}

// NewMemoryStore creates a store holding at most limit live namespaces.
// limit <= 0 means unbounded.
func NewMemoryStore(limit int, clk clock.Clock) *MemoryStore {
	if clk == nil {
		clk = clock.New()
	}
	return &MemoryStore{
		namespaces: make(map[string]*Namespace),
		limit:      limit,
		clock:      clk,
	}
}

// Create registers a new namespace.
func (s *MemoryStore) Create(ctx context.Context, ns *Namespace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.namespaces[ns.ID]; exists {
		return fmt.Errorf("failed to create namespace %s: %w", ns.ID, ErrNamespaceExists)
	}
	if s.limit > 0 && len(s.namespaces) >= s.limit {
		return ErrLimitReached
	}
	s.namespaces[ns.ID] = ns
	s.created++
	return nil
}

// Get retrieves a namespace by its ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Namespace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ns, ok := s.namespaces[id]
	if !ok {
		return nil, ErrNamespaceNotFound
	}
	return ns, nil
}

// Touch increments the access counter of a namespace. The caller must not
// hold the namespace lock.
func (s *MemoryStore) Touch(ctx context.Context, id string) error {
	s.mu.Lock()
	ns, ok := s.namespaces[id]
	if ok {
		s.accesses++
	}
	s.mu.Unlock()
	if !ok {
		return ErrNamespaceNotFound
	}

	ns.Lock()
	ns.AccessCount++
	ns.Unlock()
	return nil
}

// Delete removes a namespace by ID.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.namespaces[id]; !ok {
		return ErrNamespaceNotFound
	}
	delete(s.namespaces, id)
	return nil
}

// Expired returns all namespaces whose expiration time has passed.
func (s *MemoryStore) Expired(ctx context.Context) ([]*Namespace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.clock.Now()
	var expired []*Namespace
	for _, ns := range s.namespaces {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if now.After(ns.ExpiresAt) {
			expired = append(expired, ns)
		}
	}
	return expired, nil
}

// Stats returns aggregate statistics over the live namespaces.
func (s *MemoryStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	live := make([]*Namespace, 0, len(s.namespaces))
	for _, ns := range s.namespaces {
		live = append(live, ns)
	}
	stats := &Stats{
		TotalNamespaces: s.created,
		TotalAccesses:   s.accesses,
	}
	s.mu.RUnlock()

	now := s.clock.Now()
	for _, ns := range live {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if now.After(ns.ExpiresAt) {
			continue
		}
		stats.ActiveNamespaces++

		ns.Lock()
		stats.TotalNodes += int64(len(core.FlattenTree(ns.Root)))
		stats.DiskUsage += ns.Root.TotalDiskUsage()
		ns.Unlock()
	}
	return stats, nil
}

// Len reports the number of stored namespaces, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.namespaces)
}
