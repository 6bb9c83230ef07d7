package storage

import (
	"sync"
	"time"

	"canopy/internal/core"
)

// Namespace is one hosted tree. Root and AccessCount must only be touched
// while holding the namespace lock.
type Namespace struct {
	ID            string
	Name          string
	Root          *core.Dir
	PasswordHash  *string // nil when no password set
	DeletionToken string
	CreatedAt     time.Time
	ExpiresAt     time.Time
	AccessCount   int

	mu sync.Mutex
}

func (ns *Namespace) Lock()   { ns.mu.Lock() }
func (ns *Namespace) Unlock() { ns.mu.Unlock() }

// Stats holds aggregate server statistics.
type Stats struct {
	TotalNamespaces  int64
	ActiveNamespaces int64
	TotalAccesses    int64
	TotalNodes       int64
	DiskUsage        uint64
}
