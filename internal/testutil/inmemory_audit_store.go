package testutil

import (
	"context"
	"sync"

	"github.com/orderrelay/orderrelay/internal/audit"
	ierr "github.com/orderrelay/orderrelay/internal/errors"
)

// InMemoryAuditStore implements audit.Logger for testing
type InMemoryAuditStore struct {
	mu      sync.Mutex
	entries []*audit.Entry
	// FailWrites makes every Record call return an error, for verifying
	// that audit failures never surface to the caller
	FailWrites bool
}

// NewInMemoryAuditStore creates a new in-memory audit store
func NewInMemoryAuditStore() *InMemoryAuditStore {
	return &InMemoryAuditStore{}
}

func (s *InMemoryAuditStore) Record(_ context.Context, entry *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return ierr.NewError("audit store unavailable").Mark(ierr.ErrDatabase)
	}
	s.entries = append(s.entries, entry)
	return nil
}

// Entries returns all recorded entries
func (s *InMemoryAuditStore) Entries() []*audit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*audit.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
