// Package pending holds membership payments that were submitted but whose
// confirmation arrives out-of-band, by webhook or manual verification. An
// entry moves pending → verified → consumed; there is no failure state, an
// unverified entry just sits until a confirmation arrives.
package pending

import (
	"context"
	"sync"
	"time"

	"github.com/boa-platform/registration-ledger/internal/domain"
)

type Store interface {
	// Create inserts a pending entry, silently replacing any previous entry
	// with the same transaction id.
	Create(ctx context.Context, p domain.PendingPayment) error
	// Confirm flips an entry to verified. Unknown transaction ids are a
	// no-op: gateways retry webhooks and the ack must not depend on local
	// state.
	Confirm(ctx context.Context, transactionID, gatewayRef string) error
	// Get returns the entry, or domain.ErrNotFound.
	Get(ctx context.Context, transactionID string) (*domain.PendingPayment, error)
	// Delete consumes the entry after its payload has been durably persisted.
	Delete(ctx context.Context, transactionID string) error
}

// MemoryStore is the process-local Store. Entries do not survive a restart;
// deployments that need durability use the Postgres-backed store instead.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]domain.PendingPayment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]domain.PendingPayment)}
}

func (s *MemoryStore) Create(_ context.Context, p domain.PendingPayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Status = domain.PendingStatusPending
	p.CreatedAt = time.Now()
	p.VerifiedAt = nil
	s.entries[p.TransactionID] = p
	return nil
}

func (s *MemoryStore) Confirm(_ context.Context, transactionID, gatewayRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.entries[transactionID]
	if !ok {
		return nil
	}
	now := time.Now()
	p.Status = domain.PendingStatusVerified
	p.GatewayRef = gatewayRef
	p.VerifiedAt = &now
	s.entries[transactionID] = p
	return nil
}

func (s *MemoryStore) Get(_ context.Context, transactionID string) (*domain.PendingPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.entries[transactionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) Delete(_ context.Context, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, transactionID)
	return nil
}
