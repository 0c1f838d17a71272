// Package memory is an in-process ledger store for development and tests.
// It mirrors the PostgreSQL adapter's locking discipline: ForUpdate reads
// take a per-row lock held until the owning transaction ends, writes are
// buffered in the transaction and become visible only on commit.
package memory

import (
	"context"
	"fmt"
	"sync"

	"campus-coin-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// Store holds committed state.
type Store struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]domain.Account
	partners map[uuid.UUID]domain.Partner
	rewards  map[uuid.UUID]domain.RewardItem
	entries  map[uuid.UUID]storedEntry
	codes    map[string]uuid.UUID // committed and reserved validation codes
	keys     map[string]domain.IdempotencyRecord
	audits   []domain.AuditLog
	seq      int64

	locksMu sync.Mutex
	locks   map[string]*rowLock
}

type storedEntry struct {
	entry domain.LedgerEntry
	seq   int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[uuid.UUID]domain.Account),
		partners: make(map[uuid.UUID]domain.Partner),
		rewards:  make(map[uuid.UUID]domain.RewardItem),
		entries:  make(map[uuid.UUID]storedEntry),
		codes:    make(map[string]uuid.UUID),
		keys:     make(map[string]domain.IdempotencyRecord),
		locks:    make(map[string]*rowLock),
	}
}

// AuditLogs returns a copy of the committed audit records.
func (s *Store) AuditLogs() []domain.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AuditLog, len(s.audits))
	copy(out, s.audits)
	return out
}

// Accounts returns a copy of every committed account.
func (s *Store) Accounts() []domain.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	return out
}

// rowLock is a mutex whose acquisition honours context cancellation.
type rowLock struct {
	ch chan struct{}
}

func (s *Store) lockFor(key string) *rowLock {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &rowLock{ch: make(chan struct{}, 1)}
		s.locks[key] = l
	}
	return l
}

func (l *rowLock) acquire(ctx context.Context) error {
	select {
	case l.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for row lock: %w", ctx.Err())
	}
}

func (l *rowLock) release() {
	<-l.ch
}

func accountKey(id uuid.UUID) string { return "account:" + id.String() }

func entryKey(id uuid.UUID) string { return "entry:" + id.String() }

func idempotencyLockKey(key string) string { return "idempotency:" + key }
