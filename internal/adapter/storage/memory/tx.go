package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"campus-coin-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var (
	errTxClosed  = errors.New("memory: transaction already closed")
	errForeignTx = errors.New("memory: transaction does not belong to this store")
	errNotInTx   = errors.New("memory: operation requires a transaction")
)

// Tx is a buffered transaction. Nested Begin calls return savepoints whose
// writes merge into the parent on Commit and are discarded on Rollback.
// Only Begin, Commit and Rollback of pgx.Tx are implemented.
type Tx struct {
	pgx.Tx

	store  *Store
	parent *Tx

	mu       sync.Mutex // root only; guards held
	held     map[string]*rowLock
	balances map[uuid.UUID]decimal.Decimal
	consumed map[uuid.UUID]time.Time
	entries  []domain.LedgerEntry
	keys     []domain.IdempotencyRecord
	audits   []domain.AuditLog
	closed   bool
}

// Transactor implements ports.DBTransactor for the memory store.
type Transactor struct {
	store *Store
}

// NewTransactor creates a Transactor over store.
func NewTransactor(store *Store) *Transactor {
	return &Transactor{store: store}
}

// Begin starts a new transaction.
func (t *Transactor) Begin(_ context.Context) (pgx.Tx, error) {
	return newTx(t.store, nil), nil
}

func newTx(store *Store, parent *Tx) *Tx {
	tx := &Tx{
		store:    store,
		parent:   parent,
		balances: make(map[uuid.UUID]decimal.Decimal),
		consumed: make(map[uuid.UUID]time.Time),
	}
	if parent == nil {
		tx.held = make(map[string]*rowLock)
	}
	return tx
}

// Begin opens a savepoint.
func (tx *Tx) Begin(_ context.Context) (pgx.Tx, error) {
	if tx.closed {
		return nil, errTxClosed
	}
	return newTx(tx.store, tx), nil
}

// Commit publishes buffered writes. For a savepoint it merges them into the parent.
func (tx *Tx) Commit(_ context.Context) error {
	if tx.closed {
		return errTxClosed
	}
	tx.closed = true

	if tx.parent != nil {
		p := tx.parent
		for id, b := range tx.balances {
			p.balances[id] = b
		}
		for id, at := range tx.consumed {
			p.consumed[id] = at
		}
		p.entries = append(p.entries, tx.entries...)
		p.keys = append(p.keys, tx.keys...)
		p.audits = append(p.audits, tx.audits...)
		return nil
	}

	s := tx.store
	s.mu.Lock()
	for id, b := range tx.balances {
		a := s.accounts[id]
		a.Balance = b
		a.UpdatedAt = time.Now().UTC()
		s.accounts[id] = a
	}
	for id, at := range tx.consumed {
		se := s.entries[id]
		at := at
		se.entry.Consumed = true
		se.entry.ConsumedAt = &at
		s.entries[id] = se
	}
	for _, e := range tx.entries {
		s.seq++
		s.entries[e.ID] = storedEntry{entry: e, seq: s.seq}
	}
	for _, k := range tx.keys {
		s.keys[k.Key] = k
	}
	s.audits = append(s.audits, tx.audits...)
	s.mu.Unlock()

	tx.releaseLocks()
	return nil
}

// Rollback discards buffered writes. Calling it after Commit is a no-op,
// matching the deferred-rollback idiom.
func (tx *Tx) Rollback(_ context.Context) error {
	if tx.closed {
		return nil
	}
	tx.closed = true

	tx.releaseCodes()
	if tx.parent == nil {
		tx.releaseLocks()
	}
	return nil
}

func (tx *Tx) root() *Tx {
	r := tx
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// lock takes the row lock for key unless the transaction already holds it.
func (tx *Tx) lock(ctx context.Context, key string) error {
	r := tx.root()
	r.mu.Lock()
	_, ok := r.held[key]
	r.mu.Unlock()
	if ok {
		return nil
	}

	l := tx.store.lockFor(key)
	if err := l.acquire(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	r.held[key] = l
	r.mu.Unlock()
	return nil
}

func (tx *Tx) releaseLocks() {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	for key, l := range tx.held {
		l.release()
		delete(tx.held, key)
	}
}

// releaseCodes frees validation codes reserved by uncommitted inserts.
func (tx *Tx) releaseCodes() {
	if len(tx.entries) == 0 {
		return
	}
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range tx.entries {
		if s.codes[e.ValidationCode] == e.ID {
			delete(s.codes, e.ValidationCode)
		}
	}
}

// pendingBalance looks up a buffered balance through the savepoint chain.
func (tx *Tx) pendingBalance(id uuid.UUID) (decimal.Decimal, bool) {
	for t := tx; t != nil; t = t.parent {
		if b, ok := t.balances[id]; ok {
			return b, true
		}
	}
	return decimal.Zero, false
}

func (tx *Tx) pendingKey(key string) bool {
	for t := tx; t != nil; t = t.parent {
		for _, k := range t.keys {
			if k.Key == key {
				return true
			}
		}
	}
	return false
}

func (tx *Tx) pendingConsumed(id uuid.UUID) (time.Time, bool) {
	for t := tx; t != nil; t = t.parent {
		if at, ok := t.consumed[id]; ok {
			return at, true
		}
	}
	return time.Time{}, false
}

func asTx(tx pgx.Tx, store *Store) (*Tx, error) {
	if tx == nil {
		return nil, errNotInTx
	}
	t, ok := tx.(*Tx)
	if !ok || t.store != store {
		return nil, errForeignTx
	}
	if t.closed {
		return nil, errTxClosed
	}
	return t, nil
}
