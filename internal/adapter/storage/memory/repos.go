package memory

import (
	"context"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"campus-coin-ledger/internal/core/domain"
	"campus-coin-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	store *Store
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(store *Store) *AccountRepo {
	return &AccountRepo{store: store}
}

func (r *AccountRepo) Create(_ context.Context, a *domain.Account) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.ID]; ok {
		return fmt.Errorf("insert account: duplicate id %s", a.ID)
	}
	if a.Balance.IsNegative() {
		return fmt.Errorf("insert account: negative balance")
	}
	s.accounts[a.ID] = *a
	return nil
}

func (r *AccountRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// GetByIDForUpdate locks the account row for the lifetime of tx.
func (r *AccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	t, err := asTx(tx, r.store)
	if err != nil {
		return nil, err
	}

	a, err := r.GetByID(ctx, id)
	if err != nil || a == nil {
		return nil, err
	}
	if err := t.lock(ctx, accountKey(id)); err != nil {
		return nil, fmt.Errorf("get account for update: %w", err)
	}

	// Re-read after the lock so the caller sees the latest committed balance.
	a, _ = r.GetByID(ctx, id)
	if b, ok := t.pendingBalance(id); ok {
		a.Balance = b
	}
	return a, nil
}

func (r *AccountRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, balance decimal.Decimal) error {
	t, err := asTx(tx, r.store)
	if err != nil {
		return err
	}
	if balance.IsNegative() {
		return fmt.Errorf("update account balance: check constraint violated for %s", id)
	}
	a, _ := r.GetByID(ctx, id)
	if a == nil {
		return fmt.Errorf("account not found: %s", id)
	}
	if err := t.lock(ctx, accountKey(id)); err != nil {
		return fmt.Errorf("update account balance: %w", err)
	}
	t.balances[id] = balance
	return nil
}

// CreditAllInstructors locks every instructor row in ID order and buffers the credit.
func (r *AccountRepo) CreditAllInstructors(ctx context.Context, tx pgx.Tx, amount decimal.Decimal) (int64, error) {
	t, err := asTx(tx, r.store)
	if err != nil {
		return 0, err
	}

	s := r.store
	s.mu.RLock()
	var ids []uuid.UUID
	for id, a := range s.accounts {
		if a.IsInstructor() {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, id := range ids {
		if err := t.lock(ctx, accountKey(id)); err != nil {
			return 0, fmt.Errorf("credit instructors: %w", err)
		}
		current, ok := t.pendingBalance(id)
		if !ok {
			a, _ := r.GetByID(ctx, id)
			current = a.Balance
		}
		t.balances[id] = current.Add(amount)
	}
	return int64(len(ids)), nil
}

// RewardRepo implements ports.RewardRepository.
type RewardRepo struct {
	store *Store
}

// NewRewardRepo creates a new RewardRepo.
func NewRewardRepo(store *Store) *RewardRepo {
	return &RewardRepo{store: store}
}

func (r *RewardRepo) CreatePartner(_ context.Context, p *domain.Partner) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partners[p.ID] = *p
	return nil
}

func (r *RewardRepo) Create(_ context.Context, rw *domain.RewardItem) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.partners[rw.PartnerID]; !ok {
		return fmt.Errorf("insert reward: unknown partner %s", rw.PartnerID)
	}
	s.rewards[rw.ID] = *rw
	return nil
}

func (r *RewardRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.RewardItem, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	rw, ok := s.rewards[id]
	if !ok {
		return nil, nil
	}
	return &rw, nil
}

func (r *RewardRepo) GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.RewardItem, error) {
	if _, err := asTx(tx, r.store); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *RewardRepo) GetPartner(_ context.Context, id uuid.UUID) (*domain.Partner, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.partners[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *RewardRepo) List(_ context.Context, partnerID *uuid.UUID) ([]domain.RewardItem, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []domain.RewardItem
	for _, rw := range s.rewards {
		if partnerID != nil && rw.PartnerID != *partnerID {
			continue
		}
		items = append(items, rw)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Title < items[j].Title })
	return items, nil
}

// LedgerRepo implements ports.LedgerRepository.
type LedgerRepo struct {
	store *Store
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(store *Store) *LedgerRepo {
	return &LedgerRepo{store: store}
}

// Create reserves the validation code immediately and buffers the entry until commit.
func (r *LedgerRepo) Create(_ context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	t, err := asTx(tx, r.store)
	if err != nil {
		return err
	}
	if !e.Amount.IsPositive() {
		return fmt.Errorf("insert ledger entry: check constraint violated for amount")
	}
	if utf8.RuneCountInString(e.Memo) > domain.MaxMemoLength {
		return fmt.Errorf("insert ledger entry: memo longer than %d characters", domain.MaxMemoLength)
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.codes[e.ValidationCode]; taken {
		return ports.ErrDuplicateValidationCode
	}
	s.codes[e.ValidationCode] = e.ID
	t.entries = append(t.entries, *e)
	return nil
}

func (r *LedgerRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	se, ok := s.entries[id]
	if !ok {
		return nil, nil
	}
	e := se.entry
	return &e, nil
}

func (r *LedgerRepo) GetCoupon(_ context.Context, code string) (*domain.Coupon, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return r.couponLocked(code), nil
}

// couponLocked resolves a committed redemption entry. Caller holds s.mu.
func (r *LedgerRepo) couponLocked(code string) *domain.Coupon {
	s := r.store
	id, ok := s.codes[code]
	if !ok {
		return nil
	}
	se, ok := s.entries[id]
	if !ok || se.entry.Kind != domain.EntryKindRedemption || se.entry.RewardID == nil {
		return nil
	}
	rw, ok := s.rewards[*se.entry.RewardID]
	if !ok {
		return nil
	}
	return &domain.Coupon{Entry: se.entry, PartnerID: rw.PartnerID, RewardTitle: rw.Title}
}

// GetCouponForUpdate locks the entry row, then re-reads it.
func (r *LedgerRepo) GetCouponForUpdate(ctx context.Context, tx pgx.Tx, code string) (*domain.Coupon, error) {
	t, err := asTx(tx, r.store)
	if err != nil {
		return nil, err
	}

	c, _ := r.GetCoupon(ctx, code)
	if c == nil {
		return nil, nil
	}
	if err := t.lock(ctx, entryKey(c.Entry.ID)); err != nil {
		return nil, fmt.Errorf("get coupon for update: %w", err)
	}

	c, _ = r.GetCoupon(ctx, code)
	if at, ok := t.pendingConsumed(c.Entry.ID); ok {
		c.Entry.Consumed = true
		c.Entry.ConsumedAt = &at
	}
	return c, nil
}

func (r *LedgerRepo) MarkConsumed(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error {
	t, err := asTx(tx, r.store)
	if err != nil {
		return err
	}
	e, _ := r.GetByID(ctx, id)
	_, pending := t.pendingConsumed(id)
	if e == nil || e.Consumed || pending {
		return fmt.Errorf("coupon %s not found or already consumed", id)
	}
	if err := t.lock(ctx, entryKey(id)); err != nil {
		return fmt.Errorf("mark coupon consumed: %w", err)
	}
	t.consumed[id] = at
	return nil
}

// List returns committed entries for the account, newest first.
func (r *LedgerRepo) List(_ context.Context, q domain.HistoryQuery) ([]domain.LedgerEntry, int64, error) {
	s := r.store
	s.mu.RLock()
	var matched []storedEntry
	for _, se := range s.entries {
		if matchesHistory(se.entry, q) {
			matched = append(matched, se)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.entry.CreatedAt.Equal(b.entry.CreatedAt) {
			return a.entry.CreatedAt.After(b.entry.CreatedAt)
		}
		return a.seq > b.seq
	})

	total := int64(len(matched))
	start := min(max(q.Offset(), 0), len(matched))
	end := min(start+max(q.PageSize, 0), len(matched))

	entries := make([]domain.LedgerEntry, 0, end-start)
	for _, se := range matched[start:end] {
		entries = append(entries, se.entry)
	}
	return entries, total, nil
}

func matchesHistory(e domain.LedgerEntry, q domain.HistoryQuery) bool {
	if q.Kind != nil && e.Kind != *q.Kind {
		return false
	}
	sent := e.SourceAccountID != nil && *e.SourceAccountID == q.AccountID
	received := e.DestinationAccountID != nil && *e.DestinationAccountID == q.AccountID
	switch q.Direction {
	case domain.DirectionSent:
		return sent
	case domain.DirectionReceived:
		return received
	default:
		return sent || received
	}
}

// IdempotencyRepo implements ports.IdempotencyRepository. Create holds a row
// lock on the key until the transaction ends, so a concurrent writer of the
// same key waits and then sees it committed.
type IdempotencyRepo struct {
	store *Store
}

// NewIdempotencyRepo creates an IdempotencyRepo over store.
func NewIdempotencyRepo(store *Store) *IdempotencyRepo {
	return &IdempotencyRepo{store: store}
}

func (r *IdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, rec *domain.IdempotencyRecord) error {
	t, err := asTx(tx, r.store)
	if err != nil {
		return err
	}
	if err := t.lock(ctx, idempotencyLockKey(rec.Key)); err != nil {
		return err
	}

	r.store.mu.RLock()
	_, committed := r.store.keys[rec.Key]
	r.store.mu.RUnlock()
	if committed || t.pendingKey(rec.Key) {
		return ports.ErrDuplicateIdempotencyKey
	}
	t.keys = append(t.keys, *rec)
	return nil
}

func (r *IdempotencyRepo) Get(_ context.Context, key string) (*domain.IdempotencyRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	rec, ok := r.store.keys[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct {
	store *Store
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(store *Store) *AuditRepo {
	return &AuditRepo{store: store}
}

func (r *AuditRepo) Create(_ context.Context, tx pgx.Tx, log *domain.AuditLog) error {
	if tx != nil {
		t, err := asTx(tx, r.store)
		if err != nil {
			return err
		}
		t.audits = append(t.audits, *log)
		return nil
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, *log)
	return nil
}
