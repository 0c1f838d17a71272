package ports

import (
	"context"
	"errors"
	"time"

	"campus-coin-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ErrDuplicateValidationCode is returned by LedgerRepository.Create when the
// validation code collides with an existing entry.
var ErrDuplicateValidationCode = errors.New("duplicate validation code")

// ErrDuplicateIdempotencyKey is returned by IdempotencyRepository.Create when
// another transaction already committed the key.
var ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

// AccountRepository defines persistence operations for coin accounts.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, balance decimal.Decimal) error
	// CreditAllInstructors adds amount to every instructor balance in one
	// statement and returns the number of accounts credited.
	CreditAllInstructors(ctx context.Context, tx pgx.Tx, amount decimal.Decimal) (int64, error)
}

// RewardRepository defines read access to the reward catalog and partners.
type RewardRepository interface {
	CreatePartner(ctx context.Context, partner *domain.Partner) error
	Create(ctx context.Context, reward *domain.RewardItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.RewardItem, error)
	// GetByIDTx reads the reward inside tx so its cost is the one charged.
	GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.RewardItem, error)
	GetPartner(ctx context.Context, id uuid.UUID) (*domain.Partner, error)
	List(ctx context.Context, partnerID *uuid.UUID) ([]domain.RewardItem, error)
}

// LedgerRepository defines persistence operations for ledger entries.
type LedgerRepository interface {
	Create(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error)
	// GetCoupon reads a coupon without locking. Returns nil, nil when the
	// code does not belong to a redemption entry.
	GetCoupon(ctx context.Context, code string) (*domain.Coupon, error)
	GetCouponForUpdate(ctx context.Context, tx pgx.Tx, code string) (*domain.Coupon, error)
	MarkConsumed(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error
	List(ctx context.Context, q domain.HistoryQuery) ([]domain.LedgerEntry, int64, error)
}

// IdempotencyRepository stores idempotency keys in the same transaction as
// the entry they produce. Create blocks while another open transaction holds
// the same key.
type IdempotencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, record *domain.IdempotencyRecord) error
	Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error)
}

// AuditRepository persists audit records.
type AuditRepository interface {
	// Create writes inside tx when tx is non-nil, otherwise on its own.
	Create(ctx context.Context, tx pgx.Tx, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
