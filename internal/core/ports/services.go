package ports

import (
	"context"
	"time"

	"campus-coin-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TokenService validates bearer tokens issued by the auth module.
type TokenService interface {
	Generate(subject uuid.UUID, role domain.Role, ttl time.Duration) (string, error)
	Validate(tokenString string) (*domain.Principal, error)
}

// IdempotencyCache is the Redis-layer idempotency check.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CouponMarker remembers consumed coupon codes.
type CouponMarker interface {
	MarkUsed(ctx context.Context, code string) error
	IsUsed(ctx context.Context, code string) (bool, error)
}

// CodeGenerator produces coupon codes.
type CodeGenerator interface {
	NewCouponCode() (string, error)
}

// Notifier dispatches post-commit notifications. It never blocks the caller
// on delivery and never reports delivery failures.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}

// Mail is one rendered outgoing message.
type Mail struct {
	ToName  string
	ToEmail string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers rendered mail.
type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

// EventPublisher emits committed ledger events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.LedgerEvent) error
	Close() error
}

// AuditService records audit entries without blocking the caller.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// --- Service Ports (Business Logic) ---

// LedgerService defines the balance-mutating ledger operations.
type LedgerService interface {
	Transfer(ctx context.Context, req TransferRequest) (*domain.LedgerEntry, error)
	Redeem(ctx context.Context, req RedeemRequest) (*domain.LedgerEntry, error)
	ValidateCoupon(ctx context.Context, code string, partnerID uuid.UUID) (*domain.LedgerEntry, error)
	TopUpAllInstructors(ctx context.Context, amount decimal.Decimal) (*TopUpResult, error)
}

// TransferRequest holds validated input for an instructor-to-student transfer.
type TransferRequest struct {
	InstructorID   uuid.UUID
	StudentID      uuid.UUID
	Amount         decimal.Decimal
	Memo           string
	IdempotencyKey string
}

// RedeemRequest holds validated input for a reward redemption.
type RedeemRequest struct {
	StudentID      uuid.UUID
	RewardID       uuid.UUID
	IdempotencyKey string
}

// TopUpResult reports a bulk instructor credit.
type TopUpResult struct {
	AccountsCredited int64           `json:"accounts_credited"`
	Amount           decimal.Decimal `json:"amount"`
}

// HistoryService defines read-only ledger queries.
type HistoryService interface {
	History(ctx context.Context, q domain.HistoryQuery) ([]domain.LedgerEntry, int64, error)
	GetEntry(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error)
	GetBalance(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
	ListRewards(ctx context.Context, partnerID *uuid.UUID) ([]domain.RewardItem, error)
}
