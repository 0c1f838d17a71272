package domain

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryKind represents the kind of coin movement.
type EntryKind string

const (
	EntryKindTransfer   EntryKind = "TRANSFER"
	EntryKindRedemption EntryKind = "REDEMPTION"
)

// Valid reports whether k is a known entry kind.
func (k EntryKind) Valid() bool {
	return k == EntryKindTransfer || k == EntryKindRedemption
}

// LedgerEntry is an immutable record of one coin movement. Only Consumed and
// ConsumedAt change after insert, and only from false to true.
type LedgerEntry struct {
	ID                   uuid.UUID       `json:"id"`
	Kind                 EntryKind       `json:"kind"`
	SourceAccountID      *uuid.UUID      `json:"source_account_id,omitempty"`
	DestinationAccountID *uuid.UUID      `json:"destination_account_id,omitempty"`
	RewardID             *uuid.UUID      `json:"reward_id,omitempty"`
	Amount               decimal.Decimal `json:"amount"`
	Memo                 string          `json:"memo"`
	ValidationCode       string          `json:"validation_code"`
	Consumed             bool            `json:"consumed"`
	ConsumedAt           *time.Time      `json:"consumed_at,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
}

// IsCoupon reports whether the entry carries a redeemable coupon.
func (e *LedgerEntry) IsCoupon() bool {
	return e.Kind == EntryKindRedemption && e.RewardID != nil
}

// Coupon is a redemption entry together with the partner that owns its reward.
type Coupon struct {
	Entry       LedgerEntry
	PartnerID   uuid.UUID
	RewardTitle string
}

// Direction filters history relative to the queried account.
type Direction string

const (
	DirectionAll      Direction = "all"
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionAll || d == DirectionSent || d == DirectionReceived
}

// HistoryQuery holds filter + pagination for listing ledger entries.
type HistoryQuery struct {
	AccountID uuid.UUID
	Direction Direction
	Kind      *EntryKind
	Page      int
	PageSize  int
}

const (
	// MaxMemoLength matches the ledger_entries.memo column, in characters.
	MaxMemoLength = 255

	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage keeps (Page-1)*PageSize far from int overflow.
	MaxPage = 100000
)

// Normalize fills defaults and clamps pagination.
func (q *HistoryQuery) Normalize() {
	if q.Direction == "" {
		q.Direction = DirectionAll
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
}

// Offset returns the row offset for the current page. It is never negative.
func (q *HistoryQuery) Offset() int {
	if q.Page < 1 || q.PageSize < 1 {
		return 0
	}
	page, size := min(q.Page, MaxPage), min(q.PageSize, MaxPageSize)
	return (page - 1) * size
}

// TruncateMemo cuts memo to MaxMemoLength characters.
func TruncateMemo(memo string) string {
	if utf8.RuneCountInString(memo) <= MaxMemoLength {
		return memo
	}
	return string([]rune(memo)[:MaxMemoLength])
}
