package domain

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestIsValidAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   bool
	}{
		{"whole", "100", true},
		{"two decimals", "0.01", true},
		{"trailing zeros", "1.500", true},
		{"three decimals", "1.005", false},
		{"zero", "0", false},
		{"negative", "-5", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidAmount(decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestParseAmount(t *testing.T) {
	d, ok := ParseAmount(" 250.00 ")
	assert.True(t, ok)
	assert.Equal(t, "250.00", FormatAmount(d))

	_, ok = ParseAmount("abc")
	assert.False(t, ok)

	_, ok = ParseAmount("12.345")
	assert.False(t, ok)
}

func TestAccount_CanCover(t *testing.T) {
	acc := &Account{Balance: decimal.RequireFromString("100.00")}

	assert.True(t, acc.CanCover(decimal.RequireFromString("100")))
	assert.True(t, acc.CanCover(decimal.RequireFromString("0.01")))
	assert.False(t, acc.CanCover(decimal.RequireFromString("100.01")))
}

func TestLedgerEntry_IsCoupon(t *testing.T) {
	rewardID := uuid.New()
	tests := []struct {
		name  string
		entry LedgerEntry
		want  bool
	}{
		{"redemption", LedgerEntry{Kind: EntryKindRedemption, RewardID: &rewardID}, true},
		{"transfer", LedgerEntry{Kind: EntryKindTransfer}, false},
		{"redemption without reward", LedgerEntry{Kind: EntryKindRedemption}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entry.IsCoupon())
		})
	}
}

func TestHistoryQuery_Normalize(t *testing.T) {
	q := HistoryQuery{PageSize: 1000}
	q.Normalize()

	assert.Equal(t, DirectionAll, q.Direction)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, MaxPageSize, q.PageSize)
	assert.Equal(t, 0, q.Offset())

	q = HistoryQuery{Page: 3, PageSize: 10, Direction: DirectionSent}
	q.Normalize()
	assert.Equal(t, 20, q.Offset())
	assert.Equal(t, DirectionSent, q.Direction)
}

func TestHistoryQuery_HugePageDoesNotOverflow(t *testing.T) {
	q := HistoryQuery{Page: 1 << 62, PageSize: 20}
	assert.GreaterOrEqual(t, q.Offset(), 0, "offset before Normalize")

	q.Normalize()
	assert.Equal(t, MaxPage, q.Page)
	assert.Equal(t, (MaxPage-1)*20, q.Offset())

	q = HistoryQuery{Page: 1 << 62, PageSize: 1 << 62}
	assert.GreaterOrEqual(t, q.Offset(), 0)
}

func TestTruncateMemo(t *testing.T) {
	assert.Equal(t, "short", TruncateMemo("short"))

	exact := strings.Repeat("a", MaxMemoLength)
	assert.Equal(t, exact, TruncateMemo(exact))

	long := "Reward redemption: " + strings.Repeat("Ärger ", 60)
	cut := TruncateMemo(long)
	assert.Equal(t, MaxMemoLength, utf8.RuneCountInString(cut))
	assert.True(t, utf8.ValidString(cut))
	assert.True(t, strings.HasPrefix(long, cut))
}

func TestDirectionAndKindValid(t *testing.T) {
	assert.True(t, DirectionReceived.Valid())
	assert.False(t, Direction("sideways").Valid())
	assert.True(t, EntryKindRedemption.Valid())
	assert.False(t, EntryKind("REFUND").Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("ROOT").Valid())
}

func TestBuildIdempotencyKeys(t *testing.T) {
	id := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000:req-1", BuildTransferIdempotencyKey(id, "req-1"))
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000:redeem:req-1", BuildRedeemIdempotencyKey(id, "req-1"))
}

func TestNewLedgerEvent(t *testing.T) {
	src, dst := uuid.New(), uuid.New()
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	entry := &LedgerEntry{
		ID:                   uuid.New(),
		Kind:                 EntryKindTransfer,
		SourceAccountID:      &src,
		DestinationAccountID: &dst,
		Amount:               decimal.RequireFromString("40"),
	}

	ev := NewLedgerEvent(EventEntryCreated, entry, at)

	assert.Equal(t, EventEntryCreated, ev.Type)
	assert.Equal(t, entry.ID.String(), ev.EntryID)
	assert.Equal(t, src.String(), ev.SourceAccountID)
	assert.Equal(t, dst.String(), ev.DestinationAccountID)
	assert.Empty(t, ev.RewardID)
	assert.Equal(t, "40.00", ev.Amount)
	assert.Equal(t, at, ev.OccurredAt)
}
