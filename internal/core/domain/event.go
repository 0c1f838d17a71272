package domain

import "time"

// LedgerEvent is the externally published shape of a committed ledger entry
// or consumed coupon.
type LedgerEvent struct {
	Type                 string    `json:"type"` // entry.created, coupon.consumed
	EntryID              string    `json:"entry_id"`
	Kind                 EntryKind `json:"kind"`
	SourceAccountID      string    `json:"source_account_id,omitempty"`
	DestinationAccountID string    `json:"destination_account_id,omitempty"`
	RewardID             string    `json:"reward_id,omitempty"`
	Amount               string    `json:"amount"`
	OccurredAt           time.Time `json:"occurred_at"`
}

const (
	EventEntryCreated   = "entry.created"
	EventCouponConsumed = "coupon.consumed"
)

// NewLedgerEvent builds an event of the given type from entry.
func NewLedgerEvent(eventType string, entry *LedgerEntry, at time.Time) LedgerEvent {
	ev := LedgerEvent{
		Type:       eventType,
		EntryID:    entry.ID.String(),
		Kind:       entry.Kind,
		Amount:     FormatAmount(entry.Amount),
		OccurredAt: at,
	}
	if entry.SourceAccountID != nil {
		ev.SourceAccountID = entry.SourceAccountID.String()
	}
	if entry.DestinationAccountID != nil {
		ev.DestinationAccountID = entry.DestinationAccountID.String()
	}
	if entry.RewardID != nil {
		ev.RewardID = entry.RewardID.String()
	}
	return ev
}
