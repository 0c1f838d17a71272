package domain

// NotificationKind selects the message template.
type NotificationKind string

const (
	NotificationTransferReceipt      NotificationKind = "TRANSFER_RECEIPT"
	NotificationTransferConfirmation NotificationKind = "TRANSFER_CONFIRMATION"
	NotificationCouponIssued         NotificationKind = "COUPON_ISSUED"
	NotificationPartnerRedemption    NotificationKind = "PARTNER_REDEMPTION"
)

// Notification is a post-commit message. It carries plain values only so
// that delivery never reaches back into the ledger.
type Notification struct {
	Kind            NotificationKind
	RecipientName   string
	RecipientEmail  string
	CounterpartName string
	Amount          string
	Balance         string
	Memo            string
	RewardTitle     string
	ValidationCode  string
	EntryID         string
}
