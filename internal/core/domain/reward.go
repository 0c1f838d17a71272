package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Partner is a company that offers rewards and validates their coupons.
type Partner struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// RewardItem is a catalog entry purchasable with coins.
type RewardItem struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Cost        decimal.Decimal `json:"cost"`
	PartnerID   uuid.UUID       `json:"partner_id"`
	MediaURL    *string         `json:"media_url,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
