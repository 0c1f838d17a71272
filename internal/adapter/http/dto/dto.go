package dto

import (
	"time"

	"campus-coin-ledger/internal/core/domain"
	"campus-coin-ledger/internal/core/ports"

	"github.com/google/uuid"
)

// TransferRequest is the request body for an instructor-to-student transfer.
type TransferRequest struct {
	StudentID      string `json:"student_id" binding:"required,uuid"`
	Amount         string `json:"amount" binding:"required,max=32"`
	Memo           string `json:"memo" binding:"max=255,memo_text" sanitize:"trim"`
	IdempotencyKey string `json:"idempotency_key,omitempty" binding:"omitempty,max=100,safe_id"`
}

// RedeemRequest is the request body for a reward redemption.
type RedeemRequest struct {
	RewardID       string `json:"reward_id" binding:"required,uuid"`
	IdempotencyKey string `json:"idempotency_key,omitempty" binding:"omitempty,max=100,safe_id"`
}

// ValidateCouponRequest is the request body for partner coupon validation.
type ValidateCouponRequest struct {
	Code string `json:"code" binding:"required,max=32,safe_id"`
}

// TopUpRequest is the request body for the bulk instructor credit.
type TopUpRequest struct {
	Amount string `json:"amount" binding:"required,max=32"`
}

// HistoryQuery carries the query string of the history listing.
type HistoryQuery struct {
	Direction string `form:"direction" binding:"omitempty,oneof=all sent received"`
	Kind      string `form:"kind" binding:"omitempty,oneof=TRANSFER REDEMPTION"`
	Page      int    `form:"page" binding:"omitempty,min=1,max=100000"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1"`
}

// RewardQuery carries the optional partner filter of the catalog listing.
type RewardQuery struct {
	PartnerID string `form:"partner_id" binding:"omitempty,uuid"`
}

// EntryResponse is the response body for a ledger entry.
type EntryResponse struct {
	ID                   string  `json:"id"`
	Kind                 string  `json:"kind"`
	SourceAccountID      *string `json:"source_account_id,omitempty"`
	DestinationAccountID *string `json:"destination_account_id,omitempty"`
	RewardID             *string `json:"reward_id,omitempty"`
	Amount               string  `json:"amount"`
	Memo                 string  `json:"memo"`
	ValidationCode       string  `json:"validation_code"`
	Consumed             bool    `json:"consumed"`
	ConsumedAt           *string `json:"consumed_at,omitempty"`
	CreatedAt            string  `json:"created_at"`
}

// BalanceResponse is the response body for an account balance.
type BalanceResponse struct {
	AccountID string `json:"account_id"`
	Kind      string `json:"kind"`
	OwnerName string `json:"owner_name"`
	Balance   string `json:"balance"`
}

// RewardResponse is the response body for a catalog item.
type RewardResponse struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Cost        string  `json:"cost"`
	PartnerID   string  `json:"partner_id"`
	MediaURL    *string `json:"media_url,omitempty"`
}

// TopUpResponse is the response body for the bulk instructor credit.
type TopUpResponse struct {
	Amount           string `json:"amount"`
	AccountsCredited int64  `json:"accounts_credited"`
}

// NewEntryResponse converts a ledger entry for the wire.
func NewEntryResponse(e *domain.LedgerEntry) EntryResponse {
	resp := EntryResponse{
		ID:                   e.ID.String(),
		Kind:                 string(e.Kind),
		SourceAccountID:      uuidString(e.SourceAccountID),
		DestinationAccountID: uuidString(e.DestinationAccountID),
		RewardID:             uuidString(e.RewardID),
		Amount:               domain.FormatAmount(e.Amount),
		Memo:                 e.Memo,
		ValidationCode:       e.ValidationCode,
		Consumed:             e.Consumed,
		CreatedAt:            e.CreatedAt.UTC().Format(time.RFC3339),
	}
	if e.ConsumedAt != nil {
		s := e.ConsumedAt.UTC().Format(time.RFC3339)
		resp.ConsumedAt = &s
	}
	return resp
}

// NewEntryResponses converts a page of entries.
func NewEntryResponses(entries []domain.LedgerEntry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, NewEntryResponse(&entries[i]))
	}
	return out
}

func NewBalanceResponse(a *domain.Account) BalanceResponse {
	return BalanceResponse{
		AccountID: a.ID.String(),
		Kind:      string(a.Kind),
		OwnerName: a.OwnerName,
		Balance:   domain.FormatAmount(a.Balance),
	}
}

func NewRewardResponses(items []domain.RewardItem) []RewardResponse {
	out := make([]RewardResponse, 0, len(items))
	for _, r := range items {
		out = append(out, RewardResponse{
			ID:          r.ID.String(),
			Title:       r.Title,
			Description: r.Description,
			Cost:        domain.FormatAmount(r.Cost),
			PartnerID:   r.PartnerID.String(),
			MediaURL:    r.MediaURL,
		})
	}
	return out
}

func NewTopUpResponse(r *ports.TopUpResult) TopUpResponse {
	return TopUpResponse{
		Amount:           domain.FormatAmount(r.Amount),
		AccountsCredited: r.AccountsCredited,
	}
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
