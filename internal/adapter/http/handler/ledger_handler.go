package handler

import (
	"errors"
	"net/http"

	"campus-coin-ledger/internal/adapter/http/dto"
	"campus-coin-ledger/internal/adapter/http/middleware"
	"campus-coin-ledger/internal/core/domain"
	"campus-coin-ledger/internal/core/ports"
	"campus-coin-ledger/pkg/apperror"
	"campus-coin-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LedgerHandler handles the balance-mutating endpoints.
type LedgerHandler struct {
	ledgerSvc ports.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerSvc ports.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerSvc: ledgerSvc}
}

// Transfer handles POST /api/v1/transfers. The instructor is the caller.
func (h *LedgerHandler) Transfer(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	dto.SanitizeStruct(&req)

	studentID, err := uuid.Parse(req.StudentID)
	if err != nil {
		response.Error(c, apperror.Validation("student_id must be a UUID"))
		return
	}
	amount, ok := domain.ParseAmount(req.Amount)
	if !ok {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	entry, err := h.ledgerSvc.Transfer(c.Request.Context(), ports.TransferRequest{
		InstructorID:   principal.Subject,
		StudentID:      studentID,
		Amount:         amount,
		Memo:           req.Memo,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, entry.ID.String())
	response.Created(c, dto.NewEntryResponse(entry))
}

// Redeem handles POST /api/v1/redemptions. The student is the caller.
func (h *LedgerHandler) Redeem(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	dto.SanitizeStruct(&req)

	rewardID, err := uuid.Parse(req.RewardID)
	if err != nil {
		response.Error(c, apperror.Validation("reward_id must be a UUID"))
		return
	}

	entry, err := h.ledgerSvc.Redeem(c.Request.Context(), ports.RedeemRequest{
		StudentID:      principal.Subject,
		RewardID:       rewardID,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, entry.ID.String())
	response.Created(c, dto.NewEntryResponse(entry))
}

// ValidateCoupon handles POST /api/v1/coupons/validate. The partner is the caller.
func (h *LedgerHandler) ValidateCoupon(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	dto.SanitizeStruct(&req)

	entry, err := h.ledgerSvc.ValidateCoupon(c.Request.Context(), req.Code, principal.Subject)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, entry.ID.String())
	response.OK(c, dto.NewEntryResponse(entry))
}

// TopUp handles POST /api/v1/admin/top-up.
func (h *LedgerHandler) TopUp(c *gin.Context) {
	var req dto.TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	dto.SanitizeStruct(&req)

	amount, ok := domain.ParseAmount(req.Amount)
	if !ok {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	result, err := h.ledgerSvc.TopUpAllInstructors(c.Request.Context(), amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewTopUpResponse(result))
}

// bindError maps a JSON binding failure to a client error. A body cut off
// by middleware.MaxBodySize is reported as 413.
func bindError(err error) *apperror.AppError {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperror.ErrPayloadTooLarge()
	}
	return apperror.Validation(err.Error())
}
