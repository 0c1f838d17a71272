package handler

import (
	"campus-coin-ledger/internal/adapter/http/dto"
	"campus-coin-ledger/internal/adapter/http/middleware"
	"campus-coin-ledger/internal/core/domain"
	"campus-coin-ledger/internal/core/ports"
	"campus-coin-ledger/pkg/apperror"
	"campus-coin-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HistoryHandler handles the read-only ledger endpoints.
type HistoryHandler struct {
	historySvc ports.HistoryService
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(historySvc ports.HistoryService) *HistoryHandler {
	return &HistoryHandler{historySvc: historySvc}
}

// ListEntries handles GET /api/v1/accounts/:id/entries.
func (h *HistoryHandler) ListEntries(c *gin.Context) {
	accountID, ok := ownAccount(c)
	if !ok {
		return
	}

	var params dto.HistoryQuery
	if err := c.ShouldBindQuery(&params); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	q := domain.HistoryQuery{
		AccountID: accountID,
		Direction: domain.Direction(params.Direction),
		Page:      params.Page,
		PageSize:  params.PageSize,
	}
	if params.Kind != "" {
		kind := domain.EntryKind(params.Kind)
		q.Kind = &kind
	}
	q.Normalize()

	entries, total, err := h.historySvc.History(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paged(c, dto.NewEntryResponses(entries), q.Page, q.PageSize, total)
}

// GetBalance handles GET /api/v1/accounts/:id/balance.
func (h *HistoryHandler) GetBalance(c *gin.Context) {
	accountID, ok := ownAccount(c)
	if !ok {
		return
	}

	account, err := h.historySvc.GetBalance(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewBalanceResponse(account))
}

// GetEntry handles GET /api/v1/entries/:id.
func (h *HistoryHandler) GetEntry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("entry id must be a UUID"))
		return
	}

	entry, err := h.historySvc.GetEntry(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewEntryResponse(entry))
}

// ListRewards handles GET /api/v1/rewards.
func (h *HistoryHandler) ListRewards(c *gin.Context) {
	var params dto.RewardQuery
	if err := c.ShouldBindQuery(&params); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	var partnerID *uuid.UUID
	if params.PartnerID != "" {
		id, err := uuid.Parse(params.PartnerID)
		if err != nil {
			response.Error(c, apperror.Validation("partner_id must be a UUID"))
			return
		}
		partnerID = &id
	}

	items, err := h.historySvc.ListRewards(c.Request.Context(), partnerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewRewardResponses(items))
}

// ownAccount parses :id and checks the caller may read it. Admins may read
// any account; everyone else only their own.
func ownAccount(c *gin.Context) (uuid.UUID, bool) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return uuid.Nil, false
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("account id must be a UUID"))
		return uuid.Nil, false
	}

	if principal.Role != domain.RoleAdmin && principal.Subject != id {
		response.Error(c, apperror.ErrForbidden())
		return uuid.Nil, false
	}
	return id, true
}
