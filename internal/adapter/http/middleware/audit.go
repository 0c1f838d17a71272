package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"campus-coin-ledger/internal/core/domain"
	"campus-coin-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog records successful ledger writes. The bulk top-up writes its own
// audit row inside the crediting transaction and is not mapped here.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method != http.MethodPost {
			return
		}

		action, resourceType := mapPathToAction(c.Request.URL.Path)
		if action == "" {
			return
		}

		var actorID *uuid.UUID
		if p, ok := PrincipalFrom(c); ok {
			id := p.Subject
			actorID = &id
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"request_id": c.GetString(CtxRequestID),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			ActorID:      actorID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   c.GetString(CtxResourceID),
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now(),
		})
	}
}

func mapPathToAction(path string) (domain.AuditAction, string) {
	switch path {
	case "/api/v1/transfers":
		return domain.AuditActionTransfer, "ledger_entry"
	case "/api/v1/redemptions":
		return domain.AuditActionRedeem, "ledger_entry"
	case "/api/v1/coupons/validate":
		return domain.AuditActionValidateCoupon, "ledger_entry"
	}
	return "", ""
}
