package postgres

import (
	"context"
	"fmt"

	"campus-coin-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct {
	pool Pool
}

// NewAuditRepo creates a PostgreSQL-backed audit repository.
func NewAuditRepo(pool Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// Create inserts an audit record, inside tx when one is given.
func (r *AuditRepo) Create(ctx context.Context, tx pgx.Tx, log *domain.AuditLog) error {
	query := `INSERT INTO audit_logs (id, actor_id, action, resource_type, resource_id, details, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	args := []any{
		log.ID, log.ActorID, string(log.Action), log.ResourceType,
		log.ResourceID, nullableJSON(log.Details), log.IPAddress, log.CreatedAt,
	}

	var err error
	if tx != nil {
		_, err = tx.Exec(ctx, query, args...)
	} else {
		_, err = r.pool.Exec(ctx, query, args...)
	}
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func nullableJSON(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
