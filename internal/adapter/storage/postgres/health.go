package postgres

import (
	"context"
	"fmt"
)

// HealthCheck reports the ledger database as healthy once it answers and
// the ledger schema has been migrated.
type HealthCheck struct {
	pool Pool
}

// NewHealthCheck creates a PostgreSQL health checker.
func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

// Ping fails when ledger_entries or idempotency_keys is missing.
func (h *HealthCheck) Ping(ctx context.Context) error {
	var migrated bool
	err := h.pool.QueryRow(ctx,
		`SELECT to_regclass('ledger_entries') IS NOT NULL AND to_regclass('idempotency_keys') IS NOT NULL`,
	).Scan(&migrated)
	if err != nil {
		return fmt.Errorf("ledger db: %w", err)
	}
	if !migrated {
		return fmt.Errorf("ledger db: schema not migrated")
	}
	return nil
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "postgresql"
}
