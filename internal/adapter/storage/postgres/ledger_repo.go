package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"campus-coin-ledger/internal/core/domain"
	"campus-coin-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	entryColumns = `id, kind, source_account_id, destination_account_id, reward_id, amount,
		memo, validation_code, consumed, consumed_at, created_at`

	couponQuery = `SELECT e.id, e.kind, e.source_account_id, e.destination_account_id, e.reward_id, e.amount,
		e.memo, e.validation_code, e.consumed, e.consumed_at, e.created_at, r.partner_id, r.title
		FROM ledger_entries e JOIN rewards r ON r.id = e.reward_id
		WHERE e.validation_code = $1 AND e.kind = 'REDEMPTION'`

	uniqueViolation          = "23505"
	validationCodeConstraint = "ledger_entries_validation_code_key"
)

// LedgerRepo implements ports.LedgerRepository.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Create inserts a ledger entry within a transaction. A validation code
// collision is reported as ports.ErrDuplicateValidationCode.
func (r *LedgerRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		e.ID, string(e.Kind), e.SourceAccountID, e.DestinationAccountID, e.RewardID, e.Amount,
		e.Memo, e.ValidationCode, e.Consumed, e.ConsumedAt, e.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == validationCodeConstraint {
			return ports.ErrDuplicateValidationCode
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// GetByID fetches a ledger entry by its UUID.
func (r *LedgerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE id = $1`

	e := &domain.LedgerEntry{}
	if err := r.pool.QueryRow(ctx, query, id).Scan(entryDest(e)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ledger entry by id: %w", err)
	}
	return e, nil
}

// GetCoupon fetches a redemption entry by code together with its reward's partner.
func (r *LedgerRepo) GetCoupon(ctx context.Context, code string) (*domain.Coupon, error) {
	c, err := scanCoupon(r.pool.QueryRow(ctx, couponQuery, code))
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	return c, nil
}

// GetCouponForUpdate is GetCoupon with a row lock on the ledger entry.
// This MUST be called within a transaction.
func (r *LedgerRepo) GetCouponForUpdate(ctx context.Context, tx pgx.Tx, code string) (*domain.Coupon, error) {
	c, err := scanCoupon(tx.QueryRow(ctx, couponQuery+` FOR UPDATE OF e`, code))
	if err != nil {
		return nil, fmt.Errorf("get coupon for update: %w", err)
	}
	return c, nil
}

// MarkConsumed flips the consumed flag. The WHERE clause keeps the flag monotonic.
func (r *LedgerRepo) MarkConsumed(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error {
	query := `UPDATE ledger_entries SET consumed = TRUE, consumed_at = $1 WHERE id = $2 AND consumed = FALSE`

	tag, err := tx.Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("mark coupon consumed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("coupon %s not found or already consumed", id)
	}
	return nil
}

// List fetches an account's entries, newest first, with filtering and pagination.
func (r *LedgerRepo) List(ctx context.Context, q domain.HistoryQuery) ([]domain.LedgerEntry, int64, error) {
	var conditions []string
	args := []any{q.AccountID}
	argIdx := 2

	switch q.Direction {
	case domain.DirectionSent:
		conditions = append(conditions, "source_account_id = $1")
	case domain.DirectionReceived:
		conditions = append(conditions, "destination_account_id = $1")
	default:
		conditions = append(conditions, "(source_account_id = $1 OR destination_account_id = $1)")
	}
	if q.Kind != nil {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", argIdx))
		args = append(args, string(*q.Kind))
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	// Count total
	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM ledger_entries "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	// Fetch page
	dataQuery := fmt.Sprintf(`SELECT %s FROM ledger_entries %s
		ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, entryColumns, where, argIdx, argIdx+1)
	args = append(args, q.PageSize, q.Offset())

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(entryDest(&e)...); err != nil {
			return nil, 0, fmt.Errorf("scan ledger entry row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate ledger entry rows: %w", err)
	}
	return entries, total, nil
}

func entryDest(e *domain.LedgerEntry) []any {
	return []any{
		&e.ID, &e.Kind, &e.SourceAccountID, &e.DestinationAccountID, &e.RewardID, &e.Amount,
		&e.Memo, &e.ValidationCode, &e.Consumed, &e.ConsumedAt, &e.CreatedAt,
	}
}

func scanCoupon(row pgx.Row) (*domain.Coupon, error) {
	c := &domain.Coupon{}
	dest := append(entryDest(&c.Entry), &c.PartnerID, &c.RewardTitle)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}
