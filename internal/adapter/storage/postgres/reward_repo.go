package postgres

import (
	"context"
	"errors"
	"fmt"

	"campus-coin-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const rewardColumns = `id, title, description, cost, partner_id, media_url, created_at`

// RewardRepo implements ports.RewardRepository.
type RewardRepo struct {
	pool Pool
}

// NewRewardRepo creates a new RewardRepo.
func NewRewardRepo(pool Pool) *RewardRepo {
	return &RewardRepo{pool: pool}
}

// CreatePartner inserts a partner company.
func (r *RewardRepo) CreatePartner(ctx context.Context, p *domain.Partner) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO partners (id, name, email) VALUES ($1, $2, $3)`,
		p.ID, p.Name, p.Email,
	)
	if err != nil {
		return fmt.Errorf("insert partner: %w", err)
	}
	return nil
}

// Create inserts a reward item.
func (r *RewardRepo) Create(ctx context.Context, rw *domain.RewardItem) error {
	query := `INSERT INTO rewards (` + rewardColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		rw.ID, rw.Title, rw.Description, rw.Cost, rw.PartnerID, rw.MediaURL, rw.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reward: %w", err)
	}
	return nil
}

// GetByID fetches a reward outside any transaction.
func (r *RewardRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.RewardItem, error) {
	return r.get(ctx, r.pool.QueryRow(ctx, `SELECT `+rewardColumns+` FROM rewards WHERE id = $1`, id))
}

// GetByIDTx fetches a reward inside tx.
func (r *RewardRepo) GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.RewardItem, error) {
	return r.get(ctx, tx.QueryRow(ctx, `SELECT `+rewardColumns+` FROM rewards WHERE id = $1`, id))
}

func (r *RewardRepo) get(_ context.Context, row pgx.Row) (*domain.RewardItem, error) {
	rw := &domain.RewardItem{}
	err := row.Scan(&rw.ID, &rw.Title, &rw.Description, &rw.Cost, &rw.PartnerID, &rw.MediaURL, &rw.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return rw, nil
}

// GetPartner fetches a partner by ID.
func (r *RewardRepo) GetPartner(ctx context.Context, id uuid.UUID) (*domain.Partner, error) {
	p := &domain.Partner{}
	err := r.pool.QueryRow(ctx, `SELECT id, name, email FROM partners WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get partner: %w", err)
	}
	return p, nil
}

// List returns the catalog, optionally restricted to one partner, ordered by title.
func (r *RewardRepo) List(ctx context.Context, partnerID *uuid.UUID) ([]domain.RewardItem, error) {
	query := `SELECT ` + rewardColumns + ` FROM rewards`
	var args []any
	if partnerID != nil {
		query += ` WHERE partner_id = $1`
		args = append(args, *partnerID)
	}
	query += ` ORDER BY title`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var items []domain.RewardItem
	for rows.Next() {
		var rw domain.RewardItem
		if err := rows.Scan(&rw.ID, &rw.Title, &rw.Description, &rw.Cost, &rw.PartnerID, &rw.MediaURL, &rw.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		items = append(items, rw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rewards: %w", err)
	}
	return items, nil
}
