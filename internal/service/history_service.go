package service

import (
	"context"
	"fmt"

	"campus-coin-ledger/internal/core/domain"
	"campus-coin-ledger/internal/core/ports"
	"campus-coin-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HistoryServiceImpl implements ports.HistoryService.
type HistoryServiceImpl struct {
	accounts ports.AccountRepository
	rewards  ports.RewardRepository
	ledger   ports.LedgerRepository
	log      zerolog.Logger
}

// NewHistoryService creates a new HistoryServiceImpl.
func NewHistoryService(
	accounts ports.AccountRepository,
	rewards ports.RewardRepository,
	ledger ports.LedgerRepository,
	log zerolog.Logger,
) *HistoryServiceImpl {
	return &HistoryServiceImpl{
		accounts: accounts,
		rewards:  rewards,
		ledger:   ledger,
		log:      log,
	}
}

// History returns committed entries touching the account, newest first.
func (s *HistoryServiceImpl) History(ctx context.Context, q domain.HistoryQuery) ([]domain.LedgerEntry, int64, error) {
	q.Normalize()
	if !q.Direction.Valid() {
		return nil, 0, apperror.Validation("direction must be one of all, sent, received")
	}
	if q.Kind != nil && !q.Kind.Valid() {
		return nil, 0, apperror.Validation("kind must be TRANSFER or REDEMPTION")
	}

	account, err := s.accounts.GetByID(ctx, q.AccountID)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return nil, 0, apperror.ErrAccountNotFound()
	}

	entries, total, err := s.ledger.List(ctx, q)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list entries: %w", err))
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	return entries, total, nil
}

// GetEntry returns one ledger entry by ID.
func (s *HistoryServiceImpl) GetEntry(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	entry, err := s.ledger.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get entry: %w", err))
	}
	if entry == nil {
		return nil, apperror.ErrEntryNotFound()
	}
	return entry, nil
}

// GetBalance returns the account with its current balance.
func (s *HistoryServiceImpl) GetBalance(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound()
	}
	return account, nil
}

// ListRewards lists the catalog, optionally restricted to one partner.
func (s *HistoryServiceImpl) ListRewards(ctx context.Context, partnerID *uuid.UUID) ([]domain.RewardItem, error) {
	rewards, err := s.rewards.List(ctx, partnerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list rewards: %w", err))
	}
	if rewards == nil {
		rewards = []domain.RewardItem{}
	}
	return rewards, nil
}
