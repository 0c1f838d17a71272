package service

import (
	"context"
	"fmt"
	"time"

	"campus-coin-ledger/internal/core/domain"
	"campus-coin-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SeedResult lists the demo rows created by SeedDemoData.
type SeedResult struct {
	Instructors []domain.Account
	Students    []domain.Account
	Partners    []domain.Partner
	Rewards     []domain.RewardItem
}

// SeedDemoData creates a small institution for local development: two
// instructors holding instructorBalance, three students with no coins, two
// partners and their rewards. Account and catalog rows normally come from
// other modules.
func SeedDemoData(
	ctx context.Context,
	accounts ports.AccountRepository,
	rewards ports.RewardRepository,
	instructorBalance decimal.Decimal,
) (*SeedResult, error) {
	now := time.Now().UTC()
	institutionID := uuid.New()
	res := &SeedResult{}

	newAccount := func(kind domain.AccountKind, name, email string, balance decimal.Decimal) domain.Account {
		return domain.Account{
			ID:            uuid.New(),
			Kind:          kind,
			OwnerID:       uuid.New(),
			OwnerName:     name,
			OwnerEmail:    email,
			InstitutionID: institutionID,
			Balance:       balance,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}

	res.Instructors = []domain.Account{
		newAccount(domain.AccountKindInstructor, "Ada Lovelace", "ada@campus.test", instructorBalance),
		newAccount(domain.AccountKindInstructor, "Alan Turing", "alan@campus.test", instructorBalance),
	}
	res.Students = []domain.Account{
		newAccount(domain.AccountKindStudent, "Grace Hopper", "grace@campus.test", decimal.Zero),
		newAccount(domain.AccountKindStudent, "Edsger Dijkstra", "edsger@campus.test", decimal.Zero),
		newAccount(domain.AccountKindStudent, "Barbara Liskov", "barbara@campus.test", decimal.Zero),
	}
	for _, group := range [][]domain.Account{res.Instructors, res.Students} {
		for i := range group {
			if err := accounts.Create(ctx, &group[i]); err != nil {
				return nil, fmt.Errorf("seed account %s: %w", group[i].OwnerEmail, err)
			}
		}
	}

	res.Partners = []domain.Partner{
		{ID: uuid.New(), Name: "Campus Cafe", Email: "cafe@partner.test"},
		{ID: uuid.New(), Name: "University Bookstore", Email: "books@partner.test"},
	}
	for i := range res.Partners {
		if err := rewards.CreatePartner(ctx, &res.Partners[i]); err != nil {
			return nil, fmt.Errorf("seed partner %s: %w", res.Partners[i].Name, err)
		}
	}

	cafe, books := res.Partners[0].ID, res.Partners[1].ID
	res.Rewards = []domain.RewardItem{
		{ID: uuid.New(), Title: "Coffee and pastry", Description: "Any coffee with a pastry", Cost: decimal.RequireFromString("30.00"), PartnerID: cafe, CreatedAt: now},
		{ID: uuid.New(), Title: "Lunch combo", Description: "Daily lunch special", Cost: decimal.RequireFromString("80.00"), PartnerID: cafe, CreatedAt: now},
		{ID: uuid.New(), Title: "Notebook set", Description: "Three ruled notebooks", Cost: decimal.RequireFromString("50.00"), PartnerID: books, CreatedAt: now},
		{ID: uuid.New(), Title: "15% off textbooks", Description: "One textbook purchase", Cost: decimal.RequireFromString("150.00"), PartnerID: books, CreatedAt: now},
	}
	for i := range res.Rewards {
		if err := rewards.Create(ctx, &res.Rewards[i]); err != nil {
			return nil, fmt.Errorf("seed reward %s: %w", res.Rewards[i].Title, err)
		}
	}

	return res, nil
}
