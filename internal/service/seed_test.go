package service

import (
	"context"
	"testing"

	"campus-coin-ledger/internal/adapter/storage/memory"
	"campus-coin-ledger/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDemoData(t *testing.T) {
	store := memory.NewStore()
	accounts := memory.NewAccountRepo(store)
	rewards := memory.NewRewardRepo(store)
	ctx := context.Background()

	res, err := SeedDemoData(ctx, accounts, rewards, dec("1000.00"))
	require.NoError(t, err)
	require.Len(t, res.Instructors, 2)
	require.Len(t, res.Students, 3)
	require.Len(t, res.Partners, 2)
	require.Len(t, res.Rewards, 4)

	for _, a := range res.Instructors {
		got, err := accounts.GetByID(ctx, a.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, domain.AccountKindInstructor, got.Kind)
		assert.Equal(t, "1000.00", domain.FormatAmount(got.Balance))
	}
	for _, a := range res.Students {
		got, err := accounts.GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.True(t, got.Balance.IsZero())
	}

	listed, err := rewards.List(ctx, &res.Partners[0].ID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
	for _, r := range res.Rewards {
		assert.True(t, domain.IsValidAmount(r.Cost))
	}
}
