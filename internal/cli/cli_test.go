package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"campus-coin-ledger/config"
	pgStorage "campus-coin-ledger/internal/adapter/storage/postgres"
	"campus-coin-ledger/internal/core/domain"
	"campus-coin-ledger/internal/core/ports"
	"campus-coin-ledger/internal/core/ports/mocks"
	"campus-coin-ledger/internal/service"
	"campus-coin-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestToken_MintsValidToken(t *testing.T) {
	t.Setenv("CCL_JWT_SECRET", "cli-test-secret")
	t.Setenv("CCL_JWT_ISSUER", "campus-test")

	subject := uuid.New()
	out, err := run(t, "token", "--subject", subject.String(), "--role", "PARTNER", "--ttl", "5m")
	require.NoError(t, err)

	p, err := service.NewJWTTokenService("cli-test-secret", "campus-test").Validate(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, subject, p.Subject)
	assert.Equal(t, domain.RolePartner, p.Role)
}

func TestToken_Rejections(t *testing.T) {
	t.Setenv("CCL_JWT_SECRET", "cli-test-secret")

	_, err := run(t, "token", "--subject", uuid.NewString(), "--role", "DEAN")
	assert.ErrorContains(t, err, "unknown role")

	_, err = run(t, "token", "--subject", "", "--role", "STUDENT")
	assert.ErrorContains(t, err, "--subject is required")

	_, err = run(t, "token", "--subject", "abc", "--role", "STUDENT")
	assert.ErrorContains(t, err, "invalid subject")
}

func TestToken_RequiresSecret(t *testing.T) {
	t.Setenv("CCL_JWT_SECRET", "")

	_, err := run(t, "token", "--subject", uuid.NewString(), "--role", "ADMIN")
	assert.ErrorContains(t, err, "jwt.secret")
}

func withMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)

	orig := openPool
	openPool = func(context.Context, *config.Config, zerolog.Logger) (pgStorage.Pool, error) {
		return mock, nil
	}
	t.Cleanup(func() { openPool = orig })
	return mock
}

func TestMigrate_AppliesSchema(t *testing.T) {
	mock := withMockPool(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS accounts").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema up to date")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBonus_RejectsInvalidAmount(t *testing.T) {
	_, err := run(t, "bonus", "--amount=-5")
	assert.ErrorContains(t, err, "invalid amount")
}

func TestApplyBonus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledger := mocks.NewMockLedgerService(ctrl)
	amount := decimal.RequireFromString("250")
	ledger.EXPECT().TopUpAllInstructors(gomock.Any(), amount).
		Return(&ports.TopUpResult{AccountsCredited: 12, Amount: amount}, nil)

	var out bytes.Buffer
	require.NoError(t, applyBonus(context.Background(), ledger, amount, &out))
	assert.Equal(t, "credited 250.00 coins to 12 instructor accounts\n", out.String())
}

func TestApplyBonus_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledger := mocks.NewMockLedgerService(ctrl)
	ledger.EXPECT().TopUpAllInstructors(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrInvalidAmount())

	err := applyBonus(context.Background(), ledger, decimal.RequireFromString("1"), &bytes.Buffer{})
	assert.True(t, apperror.Is(err, apperror.CodeInvalidAmount))
}
