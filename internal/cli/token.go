package cli

import (
	"errors"
	"fmt"
	"time"

	"campus-coin-ledger/internal/core/domain"
	"campus-coin-ledger/internal/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().String("subject", "", "Account ID (instructor, student) or partner ID")
	tokenCmd.Flags().String("role", "", "INSTRUCTOR, STUDENT, PARTNER or ADMIN")
	tokenCmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("role")
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for local testing",
	Long: `Sign a bearer token with the configured jwt.secret. Production tokens come
from the campus auth module; this command exists for development.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.JWT.Secret == "" {
		return errors.New("jwt.secret is not configured (CCL_JWT_SECRET)")
	}

	rawRole, _ := cmd.Flags().GetString("role")
	role := domain.Role(rawRole)
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", rawRole)
	}

	rawSubject, _ := cmd.Flags().GetString("subject")
	subject := uuid.New()
	if rawSubject != "" {
		if subject, err = uuid.Parse(rawSubject); err != nil {
			return fmt.Errorf("invalid subject: %w", err)
		}
	} else if role != domain.RoleAdmin {
		return errors.New("--subject is required for this role")
	}

	ttl, _ := cmd.Flags().GetDuration("ttl")
	tok, err := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Issuer).Generate(subject, role, ttl)
	if err != nil {
		return err
	}
	printf(cmd.OutOrStdout(), "%s\n", tok)
	return nil
}
