package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountKind distinguishes coin granters from coin holders.
type AccountKind string

const (
	AccountKindInstructor AccountKind = "INSTRUCTOR"
	AccountKindStudent    AccountKind = "STUDENT"
)

// Account holds the coin balance of one owner. Rows are created by the
// account module; the ledger only mutates Balance.
type Account struct {
	ID            uuid.UUID       `json:"id"`
	Kind          AccountKind     `json:"kind"`
	OwnerID       uuid.UUID       `json:"owner_id"`
	OwnerName     string          `json:"owner_name"`
	OwnerEmail    string          `json:"owner_email"`
	InstitutionID uuid.UUID       `json:"institution_id"`
	Balance       decimal.Decimal `json:"balance"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CanCover reports whether the balance can absorb a debit of amount.
func (a *Account) CanCover(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}

func (a *Account) IsInstructor() bool { return a.Kind == AccountKindInstructor }

func (a *Account) IsStudent() bool { return a.Kind == AccountKindStudent }
