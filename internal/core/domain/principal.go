package domain

import "github.com/google/uuid"

// Role is the authenticated principal's role, asserted by the auth module.
type Role string

const (
	RoleInstructor Role = "INSTRUCTOR"
	RoleStudent    Role = "STUDENT"
	RolePartner    Role = "PARTNER"
	RoleAdmin      Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleInstructor, RoleStudent, RolePartner, RoleAdmin:
		return true
	}
	return false
}

// Principal identifies the caller. For instructors and students Subject is
// the account ID; for partners it is the partner ID.
type Principal struct {
	Subject uuid.UUID
	Role    Role
}
