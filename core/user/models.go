package user

import (
	"github.com/pkg/errors"

	"github.com/trezcool/paes/core"
)

// Role is the capability level of an authenticated user.
type Role string

// Roles
const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

var (
	AllRoles = []Role{RoleStudent, RoleTeacher, RoleAdmin}

	ErrInvalidRole = errors.New("invalid role")
)

// ParseRole returns the Role named by s.
func ParseRole(s string) (Role, error) {
	switch r := Role(core.CleanString(s, true /* lower */)); r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return r, nil
	}
	return "", errors.Wrapf(ErrInvalidRole, "%q", s)
}

// Priority ranks roles: Admins: 30 - 21, Teachers: 20 - 11, Students: 10 - 1.
func (r Role) Priority() int {
	switch r {
	case RoleAdmin:
		return 21
	case RoleTeacher:
		return 11
	case RoleStudent:
		return 1
	}
	return 0
}

func (r Role) String() string { return string(r) }

// Principal is the authenticated caller of an operation.
// The identity provider owns users; we only ever see their ID and Role.
type Principal struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

func (p Principal) IsAuthenticated() bool {
	return p.UserID != "" && p.Role.Priority() > 0
}

func (p Principal) IsAdmin() bool {
	return p.IsAuthenticated() && p.Role == RoleAdmin
}

// CanReadUserData reports whether p may read data owned by ownerID: only the owner or an admin can.
func (p Principal) CanReadUserData(ownerID string) bool {
	if !p.IsAuthenticated() {
		return false
	}
	return p.IsAdmin() || (ownerID != "" && p.UserID == ownerID)
}

// System is the principal operators act as from the admin CLI.
func System() Principal {
	return Principal{UserID: "system", Role: RoleAdmin}
}
