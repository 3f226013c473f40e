package auth

import "strings"

// UserRole is the role stamped on user records and user tokens
type UserRole string

const (
	RoleAdmin        UserRole = "ADMIN"
	RoleUser         UserRole = "USER"
	RoleMonsterOwner UserRole = "MONSTER_OWNER"
)

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleMonsterOwner:
		return true
	default:
		return false
	}
}

// IsAdmin reports whether the role can act on any account
func (r UserRole) IsAdmin() bool {
	return r == RoleAdmin
}

func (r UserRole) String() string {
	return string(r)
}

// ParseRole converts a string into a UserRole, case insensitive.
func ParseRole(s string) (UserRole, bool) {
	role := UserRole(strings.ToUpper(strings.TrimSpace(s)))
	return role, role.IsValid()
}

// GetAllRoles returns all valid roles
func GetAllRoles() []UserRole {
	return []UserRole{RoleAdmin, RoleUser, RoleMonsterOwner}
}

// ServiceName identifies a backend service allowed to mint service tokens
type ServiceName string

const (
	ServiceAnalytics     ServiceName = "ffc-analytics-service"
	ServiceAuth          ServiceName = "ffc-auth-service"
	ServiceMain          ServiceName = "ffc-main-service"
	ServiceNotifications ServiceName = "ffc-notifications-service"
	ServicePayments      ServiceName = "ffc-payments-service"
)

// IsKnown reports whether the name belongs to the known service set
func (s ServiceName) IsKnown() bool {
	switch s {
	case ServiceAnalytics, ServiceAuth, ServiceMain, ServiceNotifications, ServicePayments:
		return true
	default:
		return false
	}
}

func (s ServiceName) String() string {
	return string(s)
}

// GetAllServices returns the known service identifiers
func GetAllServices() []ServiceName {
	return []ServiceName{
		ServiceAnalytics,
		ServiceAuth,
		ServiceMain,
		ServiceNotifications,
		ServicePayments,
	}
}
