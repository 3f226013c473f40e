package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AudienceAny is the wildcard audience stamped on every token
const AudienceAny = "*"

// ServiceClaims identify a trusted backend caller
type ServiceClaims struct {
	jwt.RegisteredClaims
}

// Service returns the calling service name
func (c *ServiceClaims) Service() ServiceName {
	return ServiceName(c.Subject)
}

// UserClaims identify an authenticated end user. Role is a snapshot
// taken when the token was issued.
type UserClaims struct {
	jwt.RegisteredClaims
	UserRole UserRole `json:"role"`
}

// Role returns the role captured at issuance
func (c *UserClaims) Role() UserRole {
	return c.UserRole
}

// UserID parses the subject as a numeric user id
func (c *UserClaims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// Owns reports whether the claims may act on the user with id.
// Admins may act on any user.
func (c *UserClaims) Owns(id int64) bool {
	if c.UserRole.IsAdmin() {
		return true
	}
	uid, err := c.UserID()
	return err == nil && uid == id
}

// Expires returns the expiration time
func (c *UserClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
