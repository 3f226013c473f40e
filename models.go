package auth

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// TokenPurpose scopes a one-time email token to a single flow
type TokenPurpose string

const (
	// TokenPurposeConfirmAccount is issued on registration and email change
	TokenPurposeConfirmAccount TokenPurpose = "confirm_account"
	// TokenPurposeResetPassword is issued by a password reset request
	TokenPurposeResetPassword TokenPurpose = "reset_password"
)

// User is the user model
type User struct {
	bun.BaseModel       `bun:"table:users,alias:usr"`
	ID                  int64        `bun:"id,pk,autoincrement" json:"id"`
	FirstName           string       `bun:"firstname,notnull" json:"firstname"`
	LastName            string       `bun:"lastname,notnull" json:"lastname"`
	Email               string       `bun:"email,notnull,unique" json:"email"`
	PasswordHash        string       `bun:"password_hash,notnull" json:"-"`
	Role                UserRole     `bun:"role,notnull" json:"role"`
	EmailVerified       bool         `bun:"is_email_verified,notnull" json:"is_email_verified"`
	EmailToken          *string      `bun:"email_token,unique" json:"-"`
	EmailTokenPurpose   TokenPurpose `bun:"email_token_purpose,nullzero" json:"-"`
	EmailTokenExpiresAt *time.Time   `bun:"email_token_expires_at,nullzero" json:"-"`
	CreatedAt           time.Time    `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt           time.Time    `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// SetEmailToken installs a pending one-time token
func (u *User) SetEmailToken(token string, purpose TokenPurpose, expiresAt time.Time) *User {
	u.EmailToken = &token
	u.EmailTokenPurpose = purpose
	u.EmailTokenExpiresAt = &expiresAt
	return u
}

// ClearEmailToken removes any pending one-time token
func (u *User) ClearEmailToken() *User {
	u.EmailToken = nil
	u.EmailTokenPurpose = ""
	u.EmailTokenExpiresAt = nil
	return u
}

// HasPendingToken reports whether the user has a token for the given purpose
func (u *User) HasPendingToken(purpose TokenPurpose) bool {
	return u.EmailToken != nil && u.tokenPurpose() == purpose
}

// tokenPurpose treats tokens stored before purposes existed as
// account confirmation tokens.
func (u *User) tokenPurpose() TokenPurpose {
	if u.EmailTokenPurpose == "" {
		return TokenPurposeConfirmAccount
	}
	return u.EmailTokenPurpose
}

// TokenExpired reports whether the pending token expired at the given time.
// Tokens without an expiry never expire.
func (u *User) TokenExpired(now time.Time) bool {
	if u.EmailTokenExpiresAt == nil {
		return false
	}
	return !now.Before(*u.EmailTokenExpiresAt)
}

var emailTokenColumns = []string{
	"email_token",
	"email_token_purpose",
	"email_token_expires_at",
}

// UserRecord is the redacted projection of a User returned to callers.
// It never carries the password hash.
type UserRecord struct {
	ID            int64     `json:"id"`
	FirstName     string    `json:"firstname"`
	LastName      string    `json:"lastname"`
	Email         string    `json:"email"`
	Role          UserRole  `json:"role"`
	EmailVerified bool      `json:"is_email_verified"`
	EmailToken    string    `json:"email_token,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewUserRecord strips secrets from a user
func NewUserRecord(u *User) UserRecord {
	if u == nil {
		return UserRecord{}
	}
	return UserRecord{
		ID:            u.ID,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Email:         u.Email,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// NewUserRecords maps a list of users to their redacted projection
func NewUserRecords(users []*User) []UserRecord {
	out := make([]UserRecord, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserRecord(u))
	}
	return out
}

// NormalizeEmail trims and lower cases an address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
