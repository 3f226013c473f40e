package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// IssueServiceToken mints a short lived token identifying this service
func (ts *TokenService) IssueServiceToken() (string, error) {
	now := ts.now()
	claims := &ServiceClaims{
		RegisteredClaims: ts.registeredClaims(ts.serviceName.String(), now, ts.serviceTTL),
	}
	return ts.SignClaims(claims)
}

// IssueUserToken mints a session token for a user. The role is
// captured as of now and never refreshed.
func (ts *TokenService) IssueUserToken(userID int64, role UserRole) (string, error) {
	if !role.IsValid() {
		return "", goerrors.New("cannot issue token for unknown role", goerrors.CategoryInternal).
			WithMetadata(map[string]any{"role": role})
	}

	now := ts.now()
	claims := &UserClaims{
		RegisteredClaims: ts.registeredClaims(strconv.FormatInt(userID, 10), now, ts.userTTL),
		UserRole:         role,
	}
	return ts.SignClaims(claims)
}

// SignClaims signs claims with the configured private key.
func (ts *TokenService) SignClaims(claims jwt.Claims) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	token := jwt.NewWithClaims(SigningMethod, claims)
	token.Header["kid"] = ts.keys.SigningKID

	signedString, err := token.SignedString(ts.keys.Signing)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

func (ts *TokenService) registeredClaims(subject string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	claims := jwt.RegisteredClaims{
		Issuer:    ts.issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{AudienceAny},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	ensureTokenID(&claims)
	return claims
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
