package auth_test

import (
	"testing"
	"time"

	auth "github.com/furfightclub/ffc-auth-service"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenService(t *testing.T) {
	priv, _ := signingKeys(t)
	keys, err := auth.NewKeySet(priv, nil, nil)
	require.NoError(t, err)

	t.Run("known service", func(t *testing.T) {
		ts, err := auth.NewTokenService(keys, newTestConfig())
		require.NoError(t, err)
		assert.NotNil(t, ts)
	})

	t.Run("unknown service name", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.serviceName = "ffc-unknown-service"
		_, err := auth.NewTokenService(keys, cfg)
		require.Error(t, err)
	})

	t.Run("missing keys", func(t *testing.T) {
		_, err := auth.NewTokenService(nil, newTestConfig())
		require.Error(t, err)
	})
}

func TestTokenService_ServiceTokenRoundTrip(t *testing.T) {
	clock := newTestClock()
	ts := newTestTokenService(t, clock)

	token, err := ts.IssueServiceToken()
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ts.ValidateServiceToken(token)
	require.NoError(t, err)

	assert.Equal(t, auth.ServiceAuth, claims.Service())
	assert.Equal(t, "ffc-auth", claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{auth.AudienceAny}, claims.Audience)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, clock.Now().Add(time.Minute).Unix(), claims.ExpiresAt.Unix())
}

func TestTokenService_UserTokenRoundTrip(t *testing.T) {
	clock := newTestClock()
	ts := newTestTokenService(t, clock)

	token, err := ts.IssueUserToken(42, auth.RoleMonsterOwner)
	require.NoError(t, err)

	claims, err := ts.ValidateUserToken(token)
	require.NoError(t, err)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, auth.RoleMonsterOwner, claims.Role())
	assert.Equal(t, clock.Now().Add(7*24*time.Hour).Unix(), claims.Expires().Unix())
}

func TestTokenService_KeyIDHeader(t *testing.T) {
	ts := newTestTokenService(t, nil)
	priv, _ := signingKeys(t)

	token, err := ts.IssueServiceToken()
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(token, &auth.ServiceClaims{})
	require.NoError(t, err)

	kid, err := auth.KeyID(&priv.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, kid, parsed.Header["kid"])
	assert.Equal(t, "RS256", parsed.Header["alg"])
}

func TestTokenService_IssueUserTokenRejectsUnknownRole(t *testing.T) {
	ts := newTestTokenService(t, nil)
	_, err := ts.IssueUserToken(1, auth.UserRole("ROOT"))
	require.Error(t, err)
}

func TestTokenService_Expired(t *testing.T) {
	clock := newTestClock()
	ts := newTestTokenService(t, clock)

	serviceToken, err := ts.IssueServiceToken()
	require.NoError(t, err)
	userToken, err := ts.IssueUserToken(1, auth.RoleUser)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	_, err = ts.ValidateServiceToken(serviceToken)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
	assert.True(t, auth.IsTokenExpiredError(err))

	_, err = ts.ValidateUserToken(userToken)
	require.NoError(t, err)

	clock.Advance(8 * 24 * time.Hour)
	_, err = ts.ValidateUserToken(userToken)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
}

func TestTokenService_RejectsForgedTokens(t *testing.T) {
	clock := newTestClock()
	ts := newTestTokenService(t, clock)
	priv, other := signingKeys(t)

	otherKeys, err := auth.NewKeySet(other, nil, nil)
	require.NoError(t, err)
	otherTS, err := auth.NewTokenService(otherKeys, newTestConfig())
	require.NoError(t, err)
	otherTS.WithClock(clock.Now)

	pubPEM, err := auth.EncodePublicKeyPEM(&priv.PublicKey)
	require.NoError(t, err)

	now := clock.Now()
	serviceClaims := func(sub string) *auth.ServiceClaims {
		return &auth.ServiceClaims{RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "ffc-auth",
			Subject:   sub,
			Audience:  jwt.ClaimStrings{auth.AudienceAny},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		}}
	}

	tests := []struct {
		name  string
		token func(t *testing.T) string
		err   error
	}{
		{
			name: "signed by another key",
			token: func(t *testing.T) string {
				tok, err := otherTS.IssueServiceToken()
				require.NoError(t, err)
				return tok
			},
			err: auth.ErrTokenMalformed,
		},
		{
			name: "another key without kid",
			token: func(t *testing.T) string {
				tok, err := jwt.NewWithClaims(jwt.SigningMethodRS256, serviceClaims("ffc-main-service")).SignedString(other)
				require.NoError(t, err)
				return tok
			},
			err: auth.ErrTokenMalformed,
		},
		{
			name: "HS256 keyed with the public key",
			token: func(t *testing.T) string {
				tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, serviceClaims("ffc-main-service")).SignedString(pubPEM)
				require.NoError(t, err)
				return tok
			},
			err: auth.ErrTokenMalformed,
		},
		{
			name: "alg none",
			token: func(t *testing.T) string {
				tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, serviceClaims("ffc-main-service")).SignedString(jwt.UnsafeAllowNoneSignatureType)
				require.NoError(t, err)
				return tok
			},
			err: auth.ErrTokenMalformed,
		},
		{
			name: "unknown service subject",
			token: func(t *testing.T) string {
				tok, err := ts.SignClaims(serviceClaims("ffc-rogue-service"))
				require.NoError(t, err)
				return tok
			},
			err: auth.ErrUnknownService,
		},
		{
			name: "garbage",
			token: func(t *testing.T) string {
				return "not.a.token"
			},
			err: auth.ErrTokenMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.ValidateServiceToken(tt.token(t))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestTokenService_AcceptsTokenWithoutKeyID(t *testing.T) {
	clock := newTestClock()
	ts := newTestTokenService(t, clock)
	priv, _ := signingKeys(t)

	now := clock.Now()
	claims := &auth.ServiceClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   auth.ServicePayments.String(),
		Audience:  jwt.ClaimStrings{auth.AudienceAny},
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}}

	tok, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(priv)
	require.NoError(t, err)

	got, err := ts.ValidateServiceToken(tok)
	require.NoError(t, err)
	assert.Equal(t, auth.ServicePayments, got.Service())
}

func TestTokenService_UserTokenChecks(t *testing.T) {
	clock := newTestClock()
	ts := newTestTokenService(t, clock)
	now := clock.Now()

	userClaims := func(iss, sub string, role auth.UserRole) *auth.UserClaims {
		return &auth.UserClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    iss,
				Subject:   sub,
				Audience:  jwt.ClaimStrings{auth.AudienceAny},
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
			UserRole: role,
		}
	}

	tests := []struct {
		name   string
		claims *auth.UserClaims
	}{
		{"wrong issuer", userClaims("someone-else", "1", auth.RoleUser)},
		{"unknown role", userClaims("ffc-auth", "1", auth.UserRole("ROOT"))},
		{"non numeric subject", userClaims("ffc-auth", "abc", auth.RoleUser)},
		{"wrong audience", func() *auth.UserClaims {
			c := userClaims("ffc-auth", "1", auth.RoleUser)
			c.Audience = jwt.ClaimStrings{"ffc-main-service"}
			return c
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := ts.SignClaims(tt.claims)
			require.NoError(t, err)

			_, err = ts.ValidateUserToken(tok)
			assert.ErrorIs(t, err, auth.ErrTokenMalformed)
		})
	}

	t.Run("missing expiry", func(t *testing.T) {
		c := userClaims("ffc-auth", "1", auth.RoleUser)
		c.ExpiresAt = nil
		tok, err := ts.SignClaims(c)
		require.NoError(t, err)

		_, err = ts.ValidateUserToken(tok)
		assert.Error(t, err)
	})
}

func TestTokenService_SeparateVerificationKeys(t *testing.T) {
	priv, other := signingKeys(t)

	keys, err := auth.NewKeySet(priv, nil, &other.PublicKey)
	require.NoError(t, err)

	ts, err := auth.NewTokenService(keys, newTestConfig())
	require.NoError(t, err)

	own, err := ts.IssueServiceToken()
	require.NoError(t, err)
	_, err = ts.ValidateServiceToken(own)
	assert.Error(t, err, "own signature must not verify against the peer key")

	otherKeys, err := auth.NewKeySet(other, nil, nil)
	require.NoError(t, err)
	peer, err := auth.NewTokenService(otherKeys, newTestConfig())
	require.NoError(t, err)

	peerToken, err := peer.IssueServiceToken()
	require.NoError(t, err)
	_, err = ts.ValidateServiceToken(peerToken)
	assert.NoError(t, err)

	userToken, err := ts.IssueUserToken(3, auth.RoleAdmin)
	require.NoError(t, err)
	_, err = ts.ValidateUserToken(userToken)
	assert.NoError(t, err)
}

func TestUserClaims_Owns(t *testing.T) {
	tests := []struct {
		name   string
		claims auth.UserClaims
		id     int64
		want   bool
	}{
		{"owner", auth.UserClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "5"}, UserRole: auth.RoleUser}, 5, true},
		{"other user", auth.UserClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "5"}, UserRole: auth.RoleUser}, 6, false},
		{"admin", auth.UserClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "1"}, UserRole: auth.RoleAdmin}, 6, true},
		{"bad subject", auth.UserClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "x"}, UserRole: auth.RoleMonsterOwner}, 6, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.claims.Owns(tt.id))
		})
	}
}
