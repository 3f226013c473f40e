package auth

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// SigningMethod is the only algorithm tokens are signed or accepted with
var SigningMethod = jwt.SigningMethodRS256

const (
	DefaultServiceTokenTTL = 60 * time.Second
	DefaultUserTokenTTL    = 7 * 24 * time.Hour
)

// TokenService issues and verifies service and user tokens
type TokenService struct {
	keys           *KeySet
	issuer         string
	serviceName    ServiceName
	serviceTTL     time.Duration
	userTTL        time.Duration
	serviceKeyfunc jwt.Keyfunc
	userKeyfunc    jwt.Keyfunc
	now            func() time.Time
	logger         Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(keys *KeySet, cfg Config) (*TokenService, error) {
	if keys == nil || keys.Signing == nil {
		return nil, errors.New("token service requires a signing key", errors.CategoryInternal)
	}

	service := ServiceName(cfg.GetServiceName())
	if !service.IsKnown() {
		return nil, errors.New(fmt.Sprintf("unknown service name %q", service), errors.CategoryBadInput).
			WithTextCode(TextCodeUnknownService)
	}

	serviceTTL := cfg.GetServiceTokenTTL()
	if serviceTTL <= 0 {
		serviceTTL = DefaultServiceTokenTTL
	}

	userTTL := cfg.GetUserTokenTTL()
	if userTTL <= 0 {
		userTTL = DefaultUserTokenTTL
	}

	serviceKeyfunc, err := pinnedKeyfunc(keys.ServiceVerify)
	if err != nil {
		return nil, err
	}

	userKeyfunc, err := pinnedKeyfunc(keys.UserVerify)
	if err != nil {
		return nil, err
	}

	return &TokenService{
		keys:           keys,
		issuer:         cfg.GetIssuer(),
		serviceName:    service,
		serviceTTL:     serviceTTL,
		userTTL:        userTTL,
		serviceKeyfunc: serviceKeyfunc,
		userKeyfunc:    userKeyfunc,
		now:            time.Now,
		logger:         defLogger{},
	}, nil
}

// WithLogger overrides the logger used by the service.
func (ts *TokenService) WithLogger(logger Logger) *TokenService {
	if logger != nil {
		ts.logger = logger
	}
	return ts
}

// WithClock overrides the time source, used for issuance and verification
func (ts *TokenService) WithClock(now func() time.Time) *TokenService {
	if now != nil {
		ts.now = now
	}
	return ts
}

// ValidateServiceToken verifies a token minted by a known backend service
func (ts *TokenService) ValidateServiceToken(tokenString string) (*ServiceClaims, error) {
	claims := &ServiceClaims{}
	if err := ts.parse(tokenString, claims, ts.serviceKeyfunc); err != nil {
		return nil, err
	}

	if !claims.Service().IsKnown() {
		ts.logger.Warn("TokenService rejected service token with unknown subject", "sub", claims.Subject)
		return nil, ErrUnknownService
	}

	return claims, nil
}

// ValidateUserToken verifies a user session token issued by this service
func (ts *TokenService) ValidateUserToken(tokenString string) (*UserClaims, error) {
	claims := &UserClaims{}
	if err := ts.parse(tokenString, claims, ts.userKeyfunc, jwt.WithIssuer(ts.issuer)); err != nil {
		return nil, err
	}

	if !claims.UserRole.IsValid() {
		return nil, ErrTokenMalformed
	}

	if _, err := claims.UserID(); err != nil {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

func (ts *TokenService) parse(tokenString string, claims jwt.Claims, kf jwt.Keyfunc, opts ...jwt.ParserOption) error {
	parserOptions := append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{SigningMethod.Alg()}),
		jwt.WithAudience(AudienceAny),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ts.now),
	}, opts...)

	token, err := jwt.ParseWithClaims(tokenString, claims, kf, parserOptions...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		ts.logger.Debug("TokenService rejected token", "error", err)
		return malformedToken(err)
	}

	if !token.Valid {
		ts.logger.Error("TokenService validate could not decode or validate claims")
		return ErrTokenMalformed
	}

	return nil
}

// pinnedKeyfunc resolves the verification key by kid and rejects any
// algorithm other than SigningMethod. Tokens without a kid are checked
// against pub directly.
func pinnedKeyfunc(pub *rsa.PublicKey) (jwt.Keyfunc, error) {
	if pub == nil {
		return nil, errors.New("verification key is required", errors.CategoryInternal)
	}

	kid, err := KeyID(pub)
	if err != nil {
		return nil, err
	}

	given := keyfunc.NewGiven(map[string]keyfunc.GivenKey{
		kid: keyfunc.NewGivenCustom(pub, keyfunc.GivenKeyOptions{
			Algorithm: SigningMethod.Alg(),
		}),
	})

	return func(t *jwt.Token) (any, error) {
		if t.Method == nil || t.Method.Alg() != SigningMethod.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		if _, ok := t.Header["kid"]; ok {
			return given.Keyfunc(t)
		}
		return pub, nil
	}, nil
}
