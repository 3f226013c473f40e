package auth

import (
	"github.com/furfightclub/ffc-auth-service/middleware/jwtware"
	"github.com/golang-jwt/jwt/v5"
)

// ServiceTokenValidator adapts ValidateServiceToken for the gateway middleware.
func (ts *TokenService) ServiceTokenValidator() jwtware.TokenValidator {
	return jwtware.TokenValidatorFunc(func(tokenString string) (jwt.Claims, error) {
		claims, err := ts.ValidateServiceToken(tokenString)
		if err != nil {
			return nil, err
		}
		return claims, nil
	})
}

// UserTokenValidator adapts ValidateUserToken for the gateway middleware.
func (ts *TokenService) UserTokenValidator() jwtware.TokenValidator {
	return jwtware.TokenValidatorFunc(func(tokenString string) (jwt.Claims, error) {
		claims, err := ts.ValidateUserToken(tokenString)
		if err != nil {
			return nil, err
		}
		return claims, nil
	})
}
