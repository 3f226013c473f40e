package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// RequireServices returns a listener for the service gateway that only
// lets tokens minted by the named peers through.
func RequireServices(names ...ServiceName) ValidationListener {
	allowed := make(map[ServiceName]struct{}, len(names))
	for _, name := range names {
		allowed[name] = struct{}{}
	}

	return func(_ *fiber.Ctx, claims jwt.Claims) error {
		sc, ok := claims.(*ServiceClaims)
		if !ok {
			return ErrTokenMalformed
		}
		if _, ok := allowed[sc.Service()]; !ok {
			return guardViolation("service not allowed", map[string]any{"service": sc.Service()})
		}
		return nil
	}
}

// RequireRoles returns a listener for the user gateway that rejects
// tokens whose role is not in roles. The role is the one captured when
// the token was issued.
func RequireRoles(roles ...UserRole) ValidationListener {
	allowed := make(map[UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(_ *fiber.Ctx, claims jwt.Claims) error {
		uc, ok := claims.(*UserClaims)
		if !ok {
			return ErrTokenMalformed
		}
		if _, ok := allowed[uc.Role()]; !ok {
			return guardViolation("role not allowed", map[string]any{"role": uc.Role()})
		}
		return nil
	}
}

func guardViolation(msg string, meta map[string]any) error {
	clone := ErrForbidden.Clone()
	if clone == nil {
		return ErrForbidden
	}
	clone.Message = msg
	clone.Source = ErrForbidden
	return clone.WithMetadata(meta)
}
