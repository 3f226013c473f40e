package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// ServiceClaimsKey is the fiber locals key for verified service claims
	ServiceClaimsKey = "service_claims"
	// UserClaimsKey is the fiber locals key for verified user claims
	UserClaimsKey = "user_claims"
)

var serviceClaimsCtxKey = &contextKey{"service_claims"}
var userClaimsCtxKey = &contextKey{"user_claims"}

type contextKey struct {
	name string
}

// WithServiceClaimsContext sets service claims in the given context
func WithServiceClaimsContext(ctx context.Context, claims *ServiceClaims) context.Context {
	return context.WithValue(ctx, serviceClaimsCtxKey, claims)
}

// GetServiceClaims extracts service claims from the standard context
func GetServiceClaims(ctx context.Context) (*ServiceClaims, bool) {
	raw, ok := ctx.Value(serviceClaimsCtxKey).(*ServiceClaims)
	return raw, ok && raw != nil
}

// WithUserClaimsContext sets user claims in the given context
func WithUserClaimsContext(ctx context.Context, claims *UserClaims) context.Context {
	return context.WithValue(ctx, userClaimsCtxKey, claims)
}

// GetUserClaims extracts user claims from the standard context
func GetUserClaims(ctx context.Context) (*UserClaims, bool) {
	raw, ok := ctx.Value(userClaimsCtxKey).(*UserClaims)
	return raw, ok && raw != nil
}

// GetFiberUserClaims extracts user claims stored by the user gateway
func GetFiberUserClaims(c *fiber.Ctx) (*UserClaims, bool) {
	claims, ok := c.Locals(UserClaimsKey).(*UserClaims)
	return claims, ok && claims != nil
}

// GetFiberServiceClaims extracts service claims stored by the service gateway
func GetFiberServiceClaims(c *fiber.Ctx) (*ServiceClaims, bool) {
	claims, ok := c.Locals(ServiceClaimsKey).(*ServiceClaims)
	return claims, ok && claims != nil
}

func enrichContext(ctx context.Context, claims jwt.Claims) context.Context {
	switch cl := claims.(type) {
	case *ServiceClaims:
		return WithServiceClaimsContext(ctx, cl)
	case *UserClaims:
		return WithUserClaimsContext(ctx, cl)
	default:
		return ctx
	}
}
