package auth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/furfightclub/ffc-auth-service/middleware/jwtware"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

const (
	DefaultServiceTokenHeader = "x-service-auth"
	DefaultUserTokenHeader    = fiber.HeaderAuthorization
	DefaultAuthScheme         = "Bearer"

	internalErrorMessage = "internal server error"
)

// ErrorPayload is the JSON body rendered for failed requests
type ErrorPayload struct {
	Category   string `json:"category,omitempty"`
	Code       int    `json:"code"`
	TextCode   string `json:"text_code,omitempty"`
	Message    string `json:"message"`
	Validation any    `json:"validation,omitempty"`
}

// NewServiceGateway guards routes with a service token carried in the
// service header. Verified claims land in ServiceClaimsKey.
func NewServiceGateway(tokens *TokenService, cfg Config, listeners ...ValidationListener) fiber.Handler {
	header := cfg.GetServiceTokenHeader()
	if header == "" {
		header = DefaultServiceTokenHeader
	}
	return newGateway(tokens.ServiceTokenValidator(), header, cfg.GetAuthScheme(), ServiceClaimsKey, listeners)
}

// NewUserGateway guards routes with a user token carried in the
// user header. Verified claims land in UserClaimsKey.
func NewUserGateway(tokens *TokenService, cfg Config, listeners ...ValidationListener) fiber.Handler {
	header := cfg.GetUserTokenHeader()
	if header == "" {
		header = DefaultUserTokenHeader
	}
	return newGateway(tokens.UserTokenValidator(), header, cfg.GetAuthScheme(), UserClaimsKey, listeners)
}

func newGateway(validator jwtware.TokenValidator, header, scheme, key string, listeners []ValidationListener) fiber.Handler {
	if scheme == "" {
		scheme = DefaultAuthScheme
	}
	cfg := jwtware.Config{
		TokenValidator:  validator,
		TokenLookup:     "header:" + header,
		AuthScheme:      scheme,
		ContextKey:      key,
		ContextEnricher: enrichContext,
		ErrorHandler:    gatewayErrorHandler,
	}
	RegisterValidationListeners(&cfg, listeners...)
	return jwtware.New(cfg)
}

// gatewayErrorHandler hands a rich auth error to the app error handler.
func gatewayErrorHandler(_ *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, jwtware.ErrJWTMissing):
		return ErrTokenMissing
	case errors.Is(err, jwtware.ErrJWTMalformed):
		return ErrTokenMalformed
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return malformedToken(err)
}

// NewErrorHandler renders errors as JSON. Internal failures are logged
// and their details withheld from the client.
func NewErrorHandler(logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}
	return func(c *fiber.Ctx, err error) error {
		status, payload := ErrorResponse(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		} else {
			logger.Debug("request rejected", "method", c.Method(), "path", c.Path(), "status", status, "error", err)
		}
		return c.Status(status).JSON(fiber.Map{"error": payload})
	}
}

// ErrorResponse maps an error to an HTTP status and a client safe payload.
func ErrorResponse(err error) (int, ErrorPayload) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		return status, ErrorPayload{
			Code:     status,
			TextCode: "INTERNAL",
			Message:  internalErrorMessage,
		}
	}

	payload := ErrorPayload{Code: status, Message: http.StatusText(status)}

	var richErr *goerrors.Error
	var fiberErr *fiber.Error
	switch {
	case goerrors.As(err, &richErr):
		payload.Category = fmt.Sprint(richErr.Category)
		payload.TextCode = richErr.TextCode
		payload.Message = richErr.Message
		if vm := richErr.ValidationMap(); len(vm) > 0 {
			payload.Validation = vm
		}
	case errors.As(err, &fiberErr):
		payload.Message = fiberErr.Message
	}

	return status, payload
}

// HTTPStatus resolves the status code for err.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		if richErr.Code >= 400 && richErr.Code < 600 {
			return richErr.Code
		}
		switch richErr.Category {
		case goerrors.CategoryNotFound:
			return http.StatusNotFound
		case goerrors.CategoryConflict:
			return http.StatusConflict
		case goerrors.CategoryAuth:
			return http.StatusUnauthorized
		case goerrors.CategoryAuthz:
			return http.StatusForbidden
		case goerrors.CategoryBadInput, goerrors.CategoryValidation:
			return http.StatusBadRequest
		default:
			return http.StatusInternalServerError
		}
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}

	return http.StatusInternalServerError
}
