package auth

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

func RegisterUserRoutes(app fiber.Router, controller *UserController) {
	requireService := controller.ServiceGate
	requireUser := controller.UserGate

	app.Get("/ping", controller.Ping).Name("ping")

	users := app.Group("/user")

	users.Post("/login", requireService, controller.Login).Name("user.login")
	users.Post("/register", controller.Register).Name("user.register")
	users.Post("/confirm-account", requireService, controller.ConfirmAccount).Name("user.confirm-account")
	users.Post("/ask-reset-password", requireService, controller.AskResetPassword).Name("user.ask-reset-password")
	users.Patch("/reset-password", requireService, controller.ResetPassword).Name("user.reset-password")

	users.Get("/", controller.List).Name("user.list")
	users.Get("/:id", controller.Show).Name("user.show")
	users.Patch("/:id", requireService, requireUser, controller.Update).Name("user.update")
	users.Patch("/:id/password", requireService, requireUser, controller.ChangePassword).Name("user.change-password")
	users.Patch("/:id/email", requireService, requireUser, controller.ChangeEmail).Name("user.change-email")
	users.Delete("/:id", controller.Remove).Name("user.remove")
}

type UserController struct {
	Debug       bool
	Logger      Logger
	Service     *AccountService
	ServiceGate fiber.Handler
	UserGate    fiber.Handler
	ServiceName string
	now         func() time.Time
}

type UserControllerOption func(*UserController) *UserController

func WithControllerLogger(logger Logger) UserControllerOption {
	return func(c *UserController) *UserController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithGateways(service, user fiber.Handler) UserControllerOption {
	return func(c *UserController) *UserController {
		c.ServiceGate = service
		c.UserGate = user
		return c
	}
}

func WithServiceName(name string) UserControllerOption {
	return func(c *UserController) *UserController {
		c.ServiceName = name
		return c
	}
}

func WithDebug(debug bool) UserControllerOption {
	return func(c *UserController) *UserController {
		c.Debug = debug
		return c
	}
}

func NewUserController(service *AccountService, opts ...UserControllerOption) *UserController {
	c := &UserController{
		Logger:      defLogger{},
		Service:     service,
		ServiceName: ServiceAuth.String(),
		now:         time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			c = opt(c)
		}
	}

	if c.Service == nil {
		panic("AUTH: user controller requires an account service")
	}

	if c.ServiceGate == nil || c.UserGate == nil {
		panic("AUTH: user controller requires service and user gateways")
	}

	return c
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Email, validation.Required, is.EmailFormat),
			validation.Field(&r.Password, validation.Required),
		)
	}, "Invalid login request payload")
}

func (a *UserController) Login(c *fiber.Ctx) error {
	payload := new(LoginRequest)
	if err := parseBody(c, payload); err != nil {
		return err
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	token, err := a.Service.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"access_token": token})
}

type RegistrationCreatePayload struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
			validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
			validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.EmailFormat),
			validation.Field(&r.Password, validation.Required, validation.Length(1, 72)),
		)
	}, "Invalid registration payload")
}

func (a *UserController) Register(c *fiber.Ctx) error {
	payload := new(RegistrationCreatePayload)
	if err := parseBody(c, payload); err != nil {
		return err
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	record, err := a.Service.Register(c.UserContext(), RegisterUserMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Password:  payload.Password,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(record)
}

type EmailTokenPayload struct {
	EmailToken string `json:"email_token"`
}

func (r EmailTokenPayload) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.EmailToken, validation.Required),
		)
	}, "Invalid confirmation payload")
}

func (a *UserController) ConfirmAccount(c *fiber.Ctx) error {
	payload := new(EmailTokenPayload)
	if err := parseBody(c, payload); err != nil {
		return err
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	ok, err := a.Service.ConfirmAccount(c.UserContext(), ConfirmAccountMessage{
		EmailToken: payload.EmailToken,
	})
	if err != nil {
		return err
	}

	return c.JSON(ok)
}

type PasswordResetRequestPayload struct {
	Email string `json:"email"`
}

func (r PasswordResetRequestPayload) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Email, validation.Required, is.EmailFormat),
		)
	}, "Invalid password reset request payload")
}

func (a *UserController) AskResetPassword(c *fiber.Ctx) error {
	payload := new(PasswordResetRequestPayload)
	if err := parseBody(c, payload); err != nil {
		return err
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	token, err := a.Service.AskResetPassword(c.UserContext(), InitializePasswordResetMessage{
		Email: payload.Email,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"email_token": token})
}

type PasswordResetPayload struct {
	EmailToken string `json:"email_token"`
	Password   string `json:"password"`
}

func (r PasswordResetPayload) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.EmailToken, validation.Required),
			validation.Field(&r.Password, validation.Required, validation.Length(1, 72)),
		)
	}, "Invalid password reset payload")
}

func (a *UserController) ResetPassword(c *fiber.Ctx) error {
	payload := new(PasswordResetPayload)
	if err := parseBody(c, payload); err != nil {
		return err
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	record, err := a.Service.ResetPassword(c.UserContext(), FinalizePasswordResetMessage{
		EmailToken: payload.EmailToken,
		Password:   payload.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(record)
}

func (a *UserController) List(c *fiber.Ctx) error {
	records, err := a.Service.ListUsers(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(records)
}

func (a *UserController) Show(c *fiber.Ctx) error {
	id, err := userIDParam(c)
	if err != nil {
		return err
	}

	record, err := a.Service.GetUser(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(record)
}

type UpdateUserPayload struct {
	FirstName  *string `json:"firstname"`
	LastName   *string `json:"lastname"`
	Email      *string `json:"email"`
	Role       *string `json:"role"`
	EmailToken *string `json:"email_token"`
}

func (r UpdateUserPayload) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.FirstName, validation.NilOrNotEmpty, validation.Length(1, 200)),
			validation.Field(&r.LastName, validation.NilOrNotEmpty, validation.Length(1, 200)),
			validation.Field(&r.Email, validation.NilOrNotEmpty, is.EmailFormat),
			validation.Field(&r.Role, validation.NilOrNotEmpty, validation.In(
				RoleAdmin.String(),
				RoleUser.String(),
				RoleMonsterOwner.String(),
			)),
		)
	}, "Invalid user update payload")
}

func (a *UserController) Update(c *fiber.Ctx) error {
	id, claims, err := a.authorizeUser(c)
	if err != nil {
		return err
	}

	payload := new(UpdateUserPayload)
	if err := parseBody(c, payload); err != nil {
		return err
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	msg := UpdateUserMessage{
		UserID:     id,
		FirstName:  payload.FirstName,
		LastName:   payload.LastName,
		Email:      payload.Email,
		EmailToken: payload.EmailToken,
	}

	if payload.Role != nil {
		if !claims.Role().IsAdmin() {
			return ErrForbidden
		}
		role := UserRole(*payload.Role)
		msg.Role = &role
	}

	record, err := a.Service.UpdateUser(c.UserContext(), msg)
	if err != nil {
		return err
	}
	return c.JSON(record)
}

type ChangePasswordPayload struct {
	OldPassword string `json:"oldPassword"`
	Password    string `json:"password"`
}

func (r ChangePasswordPayload) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.OldPassword, validation.Required),
			validation.Field(&r.Password, validation.Required, validation.Length(1, 72)),
		)
	}, "Invalid password change payload")
}

func (a *UserController) ChangePassword(c *fiber.Ctx) error {
	id, _, err := a.authorizeUser(c)
	if err != nil {
		return err
	}

	payload := new(ChangePasswordPayload)
	if err := parseBody(c, payload); err != nil {
		return err
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	ok, err := a.Service.ChangePassword(c.UserContext(), ChangePasswordMessage{
		UserID:      id,
		OldPassword: payload.OldPassword,
		Password:    payload.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(ok)
}

type ChangeEmailPayload struct {
	Email string `json:"email"`
}

func (r ChangeEmailPayload) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Email, validation.Required, is.EmailFormat),
		)
	}, "Invalid email change payload")
}

func (a *UserController) ChangeEmail(c *fiber.Ctx) error {
	id, _, err := a.authorizeUser(c)
	if err != nil {
		return err
	}

	payload := new(ChangeEmailPayload)
	if err := parseBody(c, payload); err != nil {
		return err
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	ok, err := a.Service.ChangeEmail(c.UserContext(), ChangeEmailMessage{
		UserID: id,
		Email:  payload.Email,
	})
	if err != nil {
		return err
	}
	return c.JSON(ok)
}

func (a *UserController) Remove(c *fiber.Ctx) error {
	id, err := userIDParam(c)
	if err != nil {
		return err
	}

	record, err := a.Service.RemoveUser(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(record)
}

func (a *UserController) Ping(c *fiber.Ctx) error {
	status, database, code := "ok", "up", fiber.StatusOK
	if err := a.Service.Ping(c.UserContext()); err != nil {
		a.Logger.Warn("health check: database unreachable", "error", err)
		status, database, code = "degraded", "down", fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status":   status,
		"service":  a.ServiceName,
		"database": database,
		"time":     a.now().UTC().Format(time.RFC3339),
	})
}

// authorizeUser resolves :id and checks the user token may act on it.
func (a *UserController) authorizeUser(c *fiber.Ctx) (int64, *UserClaims, error) {
	id, err := userIDParam(c)
	if err != nil {
		return 0, nil, err
	}

	claims, ok := GetFiberUserClaims(c)
	if !ok {
		return 0, nil, ErrTokenMissing
	}

	if !claims.Owns(id) {
		a.Logger.Debug("user token does not own resource", "sub", claims.Subject, "id", id)
		return 0, nil, ErrForbidden
	}

	return id, claims, nil
}

func userIDParam(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, goerrors.New("user id must be a positive integer", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"id": c.Params("id")})
	}
	return int64(id), nil
}

func parseBody(c *fiber.Ctx, payload any) error {
	if err := c.BodyParser(payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request body").
			WithCode(goerrors.CodeBadRequest)
	}
	return nil
}
