package auth

import (
	"context"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	// DefaultEmailTokenTTL bounds how long a one-time email token stays usable
	DefaultEmailTokenTTL = 24 * time.Hour

	operationTimeout = 10 * time.Second
)

// AccountService runs the account lifecycle: registration, login,
// confirmation, password reset and change, email change and the
// plain CRUD reads and writes on user records.
type AccountService struct {
	repo     RepositoryManager
	tokens   UserTokenIssuer
	hasher   PasswordHasher
	notifier Notifier
	logger   Logger
	tokenTTL time.Duration
	timeout  time.Duration
	now      func() time.Time
	newToken func() string
}

// NewAccountService creates a service with sane defaults.
func NewAccountService(repo RepositoryManager, tokens UserTokenIssuer) *AccountService {
	return &AccountService{
		repo:     repo,
		tokens:   tokens,
		hasher:   NewBcryptHasher(),
		notifier: noopNotifier{},
		logger:   defLogger{},
		tokenTTL: DefaultEmailTokenTTL,
		timeout:  operationTimeout,
		now:      time.Now,
		newToken: uuid.NewString,
	}
}

// WithLogger overrides the logger used by the service.
func (s *AccountService) WithLogger(logger Logger) *AccountService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithNotifier sets the sink used to publish account events.
func (s *AccountService) WithNotifier(notifier Notifier) *AccountService {
	s.notifier = normalizeNotifier(notifier)
	return s
}

// WithPasswordHasher overrides the password hasher.
func (s *AccountService) WithPasswordHasher(hasher PasswordHasher) *AccountService {
	if hasher != nil {
		s.hasher = hasher
	}
	return s
}

// WithEmailTokenTTL sets the lifetime of one-time email tokens.
func (s *AccountService) WithEmailTokenTTL(ttl time.Duration) *AccountService {
	if ttl > 0 {
		s.tokenTTL = ttl
	}
	return s
}

// WithClock overrides the time source.
func (s *AccountService) WithClock(now func() time.Time) *AccountService {
	if now != nil {
		s.now = now
	}
	return s
}

// WithTokenGenerator overrides how one-time tokens are generated.
func (s *AccountService) WithTokenGenerator(gen func() string) *AccountService {
	if gen != nil {
		s.newToken = gen
	}
	return s
}

// GetUser returns the redacted user with id.
func (s *AccountService) GetUser(ctx context.Context, id int64) (UserRecord, error) {
	if err := s.checkContext(ctx, "user.get"); err != nil {
		return UserRecord{}, err
	}

	user, err := s.repo.Users().GetByID(ctx, id)
	if err != nil {
		return UserRecord{}, s.userLookupError(err, id)
	}

	return NewUserRecord(user), nil
}

// ListUsers returns every user, redacted, ordered by id.
func (s *AccountService) ListUsers(ctx context.Context) ([]UserRecord, error) {
	if err := s.checkContext(ctx, "user.list"); err != nil {
		return nil, err
	}

	records, err := s.repo.Users().List(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list users")
	}

	return NewUserRecords(records), nil
}

// RemoveUser hard deletes the user and returns its last state.
func (s *AccountService) RemoveUser(ctx context.Context, id int64) (UserRecord, error) {
	if err := s.checkContext(ctx, "user.remove"); err != nil {
		return UserRecord{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.repo.Users().Delete(ctx, id)
	if err != nil {
		return UserRecord{}, s.userLookupError(err, id)
	}

	s.logger.Info("user removed", "user_id", id)
	s.publish(ctx, AccountEventRemoved, user, "")

	return NewUserRecord(user), nil
}

// Login authenticates a verified user and issues a user token.
func (s *AccountService) Login(ctx context.Context, email, password string) (string, error) {
	if err := s.checkContext(ctx, "user.login"); err != nil {
		return "", err
	}

	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if IsRecordNotFound(err) {
			return "", ErrUserNotFound
		}
		return "", internalError(err, "failed to retrieve user")
	}

	if !user.EmailVerified {
		s.logger.Debug("login rejected for unverified account", "user_id", user.ID)
		return "", ErrUserNotFound
	}

	if !s.hasher.VerifyPassword(password, user.PasswordHash) {
		s.logger.Debug("login rejected: password mismatch", "user_id", user.ID)
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.IssueUserToken(user.ID, user.Role)
	if err != nil {
		return "", internalError(err, "failed to issue user token")
	}

	return token, nil
}

// Ping checks the store is reachable.
func (s *AccountService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// checkContext fails fast when ctx is already done. op is the message
// type of the operation, e.g. "user.register".
func (s *AccountService) checkContext(ctx context.Context, op string) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during "+op,
		).WithMetadata(map[string]any{"operation": op})
	default:
		return nil
	}
}

func (s *AccountService) userLookupError(err error, id int64) error {
	if IsRecordNotFound(err) {
		return ErrUserNotFound
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user").
		WithCode(goerrors.CodeInternal).
		WithMetadata(map[string]any{"user_id": id})
}

// issueEmailToken installs a fresh one-time token on user and returns it.
func (s *AccountService) issueEmailToken(user *User, purpose TokenPurpose) string {
	token := s.newToken()
	user.SetEmailToken(token, purpose, s.now().UTC().Add(s.tokenTTL))
	return token
}

// checkEmailToken ensures user holds a live token for purpose.
func (s *AccountService) checkEmailToken(user *User, purpose TokenPurpose) error {
	if user.EmailToken == nil || user.tokenPurpose() != purpose {
		return ErrEmailTokenNotFound
	}
	if user.TokenExpired(s.now().UTC()) {
		return ErrEmailTokenExpired
	}
	return nil
}

func (s *AccountService) emailTokenLookupError(err error) error {
	if IsRecordNotFound(err) {
		return ErrEmailTokenNotFound
	}
	return err
}

func (s *AccountService) ensureEmailAvailable(ctx context.Context, tx bun.IDB, email string, ownerID int64) error {
	other, err := s.repo.Users().GetByEmailTx(ctx, tx, email)
	if err != nil {
		if IsRecordNotFound(err) {
			return nil
		}
		return err
	}
	if other.ID != ownerID {
		return ErrEmailTaken
	}
	return nil
}

func (s *AccountService) ensureEmailTokenAvailable(ctx context.Context, tx bun.IDB, token string, ownerID int64) error {
	other, err := s.repo.Users().GetByEmailTokenTx(ctx, tx, token)
	if err != nil {
		if IsRecordNotFound(err) {
			return nil
		}
		return err
	}
	if other.ID != ownerID {
		return ErrEmailTokenTaken
	}
	return nil
}

func (s *AccountService) publish(ctx context.Context, kind AccountEventType, user *User, token string) {
	if user == nil {
		return
	}
	event := newAccountEvent(kind, user, token, s.now().UTC())
	if err := normalizeNotifier(s.notifier).Notify(ctx, event); err != nil {
		s.logger.Warn("account event delivery failed", "event", kind, "user_id", user.ID, "error", err)
	}
}

func writeError(err error, message string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrDuplicateRecord) {
		return ErrEmailTaken
	}
	return internalError(err, message)
}
