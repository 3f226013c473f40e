package auth_test

import (
	"context"
	"crypto/rsa"
	"sync"
	"testing"
	"time"

	auth "github.com/furfightclub/ffc-auth-service"
	"github.com/furfightclub/ffc-auth-service/repository"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

var (
	keyOnce  sync.Once
	testKey  *rsa.PrivateKey
	otherKey *rsa.PrivateKey
)

func signingKeys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()
	keyOnce.Do(func() {
		var err error
		testKey, err = auth.GenerateKey(2048)
		if err != nil {
			panic(err)
		}
		otherKey, err = auth.GenerateKey(2048)
		if err != nil {
			panic(err)
		}
	})
	return testKey, otherKey
}

type testConfig struct {
	issuer      string
	serviceName string
	serviceTTL  time.Duration
	userTTL     time.Duration
	emailTTL    time.Duration
}

func newTestConfig() *testConfig {
	return &testConfig{
		issuer:      "ffc-auth",
		serviceName: auth.ServiceAuth.String(),
		serviceTTL:  time.Minute,
		userTTL:     7 * 24 * time.Hour,
		emailTTL:    24 * time.Hour,
	}
}

func (c *testConfig) GetIssuer() string                 { return c.issuer }
func (c *testConfig) GetServiceName() string            { return c.serviceName }
func (c *testConfig) GetServiceTokenTTL() time.Duration { return c.serviceTTL }
func (c *testConfig) GetUserTokenTTL() time.Duration    { return c.userTTL }
func (c *testConfig) GetEmailTokenTTL() time.Duration   { return c.emailTTL }
func (c *testConfig) GetServiceTokenHeader() string     { return auth.DefaultServiceTokenHeader }
func (c *testConfig) GetUserTokenHeader() string        { return auth.DefaultUserTokenHeader }
func (c *testConfig) GetAuthScheme() string             { return auth.DefaultAuthScheme }

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestTokenService(t *testing.T, clock *testClock) *auth.TokenService {
	t.Helper()
	priv, _ := signingKeys(t)

	keys, err := auth.NewKeySet(priv, nil, nil)
	require.NoError(t, err)

	ts, err := auth.NewTokenService(keys, newTestConfig())
	require.NoError(t, err)

	if clock != nil {
		ts.WithClock(clock.Now)
	}
	return ts
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := repository.Open(repository.Options{
		Driver:       repository.DriverSQLite,
		DSN:          "file::memory:",
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, repository.Migrate(context.Background(), db, repository.DriverSQLite, nil))
	return db
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []auth.AccountEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, event auth.AccountEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) Types() []auth.AccountEventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]auth.AccountEventType, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

type accountFixture struct {
	db       *bun.DB
	repo     auth.RepositoryManager
	tokens   *auth.TokenService
	service  *auth.AccountService
	clock    *testClock
	notifier *recordingNotifier
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()

	clock := newTestClock()
	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db)
	tokens := newTestTokenService(t, clock)
	notifier := &recordingNotifier{}

	service := auth.NewAccountService(repo, tokens).
		WithPasswordHasher(auth.NewBcryptHasher(bcrypt.MinCost)).
		WithNotifier(notifier).
		WithClock(clock.Now).
		WithLogger(&captureLogger{})

	return &accountFixture{
		db:       db,
		repo:     repo,
		tokens:   tokens,
		service:  service,
		clock:    clock,
		notifier: notifier,
	}
}

// register creates a user and returns it together with its confirmation token
func (f *accountFixture) register(t *testing.T, email, password string) auth.UserRecord {
	t.Helper()
	record, err := f.service.Register(context.Background(), auth.RegisterUserMessage{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Password:  password,
	})
	require.NoError(t, err)
	require.NotEmpty(t, record.EmailToken)
	return record
}

// registerVerified creates a confirmed user
func (f *accountFixture) registerVerified(t *testing.T, email, password string) auth.UserRecord {
	t.Helper()
	record := f.register(t, email, password)
	ok, err := f.service.ConfirmAccount(context.Background(), auth.ConfirmAccountMessage{EmailToken: record.EmailToken})
	require.NoError(t, err)
	require.True(t, ok)
	record.EmailToken = ""
	record.EmailVerified = true
	return record
}
