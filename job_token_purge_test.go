package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	auth "github.com/furfightclub/ffc-auth-service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTokenPurgeJob_Purge(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	stale := f.register(t, "stale@example.com", "password-1")
	f.clock.Advance(12 * time.Hour)
	fresh := f.register(t, "fresh@example.com", "password-2")
	f.clock.Advance(13 * time.Hour)

	logger := &captureLogger{}
	job := auth.NewTokenPurgeJob(f.repo.Users()).
		WithClock(f.clock.Now).
		WithLogger(logger)

	n, err := job.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok := logger.find("info", "purged expired email tokens")
	assert.True(t, ok)

	_, err = f.service.ConfirmAccount(ctx, auth.ConfirmAccountMessage{EmailToken: stale.EmailToken})
	assert.ErrorIs(t, err, auth.ErrEmailTokenNotFound)

	ok, err = f.service.ConfirmAccount(ctx, auth.ConfirmAccountMessage{EmailToken: fresh.EmailToken})
	require.NoError(t, err)
	assert.True(t, ok)

	n, err = job.Purge(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTokenPurgeJob_RunLogsFailures(t *testing.T) {
	users := new(MockUsers)
	users.On("PurgeExpiredEmailTokens", mock.Anything, mock.Anything).
		Return(int64(0), errors.New("database is locked"))

	logger := &captureLogger{}
	auth.NewTokenPurgeJob(users).WithLogger(logger).Run()

	_, ok := logger.find("error", "token purge failed")
	assert.True(t, ok)
	users.AssertExpectations(t)
}
