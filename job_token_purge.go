package auth

import (
	"context"
	"time"
)

// TokenPurgeJob clears one-time email tokens past their expiry.
// It implements the cron.Job interface.
type TokenPurgeJob struct {
	users   Users
	logger  Logger
	timeout time.Duration
	now     func() time.Time
}

func NewTokenPurgeJob(users Users) *TokenPurgeJob {
	return &TokenPurgeJob{
		users:   users,
		logger:  defLogger{},
		timeout: time.Minute,
		now:     time.Now,
	}
}

// WithLogger overrides the logger used by the job.
func (j *TokenPurgeJob) WithLogger(logger Logger) *TokenPurgeJob {
	if logger != nil {
		j.logger = logger
	}
	return j
}

// WithClock overrides the time source.
func (j *TokenPurgeJob) WithClock(now func() time.Time) *TokenPurgeJob {
	if now != nil {
		j.now = now
	}
	return j
}

func (j *TokenPurgeJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.Purge(ctx); err != nil {
		j.logger.Error("token purge failed", "error", err)
	}
}

// Purge clears expired tokens and returns how many rows changed.
func (j *TokenPurgeJob) Purge(ctx context.Context) (int64, error) {
	n, err := j.users.PurgeExpiredEmailTokens(ctx, j.now().UTC())
	if err != nil {
		return 0, internalError(err, "failed to purge expired email tokens")
	}

	if n > 0 {
		j.logger.Info("purged expired email tokens", "count", n)
	}
	return n, nil
}
