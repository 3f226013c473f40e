package auth

import (
	"context"

	"github.com/uptrace/bun"
)

type InitializePasswordResetMessage struct {
	Email string `json:"email"`
}

func (e InitializePasswordResetMessage) Type() string { return "user.ask_reset_password" }

// AskResetPassword replaces any pending token with a fresh password
// reset token and returns it for out of band delivery.
func (s *AccountService) AskResetPassword(ctx context.Context, event InitializePasswordResetMessage) (string, error) {
	if err := s.checkContext(ctx, event.Type()); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		user  *User
		token string
	)

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = s.repo.Users().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if IsRecordNotFound(err) {
				return ErrUserNotFound
			}
			return err
		}

		token = s.issueEmailToken(user, TokenPurposeResetPassword)

		if _, err := s.repo.Users().UpdateTx(ctx, tx, user, emailTokenColumns...); err != nil {
			return err
		}
		return nil
	})

	if err != nil {
		return "", internalError(err, "failed to initialize password reset")
	}

	s.logger.Info("password reset requested", "user_id", user.ID)
	s.publish(ctx, AccountEventPasswordResetRequested, user, token)

	return token, nil
}
