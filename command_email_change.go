package auth

import (
	"context"

	"github.com/uptrace/bun"
)

type ChangeEmailMessage struct {
	UserID int64  `json:"-"`
	Email  string `json:"email"`
}

func (e ChangeEmailMessage) Type() string { return "user.change_email" }

// ChangeEmail moves the account to a new address. The account goes back
// to unverified and receives a new confirmation token.
func (s *AccountService) ChangeEmail(ctx context.Context, event ChangeEmailMessage) (bool, error) {
	if err := s.checkContext(ctx, event.Type()); err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	email := NormalizeEmail(event.Email)

	var (
		user  *User
		token string
	)

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = s.repo.Users().GetByIDTx(ctx, tx, event.UserID)
		if err != nil {
			if IsRecordNotFound(err) {
				return ErrUserNotFound
			}
			return err
		}

		if user.Email == email {
			return ErrEmailUnchanged
		}

		if err := s.ensureEmailAvailable(ctx, tx, email, user.ID); err != nil {
			return err
		}

		user.Email = email
		user.EmailVerified = false
		token = s.issueEmailToken(user, TokenPurposeConfirmAccount)

		columns := append([]string{"email", "is_email_verified"}, emailTokenColumns...)
		if _, err := s.repo.Users().UpdateTx(ctx, tx, user, columns...); err != nil {
			return writeError(err, "could not change email")
		}
		return nil
	})

	if err != nil {
		return false, internalError(err, "failed to change email")
	}

	s.logger.Info("email changed", "user_id", user.ID)
	s.publish(ctx, AccountEventEmailChanged, user, token)

	return true, nil
}
