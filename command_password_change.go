package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type ChangePasswordMessage struct {
	UserID      int64  `json:"-"`
	OldPassword string `json:"oldPassword"`
	Password    string `json:"password"`
}

func (e ChangePasswordMessage) Type() string { return "user.change_password" }

// ChangePassword replaces the password after checking the old one.
// Setting the same password again is rejected.
func (s *AccountService) ChangePassword(ctx context.Context, event ChangePasswordMessage) (bool, error) {
	if err := s.checkContext(ctx, event.Type()); err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var user *User
	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = s.repo.Users().GetByIDTx(ctx, tx, event.UserID)
		if err != nil {
			if IsRecordNotFound(err) {
				return ErrUserNotFound
			}
			return err
		}

		if !s.hasher.VerifyPassword(event.OldPassword, user.PasswordHash) {
			return ErrInvalidCredentials
		}

		if event.OldPassword == event.Password {
			return ErrPasswordUnchanged
		}

		hash, err := s.hasher.HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided").
				WithCode(goerrors.CodeBadRequest)
		}
		user.PasswordHash = hash

		if _, err := s.repo.Users().UpdateTx(ctx, tx, user, "password_hash"); err != nil {
			return err
		}
		return nil
	})

	if err != nil {
		return false, internalError(err, "failed to change password")
	}

	s.logger.Info("password changed", "user_id", user.ID)
	s.publish(ctx, AccountEventPasswordChanged, user, "")

	return true, nil
}
