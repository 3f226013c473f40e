package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type FinalizePasswordResetMessage struct {
	EmailToken string `json:"email_token"`
	Password   string `json:"password"`
}

func (e FinalizePasswordResetMessage) Type() string { return "user.reset_password" }

// ResetPassword consumes a reset token and sets a new password. It does
// not require the old password and does not verify the account: an
// unverified account gets a fresh confirmation token, returned in the
// record and in the published event.
func (s *AccountService) ResetPassword(ctx context.Context, event FinalizePasswordResetMessage) (UserRecord, error) {
	if err := s.checkContext(ctx, event.Type()); err != nil {
		return UserRecord{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	passwordHash, err := s.hasher.HashPassword(event.Password)
	if err != nil {
		return UserRecord{}, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided").
			WithCode(goerrors.CodeBadRequest)
	}

	var (
		user         *User
		confirmToken string
	)
	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = s.repo.Users().GetByEmailTokenTx(ctx, tx, event.EmailToken)
		if err != nil {
			return s.emailTokenLookupError(err)
		}

		if err := s.checkEmailToken(user, TokenPurposeResetPassword); err != nil {
			return err
		}

		user.PasswordHash = passwordHash
		if user.EmailVerified {
			user.ClearEmailToken()
		} else {
			confirmToken = s.issueEmailToken(user, TokenPurposeConfirmAccount)
		}

		columns := append([]string{"password_hash"}, emailTokenColumns...)
		if _, err := s.repo.Users().UpdateIfTokenTx(ctx, tx, user, event.EmailToken, columns...); err != nil {
			return s.emailTokenLookupError(err)
		}
		return nil
	})

	if err != nil {
		return UserRecord{}, internalError(err, "failed to finalize password reset")
	}

	s.logger.Info("password reset", "user_id", user.ID)
	s.publish(ctx, AccountEventPasswordReset, user, confirmToken)

	record := NewUserRecord(user)
	record.EmailToken = confirmToken
	return record, nil
}
