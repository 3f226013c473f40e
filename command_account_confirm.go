package auth

import (
	"context"

	"github.com/uptrace/bun"
)

type ConfirmAccountMessage struct {
	EmailToken string `json:"email_token"`
}

func (e ConfirmAccountMessage) Type() string { return "user.confirm_account" }

// ConfirmAccount consumes a confirmation token, marking the account
// verified. A token can be consumed at most once.
func (s *AccountService) ConfirmAccount(ctx context.Context, event ConfirmAccountMessage) (bool, error) {
	if err := s.checkContext(ctx, event.Type()); err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var user *User
	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = s.repo.Users().GetByEmailTokenTx(ctx, tx, event.EmailToken)
		if err != nil {
			return s.emailTokenLookupError(err)
		}

		if err := s.checkEmailToken(user, TokenPurposeConfirmAccount); err != nil {
			return err
		}

		user.ClearEmailToken()
		user.EmailVerified = true

		columns := append([]string{"is_email_verified"}, emailTokenColumns...)
		if _, err := s.repo.Users().UpdateIfTokenTx(ctx, tx, user, event.EmailToken, columns...); err != nil {
			return s.emailTokenLookupError(err)
		}
		return nil
	})

	if err != nil {
		return false, internalError(err, "failed to confirm account")
	}

	s.logger.Info("account confirmed", "user_id", user.ID)
	s.publish(ctx, AccountEventConfirmed, user, "")

	return true, nil
}
