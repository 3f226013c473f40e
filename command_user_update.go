package auth

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// UpdateUserMessage replaces profile fields. Nil fields are left as is.
type UpdateUserMessage struct {
	UserID     int64     `json:"-"`
	FirstName  *string   `json:"firstname,omitempty"`
	LastName   *string   `json:"lastname,omitempty"`
	Email      *string   `json:"email,omitempty"`
	Role       *UserRole `json:"role,omitempty"`
	EmailToken *string   `json:"email_token,omitempty"`
}

func (e UpdateUserMessage) Type() string { return "user.update" }

// UpdateUser replaces the given profile fields. An empty email token
// clears the pending token, a non empty one is installed as an account
// confirmation token.
func (s *AccountService) UpdateUser(ctx context.Context, event UpdateUserMessage) (UserRecord, error) {
	if err := s.checkContext(ctx, event.Type()); err != nil {
		return UserRecord{}, err
	}

	if event.Role != nil && !event.Role.IsValid() {
		return UserRecord{}, goerrors.New("unknown role", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"role": *event.Role})
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

		if event.FirstName != nil {
			user.FirstName = *event.FirstName
		}

		if event.LastName != nil {
			user.LastName = *event.LastName
		}

		if event.Email != nil {
			email := NormalizeEmail(*event.Email)
			if email != user.Email {
				if err := s.ensureEmailAvailable(ctx, tx, email, user.ID); err != nil {
					return err
				}
				user.Email = email
			}
		}

		if event.Role != nil {
			user.Role = *event.Role
		}

		if event.EmailToken != nil {
			if token := strings.TrimSpace(*event.EmailToken); token == "" {
				user.ClearEmailToken()
			} else {
				if err := s.ensureEmailTokenAvailable(ctx, tx, token, user.ID); err != nil {
					return err
				}
				user.SetEmailToken(token, TokenPurposeConfirmAccount, s.now().UTC().Add(s.tokenTTL))
			}
		}

		if _, err := s.repo.Users().UpdateTx(ctx, tx, user); err != nil {
			return writeError(err, "could not update user")
		}
		return nil
	})

	if err != nil {
		return UserRecord{}, internalError(err, "failed to update user")
	}

	s.logger.Info("user updated", "user_id", user.ID)

	return NewUserRecord(user), nil
}
