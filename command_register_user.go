package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Register creates an unverified USER account with a pending
// confirmation token. The returned record carries that token.
func (s *AccountService) Register(ctx context.Context, event RegisterUserMessage) (UserRecord, error) {
	if err := s.checkContext(ctx, event.Type()); err != nil {
		return UserRecord{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	hash, err := s.hasher.HashPassword(event.Password)
	if err != nil {
		return UserRecord{}, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided").
			WithCode(goerrors.CodeBadRequest)
	}

	user := &User{
		FirstName:     event.FirstName,
		LastName:      event.LastName,
		Email:         NormalizeEmail(event.Email),
		PasswordHash:  hash,
		Role:          RoleUser,
		EmailVerified: false,
	}
	token := s.issueEmailToken(user, TokenPurposeConfirmAccount)

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.ensureEmailAvailable(ctx, tx, user.Email, 0); err != nil {
			return err
		}

		created, err := s.repo.Users().CreateTx(ctx, tx, user)
		if err != nil {
			return writeError(err, "could not create user")
		}
		user = created
		return nil
	})

	if err != nil {
		return UserRecord{}, internalError(err, "user registration transaction failed")
	}

	s.logger.Info("user registered", "user_id", user.ID)
	s.publish(ctx, AccountEventRegistered, user, token)

	record := NewUserRecord(user)
	record.EmailToken = token
	return record, nil
}
