package auth

import (
	"context"
	"time"
)

// AccountEventType enumerates account lifecycle notifications.
type AccountEventType string

const (
	AccountEventRegistered             AccountEventType = "user.registered"
	AccountEventConfirmed              AccountEventType = "user.account_confirmed"
	AccountEventPasswordResetRequested AccountEventType = "user.password_reset_requested"
	AccountEventPasswordReset          AccountEventType = "user.password_reset"
	AccountEventPasswordChanged        AccountEventType = "user.password_changed"
	AccountEventEmailChanged           AccountEventType = "user.email_changed"
	AccountEventRemoved                AccountEventType = "user.removed"
)

// AccountEvent is published after a lifecycle operation commits.
// EmailToken is set when the event asks for out of band delivery.
type AccountEvent struct {
	Type       AccountEventType `json:"type"`
	UserID     int64            `json:"user_id"`
	Email      string           `json:"email"`
	FirstName  string           `json:"firstname,omitempty"`
	EmailToken string           `json:"email_token,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// Notifier delivers account events, e.g. to the notifications service.
type Notifier interface {
	Notify(ctx context.Context, event AccountEvent) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, event AccountEvent) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, event AccountEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, AccountEvent) error {
	return nil
}

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

func newAccountEvent(kind AccountEventType, user *User, token string, now time.Time) AccountEvent {
	return AccountEvent{
		Type:       kind,
		UserID:     user.ID,
		Email:      user.Email,
		FirstName:  user.FirstName,
		EmailToken: token,
		OccurredAt: now,
	}
}
