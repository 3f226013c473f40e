package auth

import (
	"context"
	"fmt"
	"time"
)

// Logger is the logging contract used across the package.
// Messages are followed by key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds auth options
type Config interface {
	GetIssuer() string
	GetServiceName() string
	GetServiceTokenTTL() time.Duration
	GetUserTokenTTL() time.Duration
	GetEmailTokenTTL() time.Duration
	GetServiceTokenHeader() string
	GetUserTokenHeader() string
	GetAuthScheme() string
}

// UserTokenIssuer mints user session tokens
type UserTokenIssuer interface {
	IssueUserToken(userID int64, role UserRole) (string, error)
}

// Pinger reports store health
type Pinger interface {
	Ping(ctx context.Context) error
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Println(format("[ERR] AUTH ", msg, args...))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Println(format("[WRN] AUTH ", msg, args...))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Println(format("[INF] AUTH ", msg, args...))
}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Println(format("[DBG] AUTH ", msg, args...))
}

func format(prefix, msg string, args ...any) string {
	out := prefix + msg
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			out += fmt.Sprintf(" %v=%v", args[i], args[i+1])
		} else {
			out += fmt.Sprintf(" %v", args[i])
		}
	}
	return out
}
