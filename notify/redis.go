package notify

import (
	"context"

	auth "github.com/furfightclub/ffc-auth-service"
	"github.com/goccy/go-json"
	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

// DefaultQueue is the list account events are pushed onto
const DefaultQueue = "ffc:notifications:account"

// ListPusher is the subset of the redis client used to enqueue events
type ListPusher interface {
	LPush(ctx context.Context, key string, values ...any) *redis.IntCmd
}

// Options configures the Redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
	Queue    string
}

// RedisNotifier pushes JSON encoded account events onto a Redis list
// consumed by the notifications service.
type RedisNotifier struct {
	client ListPusher
	queue  string
}

var _ auth.Notifier = (*RedisNotifier)(nil)

// NewRedisNotifier wraps an existing client.
func NewRedisNotifier(client ListPusher, queue string) *RedisNotifier {
	if queue == "" {
		queue = DefaultQueue
	}
	return &RedisNotifier{client: client, queue: queue}
}

// Connect dials Redis and checks the connection. The caller owns the
// returned client and must close it.
func Connect(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not connect to redis").
			WithMetadata(map[string]any{"addr": opts.Addr})
	}

	return client, nil
}

// Notify implements auth.Notifier.
func (n *RedisNotifier) Notify(ctx context.Context, event auth.AccountEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode account event")
	}

	if err := n.client.LPush(ctx, n.queue, payload).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to enqueue account event").
			WithMetadata(map[string]any{
				"queue": n.queue,
				"type":  string(event.Type),
			})
	}

	return nil
}

// Queue returns the list key events are pushed onto
func (n *RedisNotifier) Queue() string {
	return n.queue
}
