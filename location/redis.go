package location

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"braces.dev/errtrace"
	"github.com/redis/go-redis/v9"

	"github.com/ghettovoice/registrar/internal/log"
	"github.com/ghettovoice/registrar/uri"
)

// DefaultRedisKeyPrefix is prepended to the address-of-record key of every stored binding.
const DefaultRedisKeyPrefix = "registrar:binding:"

// RedisOptions configures a [RedisRegistry].
type RedisOptions struct {
	Logger *slog.Logger
	// KeyPrefix defaults to [DefaultRedisKeyPrefix].
	KeyPrefix string
	// Now returns the current time, defaults to [time.Now].
	Now func() time.Time
}

// RedisRegistry is a [Locator] backed by Redis, shared by every registrar instance
// that points to the same database. Bindings are stored as JSON under keys with a TTL
// equal to the remaining binding lifetime, so Redis evicts expired bindings itself.
type RedisRegistry struct {
	client redis.Cmdable
	prefix string
	log    *slog.Logger
	now    func() time.Time
}

// NewRedisRegistry creates a registry on top of the client. opts may be nil.
// The client lifecycle is managed by the caller.
func NewRedisRegistry(client redis.Cmdable, opts *RedisOptions) *RedisRegistry {
	r := &RedisRegistry{
		client: client,
		prefix: DefaultRedisKeyPrefix,
		log:    log.Noop,
		now:    time.Now,
	}
	if opts != nil {
		if opts.KeyPrefix != "" {
			r.prefix = opts.KeyPrefix
		}
		if opts.Logger != nil {
			r.log = opts.Logger
		}
		if opts.Now != nil {
			r.now = opts.Now
		}
	}
	return r
}

// OpenRedis connects to the Redis server at url (redis://...) and checks the connection.
func OpenRedis(ctx context.Context, url string, opts *RedisOptions) (*RedisRegistry, *redis.Client, error) {
	ropts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, errtrace.Wrap(err)
	}
	client := redis.NewClient(ropts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, errtrace.Wrap(err)
	}
	return NewRedisRegistry(client, opts), client, nil
}

func (r *RedisRegistry) key(aor *uri.SIP) string {
	return r.prefix + uri.Key(aor)
}

// Publish implements [Registry].
func (r *RedisRegistry) Publish(ctx context.Context, aor *uri.SIP, b *Binding) error {
	if err := validate(aor, b); err != nil {
		return errtrace.Wrap(err)
	}

	key := r.key(aor)
	ttl := b.TTL(r.now())
	if b.Expires == 0 || ttl == 0 {
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return errtrace.Wrap(err)
		}
		r.log.LogAttrs(ctx, slog.LevelDebug, "binding removed", slog.String("aor", uri.Key(aor)))
		return nil
	}

	data, err := json.Marshal(b)
	if err != nil {
		return errtrace.Wrap(err)
	}
	return errtrace.Wrap(r.client.Set(ctx, key, data, ttl).Err())
}

// Lookup implements [Locator].
func (r *RedisRegistry) Lookup(ctx context.Context, aor *uri.SIP) (*Binding, error) {
	if aor == nil {
		return nil, errtrace.Wrap(ErrNotFound)
	}

	data, err := r.client.Get(ctx, r.key(aor)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errtrace.Wrap(ErrNotFound)
	}
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	var b Binding
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, errtrace.Wrap(err)
	}
	if b.IsExpired(r.now()) {
		return nil, errtrace.Wrap(ErrNotFound)
	}
	return &b, nil
}

// Ping checks the Redis connection.
func (r *RedisRegistry) Ping(ctx context.Context) error {
	return errtrace.Wrap(r.client.Ping(ctx).Err())
}
