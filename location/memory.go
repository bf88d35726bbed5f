package location

import (
	"context"
	"iter"
	"log/slog"
	"time"

	"braces.dev/errtrace"

	"github.com/ghettovoice/registrar/internal/log"
	"github.com/ghettovoice/registrar/internal/syncutil"
	"github.com/ghettovoice/registrar/uri"
)

type memEntry struct {
	aor     *uri.SIP
	binding *Binding
}

// MemoryOptions configures a [MemoryRegistry].
type MemoryOptions struct {
	Logger *slog.Logger
	// Now returns the current time, defaults to [time.Now].
	Now func() time.Time
}

func (o *MemoryOptions) log() *slog.Logger {
	if o == nil || o.Logger == nil {
		return log.Noop
	}
	return o.Logger
}

func (o *MemoryOptions) now() func() time.Time {
	if o == nil || o.Now == nil {
		return time.Now
	}
	return o.Now
}

// MemoryRegistry is an in-memory [Locator] keyed by the canonical address of record.
// It is safe for concurrent use. Expired bindings are invisible to Lookup and
// are evicted by Sweep.
type MemoryRegistry struct {
	items *syncutil.ShardMap[string, memEntry]
	log   *slog.Logger
	now   func() time.Time
}

// NewMemoryRegistry creates an empty registry. opts may be nil.
func NewMemoryRegistry(opts *MemoryOptions) *MemoryRegistry {
	return &MemoryRegistry{
		items: syncutil.NewShardMap[string, memEntry](),
		log:   opts.log(),
		now:   opts.now(),
	}
}

// Publish implements [Registry].
// A binding registered before the stored one does not replace it.
func (r *MemoryRegistry) Publish(ctx context.Context, aor *uri.SIP, b *Binding) error {
	if err := ctx.Err(); err != nil {
		return errtrace.Wrap(err)
	}
	if err := validate(aor, b); err != nil {
		return errtrace.Wrap(err)
	}

	key := uri.Key(aor)
	if b.Expires == 0 {
		if _, ok := r.items.Del(key); ok {
			r.log.LogAttrs(ctx, slog.LevelDebug, "binding removed", slog.String("aor", key))
		}
		return nil
	}

	b = b.Clone()
	r.items.Update(key, func(cur memEntry, ok bool) (memEntry, bool) {
		if ok && cur.binding.RegisteredAt.After(b.RegisteredAt) {
			return cur, true
		}
		return memEntry{aor: aor.Clone(), binding: b}, true
	})
	return nil
}

// Lookup implements [Locator].
func (r *MemoryRegistry) Lookup(ctx context.Context, aor *uri.SIP) (*Binding, error) {
	if err := ctx.Err(); err != nil {
		return nil, errtrace.Wrap(err)
	}
	if aor == nil {
		return nil, errtrace.Wrap(ErrNotFound)
	}
	e, ok := r.items.Get(uri.Key(aor))
	if !ok || e.binding.IsExpired(r.now()) {
		return nil, errtrace.Wrap(ErrNotFound)
	}
	return e.binding.Clone(), nil
}

// Bindings returns an iterator over the live bindings keyed by the address of record.
func (r *MemoryRegistry) Bindings() iter.Seq2[*uri.SIP, *Binding] {
	return func(yield func(*uri.SIP, *Binding) bool) {
		now := r.now()
		for _, e := range r.items.Items() {
			if e.binding.IsExpired(now) {
				continue
			}
			if !yield(e.aor.Clone(), e.binding.Clone()) {
				return
			}
		}
	}
}

// Len returns the number of stored bindings, expired ones included.
func (r *MemoryRegistry) Len() int { return r.items.Size() }

// Sweep evicts bindings expired at now and returns how many were evicted.
func (r *MemoryRegistry) Sweep(now time.Time) int {
	return r.items.DelFunc(func(_ string, e memEntry) bool { return e.binding.IsExpired(now) })
}

// Run sweeps expired bindings every interval until ctx is done.
func (r *MemoryRegistry) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errtrace.Wrap(errInvalidInterval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := r.Sweep(r.now()); n > 0 {
				r.log.LogAttrs(ctx, slog.LevelDebug, "expired bindings evicted", slog.Int("count", n))
			}
		}
	}
}
