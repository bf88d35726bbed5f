package location

import (
	"context"

	"github.com/ghettovoice/registrar/internal/errorutil"
	"github.com/ghettovoice/registrar/uri"
)

// Registry accepts bindings.
// Publish is an upsert with replace semantics: a binding replaces the previous binding
// of the same address of record. A binding with zero Expires removes it.
// Implementations serialize concurrent publishes for the same address of record.
type Registry interface {
	Publish(ctx context.Context, aor *uri.SIP, b *Binding) error
}

// Locator is a [Registry] which can also resolve addresses of record.
type Locator interface {
	Registry
	Lookup(ctx context.Context, aor *uri.SIP) (*Binding, error)
}

const (
	// ErrNotFound is returned by Lookup when there is no live binding.
	ErrNotFound errorutil.Error = "binding not found"
	// ErrInvalidBinding is returned by Publish for malformed input.
	ErrInvalidBinding errorutil.Error = "invalid binding"

	errInvalidInterval errorutil.Error = "non-positive sweep interval"
)

func validate(aor *uri.SIP, b *Binding) error {
	switch {
	case aor == nil || aor.User.Username() == "" || aor.Addr.Host() == "":
		return errorutil.NewWrapperError(ErrInvalidBinding, "malformed address of record %v", aor) //errtrace:skip
	case b == nil:
		return errorutil.NewWrapperError(ErrInvalidBinding, "nil binding") //errtrace:skip
	case b.Expires > 0 && b.Contact == nil:
		return errorutil.NewWrapperError(ErrInvalidBinding, "missing contact") //errtrace:skip
	}
	return nil
}
