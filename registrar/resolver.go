package registrar

import (
	"context"
	"errors"
	"fmt"

	"braces.dev/errtrace"

	"github.com/ghettovoice/registrar/identity"
)

// resolveIdentity looks the username up as a peer first, peers are not scoped by domain.
// Otherwise it looks up an agent in the From host domain.
// Returns [ErrIdentityNotFound] when both lookups miss.
func resolveIdentity(ctx context.Context, store identity.Store, username, fromHost string) (identity.Identity, error) {
	peer, err := store.LookupPeer(ctx, username)
	switch {
	case err == nil:
		return peer, nil
	case !errors.Is(err, identity.ErrNotFound):
		return nil, errtrace.Wrap(err)
	}

	agent, err := store.LookupAgent(ctx, fromHost, username)
	switch {
	case err == nil:
		return agent, nil
	case errors.Is(err, identity.ErrNotFound):
		return nil, errtrace.Wrap(ErrIdentityNotFound)
	default:
		return nil, errtrace.Wrap(err)
	}
}

// checkDomain rejects agents registering from a host outside their domain set.
func checkDomain(id identity.Identity, fromHost string) error {
	switch id := id.(type) {
	case *identity.Peer:
		return nil
	case *identity.Agent:
		if id.HasDomain(fromHost) {
			return nil
		}
		return errtrace.Wrap(ErrDomainMismatch)
	default:
		panic(fmt.Sprintf("unexpected identity %T", id))
	}
}
