package registrar

import (
	"context"
	"fmt"
	"time"

	"braces.dev/errtrace"

	"github.com/ghettovoice/registrar/header"
	"github.com/ghettovoice/registrar/identity"
	"github.com/ghettovoice/registrar/location"
	"github.com/ghettovoice/registrar/uri"
)

// AddressesOfRecord returns the AORs the identity registers under.
// A peer has a single AOR in its device domain, or the From host when it has none.
// An agent has one AOR per permitted domain.
func AddressesOfRecord(id identity.Identity, fromHost string, secured bool) []*uri.SIP {
	switch id := id.(type) {
	case *identity.Peer:
		domain := id.Device
		if domain == "" {
			domain = fromHost
		}
		return []*uri.SIP{uri.AOR(id.Username, identity.CanonicalDomain(domain), secured)}
	case *identity.Agent:
		aors := make([]*uri.SIP, len(id.Domains))
		for i, d := range id.Domains {
			aors[i] = uri.AOR(id.Username, identity.CanonicalDomain(d), secured)
		}
		return aors
	default:
		panic(fmt.Sprintf("unexpected identity %T", id))
	}
}

// NewRoute builds the binding for a resolved contact.
func NewRoute(contact *uri.SIP, nat bool, via header.ViaHop, expires uint32, now time.Time) *location.Binding {
	b := &location.Binding{
		Contact:      contact,
		Secured:      contact.Secured,
		Transport:    via.Transport,
		SentByHost:   via.Addr.Host(),
		SentByPort:   via.SentByPort(),
		RegisteredAt: now,
		Expires:      expires,
		NAT:          nat,
	}
	if recv, ok := via.Received(); ok {
		b.ReceivedHost = recv.Unmap().String()
	}
	if rport, ok := via.RPort(); ok {
		b.ReceivedPort = rport
	}
	return b
}

// bindingExpires picks the binding lifetime: the message Expires header,
// then the contact expires parameter, then def.
func bindingExpires(hdrs *Headers, def uint32) uint32 {
	if hdrs.Expires != nil {
		return hdrs.Expires.DeltaSeconds()
	}
	if exp, ok := hdrs.Contact.Expires(); ok {
		return exp
	}
	return def
}

// publish sends the binding to the registry for every AOR, stopping on the first failure.
func publish(ctx context.Context, reg location.Registry, aors []*uri.SIP, b *location.Binding) error {
	for _, aor := range aors {
		if err := reg.Publish(ctx, aor, b); err != nil {
			return errtrace.Wrap(fmt.Errorf("publish %s: %w", uri.Key(aor), err))
		}
	}
	return nil
}
