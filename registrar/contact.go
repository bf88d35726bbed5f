package registrar

import (
	"fmt"
	"net/netip"

	"braces.dev/errtrace"

	"github.com/ghettovoice/registrar/header"
	"github.com/ghettovoice/registrar/identity"
	"github.com/ghettovoice/registrar/uri"
)

// ResolveContact returns the contact address a binding should be published with,
// and whether the client is behind a NAT. The passed contact is never modified.
//
// A peer with a fixed contact address gets it applied as is, NAT indicators are ignored.
// Otherwise the received address and rport observed by the transport, when present,
// replace the contact host and port respectively.
func ResolveContact(id identity.Identity, contact *uri.SIP, via header.ViaHop) (*uri.SIP, bool, error) {
	if contact == nil {
		return nil, false, errtrace.Wrap(ErrMalformedRequest)
	}

	nat := DetectNAT(via)
	resolved := contact.Clone()

	switch id := id.(type) {
	case *identity.Peer:
		fixed, ok, err := id.FixedContact()
		if err != nil {
			return nil, false, errtrace.Wrap(err)
		}
		if ok {
			if port, ok := fixed.Port(); ok {
				resolved.Addr = resolved.Addr.WithHost(fixed.Host()).WithPort(port)
			} else {
				resolved.Addr = resolved.Addr.WithHost(fixed.Host())
			}
			return resolved, nat, nil
		}
	case *identity.Agent:
	default:
		panic(fmt.Sprintf("unexpected identity %T", id))
	}

	if recv, ok := via.Received(); ok {
		resolved.Addr = resolved.Addr.WithHost(recv.Unmap().String())
	}
	if rport, ok := via.RPort(); ok {
		resolved.Addr = resolved.Addr.WithPort(rport)
	}
	return resolved, nat, nil
}

// DetectNAT compares the sent-by address of the Via hop against the source address
// observed by the transport (received and rport parameters).
// An absent port is taken as 5060, absent received and rport as equal to the sent-by values.
func DetectNAT(via header.ViaHop) bool {
	if recv, ok := via.Received(); ok && !sameHost(via.Addr.Host(), recv) {
		return true
	}
	if rport, ok := via.RPort(); ok && rport != via.SentByPort() {
		return true
	}
	return false
}

// sameHost reports whether host is the IP literal addr. Host names never match.
func sameHost(host string, addr netip.Addr) bool {
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	return ip.Unmap() == addr.Unmap()
}
