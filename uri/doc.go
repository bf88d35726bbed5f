// Package uri implements SIP and SIPS URIs (RFC 3261 Section 19.1) as used by the registrar:
// Contact URIs received in REGISTER requests and address-of-record URIs under which bindings
// are published.
//
// # Parsing
//
//	u, err := uri.ParseSIP("sip:alice@192.168.1.10:5062;transport=udp")
//	if err != nil {
//	    return err
//	}
//
// Escaped characters in the user info, parameters and headers are unescaped during parsing and
// escaped again by [SIP.String].
//
// # Address of record
//
// [AOR] builds the user@domain URI that keys a binding, [Key] renders the canonical
// registry key of any SIP URI.
//
// # Comparison
//
// [SIP.Equal] follows the comparison rules of RFC 3261 Section 19.1.4: the scheme, user info,
// host and port must match, parameters present in both URIs must match and the special
// parameters (transport, user, method, maddr, ttl, lr) must be present in both or in neither.
package uri
