package uri

import "github.com/ghettovoice/registrar/internal/util"

// AOR builds an address-of-record URI user@domain.
// The domain is lower-cased, AORs are compared by value.
func AOR(username, domain string, secured bool) *SIP {
	return &SIP{
		User:    User(username),
		Addr:    Host(util.LCase(domain)),
		Secured: secured,
	}
}

// Key returns a canonical textual key of the address-of-record part of u:
// scheme, user and host, without port, parameters and headers.
// It is suitable for keying bindings in a location registry.
func Key(u *SIP) string {
	if u == nil {
		return ""
	}
	return u.Scheme() + ":" + escape(u.User.Username(), shouldEscapeUserChar) + "@" + util.LCase(u.Addr.Host())
}
