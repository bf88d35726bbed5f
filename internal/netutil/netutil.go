// Package netutil validates IP rules and matches source addresses against access lists.
// Rules are written as a single IP address, a CIDR prefix (10.0.0.0/8)
// or an IPv4 address with a dotted mask (10.0.0.0/255.0.0.0).
package netutil

//go:generate go tool errtrace -w .

import (
	"log/slog"
	"net/netip"
	"strings"

	"braces.dev/errtrace"

	"github.com/ghettovoice/registrar/internal/errorutil"
)

// ErrInvalidRule is returned for rules in unknown notation.
const ErrInvalidRule errorutil.Error = "invalid rule notation, must be IP, CIDR or IP/mask"

// IsIP reports whether s is a plain IP address.
func IsIP(s string) bool {
	a, err := netip.ParseAddr(s)
	return err == nil && a.Zone() == ""
}

// IsCIDR reports whether s is an address prefix in CIDR notation.
func IsCIDR(s string) bool {
	_, err := netip.ParsePrefix(s)
	return err == nil
}

// IsIPAndMask reports whether s is an IPv4 address followed by a dotted network mask.
func IsIPAndMask(s string) bool {
	_, err := parseIPAndMask(s)
	return err == nil
}

func parseIPAndMask(s string) (netip.Prefix, error) {
	ip, mask, ok := strings.Cut(s, "/")
	if !ok {
		return netip.Prefix{}, errtrace.Wrap(ErrInvalidRule)
	}
	a, err := netip.ParseAddr(ip)
	if err != nil || !a.Is4() {
		return netip.Prefix{}, errtrace.Wrap(ErrInvalidRule)
	}
	m, err := netip.ParseAddr(mask)
	if err != nil || !m.Is4() {
		return netip.Prefix{}, errtrace.Wrap(ErrInvalidRule)
	}

	bs := m.As4()
	bits := 0
	v := uint32(bs[0])<<24 | uint32(bs[1])<<16 | uint32(bs[2])<<8 | uint32(bs[3])
	for v&(1<<31) != 0 {
		bits++
		v <<= 1
	}
	if v != 0 {
		// non-contiguous mask
		return netip.Prefix{}, errtrace.Wrap(ErrInvalidRule)
	}
	return errtrace.Wrap2(a.Prefix(bits))
}

// ParseRule parses a rule into a masked prefix. A single address yields a host prefix.
func ParseRule(s string) (netip.Prefix, error) {
	s = strings.TrimSpace(s)
	switch {
	case IsIP(s):
		a, _ := netip.ParseAddr(s)
		a = a.Unmap()
		return netip.PrefixFrom(a, a.BitLen()), nil
	case IsCIDR(s):
		p, _ := netip.ParsePrefix(s)
		if p.Addr().Is4In6() && p.Bits() >= 96 {
			p = netip.PrefixFrom(p.Addr().Unmap(), p.Bits()-96)
		}
		return p.Masked(), nil
	case IsIPAndMask(s):
		return errtrace.Wrap2(parseIPAndMask(s))
	default:
		return netip.Prefix{}, errorutil.NewWrapperError(ErrInvalidRule, "%q", s) //errtrace:skip
	}
}

// AccessList matches addresses against allow and deny rules.
// A deny match always rejects. A non-empty allow list must match for the address to pass.
// The zero value and nil allow everything.
type AccessList struct {
	allow, deny []netip.Prefix
}

// NewAccessList parses the rules, reporting every invalid rule at once.
func NewAccessList(allow, deny []string) (*AccessList, error) {
	l := &AccessList{}
	var errs []error
	for _, r := range allow {
		p, err := ParseRule(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		l.allow = append(l.allow, p)
	}
	for _, r := range deny {
		p, err := ParseRule(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		l.deny = append(l.deny, p)
	}
	if err := errorutil.JoinPrefix("access list:", errs...); err != nil {
		return nil, errtrace.Wrap(err)
	}
	return l, nil
}

// IsEmpty reports whether the list has no rules.
func (l *AccessList) IsEmpty() bool {
	return l == nil || len(l.allow) == 0 && len(l.deny) == 0
}

// Allowed reports whether the address passes the list.
func (l *AccessList) Allowed(addr netip.Addr) bool {
	if l.IsEmpty() {
		return true
	}
	if !addr.IsValid() {
		return len(l.allow) == 0
	}
	addr = addr.Unmap().WithZone("")
	for _, p := range l.deny {
		if p.Contains(addr) {
			return false
		}
	}
	if len(l.allow) == 0 {
		return true
	}
	for _, p := range l.allow {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// AllowedHost is like [AccessList.Allowed] for a textual host.
// Host names never match a rule.
func (l *AccessList) AllowedHost(host string) bool {
	addr, err := netip.ParseAddr(strings.Trim(host, "[]"))
	if err != nil {
		addr = netip.Addr{}
	}
	return l.Allowed(addr)
}

// LogValue implements [slog.LogValuer].
func (l *AccessList) LogValue() slog.Value {
	if l == nil {
		return slog.Value{}
	}
	return slog.GroupValue(
		slog.Int("allow", len(l.allow)),
		slog.Int("deny", len(l.deny)),
	)
}
