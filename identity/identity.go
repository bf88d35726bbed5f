// Package identity defines the identities allowed to register and the stores resolving them.
//
// There are two kinds of identities. A [Peer] is a statically configured identity which is
// not scoped to any domain, like a trunk or a device with fixed credentials. An [Agent] is
// scoped to one or more domains and becomes reachable under each of them on registration.
package identity

//go:generate go tool errtrace -w .
//go:generate go tool mockgen -typed -destination identitymock/store.go -package identitymock . Store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"braces.dev/errtrace"
	"github.com/miekg/dns"

	"github.com/ghettovoice/registrar/internal/errorutil"
	"github.com/ghettovoice/registrar/internal/types"
	"github.com/ghettovoice/registrar/internal/util"
)

// Kind is the identity kind.
type Kind uint8

const (
	KindPeer Kind = iota + 1
	KindAgent
)

func (k Kind) String() string {
	switch k {
	case KindPeer:
		return "peer"
	case KindAgent:
		return "agent"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Account holds the attributes common to all identity kinds.
type Account struct {
	Username string
	Secret   string
	// Device is an explicit host the identity binds under instead of the From host.
	Device string
}

// Identity is implemented by [*Peer] and [*Agent] only.
// Callers switch over the concrete type:
//
//	switch id := id.(type) {
//	case *identity.Peer:
//	case *identity.Agent:
//	}
type Identity interface {
	Kind() Kind
	Account() Account
	slog.LogValuer
	sealed()
}

// Store resolves identities. Both lookups return [ErrNotFound] when nothing matches.
type Store interface {
	LookupPeer(ctx context.Context, username string) (*Peer, error)
	LookupAgent(ctx context.Context, host, username string) (*Agent, error)
}

const (
	// ErrNotFound is returned by stores when no identity matches.
	ErrNotFound errorutil.Error = "identity not found"
	// ErrInvalidIdentity is returned when an identity fails validation.
	ErrInvalidIdentity errorutil.Error = "invalid identity"
)

// Peer is an identity not scoped to a domain.
type Peer struct {
	Username string
	Secret   string
	Device   string
	// ContactAddr is a fixed "host" or "host:port" the peer is always reachable at,
	// it takes precedence over the contact address and NAT observations of the request.
	ContactAddr string
}

func (*Peer) sealed() {}

func (*Peer) Kind() Kind { return KindPeer }

func (p *Peer) Account() Account {
	return Account{Username: p.Username, Secret: p.Secret, Device: p.Device}
}

// FixedContact returns the parsed contact address override, ok is false when the peer has none.
// A malformed override is reported as [ErrInvalidIdentity].
func (p *Peer) FixedContact() (addr types.Addr, ok bool, err error) {
	if p == nil || p.ContactAddr == "" {
		return types.Addr{}, false, nil
	}
	addr, err = types.ParseAddr(p.ContactAddr)
	if err != nil {
		return types.Addr{}, false, errtrace.Wrap(errorutil.NewWrapperError(ErrInvalidIdentity,
			fmt.Errorf("peer %q contact address: %w", p.Username, err)))
	}
	return addr, true, nil
}

// Validate checks the peer attributes.
func (p *Peer) Validate() error {
	if p == nil {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrInvalidIdentity, "nil peer"))
	}
	var errs []error
	if p.Username == "" {
		errs = append(errs, errorutil.Errorf("empty username"))
	}
	if p.ContactAddr != "" {
		if _, err := types.ParseAddr(p.ContactAddr); err != nil {
			errs = append(errs, fmt.Errorf("contact address: %w", err))
		}
	}
	if p.Device != "" && !types.Host(p.Device).IsValid() {
		errs = append(errs, errorutil.Errorf("malformed device host %q", p.Device))
	}
	if err := errorutil.JoinPrefix(fmt.Sprintf("peer %q:", p.Username), errs...); err != nil {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrInvalidIdentity, err))
	}
	return nil
}

func (p *Peer) Clone() *Peer {
	if p == nil {
		return nil
	}
	p2 := *p
	return &p2
}

// LogValue implements [slog.LogValuer]. The secret is never rendered.
func (p *Peer) LogValue() slog.Value {
	if p == nil {
		return slog.Value{}
	}
	attrs := []slog.Attr{
		slog.String("kind", KindPeer.String()),
		slog.String("username", p.Username),
	}
	if p.Device != "" {
		attrs = append(attrs, slog.String("device", p.Device))
	}
	if p.ContactAddr != "" {
		attrs = append(attrs, slog.String("contact_addr", p.ContactAddr))
	}
	return slog.GroupValue(attrs...)
}

// Agent is an identity scoped to a non-empty ordered set of domains.
type Agent struct {
	Username string
	Secret   string
	Device   string
	Domains  []string
}

func (*Agent) sealed() {}

func (*Agent) Kind() Kind { return KindAgent }

func (a *Agent) Account() Account {
	return Account{Username: a.Username, Secret: a.Secret, Device: a.Device}
}

// HasDomain reports whether host is one of the agent domains.
// Domains are compared case-insensitively, a trailing dot is ignored.
func (a *Agent) HasDomain(host string) bool {
	if a == nil || host == "" {
		return false
	}
	host = CanonicalDomain(host)
	return slices.ContainsFunc(a.Domains, func(d string) bool { return CanonicalDomain(d) == host })
}

// CanonicalDomain returns the canonical form of a domain used for comparison and keying:
// lower-cased without the trailing dot.
func CanonicalDomain(domain string) string {
	domain = util.TrimSP(domain)
	if domain == "" {
		return ""
	}
	c := dns.CanonicalName(domain)
	if len(c) > 1 {
		c = c[:len(c)-1]
	}
	return c
}

// Validate checks the agent attributes.
func (a *Agent) Validate() error {
	if a == nil {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrInvalidIdentity, "nil agent"))
	}
	var errs []error
	if a.Username == "" {
		errs = append(errs, errorutil.Errorf("empty username"))
	}
	if len(a.Domains) == 0 {
		errs = append(errs, errorutil.Errorf("empty domain set"))
	}
	seen := make(map[string]bool, len(a.Domains))
	for _, d := range a.Domains {
		if _, ok := dns.IsDomainName(d); !ok || d == "" {
			errs = append(errs, errorutil.Errorf("malformed domain %q", d))
			continue
		}
		if c := CanonicalDomain(d); seen[c] {
			errs = append(errs, errorutil.Errorf("duplicate domain %q", d))
		} else {
			seen[c] = true
		}
	}
	if err := errorutil.JoinPrefix(fmt.Sprintf("agent %q:", a.Username), errs...); err != nil {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrInvalidIdentity, err))
	}
	return nil
}

func (a *Agent) Clone() *Agent {
	if a == nil {
		return nil
	}
	a2 := *a
	a2.Domains = slices.Clone(a.Domains)
	return &a2
}

// LogValue implements [slog.LogValuer]. The secret is never rendered.
func (a *Agent) LogValue() slog.Value {
	if a == nil {
		return slog.Value{}
	}
	attrs := []slog.Attr{
		slog.String("kind", KindAgent.String()),
		slog.String("username", a.Username),
		slog.Any("domains", a.Domains),
	}
	if a.Device != "" {
		attrs = append(attrs, slog.String("device", a.Device))
	}
	return slog.GroupValue(attrs...)
}
