// Package location implements the location service: the registry of bindings that map
// addresses of record to the network locations they are currently reachable at.
package location

//go:generate go tool errtrace -w .
//go:generate go tool mockgen -typed -destination locationmock/registry.go -package locationmock . Registry

import (
	"log/slog"
	"time"

	"github.com/ghettovoice/registrar/uri"
)

// DefaultSentByPort is assumed when the transport reports no explicit sent-by port.
const DefaultSentByPort uint16 = 5060

// Binding (route) records that an address of record is reachable at a contact address.
type Binding struct {
	// Contact is the contact URI after NAT resolution.
	Contact *uri.SIP `json:"contact"`
	// Secured is set for SIPS contacts.
	Secured bool `json:"secured"`
	// Transport is the transport the REGISTER arrived over (UDP, TCP, ...).
	Transport string `json:"transport,omitempty"`
	// SentByHost and SentByPort are the sent-by address reported in the Via header.
	SentByHost string `json:"sent_by_host"`
	SentByPort uint16 `json:"sent_by_port"`
	// ReceivedHost and ReceivedPort are the source address observed by the server transport.
	ReceivedHost string `json:"received_host,omitempty"`
	ReceivedPort uint16 `json:"received_port,omitempty"`
	// RegisteredAt is the time of the registration.
	RegisteredAt time.Time `json:"registered_at"`
	// Expires is the binding lifetime in seconds, 0 removes the binding.
	Expires uint32 `json:"expires"`
	// NAT is set when the client is detected behind a NAT.
	NAT bool `json:"nat"`
	// LinkAOR and ThruGateway are routing policy flags, plain registrations never set them.
	LinkAOR     bool `json:"link_aor"`
	ThruGateway bool `json:"thru_gateway"`
}

// ExpiresAt returns the time the binding expires at.
func (b *Binding) ExpiresAt() time.Time {
	return b.RegisteredAt.Add(time.Duration(b.Expires) * time.Second)
}

// IsExpired reports whether the binding is expired at now.
func (b *Binding) IsExpired(now time.Time) bool {
	return !now.Before(b.ExpiresAt())
}

// TTL returns the remaining lifetime at now, zero for expired bindings.
func (b *Binding) TTL(now time.Time) time.Duration {
	return max(b.ExpiresAt().Sub(now), 0)
}

func (b *Binding) Clone() *Binding {
	if b == nil {
		return nil
	}
	b2 := *b
	b2.Contact = b.Contact.Clone()
	return &b2
}

// LogValue implements [slog.LogValuer].
func (b *Binding) LogValue() slog.Value {
	if b == nil {
		return slog.Value{}
	}
	attrs := []slog.Attr{
		{Key: "contact", Value: b.Contact.LogValue()},
		slog.Uint64("expires", uint64(b.Expires)),
		slog.Bool("nat", b.NAT),
	}
	if b.ReceivedHost != "" {
		attrs = append(attrs, slog.String("received", b.ReceivedHost))
	}
	return slog.GroupValue(attrs...)
}
