package uri_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ghettovoice/registrar/uri"
)

func TestSIP_String(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		uri  *uri.SIP
		want string
	}{
		{"nil", (*uri.SIP)(nil), ""},
		{"zero", &uri.SIP{}, "sip:"},
		{"host and port", &uri.SIP{Addr: uri.HostPort("example.com", 5060)}, "sip:example.com:5060"},
		{"secured", &uri.SIP{Secured: true, Addr: uri.HostPort("example.com", 5060)}, "sips:example.com:5060"},
		{"IPv6", &uri.SIP{User: uri.User("alice"), Addr: uri.HostPort("2001:db8::1", 5060)}, "sip:alice@[2001:db8::1]:5060"},
		{
			"user with empty password",
			&uri.SIP{Addr: uri.Host("example.com"), User: uri.UserPassword("root", "")},
			"sip:root:@example.com",
		},
		{
			"user with params encoded and password",
			&uri.SIP{
				Addr: uri.Host("example.com"),
				User: uri.UserPassword("root@;field=123", "p@sswd;qwe"),
			},
			"sip:root%40;field=123:p%40sswd%3Bqwe@example.com",
		},
		{
			"uri params and headers",
			&uri.SIP{
				User: uri.UserPassword("root", ""),
				Addr: uri.Host("example.com"),
				Params: make(uri.Values).
					Append("transport", "UDP").
					Append("lr", ""),
				Headers: make(uri.Values).
					Append("Subject", "Hello world!").
					Append("priority", "emergency").
					Append("x-hE@DER", "").
					Append("priority", "URGENT"),
			},
			"sip:root:@example.com;lr;transport=UDP?priority=emergency&priority=URGENT&subject=Hello%20world!&x-he%40der=",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			if got := c.uri.String(); got != c.want {
				t.Errorf("uri.String() = %q, want %q", got, c.want)
			}
		})
	}
}

func TestParseSIP(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		in      string
		want    *uri.SIP
		wantErr error
	}{
		{
			"user and host",
			"sip:alice@example.com",
			&uri.SIP{User: uri.User("alice"), Addr: uri.Host("example.com")},
			nil,
		},
		{
			"no user",
			"sip:192.168.1.10:5062",
			&uri.SIP{Addr: uri.HostPort("192.168.1.10", 5062)},
			nil,
		},
		{
			"full",
			"SIPS:bob:secret@10.0.0.1:5061;Transport=tls;lr?subject=hi%20there",
			&uri.SIP{
				User:    uri.UserPassword("bob", "secret"),
				Addr:    uri.HostPort("10.0.0.1", 5061),
				Params:  make(uri.Values).Append("transport", "tls").Append("lr", ""),
				Headers: make(uri.Values).Append("subject", "hi there"),
				Secured: true,
			},
			nil,
		},
		{
			"escaped user",
			"sip:%61lice%40home@example.com",
			&uri.SIP{User: uri.User("alice@home"), Addr: uri.Host("example.com")},
			nil,
		},
		{
			"bracketed IPv6",
			"sip:alice@[2001:db8::1]:5060;expires=60",
			&uri.SIP{
				User:   uri.User("alice"),
				Addr:   uri.HostPort("2001:db8::1", 5060),
				Params: make(uri.Values).Append("expires", "60"),
			},
			nil,
		},
		{"no scheme", "alice@example.com", nil, uri.ErrInvalidURI},
		{"foreign scheme", "http://example.com", nil, uri.ErrInvalidURI},
		{"empty user", "sip:@example.com", nil, uri.ErrInvalidURI},
		{"empty host", "sip:alice@", nil, uri.ErrInvalidURI},
		{"bad port", "sip:alice@example.com:99999", nil, uri.ErrInvalidURI},
		{"empty param name", "sip:alice@example.com;=x", nil, uri.ErrInvalidURI},
		{"bad escape", "sip:al%zzice@example.com", nil, uri.ErrInvalidURI},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			got, err := uri.ParseSIP(c.in)
			if !errors.Is(err, c.wantErr) {
				t.Fatalf("uri.ParseSIP(%q) error = %v, want %v", c.in, err, c.wantErr)
			}
			if diff := cmp.Diff(got, c.want, cmp.AllowUnexported(uri.Addr{}, uri.UserInfo{})); diff != "" {
				t.Errorf("uri.ParseSIP(%q) = %+v, want %+v\ndiff (-got +want):\n%v", c.in, got, c.want, diff)
			}
		})
	}
}

func TestSIP_Equal(t *testing.T) {
	t.Parallel()

	cases := []struct {
		a, b string
		want bool
	}{
		{"sip:alice@atlanta.com;transport=TCP", "sip:alice@AtLanTa.CoM;Transport=tcp", true},
		{"sip:carol@chicago.com", "sip:carol@chicago.com;newparam=5", true},
		{"sip:carol@chicago.com;security=on", "sip:carol@chicago.com;newparam=5", true},
		{"sip:alice@atlanta.com", "sip:ALICE@atlanta.com", false},
		{"sip:bob@biloxi.com", "sip:bob@biloxi.com:5060", false},
		{"sip:carol@chicago.com", "sip:carol@chicago.com;transport=udp", false},
		{"sip:alice@example.com", "sips:alice@example.com", false},
		{"sip:alice@example.com?subject=a", "sip:alice@example.com", false},
	}

	for _, c := range cases {
		t.Run(fmt.Sprintf("%s vs %s", c.a, c.b), func(t *testing.T) {
			t.Parallel()

			a, err := uri.ParseSIP(c.a)
			if err != nil {
				t.Fatalf("uri.ParseSIP(%q) error = %v, want nil", c.a, err)
			}
			b, err := uri.ParseSIP(c.b)
			if err != nil {
				t.Fatalf("uri.ParseSIP(%q) error = %v, want nil", c.b, err)
			}

			if got := a.Equal(b); got != c.want {
				t.Errorf("a.Equal(b) = %v, want %v", got, c.want)
			}
			if got := b.Equal(a); got != c.want {
				t.Errorf("b.Equal(a) = %v, want %v", got, c.want)
			}
		})
	}
}

func TestSIP_Clone(t *testing.T) {
	t.Parallel()

	orig := &uri.SIP{
		User:   uri.User("alice"),
		Addr:   uri.HostPort("192.168.1.10", 5062),
		Params: make(uri.Values).Append("transport", "udp"),
	}
	clone := orig.Clone()
	clone.Addr = clone.Addr.WithHost("10.0.0.5")
	clone.Params.Set("transport", "tcp")

	if got, want := orig.String(), "sip:alice@192.168.1.10:5062;transport=udp"; got != want {
		t.Errorf("orig.String() = %q, want %q", got, want)
	}
	if got, want := clone.String(), "sip:alice@10.0.0.5:5062;transport=tcp"; got != want {
		t.Errorf("clone.String() = %q, want %q", got, want)
	}
	if got := (*uri.SIP)(nil).Clone(); got != nil {
		t.Errorf("nil.Clone() = %v, want nil", got)
	}
}

func TestSIP_LogValue(t *testing.T) {
	t.Parallel()

	u := &uri.SIP{User: uri.UserPassword("bob", "secret"), Addr: uri.Host("example.com")}
	if got, want := u.LogValue().String(), "sip:bob@example.com"; got != want {
		t.Errorf("u.LogValue() = %q, want %q", got, want)
	}
}

func TestSIP_Expires(t *testing.T) {
	t.Parallel()

	u, err := uri.ParseSIP("sip:alice@example.com;expires=120")
	if err != nil {
		t.Fatalf("uri.ParseSIP() error = %v, want nil", err)
	}
	if got, ok := u.Expires(); !ok || got != 120 {
		t.Errorf("u.Expires() = (%v, %v), want (120, true)", got, ok)
	}

	u.Params.Set("expires", "soon")
	if _, ok := u.Expires(); ok {
		t.Error("u.Expires() ok = true, want false for malformed value")
	}
}

func TestAOR(t *testing.T) {
	t.Parallel()

	if got, want := uri.AOR("alice", "Example.COM", true).String(), "sips:alice@example.com"; got != want {
		t.Errorf("uri.AOR() = %q, want %q", got, want)
	}

	u, err := uri.ParseSIP("sip:Alice@Example.com:5060;transport=udp")
	if err != nil {
		t.Fatalf("uri.ParseSIP() error = %v, want nil", err)
	}
	if got, want := uri.Key(u), "sip:Alice@example.com"; got != want {
		t.Errorf("uri.Key() = %q, want %q", got, want)
	}
	if got, want := uri.Key(uri.AOR("Alice", "example.com", false)), uri.Key(u); got != want {
		t.Errorf("uri.Key(AOR) = %q, want %q", got, want)
	}
}

func TestSIP_TextRoundTrip(t *testing.T) {
	t.Parallel()

	in := "sips:bob@10.0.0.1:5061;lr;transport=tls?subject=hi%20there"
	var u uri.SIP
	if err := u.UnmarshalText([]byte(in)); err != nil {
		t.Fatalf("u.UnmarshalText() error = %v, want nil", err)
	}
	text, err := u.MarshalText()
	if err != nil {
		t.Fatalf("u.MarshalText() error = %v, want nil", err)
	}
	if got := string(text); got != in {
		t.Errorf("u.MarshalText() = %q, want %q", got, in)
	}

	if err := u.UnmarshalText([]byte("tel:+123")); !errors.Is(err, uri.ErrInvalidURI) {
		t.Errorf("u.UnmarshalText() error = %v, want %v", err, uri.ErrInvalidURI)
	}
}
