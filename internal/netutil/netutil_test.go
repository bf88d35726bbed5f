package netutil_test

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ghettovoice/registrar/internal/netutil"
)

func TestNotation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in                  string
		ip, cidr, ipAndMask bool
	}{
		{"10.0.0.1", true, false, false},
		{"::1", true, false, false},
		{"10.0.0.0/8", false, true, false},
		{"2001:db8::/32", false, true, false},
		{"10.0.0.0/255.0.0.0", false, false, true},
		{"10.0.0.0/255.0.255.0", false, false, false},
		{"10.0.0.0/33", false, false, false},
		{"256.0.0.1", false, false, false},
		{"example.com", false, false, false},
		{"", false, false, false},
	}
	for _, c := range cases {
		if got := netutil.IsIP(c.in); got != c.ip {
			t.Errorf("netutil.IsIP(%q) = %v, want %v", c.in, got, c.ip)
		}
		if got := netutil.IsCIDR(c.in); got != c.cidr {
			t.Errorf("netutil.IsCIDR(%q) = %v, want %v", c.in, got, c.cidr)
		}
		if got := netutil.IsIPAndMask(c.in); got != c.ipAndMask {
			t.Errorf("netutil.IsIPAndMask(%q) = %v, want %v", c.in, got, c.ipAndMask)
		}
	}
}

func TestParseRule(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    netip.Prefix
		wantErr error
	}{
		{"10.0.0.1", netip.MustParsePrefix("10.0.0.1/32"), nil},
		{" 10.0.0.1 ", netip.MustParsePrefix("10.0.0.1/32"), nil},
		{"::ffff:10.0.0.1", netip.MustParsePrefix("10.0.0.1/32"), nil},
		{"10.1.2.3/8", netip.MustParsePrefix("10.0.0.0/8"), nil},
		{"192.168.7.9/255.255.255.0", netip.MustParsePrefix("192.168.7.0/24"), nil},
		{"2001:db8::1", netip.MustParsePrefix("2001:db8::1/128"), nil},
		{"10.0.0.0/255.0.255.0", netip.Prefix{}, netutil.ErrInvalidRule},
		{"bogus", netip.Prefix{}, netutil.ErrInvalidRule},
	}
	for _, c := range cases {
		got, err := netutil.ParseRule(c.in)
		if !errors.Is(err, c.wantErr) {
			t.Errorf("netutil.ParseRule(%q) error = %v, want %v", c.in, err, c.wantErr)
			continue
		}
		if got != c.want {
			t.Errorf("netutil.ParseRule(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestAccessList(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		allow, deny []string
		want        map[string]bool
	}{
		{
			name: "empty",
			want: map[string]bool{"10.0.0.1": true, "example.com": true},
		},
		{
			name: "deny only",
			deny: []string{"10.0.0.0/8"},
			want: map[string]bool{"10.9.9.9": false, "192.168.0.1": true, "example.com": true},
		},
		{
			name:  "allow only",
			allow: []string{"192.168.0.0/255.255.0.0", "203.0.113.7"},
			want: map[string]bool{
				"192.168.1.1": true,
				"203.0.113.7": true,
				"203.0.113.8": false,
				"example.com": false,
			},
		},
		{
			name:  "deny wins",
			allow: []string{"10.0.0.0/8"},
			deny:  []string{"10.0.0.13"},
			want:  map[string]bool{"10.0.0.12": true, "10.0.0.13": false, "[::ffff:10.0.0.13]": false},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			l, err := netutil.NewAccessList(c.allow, c.deny)
			if err != nil {
				t.Fatalf("netutil.NewAccessList() error = %v, want nil", err)
			}
			got := make(map[string]bool, len(c.want))
			for host := range c.want {
				got[host] = l.AllowedHost(host)
			}
			if diff := cmp.Diff(got, c.want); diff != "" {
				t.Errorf("l.AllowedHost() mismatch (-got +want):\n%v", diff)
			}
		})
	}
}

func TestNewAccessList_Invalid(t *testing.T) {
	t.Parallel()

	_, err := netutil.NewAccessList([]string{"bogus"}, []string{"10.0.0.0/99"})
	if !errors.Is(err, netutil.ErrInvalidRule) {
		t.Fatalf("netutil.NewAccessList() error = %v, want %v", err, netutil.ErrInvalidRule)
	}

	var l *netutil.AccessList
	if !l.Allowed(netip.MustParseAddr("10.0.0.1")) {
		t.Error("nil list rejected an address")
	}
}
