package location_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ghettovoice/registrar/location"
	"github.com/ghettovoice/registrar/uri"
)

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func mustSIP(t *testing.T, s string) *uri.SIP {
	t.Helper()

	u, err := uri.ParseSIP(s)
	if err != nil {
		t.Fatalf("uri.ParseSIP(%q) error = %v, want nil", s, err)
	}
	return u
}

func TestBinding_Expiry(t *testing.T) {
	t.Parallel()

	b := &location.Binding{RegisteredAt: epoch, Expires: 60}

	if got, want := b.ExpiresAt(), epoch.Add(time.Minute); !got.Equal(want) {
		t.Errorf("b.ExpiresAt() = %v, want %v", got, want)
	}
	cases := []struct {
		at      time.Duration
		expired bool
		ttl     time.Duration
	}{
		{0, false, time.Minute},
		{59 * time.Second, false, time.Second},
		{time.Minute, true, 0},
		{time.Hour, true, 0},
	}
	for _, c := range cases {
		now := epoch.Add(c.at)
		if got := b.IsExpired(now); got != c.expired {
			t.Errorf("b.IsExpired(+%v) = %v, want %v", c.at, got, c.expired)
		}
		if got := b.TTL(now); got != c.ttl {
			t.Errorf("b.TTL(+%v) = %v, want %v", c.at, got, c.ttl)
		}
	}
}

func TestBinding_JSON(t *testing.T) {
	t.Parallel()

	b := &location.Binding{
		Contact:      mustSIP(t, "sip:alice@203.0.113.7:40000;transport=udp"),
		Transport:    "UDP",
		SentByHost:   "192.168.1.10",
		SentByPort:   5060,
		ReceivedHost: "203.0.113.7",
		ReceivedPort: 40000,
		RegisteredAt: epoch,
		Expires:      3600,
		NAT:          true,
	}

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v, want nil", err)
	}
	if !strings.Contains(string(data), `"contact":"sip:alice@203.0.113.7:40000;transport=udp"`) {
		t.Errorf("json.Marshal() = %s, want contact as URI string", data)
	}

	var got location.Binding
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("json.Unmarshal() error = %v, want nil", err)
	}
	if diff := cmp.Diff(&got, b); diff != "" {
		t.Errorf("JSON round trip mismatch (-got +want):\n%v", diff)
	}
}

func TestBinding_LogValue(t *testing.T) {
	t.Parallel()

	b := &location.Binding{Contact: mustSIP(t, "sip:alice:pass@10.0.0.1"), Expires: 10}
	if v := b.LogValue().String(); strings.Contains(v, "pass") {
		t.Errorf("b.LogValue() = %q leaks the contact password", v)
	}
}
