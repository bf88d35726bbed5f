package identity_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ghettovoice/registrar/identity"
	"github.com/ghettovoice/registrar/internal/types"
)

func TestPeer_Validate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		peer    *identity.Peer
		wantErr bool
	}{
		{"nil", nil, true},
		{"minimal", &identity.Peer{Username: "trunk", Secret: "s"}, false},
		{"host override", &identity.Peer{Username: "trunk", ContactAddr: "10.0.0.5"}, false},
		{"host:port override", &identity.Peer{Username: "trunk", ContactAddr: "10.0.0.5:6060"}, false},
		{"bad override port", &identity.Peer{Username: "trunk", ContactAddr: "10.0.0.5:port"}, true},
		{"bad device", &identity.Peer{Username: "trunk", Device: "a..b"}, true},
		{"no username", &identity.Peer{Secret: "s"}, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			err := c.peer.Validate()
			if (err != nil) != c.wantErr {
				t.Fatalf("peer.Validate() error = %v, want error %v", err, c.wantErr)
			}
			if err != nil && !errors.Is(err, identity.ErrInvalidIdentity) {
				t.Errorf("peer.Validate() error = %v, want %v", err, identity.ErrInvalidIdentity)
			}
		})
	}
}

func TestPeer_FixedContact(t *testing.T) {
	t.Parallel()

	p := &identity.Peer{Username: "trunk", ContactAddr: "10.0.0.5:6060"}
	addr, ok, err := p.FixedContact()
	if err != nil || !ok || !addr.Equal(types.HostPort("10.0.0.5", 6060)) {
		t.Errorf("p.FixedContact() = (%v, %v, %v), want (10.0.0.5:6060, true, nil)", addr, ok, err)
	}

	if _, ok, err := (&identity.Peer{Username: "trunk"}).FixedContact(); ok || err != nil {
		t.Errorf("FixedContact() = (%v, %v) without override, want (false, nil)", ok, err)
	}

	bad := &identity.Peer{Username: "trunk", ContactAddr: "10.0.0.5:port"}
	if _, ok, err := bad.FixedContact(); ok || !errors.Is(err, identity.ErrInvalidIdentity) {
		t.Errorf("bad.FixedContact() = (%v, %v), want (false, %v)", ok, err, identity.ErrInvalidIdentity)
	}
}

func TestCanonicalDomain(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		"a.com":   "a.com",
		"A.Com.":  "a.com",
		" a.com ": "a.com",
		"":        "",
		"  ":      "",
		".":       ".",
	} {
		if got := identity.CanonicalDomain(in); got != want {
			t.Errorf("identity.CanonicalDomain(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAgent_Validate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		agent   *identity.Agent
		wantErr bool
	}{
		{"valid", &identity.Agent{Username: "u", Domains: []string{"a.com", "b.com"}}, false},
		{"no domains", &identity.Agent{Username: "u"}, true},
		{"bad domain", &identity.Agent{Username: "u", Domains: []string{"a..com"}}, true},
		{"duplicate domain", &identity.Agent{Username: "u", Domains: []string{"a.com", "A.COM."}}, true},
		{"no username", &identity.Agent{Domains: []string{"a.com"}}, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			if err := c.agent.Validate(); (err != nil) != c.wantErr {
				t.Errorf("agent.Validate() error = %v, want error %v", err, c.wantErr)
			}
		})
	}
}

func TestAgent_HasDomain(t *testing.T) {
	t.Parallel()

	a := &identity.Agent{Username: "u", Domains: []string{"a.com", "B.com"}}
	for host, want := range map[string]bool{
		"a.com":     true,
		"A.COM":     true,
		"a.com.":    true,
		"b.com":     true,
		"c.com":     false,
		"":          false,
		"sub.a.com": false,
	} {
		if got := a.HasDomain(host); got != want {
			t.Errorf("a.HasDomain(%q) = %v, want %v", host, got, want)
		}
	}
}

func TestIdentity_LogValue(t *testing.T) {
	t.Parallel()

	ids := []identity.Identity{
		&identity.Peer{Username: "trunk", Secret: "peer-s3cr3t", ContactAddr: "10.0.0.5"},
		&identity.Agent{Username: "u", Secret: "agent-s3cr3t", Domains: []string{"a.com"}},
	}
	for _, id := range ids {
		v := id.LogValue().String()
		if strings.Contains(v, id.Account().Secret) {
			t.Errorf("%v log value %q leaks the secret", id.Kind(), v)
		}
		if !strings.Contains(v, id.Account().Username) {
			t.Errorf("%v log value %q lacks the username", id.Kind(), v)
		}
	}
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := identity.NewMemoryStore()

	peer := &identity.Peer{Username: "trunk", Secret: "s", ContactAddr: "10.0.0.5:6060"}
	agent := &identity.Agent{Username: "alice", Secret: "s", Domains: []string{"a.com", "B.com"}}
	if err := s.PutPeer(peer); err != nil {
		t.Fatalf("s.PutPeer() error = %v, want nil", err)
	}
	if err := s.PutAgent(agent); err != nil {
		t.Fatalf("s.PutAgent() error = %v, want nil", err)
	}
	if err := s.PutAgent(&identity.Agent{Username: "bob"}); !errors.Is(err, identity.ErrInvalidIdentity) {
		t.Errorf("s.PutAgent(invalid) error = %v, want %v", err, identity.ErrInvalidIdentity)
	}

	gotPeer, err := s.LookupPeer(ctx, "trunk")
	if err != nil {
		t.Fatalf("s.LookupPeer() error = %v, want nil", err)
	}
	if diff := cmp.Diff(gotPeer, peer); diff != "" {
		t.Errorf("s.LookupPeer() mismatch (-got +want):\n%v", diff)
	}
	gotPeer.ContactAddr = "mutated"
	if again, _ := s.LookupPeer(ctx, "trunk"); again.ContactAddr != peer.ContactAddr {
		t.Error("store returned a shared peer value")
	}

	for _, host := range []string{"a.com", "b.com", "B.COM."} {
		got, err := s.LookupAgent(ctx, host, "alice")
		if err != nil {
			t.Fatalf("s.LookupAgent(%q) error = %v, want nil", host, err)
		}
		if diff := cmp.Diff(got, agent); diff != "" {
			t.Errorf("s.LookupAgent(%q) mismatch (-got +want):\n%v", host, diff)
		}
	}

	if _, err := s.LookupAgent(ctx, "c.com", "alice"); !errors.Is(err, identity.ErrNotFound) {
		t.Errorf("s.LookupAgent(c.com) error = %v, want %v", err, identity.ErrNotFound)
	}
	if _, err := s.LookupPeer(ctx, "alice"); !errors.Is(err, identity.ErrNotFound) {
		t.Errorf("s.LookupPeer(alice) error = %v, want %v", err, identity.ErrNotFound)
	}

	if !s.DeleteAgent("alice") {
		t.Error("s.DeleteAgent() = false, want true")
	}
	if _, err := s.LookupAgent(ctx, "b.com", "alice"); !errors.Is(err, identity.ErrNotFound) {
		t.Errorf("s.LookupAgent() after delete error = %v, want %v", err, identity.ErrNotFound)
	}
	if !s.DeletePeer("trunk") || s.DeletePeer("trunk") {
		t.Error("s.DeletePeer() mismatch")
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := s.LookupPeer(cctx, "trunk"); !errors.Is(err, context.Canceled) {
		t.Errorf("s.LookupPeer(canceled) error = %v, want %v", err, context.Canceled)
	}
}

func TestMemoryStore_PutAgentReplaces(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := identity.NewMemoryStore()
	if err := s.PutAgent(&identity.Agent{Username: "alice", Secret: "old", Domains: []string{"a.com", "b.com"}}); err != nil {
		t.Fatalf("s.PutAgent() error = %v, want nil", err)
	}
	want := &identity.Agent{Username: "alice", Secret: "new", Domains: []string{"a.com"}}
	if err := s.PutAgent(want); err != nil {
		t.Fatalf("s.PutAgent() error = %v, want nil", err)
	}

	got, err := s.LookupAgent(ctx, "a.com", "alice")
	if err != nil {
		t.Fatalf("s.LookupAgent(a.com) error = %v, want nil", err)
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("s.LookupAgent(a.com) mismatch (-got +want):\n%v", diff)
	}
	if got, err := s.LookupAgent(ctx, "b.com", "alice"); !errors.Is(err, identity.ErrNotFound) {
		t.Errorf("s.LookupAgent(b.com) = (%v, %v), want %v", got, err, identity.ErrNotFound)
	}
}
