package registrar_test

import (
	"testing"

	"github.com/ghettovoice/registrar/digest"
	"github.com/ghettovoice/registrar/header"
	"github.com/ghettovoice/registrar/registrar"
	"github.com/ghettovoice/registrar/uri"
)

const (
	testRealm  = "example.com"
	testNonce  = "dcd98b7102dd2f0e8b11d0f600bfb0c093"
	testCNonce = "0a4f113b"
)

func mustVia(t *testing.T, s string) header.ViaHop {
	t.Helper()

	hop, err := header.ParseViaHop(s)
	if err != nil {
		t.Fatalf("header.ParseViaHop(%q) error = %v, want nil", s, err)
	}
	return hop
}

func mustContact(t *testing.T, s string) *header.Contact {
	t.Helper()

	cnt, err := header.ParseContact(s)
	if err != nil {
		t.Fatalf("header.ParseContact(%q) error = %v, want nil", s, err)
	}
	return cnt
}

func mustSIP(t *testing.T, s string) *uri.SIP {
	t.Helper()

	u, err := uri.ParseSIP(s)
	if err != nil {
		t.Fatalf("uri.ParseSIP(%q) error = %v, want nil", s, err)
	}
	return u
}

// credentials returns digest credentials answering the test challenge with secret.
func credentials(t *testing.T, username, secret string) *header.DigestCredentials {
	t.Helper()

	crd := &header.DigestCredentials{
		Username:   username,
		Realm:      testRealm,
		Nonce:      testNonce,
		CNonce:     testCNonce,
		NonceCount: 1,
		QOP:        "auth",
		URI:        "sip:" + testRealm,
	}
	resp, err := digest.Response(digest.FromCredentials(crd, secret, digest.MethodRegister))
	if err != nil {
		t.Fatalf("digest.Response() error = %v, want nil", err)
	}
	crd.Response = resp
	return crd
}

func newHeaders(t *testing.T, username, secret, fromHost string) *registrar.Headers {
	t.Helper()

	return &registrar.Headers{
		Via:      mustVia(t, "SIP/2.0/UDP 192.168.1.10:5060;branch=z9hG4bK776;received=203.0.113.7;rport=40000"),
		Auth:     credentials(t, username, secret),
		Contact:  mustContact(t, "<sip:"+username+"@192.168.1.10:5060>"),
		FromHost: fromHost,
	}
}
