// Package digest implements the HTTP Digest challenge-response computation used by SIP
// (RFC 2617, RFC 8760) and its verification.
package digest

//go:generate go tool errtrace -w .

import (
	"crypto/md5" //nolint:gosec
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"hash"
	"log/slog"

	"braces.dev/errtrace"

	"github.com/ghettovoice/registrar/header"
	"github.com/ghettovoice/registrar/internal/errorutil"
	"github.com/ghettovoice/registrar/internal/util"
)

// MethodRegister is the request method the registrar verifies credentials for.
const MethodRegister = "REGISTER"

// Supported algorithms.
const (
	MD5        = "MD5"
	MD5Sess    = "MD5-sess"
	SHA256     = "SHA-256"
	SHA256Sess = "SHA-256-sess"
)

// ErrUnsupportedAlgorithm is returned for algorithms other than MD5, SHA-256 and their -sess variants.
const ErrUnsupportedAlgorithm errorutil.Error = "unsupported digest algorithm"

// Params are the inputs of the digest computation.
type Params struct {
	Username   string
	Realm      string
	Secret     string
	Method     string
	URI        string
	Nonce      string
	CNonce     string
	NonceCount uint
	QOP        string
	Algorithm  string // empty means MD5
}

// FromCredentials builds computation parameters from the credentials received in a request.
func FromCredentials(crd *header.DigestCredentials, secret, method string) Params {
	return Params{
		Username:   crd.Username,
		Realm:      crd.Realm,
		Secret:     secret,
		Method:     method,
		URI:        crd.URI,
		Nonce:      crd.Nonce,
		CNonce:     crd.CNonce,
		NonceCount: crd.NonceCount,
		QOP:        crd.QOP,
		Algorithm:  crd.Algorithm,
	}
}

// LogValue implements [slog.LogValuer].
func (p Params) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", p.Username),
		slog.String("realm", p.Realm),
		slog.String("uri", p.URI),
		slog.String("qop", p.QOP),
		slog.String("algorithm", p.Algorithm),
	)
}

// FormatNonceCount renders the nonce count as 8 lower-case hex digits.
func FormatNonceCount(nc uint) string { return fmt.Sprintf("%08x", nc) }

func newHash(alg string) (func() hash.Hash, bool, error) {
	switch {
	case alg == "" || util.EqFold(alg, MD5):
		return md5.New, false, nil
	case util.EqFold(alg, MD5Sess):
		return md5.New, true, nil
	case util.EqFold(alg, SHA256):
		return sha256.New, false, nil
	case util.EqFold(alg, SHA256Sess):
		return sha256.New, true, nil
	default:
		return nil, false, errtrace.Wrap(errorutil.NewWrapperError(ErrUnsupportedAlgorithm, "%q", alg))
	}
}

func hexHash(newHash func() hash.Hash, parts ...string) string {
	h := newHash()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{':'})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Response computes the expected digest response.
//
//	HA1 = H(username:realm:secret), for -sess H(H(username:realm:secret):nonce:cnonce)
//	HA2 = H(method:uri)
//	response = H(HA1:nonce:nc:cnonce:qop:HA2) with qop, H(HA1:nonce:HA2) without
func Response(p Params) (string, error) {
	h, sess, err := newHash(p.Algorithm)
	if err != nil {
		return "", errtrace.Wrap(err)
	}

	ha1 := hexHash(h, p.Username, p.Realm, p.Secret)
	if sess {
		ha1 = hexHash(h, ha1, p.Nonce, p.CNonce)
	}
	ha2 := hexHash(h, p.Method, p.URI)

	if p.QOP == "" {
		return hexHash(h, ha1, p.Nonce, ha2), nil
	}
	return hexHash(h, ha1, p.Nonce, FormatNonceCount(p.NonceCount), p.CNonce, p.QOP, ha2), nil
}

// Verify reports whether claimed equals the response computed from p.
// The comparison takes constant time. Unsupported algorithms never verify.
func Verify(p Params, claimed string) bool {
	want, err := Response(p)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(claimed)) == 1
}

// Verifier checks digest responses.
type Verifier interface {
	Verify(p Params, claimed string) bool
}

// VerifierFunc adapts a function to the [Verifier] interface.
type VerifierFunc func(p Params, claimed string) bool

func (f VerifierFunc) Verify(p Params, claimed string) bool { return f(p, claimed) }

// DefaultVerifier verifies responses with [Verify].
var DefaultVerifier Verifier = VerifierFunc(Verify)
