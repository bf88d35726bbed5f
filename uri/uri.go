package uri

//go:generate go tool errtrace -w .

import (
	"net/url"
	"strings"

	"braces.dev/errtrace"

	"github.com/ghettovoice/registrar/internal/errorutil"
	"github.com/ghettovoice/registrar/internal/types"
	"github.com/ghettovoice/registrar/internal/util"
)

// Addr represents a network address consisting of a host and optional port.
type Addr = types.Addr

// Host creates an Addr from a hostname without a port.
func Host(host string) Addr { return types.Host(host) }

// HostPort creates an Addr from a hostname and port.
func HostPort(host string, port uint16) Addr { return types.HostPort(host, port) }

// ParseAddr parses a network address from the given input s (string or []byte).
func ParseAddr[T ~string | ~[]byte](s T) (Addr, error) { return errtrace.Wrap2(types.ParseAddr(s)) }

// Values represents URI parameters or headers as a multi-value map.
type Values = types.Values

// ErrInvalidURI is returned when the input can not be parsed as a SIP URI.
const ErrInvalidURI errorutil.Error = "invalid URI"

func newInvalidURIError(args ...any) error {
	return errorutil.NewWrapperError(ErrInvalidURI, args...) //errtrace:skip
}

const upperhex = "0123456789ABCDEF"

func isAlphaNum(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9'
}

// isUnreserved reports whether c is alphanum / mark (RFC 3261 Section 25.1).
func isUnreserved(c byte) bool {
	if isAlphaNum(c) {
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}

func shouldEscapeUserChar(c byte) bool {
	if isUnreserved(c) {
		return false
	}
	switch c {
	case '&', '=', '+', '$', ',', ';', '?', '/':
		return false
	}
	return true
}

func shouldEscapePasswdChar(c byte) bool {
	if isUnreserved(c) {
		return false
	}
	switch c {
	case '&', '=', '+', '$', ',':
		return false
	}
	return true
}

func shouldEscapeParamChar(c byte) bool {
	if isUnreserved(c) {
		return false
	}
	switch c {
	case '[', ']', '/', ':', '&', '+', '$':
		return false
	}
	return true
}

func shouldEscapeHeaderChar(c byte) bool {
	if isUnreserved(c) {
		return false
	}
	switch c {
	case '[', ']', '/', '?', ':', '+', '$':
		return false
	}
	return true
}

func escape(s string, shouldEscape func(c byte) bool) string {
	n := 0
	for i := range len(s) {
		if shouldEscape(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	sb.Grow(len(s) + 2*n)
	for i := range len(s) {
		c := s[i]
		if shouldEscape(c) {
			sb.WriteByte('%')
			sb.WriteByte(upperhex[c>>4])
			sb.WriteByte(upperhex[c&15])
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

func unescape(s string) (string, error) {
	if !strings.Contains(s, "%") {
		return s, nil
	}
	v, err := url.PathUnescape(s)
	if err != nil {
		return "", errtrace.Wrap(newInvalidURIError(err))
	}
	return v, nil
}
