package header

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"braces.dev/errtrace"

	"github.com/ghettovoice/registrar/internal/util"
)

// DigestCredentials represents the digest authentication credentials of the Authorization header.
type DigestCredentials struct {
	Username,
	Realm,
	Nonce,
	Response,
	Algorithm,
	CNonce,
	Opaque,
	QOP string
	NonceCount uint
	URI        string
	Params     Values
}

// ParseDigestCredentials parses the value of the Authorization header with the Digest scheme, e.g.
//
//	Digest username="alice", realm="example.com", nonce="abc", uri="sip:example.com", response="..."
func ParseDigestCredentials[T ~string | ~[]byte](src T) (*DigestCredentials, error) {
	s := util.TrimSP(string(src))
	scheme, rest, _ := strings.Cut(s, " ")
	if !util.EqFold(scheme, "Digest") {
		return nil, errtrace.Wrap(newInvalidHeaderError("unexpected auth scheme %q", scheme))
	}

	crd := new(DigestCredentials)
	for _, kv := range splitQuoted(rest, ',') {
		kv = util.TrimSP(kv)
		if kv == "" {
			continue
		}
		k, v, ok := strings.Cut(kv, "=")
		k = util.LCase(util.TrimSP(k))
		if !ok || k == "" {
			return nil, errtrace.Wrap(newInvalidHeaderError("malformed auth param %q", kv))
		}
		v, err := unquote(util.TrimSP(v))
		if err != nil {
			return nil, errtrace.Wrap(err)
		}

		switch k {
		case "username":
			crd.Username = v
		case "realm":
			crd.Realm = v
		case "nonce":
			crd.Nonce = v
		case "response":
			crd.Response = v
		case "algorithm":
			crd.Algorithm = v
		case "cnonce":
			crd.CNonce = v
		case "opaque":
			crd.Opaque = v
		case "qop":
			crd.QOP = v
		case "uri":
			crd.URI = v
		case "nc":
			nc, err := strconv.ParseUint(v, 16, 32)
			if err != nil {
				return nil, errtrace.Wrap(newInvalidHeaderError("malformed nonce count %q", v))
			}
			crd.NonceCount = uint(nc)
		default:
			if crd.Params == nil {
				crd.Params = make(Values)
			}
			crd.Params.Append(k, v)
		}
	}
	return crd, nil
}

func (crd *DigestCredentials) Clone() *DigestCredentials {
	if crd == nil {
		return nil
	}

	crd2 := *crd
	crd2.Params = crd.Params.Clone()
	return &crd2
}

func (crd *DigestCredentials) String() string {
	if crd == nil {
		return ""
	}

	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	sb.WriteString("Digest ")

	var kvs [][]string
	// all non-empty std scalar parameters in alphabet order
	for k, v := range map[string]string{
		"username":  crd.Username,
		"realm":     crd.Realm,
		"nonce":     crd.Nonce,
		"response":  crd.Response,
		"algorithm": crd.Algorithm,
		"cnonce":    crd.CNonce,
		"opaque":    crd.Opaque,
		"qop":       crd.QOP,
		"uri":       crd.URI,
	} {
		if v == "" {
			continue
		}
		switch k {
		case "username", "realm", "nonce", "response", "cnonce", "opaque", "uri":
			v = quote(v)
		}
		kvs = append(kvs, []string{k, v})
	}
	if crd.NonceCount > 0 {
		kvs = append(kvs, []string{"nc", fmt.Sprintf("%08x", crd.NonceCount)})
	}
	slices.SortFunc(kvs, util.CmpKVs)

	// custom parameters follow the std ones
	if len(crd.Params) > 0 {
		custom := make([][]string, 0, len(crd.Params))
		for k := range crd.Params {
			v, _ := crd.Params.Last(k)
			custom = append(custom, []string{util.LCase(k), quote(v)})
		}
		slices.SortFunc(custom, util.CmpKVs)
		kvs = append(kvs, custom...)
	}

	for i, kv := range kvs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(kv[0])
		sb.WriteString("=")
		sb.WriteString(kv[1])
	}
	return sb.String()
}

func (crd *DigestCredentials) Format(f fmt.State, verb rune) {
	switch verb {
	case 's':
		fmt.Fprint(f, crd.String())
		return
	case 'q':
		fmt.Fprint(f, strconv.Quote(crd.String()))
		return
	default:
		type hideMethods DigestCredentials
		type DigestCredentials hideMethods
		fmt.Fprintf(f, fmt.FormatString(f, verb), (*DigestCredentials)(crd))
		return
	}
}

// LogValue implements [slog.LogValuer].
// The response is never rendered.
func (crd *DigestCredentials) LogValue() slog.Value {
	if crd == nil {
		return slog.Value{}
	}

	attrs := []slog.Attr{
		slog.String("username", crd.Username),
		slog.String("realm", crd.Realm),
		slog.String("uri", crd.URI),
	}
	if crd.Algorithm != "" {
		attrs = append(attrs, slog.String("algorithm", crd.Algorithm))
	}
	if crd.QOP != "" {
		attrs = append(attrs, slog.String("qop", crd.QOP), slog.Uint64("nc", uint64(crd.NonceCount)))
	}
	return slog.GroupValue(attrs...)
}

func (crd *DigestCredentials) Equal(val any) bool {
	var other *DigestCredentials
	switch v := val.(type) {
	case DigestCredentials:
		other = &v
	case *DigestCredentials:
		other = v
	default:
		return false
	}

	if crd == other {
		return true
	} else if crd == nil || other == nil {
		return false
	}

	return crd.Username == other.Username &&
		util.EqFold(crd.Realm, other.Realm) &&
		crd.Nonce == other.Nonce &&
		crd.Response == other.Response &&
		util.EqFold(crd.Algorithm, other.Algorithm) &&
		crd.CNonce == other.CNonce &&
		crd.Opaque == other.Opaque &&
		util.EqFold(crd.QOP, other.QOP) &&
		crd.NonceCount == other.NonceCount &&
		crd.URI == other.URI &&
		crd.Params.Equal(other.Params)
}

// IsValid reports whether the credentials carry everything needed to verify them.
// With a qop the client nonce and nonce count are mandatory (RFC 2617 Section 3.2.2).
func (crd *DigestCredentials) IsValid() bool {
	return crd != nil &&
		crd.Username != "" && crd.Realm != "" && crd.Nonce != "" &&
		crd.Response != "" && crd.URI != "" &&
		(crd.QOP == "" || crd.CNonce != "" && crd.NonceCount > 0)
}

func (crd *DigestCredentials) MarshalText() ([]byte, error) {
	return []byte(crd.String()), nil
}

func (crd *DigestCredentials) UnmarshalText(data []byte) error {
	crd2, err := ParseDigestCredentials(data)
	if err != nil {
		*crd = DigestCredentials{}
		return errtrace.Wrap(err)
	}
	*crd = *crd2
	return nil
}
