package uri

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"braces.dev/errtrace"

	"github.com/ghettovoice/registrar/internal/util"
)

// SIP represents a SIP or SIPS URI.
type SIP struct {
	User    UserInfo // username and passwd
	Addr    Addr     // host and port
	Params  Values   // parameters
	Headers Values   // headers
	Secured bool
}

// Clone returns a deep copy of the SIP URI.
func (u *SIP) Clone() *SIP {
	if u == nil {
		return nil
	}
	u2 := *u
	u2.Addr = u.Addr.Clone()
	u2.Params = u.Params.Clone()
	u2.Headers = u.Headers.Clone()
	return &u2
}

// Scheme returns the URI scheme.
func (u *SIP) Scheme() string {
	if u == nil {
		return ""
	}
	if u.Secured {
		return "sips"
	}
	return "sip"
}

// String returns the string representation of the SIP URI.
func (u *SIP) String() string {
	if u == nil {
		return ""
	}

	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	u.writeTo(sb, true)
	return sb.String()
}

func (u *SIP) writeTo(sb *strings.Builder, withPasswd bool) {
	sb.WriteString(u.Scheme())
	sb.WriteString(":")
	if !u.User.IsZero() {
		if withPasswd {
			sb.WriteString(u.User.String())
		} else {
			sb.WriteString(escape(u.User.usrname, shouldEscapeUserChar))
		}
		sb.WriteString("@")
	}
	sb.WriteString(u.Addr.String())
	u.writeParams(sb)
	u.writeHeaders(sb)
}

func (u *SIP) writeParams(sb *strings.Builder) {
	if len(u.Params) == 0 {
		return
	}

	kvs := make([][]string, 0, len(u.Params))
	for k := range u.Params {
		v, _ := u.Params.Last(k)
		kvs = append(kvs, []string{util.LCase(k), v})
	}
	slices.SortFunc(kvs, util.CmpKVs)

	for _, kv := range kvs {
		sb.WriteString(";")
		sb.WriteString(escape(kv[0], shouldEscapeParamChar))
		if kv[1] != "" {
			sb.WriteString("=")
			sb.WriteString(escape(kv[1], shouldEscapeParamChar))
		}
	}
}

func (u *SIP) writeHeaders(sb *strings.Builder) {
	if len(u.Headers) == 0 {
		return
	}

	keys := make([]string, 0, len(u.Headers))
	for k := range u.Headers {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int { return cmp.Compare(util.LCase(a), util.LCase(b)) })

	sb.WriteString("?")
	var i int
	for _, k := range keys {
		for _, v := range u.Headers.Get(k) {
			if i > 0 {
				sb.WriteString("&")
			}
			sb.WriteString(escape(util.LCase(k), shouldEscapeHeaderChar))
			sb.WriteString("=")
			sb.WriteString(escape(v, shouldEscapeHeaderChar))
			i++
		}
	}
}

// Format implements fmt.Formatter for custom formatting of the SIP URI.
func (u *SIP) Format(f fmt.State, verb rune) {
	switch verb {
	case 's', 'v':
		if verb == 'v' && (f.Flag('+') || f.Flag('#')) {
			type hideMethods SIP
			type SIP hideMethods
			fmt.Fprintf(f, fmt.FormatString(f, verb), (*SIP)(u))
			return
		}
		fmt.Fprint(f, u.String())
		return
	case 'q':
		fmt.Fprint(f, strconv.Quote(u.String()))
		return
	default:
		type hideMethods SIP
		type SIP hideMethods
		fmt.Fprintf(f, fmt.FormatString(f, verb), (*SIP)(u))
		return
	}
}

// LogValue implements [slog.LogValuer].
// The password part of the user info is never rendered.
func (u *SIP) LogValue() slog.Value {
	if u == nil {
		return slog.Value{}
	}

	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	u.writeTo(sb, false)
	return slog.StringValue(sb.String())
}

// Equal compares this SIP URI with another for equality according to RFC 3261 Section 19.1.4.
func (u *SIP) Equal(val any) bool {
	var other *SIP
	switch v := val.(type) {
	case SIP:
		other = &v
	case *SIP:
		other = v
	default:
		return false
	}

	if u == other {
		return true
	} else if u == nil || other == nil {
		return false
	}

	return u.Secured == other.Secured &&
		u.User.Equal(other.User) &&
		u.Addr.Equal(other.Addr) &&
		u.compareParams(other.Params) &&
		u.compareHeaders(other.Headers)
}

func (u *SIP) compareParams(params Values) bool {
	switch {
	case len(u.Params) == 0 && len(params) == 0:
		return true
	case len(u.Params) == 0:
		return !hasSpecParam(params)
	case len(params) == 0:
		return !hasSpecParam(u.Params)
	}

	// Parameters present in both URIs must match, special ones must be present in both.
	for k := range u.Params {
		if params.Has(k) {
			v1, _ := u.Params.Last(k)
			v2, _ := params.Last(k)
			if !util.EqFold(v1, v2) {
				return false
			}
		} else if specParams[util.LCase(k)] {
			return false
		}
	}
	for k := range specParams {
		if params.Has(k) && !u.Params.Has(k) {
			return false
		}
	}
	return true
}

var specParams = map[string]bool{
	"transport": true,
	"user":      true,
	"method":    true,
	"maddr":     true,
	"ttl":       true,
	"lr":        true,
}

func hasSpecParam(ps Values) bool {
	for k := range specParams {
		if ps.Has(k) {
			return true
		}
	}
	return false
}

func (u *SIP) compareHeaders(hdrs Values) bool {
	if len(u.Headers) != len(hdrs) {
		return false
	}
	for k := range u.Headers {
		if !hdrs.Has(k) {
			return false
		}
		v1, v2 := util.LCase(strings.Join(u.Headers.Get(k), ", ")), util.LCase(strings.Join(hdrs.Get(k), ", "))
		if v1 != v2 {
			return false
		}
	}
	return true
}

// IsValid checks whether the SIP URI is syntactically valid.
func (u *SIP) IsValid() bool {
	return u != nil && u.Addr.IsValid() && (u.User.IsZero() || u.User.IsValid())
}

// MarshalText implements [encoding.TextMarshaler].
func (u *SIP) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (u *SIP) UnmarshalText(text []byte) error {
	u1, err := ParseSIP(text)
	if err != nil {
		*u = SIP{}
		return errtrace.Wrap(err)
	}
	*u = *u1
	return nil
}

// Transport returns the value of the "transport" parameter.
func (u *SIP) Transport() (string, bool) {
	return u.Params.Last("transport")
}

// Expires returns the value of the "expires" parameter, which appears on Contact URIs
// of clients that put registration parameters into the URI.
func (u *SIP) Expires() (uint32, bool) {
	n, ok := u.Params.Uint("expires", 32)
	return uint32(n), ok
}

func (u *SIP) LR() bool {
	return u.Params.Has("lr")
}

// ParseSIP parses a SIP or SIPS URI from the given input src (string or []byte).
func ParseSIP[T ~string | ~[]byte](src T) (*SIP, error) {
	s := util.TrimSP(string(src))

	scheme, rest, ok := strings.Cut(s, ":")
	if !ok {
		return nil, errtrace.Wrap(newInvalidURIError("missing scheme in %q", s))
	}

	u := new(SIP)
	switch util.LCase(scheme) {
	case "sip":
	case "sips":
		u.Secured = true
	default:
		return nil, errtrace.Wrap(newInvalidURIError("unexpected scheme %q", scheme))
	}

	rest, hdrs, hasHdrs := strings.Cut(rest, "?")

	if i := strings.IndexByte(rest, '@'); i >= 0 {
		ui, err := parseUserInfo(rest[:i])
		if err != nil {
			return nil, errtrace.Wrap(err)
		}
		u.User = ui
		rest = rest[i+1:]
	}

	hostport, params, hasParams := strings.Cut(rest, ";")
	addr, err := ParseAddr(hostport)
	if err != nil {
		return nil, errtrace.Wrap(newInvalidURIError(err))
	}
	u.Addr = addr

	if hasParams {
		if u.Params, err = parseValues(params, ";"); err != nil {
			return nil, errtrace.Wrap(err)
		}
	}
	if hasHdrs {
		if u.Headers, err = parseValues(hdrs, "&"); err != nil {
			return nil, errtrace.Wrap(err)
		}
	}
	return u, nil
}

func parseUserInfo(s string) (UserInfo, error) {
	name, passwd, hasPasswd := strings.Cut(s, ":")
	name, err := unescape(name)
	if err != nil {
		return UserInfo{}, errtrace.Wrap(err)
	}
	if name == "" {
		return UserInfo{}, errtrace.Wrap(newInvalidURIError("empty user"))
	}
	if !hasPasswd {
		return User(name), nil
	}
	passwd, err = unescape(passwd)
	if err != nil {
		return UserInfo{}, errtrace.Wrap(err)
	}
	return UserPassword(name, passwd), nil
}

func parseValues(s, sep string) (Values, error) {
	vals := make(Values)
	for kv := range strings.SplitSeq(s, sep) {
		if kv == "" {
			continue
		}
		k, v, _ := strings.Cut(kv, "=")
		k, err := unescape(k)
		if err != nil {
			return nil, errtrace.Wrap(err)
		}
		if k == "" {
			return nil, errtrace.Wrap(newInvalidURIError("empty parameter name in %q", kv))
		}
		v, err = unescape(v)
		if err != nil {
			return nil, errtrace.Wrap(err)
		}
		vals.Append(k, v)
	}
	return vals, nil
}

// UserInfo is a container for user credentials.
// It is typically used in [SIP] to store userinfo part.
type UserInfo struct {
	usrname, passwd string
	hasPasswd       bool
}

// User returns a [UserInfo] containing the provided username and no password.
func User(usrname string) UserInfo {
	return UserInfo{usrname: usrname}
}

// UserPassword returns a [UserInfo] containing the provided username and password.
func UserPassword(usrname, passwd string) UserInfo {
	return UserInfo{usrname: usrname, passwd: passwd, hasPasswd: true}
}

// Username returns the username from the UserInfo.
func (ui UserInfo) Username() string { return ui.usrname }

// Password returns the password, in case it is set, and a bool flag indicating whether it is set.
func (ui UserInfo) Password() (string, bool) { return ui.passwd, ui.hasPasswd }

// String returns the string representation of the UserInfo.
func (ui UserInfo) String() string {
	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	if ui.usrname != "" {
		sb.WriteString(escape(ui.usrname, shouldEscapeUserChar))
	}
	if ui.hasPasswd {
		sb.WriteString(":")
		sb.WriteString(escape(ui.passwd, shouldEscapePasswdChar))
	}
	return sb.String()
}

// Equal compares this UserInfo with another for equality.
func (ui UserInfo) Equal(val any) bool {
	var other UserInfo
	switch v := val.(type) {
	case UserInfo:
		other = v
	case *UserInfo:
		if v == nil {
			return false
		}
		other = *v
	default:
		return false
	}
	return ui.usrname == other.usrname && ui.passwd == other.passwd && ui.hasPasswd == other.hasPasswd
}

// IsValid checks whether the UserInfo is syntactically valid.
func (ui UserInfo) IsValid() bool { return ui.usrname != "" }

// IsZero checks whether the UserInfo is empty.
func (ui UserInfo) IsZero() bool { return ui.usrname == "" && ui.passwd == "" && !ui.hasPasswd }
