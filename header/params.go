package header

import (
	"slices"
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

// Values represents header parameters as a multi-value map.
type Values = types.Values

// ErrInvalidHeader is returned when a header value can not be parsed.
const ErrInvalidHeader errorutil.Error = "invalid header"

func newInvalidHeaderError(args ...any) error {
	return errorutil.NewWrapperError(ErrInvalidHeader, args...) //errtrace:skip
}

// quote renders s as a quoted-string.
func quote(s string) string {
	if !strings.ContainsAny(s, `"\`) {
		return `"` + s + `"`
	}

	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	sb.WriteByte('"')
	for i := range len(s) {
		if s[i] == '"' || s[i] == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	sb.WriteByte('"')
	return sb.String()
}

// unquote strips quotes and backslash escapes of a quoted-string.
// Unquoted tokens are returned as is.
func unquote(s string) (string, error) {
	if len(s) == 0 || s[0] != '"' {
		return s, nil
	}
	if len(s) < 2 || s[len(s)-1] != '"' {
		return "", errtrace.Wrap(newInvalidHeaderError("unterminated quoted string %s", s))
	}

	s = s[1 : len(s)-1]
	if !strings.Contains(s, `\`) {
		return s, nil
	}

	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		sb.WriteByte(s[i])
	}
	return sb.String(), nil
}

// splitQuoted splits s by sep ignoring separators inside quoted strings and angle brackets.
func splitQuoted(s string, sep byte) []string {
	var (
		parts          []string
		inQuote, esc   bool
		inAngle, start int
	)
	for i := range len(s) {
		c := s[i]
		switch {
		case esc:
			esc = false
		case inQuote && c == '\\':
			esc = true
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '<':
			inAngle++
		case c == '>' && inAngle > 0:
			inAngle--
		case c == sep && inAngle == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// parseParams parses ";"-separated generic parameters (the input must not start with ";").
func parseParams(s string) (Values, error) {
	if util.TrimSP(s) == "" {
		return nil, nil
	}

	params := make(Values)
	for _, kv := range splitQuoted(s, ';') {
		k, v, _ := strings.Cut(kv, "=")
		k = util.TrimSP(k)
		if k == "" {
			return nil, errtrace.Wrap(newInvalidHeaderError("empty parameter name in %q", s))
		}
		v, err := unquote(util.TrimSP(v))
		if err != nil {
			return nil, errtrace.Wrap(err)
		}
		params.Append(k, v)
	}
	return params, nil
}

func writeParams(sb *strings.Builder, params Values) {
	if len(params) == 0 {
		return
	}

	kvs := make([][]string, 0, len(params))
	for k := range params {
		v, _ := params.Last(k)
		kvs = append(kvs, []string{util.LCase(k), v})
	}
	slices.SortFunc(kvs, util.CmpKVs)

	for _, kv := range kvs {
		sb.WriteString(";")
		sb.WriteString(kv[0])
		if kv[1] != "" {
			sb.WriteString("=")
			if strings.ContainsAny(kv[1], " \t\",;") {
				sb.WriteString(quote(kv[1]))
			} else {
				sb.WriteString(kv[1])
			}
		}
	}
}
