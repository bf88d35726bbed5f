package header

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"braces.dev/errtrace"

	"github.com/ghettovoice/registrar/internal/util"
	"github.com/ghettovoice/registrar/uri"
)

// Contact represents a single address of the Contact header field.
type Contact struct {
	DisplayName string
	URI         *uri.SIP
	Params      Values
}

// ParseContact parses a single Contact address in the name-addr or addr-spec form, e.g.
// `"Alice" <sip:alice@192.168.1.10:5062>;expires=3600`.
// The wildcard "*" Contact is not a binding and is rejected.
func ParseContact[T ~string | ~[]byte](src T) (*Contact, error) {
	s := util.TrimSP(string(src))
	if s == "" || s == "*" {
		return nil, errtrace.Wrap(newInvalidHeaderError("not a contact address %q", s))
	}

	var (
		cnt       = new(Contact)
		uriStr    string
		paramsStr string
	)
	if lt := strings.IndexByte(s, '<'); lt >= 0 {
		gt := strings.IndexByte(s[lt:], '>')
		if gt < 0 {
			return nil, errtrace.Wrap(newInvalidHeaderError("unterminated name-addr %q", s))
		}
		name, err := unquote(util.TrimSP(s[:lt]))
		if err != nil {
			return nil, errtrace.Wrap(err)
		}
		cnt.DisplayName = name
		uriStr = s[lt+1 : lt+gt]
		rest := util.TrimSP(s[lt+gt+1:])
		if rest != "" {
			if rest[0] != ';' {
				return nil, errtrace.Wrap(newInvalidHeaderError("unexpected trailing %q", rest))
			}
			paramsStr = rest[1:]
		}
	} else {
		// in the addr-spec form all parameters belong to the header
		uriStr, paramsStr, _ = strings.Cut(s, ";")
	}

	u, err := uri.ParseSIP(uriStr)
	if err != nil {
		return nil, errtrace.Wrap(newInvalidHeaderError(err))
	}
	cnt.URI = u
	if cnt.Params, err = parseParams(paramsStr); err != nil {
		return nil, errtrace.Wrap(err)
	}
	return cnt, nil
}

// Expires returns the "expires" parameter of the contact.
// Clients that put the parameter into the URI instead are also supported.
func (cnt *Contact) Expires() (uint32, bool) {
	if cnt == nil {
		return 0, false
	}
	if v, ok := cnt.Params.Uint("expires", 32); ok {
		return uint32(v), true
	}
	if cnt.URI != nil {
		return cnt.URI.Expires()
	}
	return 0, false
}

func (cnt *Contact) String() string {
	if cnt == nil {
		return ""
	}

	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	if cnt.DisplayName != "" {
		sb.WriteString(quote(cnt.DisplayName))
		sb.WriteString(" ")
	}
	sb.WriteString("<")
	sb.WriteString(cnt.URI.String())
	sb.WriteString(">")
	writeParams(sb, cnt.Params)
	return sb.String()
}

func (cnt *Contact) Format(f fmt.State, verb rune) {
	switch verb {
	case 's':
		fmt.Fprint(f, cnt.String())
		return
	case 'q':
		fmt.Fprint(f, strconv.Quote(cnt.String()))
		return
	default:
		type hideMethods Contact
		type Contact hideMethods
		fmt.Fprintf(f, fmt.FormatString(f, verb), (*Contact)(cnt))
		return
	}
}

// LogValue implements [slog.LogValuer].
func (cnt *Contact) LogValue() slog.Value {
	if cnt == nil {
		return slog.Value{}
	}
	attrs := []slog.Attr{slog.Any("uri", cnt.URI)}
	if exp, ok := cnt.Expires(); ok {
		attrs = append(attrs, slog.Any("expires", exp))
	}
	return slog.GroupValue(attrs...)
}

func (cnt *Contact) Clone() *Contact {
	if cnt == nil {
		return nil
	}
	cnt2 := *cnt
	cnt2.URI = cnt.URI.Clone()
	cnt2.Params = cnt.Params.Clone()
	return &cnt2
}

func (cnt *Contact) Equal(val any) bool {
	var other *Contact
	switch v := val.(type) {
	case Contact:
		other = &v
	case *Contact:
		other = v
	default:
		return false
	}

	if cnt == other {
		return true
	} else if cnt == nil || other == nil {
		return false
	}

	return cnt.URI.Equal(other.URI) && cnt.Params.Equal(other.Params)
}

func (cnt *Contact) IsValid() bool {
	return cnt != nil && cnt.URI.IsValid()
}

func (cnt *Contact) MarshalText() ([]byte, error) {
	return []byte(cnt.String()), nil
}

func (cnt *Contact) UnmarshalText(data []byte) error {
	cnt2, err := ParseContact(data)
	if err != nil {
		*cnt = Contact{}
		return errtrace.Wrap(err)
	}
	*cnt = *cnt2
	return nil
}
