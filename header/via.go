package header

import (
	"fmt"
	"log/slog"
	"net/netip"
	"strconv"
	"strings"

	"braces.dev/errtrace"

	"github.com/ghettovoice/registrar/internal/types"
	"github.com/ghettovoice/registrar/internal/util"
)

// ViaHop represents a single hop of the Via header field,
// usually the topmost one added by the registering client.
type ViaHop struct {
	Proto     string // protocol name and version, SIP/2.0
	Transport string // UDP, TCP, TLS, ...
	Addr      Addr   // sent-by
	Params    Values
}

// DefaultPort is the port assumed for a sent-by address that carries no explicit port.
const DefaultPort uint16 = 5060

// ParseViaHop parses a single Via hop, e.g. "SIP/2.0/UDP 192.168.1.10:5062;branch=z9hG4bK776;rport".
func ParseViaHop[T ~string | ~[]byte](src T) (ViaHop, error) {
	s := util.TrimSP(string(src))
	if s == "" {
		return ViaHop{}, errtrace.Wrap(newInvalidHeaderError("empty Via"))
	}

	protoPart, rest, ok := strings.Cut(s, " ")
	if !ok {
		return ViaHop{}, errtrace.Wrap(newInvalidHeaderError("missing sent-by in Via %q", s))
	}
	i := strings.LastIndexByte(protoPart, '/')
	if i <= 0 || i == len(protoPart)-1 {
		return ViaHop{}, errtrace.Wrap(newInvalidHeaderError("malformed sent-protocol %q", protoPart))
	}

	sentBy, params, _ := strings.Cut(util.TrimSP(rest), ";")
	addr, err := types.ParseAddr(sentBy)
	if err != nil {
		return ViaHop{}, errtrace.Wrap(newInvalidHeaderError(err))
	}

	hop := ViaHop{
		Proto:     util.UCase(protoPart[:i]),
		Transport: util.UCase(protoPart[i+1:]),
		Addr:      addr,
	}
	if hop.Params, err = parseParams(params); err != nil {
		return ViaHop{}, errtrace.Wrap(err)
	}
	return hop, nil
}

// String returns the string representation of the ViaHop.
func (hop ViaHop) String() string {
	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)

	proto := hop.Proto
	if proto == "" {
		proto = "SIP/2.0"
	}
	sb.WriteString(proto)
	sb.WriteString("/")
	sb.WriteString(hop.Transport)
	sb.WriteString(" ")
	sb.WriteString(hop.Addr.String())
	writeParams(sb, hop.Params)
	return sb.String()
}

// Format implements fmt.Formatter for custom formatting of the ViaHop.
func (hop ViaHop) Format(f fmt.State, verb rune) {
	switch verb {
	case 's':
		fmt.Fprint(f, hop.String())
		return
	case 'q':
		fmt.Fprint(f, strconv.Quote(hop.String()))
		return
	default:
		if !f.Flag('+') && !f.Flag('#') {
			fmt.Fprint(f, hop.String())
			return
		}

		type hideMethods ViaHop
		type ViaHop hideMethods
		fmt.Fprintf(f, fmt.FormatString(f, verb), ViaHop(hop))
		return
	}
}

// Equal compares this ViaHop with another for equality.
func (hop ViaHop) Equal(val any) bool {
	var other ViaHop
	switch v := val.(type) {
	case ViaHop:
		other = v
	case *ViaHop:
		if v == nil {
			return false
		}
		other = *v
	default:
		return false
	}

	return util.EqFold(hop.Proto, other.Proto) &&
		util.EqFold(hop.Transport, other.Transport) &&
		hop.Addr.Equal(other.Addr) &&
		hop.Params.Equal(other.Params)
}

// IsValid checks whether the ViaHop is syntactically valid.
func (hop ViaHop) IsValid() bool {
	return hop.Transport != "" && hop.Addr.IsValid()
}

// IsZero checks whether the ViaHop is empty.
func (hop ViaHop) IsZero() bool {
	return hop.Proto == "" &&
		hop.Transport == "" &&
		hop.Addr.IsZero() &&
		len(hop.Params) == 0
}

// Clone returns a copy of the ViaHop.
func (hop ViaHop) Clone() ViaHop {
	hop.Addr = hop.Addr.Clone()
	hop.Params = hop.Params.Clone()
	return hop
}

func (hop ViaHop) MarshalText() ([]byte, error) {
	return []byte(hop.String()), nil
}

func (hop *ViaHop) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*hop = ViaHop{}
		return nil
	}

	h, err := ParseViaHop(data)
	if err != nil {
		*hop = ViaHop{}
		return errtrace.Wrap(err)
	}
	*hop = h
	return nil
}

// LogValue implements [slog.LogValuer].
func (hop ViaHop) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("transport", hop.Transport),
		slog.String("sent_by", hop.Addr.String()),
	}
	if v, ok := hop.Params.Last("received"); ok {
		attrs = append(attrs, slog.String("received", v))
	}
	if v, ok := hop.RPort(); ok {
		attrs = append(attrs, slog.Any("rport", v))
	}
	if v, ok := hop.Branch(); ok {
		attrs = append(attrs, slog.String("branch", v))
	}
	return slog.GroupValue(attrs...)
}

func (hop ViaHop) Branch() (string, bool) {
	return hop.Params.Last("branch")
}

// SentByPort returns the sent-by port, or [DefaultPort] if the hop carries no explicit port.
func (hop ViaHop) SentByPort() uint16 {
	if port, ok := hop.Addr.Port(); ok {
		return port
	}
	return DefaultPort
}

var zeroAddr netip.Addr

// Received returns the address the request was actually received from, as recorded
// by the server transport in the "received" parameter.
func (hop ViaHop) Received() (netip.Addr, bool) {
	val, ok := hop.Params.Last("received")
	if !ok {
		return zeroAddr, false
	}
	addr, err := netip.ParseAddr(strings.Trim(val, "[]"))
	if err != nil {
		return zeroAddr, false
	}
	return addr, true
}

// RPort returns the source port recorded in the "rport" parameter.
// A valueless ";rport" requested by the client is reported as absent.
func (hop ViaHop) RPort() (uint16, bool) {
	n, ok := hop.Params.Uint("rport", 16)
	return uint16(n), ok
}

// WithReceived returns a copy of the hop with the "received" and "rport" parameters
// set to the observed source address.
func (hop ViaHop) WithReceived(addr netip.AddrPort) ViaHop {
	hop = hop.Clone()
	if hop.Params == nil {
		hop.Params = make(Values)
	}
	hop.Params.Set("received", addr.Addr().String())
	hop.Params.Set("rport", strconv.Itoa(int(addr.Port())))
	return hop
}
