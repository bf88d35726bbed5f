package header

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"braces.dev/errtrace"

	"github.com/ghettovoice/registrar/internal/util"
)

// Expires represents the Expires header field.
// The Expires header field gives the relative time after which the message (or content) expires.
type Expires struct {
	time.Duration
}

// ParseExpires parses the delta-seconds value of the Expires header.
func ParseExpires[T ~string | ~[]byte](src T) (*Expires, error) {
	s := util.TrimSP(string(src))
	sec, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return nil, errtrace.Wrap(newInvalidHeaderError("malformed delta-seconds %q", s))
	}
	return &Expires{time.Duration(sec) * time.Second}, nil
}

// DeltaSeconds returns the expiry in whole seconds.
func (hdr *Expires) DeltaSeconds() uint32 {
	if hdr == nil || hdr.Duration <= 0 {
		return 0
	}
	return uint32(hdr.Duration / time.Second)
}

func (hdr *Expires) String() string {
	if hdr == nil {
		return ""
	}
	return strconv.FormatUint(uint64(hdr.DeltaSeconds()), 10)
}

// Format implements fmt.Formatter for custom formatting of the header.
func (hdr *Expires) Format(f fmt.State, verb rune) {
	switch verb {
	case 's':
		fmt.Fprint(f, hdr.String())
		return
	case 'q':
		fmt.Fprint(f, strconv.Quote(hdr.String()))
		return
	default:
		type hideMethods Expires
		type Expires hideMethods
		fmt.Fprintf(f, fmt.FormatString(f, verb), (*Expires)(hdr))
		return
	}
}

func (hdr *Expires) LogValue() slog.Value {
	if hdr == nil {
		return slog.Value{}
	}
	return slog.Uint64Value(uint64(hdr.DeltaSeconds()))
}

// Clone returns a copy of the header.
func (hdr *Expires) Clone() *Expires {
	if hdr == nil {
		return nil
	}
	hdr2 := *hdr
	return &hdr2
}

// Equal compares this header with another for equality.
func (hdr *Expires) Equal(val any) bool {
	var other *Expires
	switch v := val.(type) {
	case Expires:
		other = &v
	case *Expires:
		other = v
	default:
		return false
	}

	if hdr == other {
		return true
	} else if hdr == nil || other == nil {
		return false
	}

	return hdr.Duration == other.Duration
}

// IsValid checks whether the header is syntactically valid.
func (hdr *Expires) IsValid() bool { return hdr != nil && hdr.Duration >= 0 }

func (hdr *Expires) MarshalText() ([]byte, error) {
	return []byte(hdr.String()), nil
}

func (hdr *Expires) UnmarshalText(data []byte) error {
	hdr2, err := ParseExpires(data)
	if err != nil {
		*hdr = Expires{}
		return errtrace.Wrap(err)
	}
	*hdr = *hdr2
	return nil
}
