package registrar

import (
	"log/slog"

	"braces.dev/errtrace"
	"github.com/google/uuid"

	"github.com/ghettovoice/registrar/internal/errorutil"
	"github.com/ghettovoice/registrar/location"
	"github.com/ghettovoice/registrar/uri"
)

// Registration errors, returned wrapped by [Outcome.Err].
const (
	ErrIdentityNotFound     errorutil.Error = "identity not found"
	ErrDomainMismatch       errorutil.Error = "domain not permitted for identity"
	ErrAuthenticationFailed errorutil.Error = "authentication failed"
	ErrPublishFailed        errorutil.Error = "binding publish failed"
	ErrMalformedRequest     errorutil.Error = "malformed register request"
	ErrAccessDenied         errorutil.Error = "source address denied"
	ErrLookupFailed         errorutil.Error = "identity lookup failed"
	ErrCanceled             errorutil.Error = "registration canceled"
)

// Reason tags a rejected registration.
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonIdentityNotFound     Reason = "IdentityNotFound"
	ReasonDomainMismatch       Reason = "DomainMismatch"
	ReasonAuthenticationFailed Reason = "AuthenticationFailed"
	ReasonPublishFailed        Reason = "PublishFailed"
	ReasonMalformedRequest     Reason = "MalformedRequest"
	ReasonAccessDenied         Reason = "AccessDenied"
	ReasonLookupFailed         Reason = "LookupFailed"
	ReasonCanceled             Reason = "Canceled"
)

var reasonErrs = map[Reason]error{
	ReasonIdentityNotFound:     ErrIdentityNotFound,
	ReasonDomainMismatch:       ErrDomainMismatch,
	ReasonAuthenticationFailed: ErrAuthenticationFailed,
	ReasonPublishFailed:        ErrPublishFailed,
	ReasonMalformedRequest:     ErrMalformedRequest,
	ReasonAccessDenied:         ErrAccessDenied,
	ReasonLookupFailed:         ErrLookupFailed,
	ReasonCanceled:             ErrCanceled,
}

// Reasons lists all rejection reasons.
func Reasons() []Reason {
	return []Reason{
		ReasonIdentityNotFound,
		ReasonDomainMismatch,
		ReasonAuthenticationFailed,
		ReasonPublishFailed,
		ReasonMalformedRequest,
		ReasonAccessDenied,
		ReasonLookupFailed,
		ReasonCanceled,
	}
}

func (r Reason) String() string {
	if r == ReasonNone {
		return "None"
	}
	return string(r)
}

// Outcome is the result of one REGISTER handling.
// A successful outcome ends in [StateBound], a failed one in [StateRejected] with a reason.
type Outcome struct {
	// ID identifies the registration attempt in logs and traces.
	ID     uuid.UUID
	State  State
	Reason Reason
	// AORs are the addresses of record the binding was published for.
	AORs []*uri.SIP
	// Binding is the published binding, shared by all AORs.
	Binding *location.Binding
	// Cause is the collaborator error behind the rejection, if any.
	Cause error
}

// OK reports whether the binding was published.
func (o Outcome) OK() bool { return o.State == StateBound }

// Err returns nil for successful outcomes and the reason error otherwise,
// wrapping the cause when there is one.
func (o Outcome) Err() error {
	if o.OK() {
		return nil
	}
	sentinel, ok := reasonErrs[o.Reason]
	if !ok {
		sentinel = errorutil.Errorf("registration rejected: %v", o.Reason) //errtrace:skip
	}
	if o.Cause != nil {
		return errtrace.Wrap(errorutil.NewWrapperError(sentinel, o.Cause))
	}
	return errtrace.Wrap(sentinel)
}

// LogValue implements [slog.LogValuer].
func (o Outcome) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("id", o.ID.String()),
		slog.String("state", string(o.State)),
	}
	if !o.OK() {
		attrs = append(attrs, slog.String("reason", o.Reason.String()))
	}
	if len(o.AORs) > 0 {
		aors := make([]string, len(o.AORs))
		for i, aor := range o.AORs {
			aors[i] = uri.Key(aor)
		}
		attrs = append(attrs, slog.Any("aors", aors))
	}
	if o.Cause != nil {
		attrs = append(attrs, slog.Any("error", o.Cause))
	}
	return slog.GroupValue(attrs...)
}
