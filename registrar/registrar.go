// Package registrar implements SIP REGISTER processing: identity resolution, digest
// authentication, NAT-aware contact resolution and publishing of bindings
// to the location service.
package registrar

//go:generate go tool errtrace -w .

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"braces.dev/errtrace"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ghettovoice/registrar/digest"
	"github.com/ghettovoice/registrar/header"
	"github.com/ghettovoice/registrar/identity"
	"github.com/ghettovoice/registrar/internal/errorutil"
	"github.com/ghettovoice/registrar/internal/log"
	"github.com/ghettovoice/registrar/internal/netutil"
	"github.com/ghettovoice/registrar/location"
	"github.com/ghettovoice/registrar/uri"
)

// DefaultExpires is the binding lifetime used when the request carries no expiry.
const DefaultExpires uint32 = 3600

const tracerName = "github.com/ghettovoice/registrar/registrar"

// dummySecret is verified against when the identity is unknown.
const dummySecret = "registrar-unknown-identity"

// Headers are the parsed fields of a REGISTER request the registrar works with.
type Headers struct {
	// Via is the topmost Via hop, with received/rport set by the server transport.
	Via header.ViaHop
	// Auth holds the Authorization digest credentials.
	Auth *header.DigestCredentials
	// Contact is the Contact header of the binding being registered.
	Contact *header.Contact
	// FromHost is the host part of the From URI.
	FromHost string
	// Expires is the optional message Expires header, it wins over the Contact expires.
	Expires *header.Expires
}

// LogValue implements [slog.LogValuer].
func (h *Headers) LogValue() slog.Value {
	if h == nil {
		return slog.Value{}
	}
	attrs := []slog.Attr{
		slog.Any("via", h.Via),
		slog.String("from_host", h.FromHost),
	}
	if h.Auth != nil {
		attrs = append(attrs, slog.Any("auth", h.Auth))
	}
	if h.Contact != nil {
		attrs = append(attrs, slog.Any("contact", h.Contact))
	}
	if h.Expires != nil {
		attrs = append(attrs, slog.Any("expires", h.Expires))
	}
	return slog.GroupValue(attrs...)
}

type Options struct {
	// Logger is the logger used by the registrar.
	// If nil, the [log.Def] is used.
	Logger *slog.Logger
	// Metrics are updated on every handled request, nil disables metrics.
	Metrics *Metrics
	// Tracer starts a span per handled request.
	// If nil, the tracer of the global OpenTelemetry provider is used.
	Tracer trace.Tracer
	// Access restricts source addresses, nil allows any source.
	Access *netutil.AccessList
	// Verifier checks digest responses, defaults to [digest.DefaultVerifier].
	Verifier digest.Verifier
	// DefaultExpires defaults to [DefaultExpires].
	DefaultExpires uint32
	// Now returns the current time, defaults to [time.Now].
	Now func() time.Time
}

func (o *Options) log() *slog.Logger {
	if o == nil || o.Logger == nil {
		return log.Def
	}
	return o.Logger
}

func (o *Options) metrics() *Metrics {
	if o == nil {
		return nil
	}
	return o.Metrics
}

func (o *Options) tracer() trace.Tracer {
	if o == nil || o.Tracer == nil {
		return otel.Tracer(tracerName)
	}
	return o.Tracer
}

func (o *Options) access() *netutil.AccessList {
	if o == nil {
		return nil
	}
	return o.Access
}

func (o *Options) verifier() digest.Verifier {
	if o == nil || o.Verifier == nil {
		return digest.DefaultVerifier
	}
	return o.Verifier
}

func (o *Options) defaultExpires() uint32 {
	if o == nil || o.DefaultExpires == 0 {
		return DefaultExpires
	}
	return o.DefaultExpires
}

func (o *Options) now() func() time.Time {
	if o == nil || o.Now == nil {
		return time.Now
	}
	return o.Now
}

// Registrar handles REGISTER requests.
// It keeps no per-request state and is safe for concurrent use.
type Registrar struct {
	store    identity.Store
	registry location.Registry
	log      *slog.Logger
	metrics  *Metrics
	tracer   trace.Tracer
	access   *netutil.AccessList
	verifier digest.Verifier
	defExp   uint32
	now      func() time.Time
}

// New creates a registrar resolving identities in store and publishing bindings to registry.
// Options are optional, default options are used if nil (see [Options]).
func New(store identity.Store, registry location.Registry, opts *Options) (*Registrar, error) {
	if store == nil {
		return nil, errtrace.Wrap(errorutil.NewInvalidArgumentError("nil identity store"))
	}
	if registry == nil {
		return nil, errtrace.Wrap(errorutil.NewInvalidArgumentError("nil location registry"))
	}
	return &Registrar{
		store:    store,
		registry: registry,
		log:      opts.log(),
		metrics:  opts.metrics(),
		tracer:   opts.tracer(),
		access:   opts.access(),
		verifier: opts.verifier(),
		defExp:   opts.defaultExpires(),
		now:      opts.now(),
	}, nil
}

// HandleRegister processes one REGISTER request.
// Every rejection is reported through the outcome, see [Outcome.Err].
// The binding is published only after all checks pass. Canceling ctx before that
// point aborts the registration, once publishing starts it runs to completion
// with ctx values but without its cancellation.
func (r *Registrar) HandleRegister(ctx context.Context, hdrs *Headers) Outcome {
	start := time.Now()
	out := Outcome{ID: uuid.New()}

	ctx, span := r.tracer.Start(ctx, "registrar.HandleRegister",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("registrar.attempt_id", out.ID.String())),
	)
	defer span.End()

	logger := r.log.With(slog.String("attempt", out.ID.String()))
	m := newMachine(logger)
	r.handle(ctx, m, logger, hdrs, &out)
	out.State = m.state()
	out.Reason = m.reason

	span.SetAttributes(attribute.String("registrar.state", string(out.State)))
	if err := out.Err(); err != nil {
		span.SetAttributes(attribute.String("registrar.reason", string(out.Reason)))
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	r.metrics.observe(out, start)
	return out
}

func (r *Registrar) handle(ctx context.Context, m *machine, logger *slog.Logger, hdrs *Headers, out *Outcome) {
	reject := func(reason Reason, cause error) {
		out.Cause = cause
		if err := m.reject(ctx, reason); err != nil {
			logger.LogAttrs(ctx, slog.LevelError, "failed to reject registration", slog.Any("error", err))
		}
	}
	advance := func(trg trigger) bool {
		if err := m.fire(ctx, trg); err != nil {
			logger.LogAttrs(ctx, slog.LevelError, "failed to advance registration", slog.Any("error", err))
			reject(ReasonCanceled, err)
			return false
		}
		return true
	}

	if hdrs == nil || hdrs.Auth == nil || hdrs.Auth.Username == "" || hdrs.Contact == nil || hdrs.Contact.URI == nil ||
		identity.CanonicalDomain(hdrs.FromHost) == "" {
		logger.LogAttrs(ctx, slog.LevelDebug, "malformed register request", slog.Any("headers", hdrs))
		reject(ReasonMalformedRequest, nil)
		return
	}

	username := hdrs.Auth.Username
	if r.access != nil && !r.access.AllowedHost(sourceHost(hdrs.Via)) {
		logger.LogAttrs(ctx, slog.LevelWarn, "register source denied",
			slog.String("source", sourceHost(hdrs.Via)),
			slog.String("username", username),
		)
		reject(ReasonAccessDenied, nil)
		return
	}

	// identity
	id, err := resolveIdentity(ctx, r.store, username, hdrs.FromHost)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			// same digest cost as a failed authentication
			r.verifier.Verify(digest.FromCredentials(hdrs.Auth, dummySecret, digest.MethodRegister), hdrs.Auth.Response)
			logger.LogAttrs(ctx, slog.LevelWarn, "identity not found",
				slog.String("username", username),
				slog.String("from_host", hdrs.FromHost),
			)
			reject(ReasonIdentityNotFound, nil)
			return
		}
		logger.LogAttrs(ctx, slog.LevelError, "identity lookup failed",
			slog.String("username", username),
			slog.Any("error", err),
		)
		reject(ReasonLookupFailed, err)
		return
	}
	if !advance(triggerResolve) {
		return
	}

	// domain
	if err := checkDomain(id, hdrs.FromHost); err != nil {
		logger.LogAttrs(ctx, slog.LevelDebug, "domain not permitted",
			slog.Any("identity", id),
			slog.String("from_host", hdrs.FromHost),
		)
		reject(ReasonDomainMismatch, nil)
		return
	}
	if !advance(triggerCheckDomain) {
		return
	}

	// contact
	contact, nat, err := ResolveContact(id, hdrs.Contact.URI, hdrs.Via)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidIdentity) {
			logger.LogAttrs(ctx, slog.LevelError, "stored identity is invalid",
				slog.Any("identity", id),
				slog.Any("error", err),
			)
			reject(ReasonLookupFailed, err)
			return
		}
		reject(ReasonMalformedRequest, err)
		return
	}
	if !advance(triggerResolveContact) {
		return
	}

	// credentials
	params := digest.FromCredentials(hdrs.Auth, id.Account().Secret, digest.MethodRegister)
	if !r.verifier.Verify(params, hdrs.Auth.Response) {
		logger.LogAttrs(ctx, slog.LevelInfo, "authentication failed", slog.Any("identity", id))
		reject(ReasonAuthenticationFailed, nil)
		return
	}
	if !advance(triggerAuthenticate) {
		return
	}

	if err := ctx.Err(); err != nil {
		reject(ReasonCanceled, err)
		return
	}

	// bind
	aors := AddressesOfRecord(id, hdrs.FromHost, contact.Secured)
	binding := NewRoute(contact, nat, hdrs.Via, bindingExpires(hdrs, r.defExp), r.now())
	// past this point the registration commits even if the caller goes away
	ctx = context.WithoutCancel(ctx)
	if err := publish(ctx, r.registry, aors, binding); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failed to publish binding",
			slog.Any("identity", id),
			slog.Any("error", err),
		)
		reject(ReasonPublishFailed, err)
		return
	}
	if !advance(triggerBind) {
		return
	}

	out.AORs = aors
	out.Binding = binding.Clone()
	logger.LogAttrs(ctx, slog.LevelInfo, "binding registered",
		slog.Any("identity", id),
		slog.Any("aors", uriKeys(aors)),
		slog.Any("binding", binding),
	)
}

// sourceHost returns the host the request was received from.
func sourceHost(via header.ViaHop) string {
	if recv, ok := via.Received(); ok {
		return recv.String()
	}
	return via.Addr.Host()
}

func uriKeys(us []*uri.SIP) []string {
	keys := make([]string, len(us))
	for i, u := range us {
		keys[i] = uri.Key(u)
	}
	return keys
}
