// Package httpapi exposes the registrar to an external SIP proxy over HTTP.
//
// The proxy terminates SIP, forwards the relevant REGISTER headers as JSON to
// POST /v1/register and relays the suggested status back to the client.
package httpapi

//go:generate go tool errtrace -w .

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"braces.dev/errtrace"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ghettovoice/registrar/header"
	"github.com/ghettovoice/registrar/internal/log"
	"github.com/ghettovoice/registrar/location"
	"github.com/ghettovoice/registrar/registrar"
	"github.com/ghettovoice/registrar/uri"
)

// maxBodySize limits register request bodies.
const maxBodySize = 64 << 10

// Registrar handles REGISTER requests, see [registrar.Registrar].
type Registrar interface {
	HandleRegister(ctx context.Context, hdrs *registrar.Headers) registrar.Outcome
}

// Options configure the router.
type Options struct {
	// Logger is used for the access log and handler errors.
	// If nil, the [log.Def] is used.
	Logger *slog.Logger
	// Gatherer serves GET /metrics. If nil, the endpoint is not mounted.
	Gatherer prometheus.Gatherer
}

func (o *Options) log() *slog.Logger {
	if o == nil || o.Logger == nil {
		return log.Def
	}
	return o.Logger
}

func (o *Options) gatherer() prometheus.Gatherer {
	if o == nil {
		return nil
	}
	return o.Gatherer
}

type handler struct {
	reg     Registrar
	locator location.Locator
	log     *slog.Logger
}

// NewRouter builds the HTTP handler. The locator serves GET /v1/bindings.
func NewRouter(reg Registrar, locator location.Locator, opts *Options) http.Handler {
	h := &handler{reg: reg, locator: locator, log: opts.log()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(h.log))

	r.Get("/healthz", h.healthz)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Get("/bindings", h.bindings)
	})
	if g := opts.gatherer(); g != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	}
	return r
}

func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.LogAttrs(r.Context(), slog.LevelDebug, "http request",
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// RegisterRequest is the JSON projection of a REGISTER request.
// Header fields carry the raw header values.
type RegisterRequest struct {
	// Via is the topmost Via header value.
	Via string `json:"via"`
	// Authorization is the Authorization header value.
	Authorization string `json:"authorization"`
	// Contact is the Contact header value.
	Contact string `json:"contact"`
	// FromHost is the host part of the From URI.
	FromHost string `json:"from_host"`
	// Expires is the optional Expires header value.
	Expires string `json:"expires,omitempty"`
	// Source is the ip:port the proxy received the request from.
	// When set, it is recorded as the Via received and rport parameters.
	Source string `json:"source,omitempty"`
}

// Headers parses the request into registrar headers.
func (req *RegisterRequest) Headers() (*registrar.Headers, error) {
	via, err := header.ParseViaHop(req.Via)
	if err != nil {
		return nil, errtrace.Wrap(fmt.Errorf("via: %w", err))
	}
	if req.Source != "" {
		src, err := netip.ParseAddrPort(req.Source)
		if err != nil {
			return nil, errtrace.Wrap(fmt.Errorf("source: %w", err))
		}
		via = via.WithReceived(src)
	}
	auth, err := header.ParseDigestCredentials(req.Authorization)
	if err != nil {
		return nil, errtrace.Wrap(fmt.Errorf("authorization: %w", err))
	}
	contact, err := header.ParseContact(req.Contact)
	if err != nil {
		return nil, errtrace.Wrap(fmt.Errorf("contact: %w", err))
	}
	hdrs := &registrar.Headers{
		Via:      via,
		Auth:     auth,
		Contact:  contact,
		FromHost: req.FromHost,
	}
	if req.Expires != "" {
		if hdrs.Expires, err = header.ParseExpires(req.Expires); err != nil {
			return nil, errtrace.Wrap(fmt.Errorf("expires: %w", err))
		}
	}
	return hdrs, nil
}

// RegisterResponse reports the registration outcome.
type RegisterResponse struct {
	// ID is the registration attempt id.
	ID string `json:"id"`
	// Status is the SIP status code the proxy should answer with.
	Status  int               `json:"status"`
	Reason  string            `json:"reason,omitempty"`
	Error   string            `json:"error,omitempty"`
	AORs    []string          `json:"aors,omitempty"`
	Binding *location.Binding `json:"binding,omitempty"`
}

// SIPStatus maps an outcome to the SIP response status code.
func SIPStatus(out registrar.Outcome) int {
	if out.OK() {
		return 200
	}
	switch out.Reason {
	case registrar.ReasonAuthenticationFailed:
		return 401
	case registrar.ReasonAccessDenied, registrar.ReasonDomainMismatch:
		return 403
	case registrar.ReasonIdentityNotFound:
		return 404
	case registrar.ReasonMalformedRequest:
		return 400
	default:
		return 500
	}
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	hdrs, err := req.Headers()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	out := h.reg.HandleRegister(r.Context(), hdrs)
	resp := RegisterResponse{
		ID:     out.ID.String(),
		Status: SIPStatus(out),
	}
	if out.OK() {
		resp.Binding = out.Binding
		resp.AORs = make([]string, len(out.AORs))
		for i, aor := range out.AORs {
			resp.AORs[i] = aor.String()
		}
	} else {
		resp.Reason = string(out.Reason)
		resp.Error = out.Err().Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) bindings(w http.ResponseWriter, r *http.Request) {
	aor, err := uri.ParseSIP(r.URL.Query().Get("aor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("aor: %w", err))
		return
	}
	b, err := h.locator.Lookup(r.Context(), aor)
	if err != nil {
		if errors.Is(err, location.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		h.log.LogAttrs(r.Context(), slog.LevelError, "failed to lookup binding",
			slog.Any("aor", aor),
			slog.Any("error", err),
		)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (*handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
