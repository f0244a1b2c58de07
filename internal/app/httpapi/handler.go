// Package httpapi exposes the registry over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/constants_registry/internal/app/domain/constant"
	"github.com/R3E-Network/constants_registry/internal/app/metrics"
	"github.com/R3E-Network/constants_registry/internal/app/query"
	"github.com/R3E-Network/constants_registry/internal/app/services/registry"
	"github.com/R3E-Network/constants_registry/internal/httputil"
	"github.com/R3E-Network/constants_registry/internal/middleware"
	"github.com/R3E-Network/constants_registry/pkg/logger"
)

// Error messages returned to API consumers.
const (
	MsgDomainNotFound   = "No domain found"
	MsgDomainInUse      = "Domain has constants"
	MsgDomainNotCreated = "Domain is not created"
	MsgNameNotFound     = "No name found"
	MsgValidation       = "validation failed"
	MsgInternal         = "internal error"
)

// Registry is the subset of the registry service the handlers depend on.
type Registry interface {
	ListDomains(ctx context.Context) ([]constant.Domain, error)
	ListTags(ctx context.Context, domain string) ([]*string, error)
	QueryConstants(ctx context.Context, domain string, filter query.Filter) ([]constant.Constant, error)
	UpsertDomain(ctx context.Context, in constant.DomainInput) (constant.Domain, error)
	DeleteDomain(ctx context.Context, domain string) error
	UpsertConstant(ctx context.Context, domain string, in constant.ConstantInput) (constant.Constant, error)
	DeleteConstant(ctx context.Context, domain, name string) error
}

// Options configures the router.
type Options struct {
	Version string
	// Gate authorizes writes. A nil gate rejects every write.
	Gate *middleware.AuthGate
	// Limiter throttles writes per client when set.
	Limiter *middleware.RateLimiter
	// CORSOrigins enables CORS for the listed origins.
	CORSOrigins []string
	// Audit records write attempts when set.
	Audit  *AuditLog
	Logger *logger.Logger
}

type handler struct {
	registry Registry
	version  string
	audit    *AuditLog
	log      *logger.Logger
}

// NewHandler returns the API router wrapped in tracing and CORS.
func NewHandler(reg Registry, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	gate := opts.Gate
	if gate == nil {
		gate = middleware.NewAuthGate("", log)
	}
	h := &handler{registry: reg, version: opts.Version, audit: opts.Audit, log: log}

	r := mux.NewRouter()
	// Segments are matched escaped so "/" inside a domain or name survives.
	r.UseEncodedPath()
	r.Use(middleware.MetricsMiddleware(), middleware.LoggingMiddleware(log))

	cache := middleware.CacheControl(middleware.ReferenceDataCacheControl)
	write := func(fn http.HandlerFunc) http.Handler {
		var next http.Handler = gate.Handler(fn)
		if opts.Limiter != nil {
			next = opts.Limiter.Handler(next)
		}
		if h.audit != nil {
			next = h.audit.Middleware(next)
		}
		return next
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", h.health).Methods(http.MethodGet)
	api.Handle("/domains", cache(http.HandlerFunc(h.listDomains))).Methods(http.MethodGet)
	api.Handle("/domain/{domain}", cache(http.HandlerFunc(h.queryConstants))).Methods(http.MethodGet)
	api.Handle("/domain/{domain}/tags", cache(http.HandlerFunc(h.listTags))).Methods(http.MethodGet)

	api.Handle("/domains", write(h.upsertDomain)).Methods(http.MethodPut)
	api.Handle("/domain/{domain}", write(h.deleteDomain)).Methods(http.MethodDelete)
	api.Handle("/domain/{domain}", write(h.upsertConstant)).Methods(http.MethodPut)
	api.Handle("/domain/{domain}/{name}", write(h.deleteConstant)).Methods(http.MethodDelete)

	if h.audit != nil {
		api.Handle("/audit", gate.Handler(http.HandlerFunc(h.listAudit))).Methods(http.MethodGet)
		api.Handle("/audit/stream", gate.Handler(http.HandlerFunc(h.streamAudit))).Methods(http.MethodGet)
	}

	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	var root http.Handler = r
	if len(opts.CORSOrigins) > 0 {
		root = middleware.NewCORSMiddleware(opts.CORSOrigins).Handler(root)
	}
	return middleware.Tracing(root)
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"version": h.version})
}

func (h *handler) listDomains(w http.ResponseWriter, r *http.Request) {
	domains, err := h.registry.ListDomains(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if domains == nil {
		domains = []constant.Domain{}
	}
	httputil.WriteJSON(w, http.StatusOK, domains)
}

func (h *handler) queryConstants(w http.ResponseWriter, r *http.Request) {
	domain := pathVar(r, "domain")
	filter := query.FilterFromValues(r.URL.Query())

	constants, err := h.registry.QueryConstants(r.Context(), domain, filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if constants == nil {
		constants = []constant.Constant{}
	}
	httputil.WriteJSON(w, http.StatusOK, constants)
}

func (h *handler) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.registry.ListTags(r.Context(), pathVar(r, "domain"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if tags == nil {
		tags = []*string{}
	}
	httputil.WriteJSON(w, http.StatusOK, tags)
}

func (h *handler) upsertDomain(w http.ResponseWriter, r *http.Request) {
	var payload constant.DomainInput
	if !h.decode(w, r, &payload) {
		return
	}

	record, err := h.registry.UpsertDomain(r.Context(), payload)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"domain": record.Domain})
}

func (h *handler) deleteDomain(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.DeleteDomain(r.Context(), pathVar(r, "domain")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.NoContent(w)
}

func (h *handler) upsertConstant(w http.ResponseWriter, r *http.Request) {
	var payload constant.ConstantInput
	if !h.decode(w, r, &payload) {
		return
	}

	record, err := h.registry.UpsertConstant(r.Context(), pathVar(r, "domain"), payload)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{
		"domain": record.Domain,
		"name":   record.Name,
	})
}

func (h *handler) deleteConstant(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.DeleteConstant(r.Context(), pathVar(r, "domain"), pathVar(r, "name")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.NoContent(w)
}

// pathVar returns the unescaped route variable key.
func pathVar(r *http.Request, key string) string {
	raw := mux.Vars(r)[key]
	v, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return v
}

func (h *handler) listAudit(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.audit.List(parseLimit(r.URL.Query().Get("limit"))))
}

// decode reads a JSON payload. Values of the wrong JSON type are reported as
// field errors so they look like any other validation failure.
func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	err := httputil.ReadJSON(r, dst)
	if err == nil {
		return true
	}

	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, constant.ErrInvalidValue):
		httputil.WriteFieldErrors(w, http.StatusBadRequest, MsgValidation, map[string]string{
			"value": "must be a string or a number",
		})
	case errors.As(err, &typeErr) && typeErr.Field != "":
		httputil.WriteFieldErrors(w, http.StatusBadRequest, MsgValidation, map[string]string{
			typeErr.Field: "must be a " + typeErr.Type.String(),
		})
	default:
		httputil.BadRequest(w, err.Error())
	}
	return false
}

func (h *handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *registry.ValidationError
	switch {
	case errors.As(err, &verr):
		httputil.WriteFieldErrors(w, http.StatusBadRequest, MsgValidation, verr.Fields)
	case errors.Is(err, registry.ErrDomainNotFound):
		httputil.BadRequest(w, MsgDomainNotFound)
	case errors.Is(err, registry.ErrDomainInUse):
		httputil.BadRequest(w, MsgDomainInUse)
	case errors.Is(err, registry.ErrDomainNotCreated):
		httputil.BadRequest(w, MsgDomainNotCreated)
	case errors.Is(err, registry.ErrConstantNotFound):
		httputil.BadRequest(w, MsgNameNotFound)
	default:
		h.log.WithError(err).WithFields(map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"trace_id": middleware.TraceID(r.Context()),
		}).Error("request failed")
		httputil.InternalError(w, MsgInternal)
	}
}
