// Package httpapi serves the bindable dispatcher over JSON HTTP routes keyed
// by plural resource name.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/louisbranch/workspace/internal/bindable"
	"github.com/louisbranch/workspace/internal/bindable/dispatch"
	apperrors "github.com/louisbranch/workspace/internal/platform/errors"
	"github.com/louisbranch/workspace/internal/platform/errors/i18n"
	"github.com/louisbranch/workspace/internal/platform/httpx"
	"github.com/louisbranch/workspace/internal/platform/ratelimiter"
	"github.com/louisbranch/workspace/internal/platform/requestctx"
	"github.com/louisbranch/workspace/internal/services/workspace/surface"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodyBytes = 1 << 20

// listParams are the query parameters forwarded to list payloads.
var listParams = []string{"page", "per_page", "q", "status", "sort", "direction", "filter"}

// Config wires the handler's collaborators.
type Config struct {
	Dispatcher *dispatch.Dispatcher
	Navigator  surface.Navigator
	// Gatherer backs /metrics. The route is omitted when nil.
	Gatherer prometheus.Gatherer
	// Limiter throttles requests per client IP. Nil disables limiting.
	Limiter *ratelimiter.MapLimiter
	// Locale is the fallback locale for error messages.
	Locale string
}

type handler struct {
	dispatcher *dispatch.Dispatcher
	navigator  surface.Navigator
	locale     string
}

// NewHandler returns the workspace HTTP API with its middleware applied.
func NewHandler(cfg Config) http.Handler {
	h := &handler{dispatcher: cfg.Dispatcher, navigator: cfg.Navigator, locale: cfg.Locale}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.healthz)
	if cfg.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("GET /dashboard", h.dashboard)
	mux.HandleFunc("GET /bindables", h.bindables)
	mux.HandleFunc("GET /{bindable}", h.list)
	mux.HandleFunc("POST /{bindable}", h.create)
	mux.HandleFunc("GET /{bindable}/{id}", h.read)
	mux.HandleFunc("PATCH /{bindable}/{id}", h.update)
	mux.HandleFunc("DELETE /{bindable}/{id}", h.delete)
	mux.HandleFunc("POST /{bindable}/{id}/execute", h.execute)

	return httpx.Chain(mux,
		httpx.RequestID(),
		httpx.RecoverPanic(),
		httpx.RateLimit(cfg.Limiter, nil),
		httpx.Locale(cfg.Locale),
	)
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) dashboard(w http.ResponseWriter, r *http.Request) {
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"data": surface.Dashboard(r.Context(), h.dispatcher)})
}

func (h *handler) bindables(w http.ResponseWriter, _ *http.Request) {
	sections := surface.Sections(h.navigator)
	if sections == nil {
		sections = []surface.Section{}
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"data": sections})
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	name := surface.BindableFromRoute(r.PathValue("bindable"))
	payload := bindable.Payload{}
	query := r.URL.Query()
	for _, key := range listParams {
		if value := strings.TrimSpace(query.Get(key)); value != "" {
			payload[key] = value
		}
	}

	page, result, err := surface.List(r.Context(), h.dispatcher, name, payload)
	if err != nil {
		h.writeNotFound(w, r, name)
		return
	}
	if !result.IsSuccess() {
		h.writeFailure(w, r, result, 0)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *handler) read(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, bindable.ActionRead, bindable.Payload{"id": r.PathValue("id")}, http.StatusOK)
}

func (h *handler) create(w http.ResponseWriter, r *http.Request) {
	body, ok := h.decodeBody(w, r)
	if !ok {
		return
	}
	name := surface.BindableFromRoute(r.PathValue("bindable"))
	h.dispatch(w, r, bindable.ActionCreate, surface.CreatePayload(name, body), http.StatusCreated)
}

func (h *handler) update(w http.ResponseWriter, r *http.Request) {
	body, ok := h.decodeBody(w, r)
	if !ok {
		return
	}
	name := surface.BindableFromRoute(r.PathValue("bindable"))
	attrs := map[string]any(surface.CreatePayload(name, body))
	h.dispatch(w, r, bindable.ActionUpdate, surface.UpdatePayload(r.PathValue("id"), attrs), http.StatusOK)
}

func (h *handler) delete(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, bindable.ActionDelete, bindable.Payload{"id": r.PathValue("id")}, http.StatusOK)
}

func (h *handler) execute(w http.ResponseWriter, r *http.Request) {
	body, ok := h.decodeBody(w, r)
	if !ok {
		return
	}
	execute, nested := body["execute"].(map[string]any)
	if !nested {
		execute = body
	}
	name := surface.BindableFromRoute(r.PathValue("bindable"))
	result, err := h.dispatcher.Call(r.Context(), name, bindable.ActionExecute, surface.ExecutePayload(r.PathValue("id"), execute))
	if err != nil {
		h.writeNotFound(w, r, name)
		return
	}
	if !result.IsSuccess() {
		h.writeFailure(w, r, result, http.StatusUnprocessableEntity)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"data": result.Value()})
}

func (h *handler) dispatch(w http.ResponseWriter, r *http.Request, action bindable.Action, payload bindable.Payload, successStatus int) {
	name := surface.BindableFromRoute(r.PathValue("bindable"))
	result, err := h.dispatcher.Call(r.Context(), name, action, payload)
	if err != nil {
		h.writeNotFound(w, r, name)
		return
	}
	if !result.IsSuccess() {
		h.writeFailure(w, r, result, 0)
		return
	}
	_ = httpx.WriteJSON(w, successStatus, map[string]any{"data": result.Value()})
}

// decodeBody reads a JSON object body. An empty body decodes as an empty
// object.
func (h *handler) decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	body := map[string]any{}
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body)
	if err == nil || errors.Is(err, io.EOF) {
		return body, true
	}
	log.Printf("httpapi: %s %s request_id=%s decode body: %v", r.Method, r.URL.Path, requestctx.RequestIDFromContext(r.Context()), err)
	h.writeError(w, r, http.StatusBadRequest, string(apperrors.CodeValidationFailed), "request body must be a JSON object")
	return nil, false
}

func (h *handler) writeNotFound(w http.ResponseWriter, r *http.Request, name string) {
	locale := requestctx.LocaleFromContext(r.Context(), h.locale)
	message := i18n.GetCatalog(locale).Format(i18n.KeyBindableNotFound, map[string]string{"Name": name})
	h.writeError(w, r, http.StatusNotFound, i18n.KeyBindableNotFound, message)
}

// writeFailure writes a failure result. A zero status maps the failure code.
func (h *handler) writeFailure(w http.ResponseWriter, r *http.Request, result bindable.Result, status int) {
	f, _ := result.Failure()
	if status == 0 {
		status = f.Code.HTTPStatus()
	}
	if status >= http.StatusInternalServerError {
		log.Printf("httpapi: %s %s request_id=%s failure=%s", r.Method, r.URL.Path, requestctx.RequestIDFromContext(r.Context()), f.Code)
	}
	h.writeError(w, r, status, string(f.Code), f.Message)
}

func (h *handler) writeError(w http.ResponseWriter, _ *http.Request, status int, code, message string) {
	_ = httpx.WriteJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
