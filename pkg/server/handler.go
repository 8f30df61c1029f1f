package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/feature-store/pkg/catalog"
	"github.com/Sternrassler/feature-store/pkg/feature"
	"github.com/Sternrassler/feature-store/pkg/gateway"
	"github.com/Sternrassler/feature-store/pkg/metrics"
)

// Ingester writes feature values. *gateway.Ingester implements it.
type Ingester interface {
	Ingest(ctx context.Context, entityID string, values []feature.FeatureValue) ([]string, error)
}

// Retriever reads feature values. *gateway.Retriever implements it.
type Retriever interface {
	Get(ctx context.Context, entityID string, names []string) (gateway.EntityResult, error)
	GetBatch(ctx context.Context, entityIDs []string, names []string) ([]gateway.EntityResult, error)
}

// Check is a readiness probe.
type Check func(ctx context.Context) error

// Deps are the collaborators of the HTTP layer.
type Deps struct {
	Ingester  Ingester
	Retriever Retriever
	Registry  catalog.Registry

	// Checks are run by /health, keyed by dependency name.
	Checks map[string]Check

	// HealthTimeout bounds all checks together. Defaults to 2s.
	HealthTimeout time.Duration
}

type handler struct {
	deps Deps
}

// NewRouter returns the HTTP handler of the feature store.
func NewRouter(deps Deps, logger zerolog.Logger) http.Handler {
	if deps.HealthTimeout <= 0 {
		deps.HealthTimeout = 2 * time.Second
	}
	h := &handler{deps: deps}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(accessLog(logger))
	r.Use(middleware.Recoverer)
	r.NotFound(notFoundHandler)
	r.MethodNotAllowed(methodNotAllowedHandler)

	r.Post("/register", h.register)
	r.Route("/features", func(r chi.Router) {
		r.Get("/", h.listFeatures)
		r.Delete("/{id}", h.deleteFeature)
		r.Post("/ingest", h.ingest)
		r.Post("/online", h.onlineBatch)
		r.Get("/online/{entity_id}", h.onlineEntity)
	})
	r.Get("/health", h.health)
	r.Handle("/metrics", metrics.Handler())

	return r
}

// registerRequest accepts a full definition document. Fields assigned by
// the catalog are ignored.
type registerRequest struct {
	feature.Registration

	ID        json.RawMessage `json:"id"`
	CreatedAt json.RawMessage `json:"created_at"`
	UpdatedAt json.RawMessage `json:"updated_at"`
}

type registerResponse struct {
	Message string             `json:"message"`
	Feature feature.Definition `json:"feature"`
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	def, err := req.Registration.Definition()
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := h.deps.Registry.Create(r.Context(), def)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, registerResponse{Message: "Feature registered", Feature: created})
}

func (h *handler) listFeatures(w http.ResponseWriter, r *http.Request) {
	defs, err := h.deps.Registry.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]feature.Definition{"features": defs})
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *handler) deleteFeature(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, r, feature.Validationf("id", "feature id must be an integer"))
		return
	}
	deleted, err := h.deps.Registry.DeleteByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Message: "Feature '" + deleted.Name + "' deleted successfully",
	})
}

type ingestRequest struct {
	EntityID string                 `json:"entity_id"`
	Features []feature.FeatureValue `json:"features"`
}

type ingestResponse struct {
	Message  string   `json:"message"`
	EntityID string   `json:"entity_id"`
	Features []string `json:"features"`
}

func (h *handler) ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	names, err := h.deps.Ingester.Ingest(r.Context(), req.EntityID, req.Features)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{
		Message:  "Features ingested successfully",
		EntityID: req.EntityID,
		Features: names,
	})
}

type onlineRequest struct {
	EntityIDs    []string `json:"entity_ids"`
	FeatureNames []string `json:"feature_names"`
}

func (h *handler) onlineBatch(w http.ResponseWriter, r *http.Request) {
	var req onlineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	results, err := h.deps.Retriever.GetBatch(r.Context(), req.EntityIDs, req.FeatureNames)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *handler) onlineEntity(w http.ResponseWriter, r *http.Request) {
	entityID, err := pathParam(r, "entity_id")
	if err != nil {
		writeError(w, r, feature.Validationf("entity_id", "malformed entity id in path: %v", err))
		return
	}
	names := splitCSV(r.URL.Query().Get("feature_names"))

	result, err := h.deps.Retriever.Get(r.Context(), entityID, names)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// health answers READY when every check passes within HealthTimeout.
func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.deps.HealthTimeout)
	defer cancel()

	names := make([]string, 0, len(h.deps.Checks))
	for name := range h.deps.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	ready := true
	for _, name := range names {
		if err := h.deps.Checks[name](ctx); err != nil {
			ready = false
			zerolog.Ctx(r.Context()).Warn().Err(err).Str("dependency", name).Msg("Health check failed")
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("NOT_READY"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("READY"))
}

// pathParam returns the decoded value of a route parameter. chi matches
// against the escaped path whenever the request carries one.
func pathParam(r *http.Request, key string) (string, error) {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v, nil
	}
	return url.PathUnescape(v)
}

// splitCSV splits a comma-separated list, trimming spaces and dropping
// empty items.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
