package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/fsmkit/pkg/fsm"
	"github.com/dmitrymomot/fsmkit/pkg/fsm/audit"
	"github.com/dmitrymomot/fsmkit/pkg/fsm/diagram"
	"github.com/dmitrymomot/fsmkit/pkg/fsm/eventlog"
)

// DefinitionSource serves compiled definitions for the introspection
// endpoints. Satisfied by registry.Registry.
type DefinitionSource interface {
	Definition(ctx context.Context, entityType, column string) (*fsm.RuntimeDefinition, error)
}

// Handler exposes transition history and definition introspection over HTTP.
// All collaborators are optional: endpoints whose backing store is missing
// respond 404.
type Handler struct {
	audits audit.Reader
	events eventlog.Store
	defs   DefinitionSource
	log    *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithAuditReader enables the timeline endpoint.
func WithAuditReader(r audit.Reader) Option {
	return func(h *Handler) { h.audits = r }
}

// WithEventLog enables the replay, validate and statistics endpoints.
func WithEventLog(store eventlog.Store) Option {
	return func(h *Handler) { h.events = store }
}

// WithDefinitions enables the definition and diagram endpoints.
func WithDefinitions(src DefinitionSource) Option {
	return func(h *Handler) { h.defs = src }
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

func NewHandler(opts ...Option) *Handler {
	h := &Handler{log: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes mounts the API under the returned router:
//
//	GET /definitions/{entityType}/{column}
//	GET /diagrams/{entityType}/{column}?format=mermaid|dot
//	GET /subjects/{entityType}/{id}/{column}/timeline?from=RFC3339&to=RFC3339
//	GET /subjects/{entityType}/{id}/{column}/replay
//	GET /subjects/{entityType}/{id}/{column}/validate
//	GET /subjects/{entityType}/{id}/{column}/statistics
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/definitions/{entityType}/{column}", h.definition)
	r.Get("/diagrams/{entityType}/{column}", h.diagram)
	r.Route("/subjects/{entityType}/{id}/{column}", func(r chi.Router) {
		r.Get("/timeline", h.timeline)
		r.Get("/replay", h.replay)
		r.Get("/validate", h.validate)
		r.Get("/statistics", h.statistics)
	})
	return r
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	if h.audits == nil {
		respondError(w, http.StatusNotFound, "audit log not configured")
		return
	}
	q := audit.TimelineQuery{
		SubjectType: chi.URLParam(r, "entityType"),
		SubjectID:   chi.URLParam(r, "id"),
		Column:      chi.URLParam(r, "column"),
	}
	var err error
	if q.From, err = parseTimeParam(r, "from"); err != nil {
		respondError(w, http.StatusBadRequest, "invalid from parameter, want RFC3339")
		return
	}
	if q.To, err = parseTimeParam(r, "to"); err != nil {
		respondError(w, http.StatusBadRequest, "invalid to parameter, want RFC3339")
		return
	}

	records, err := h.audits.Timeline(r.Context(), q)
	if err != nil {
		h.serverError(w, r, "timeline query failed", err)
		return
	}
	if records == nil {
		records = []audit.Record{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"timeline": records})
}

func (h *Handler) replay(w http.ResponseWriter, r *http.Request) {
	h.withEvents(w, r, func(records []eventlog.Record) any {
		return eventlog.Replay(records)
	})
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	h.withEvents(w, r, func(records []eventlog.Record) any {
		return eventlog.Validate(records)
	})
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	h.withEvents(w, r, func(records []eventlog.Record) any {
		return eventlog.Stats(records)
	})
}

// withEvents loads the subject's event stream and responds with the given
// reduction of it.
func (h *Handler) withEvents(w http.ResponseWriter, r *http.Request, reduce func([]eventlog.Record) any) {
	if h.events == nil {
		respondError(w, http.StatusNotFound, "event log not configured")
		return
	}
	records, err := h.events.List(r.Context(),
		chi.URLParam(r, "entityType"),
		chi.URLParam(r, "id"),
		chi.URLParam(r, "column"))
	if err != nil {
		h.serverError(w, r, "event log query failed", err)
		return
	}
	respondJSON(w, http.StatusOK, reduce(records))
}

func (h *Handler) definition(w http.ResponseWriter, r *http.Request) {
	def, ok := h.loadDefinition(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, definitionView(def))
}

func (h *Handler) diagram(w http.ResponseWriter, r *http.Request) {
	def, ok := h.loadDefinition(w, r)
	if !ok {
		return
	}
	format := diagram.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = diagram.FormatMermaid
	}
	content, err := diagram.Render(def, format)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}

func (h *Handler) loadDefinition(w http.ResponseWriter, r *http.Request) (*fsm.RuntimeDefinition, bool) {
	if h.defs == nil {
		respondError(w, http.StatusNotFound, "definitions not configured")
		return nil, false
	}
	def, err := h.defs.Definition(r.Context(),
		chi.URLParam(r, "entityType"),
		chi.URLParam(r, "column"))
	if err != nil {
		if fsm.IsDefinitionNotFound(err) {
			respondError(w, http.StatusNotFound, err.Error())
			return nil, false
		}
		h.serverError(w, r, "definition lookup failed", err)
		return nil, false
	}
	return def, true
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.log.ErrorContext(r.Context(), msg, slog.Any("error", err), slog.String("path", r.URL.Path))
	respondError(w, http.StatusInternalServerError, msg)
}

func parseTimeParam(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}
