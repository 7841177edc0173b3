package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/soundforge/pulse/pkg/async"
	"github.com/soundforge/pulse/pkg/observability"
)

// actorIDHeader carries the caller identity issued by the external
// authentication service. The engine treats it as an opaque string.
const actorIDHeader = "X-Actor-ID"

// Handlers provides the HTTP surface over the telemetry engine
type Handlers struct {
	engine  *Engine
	metrics *observability.Metrics
	log     *logrus.Logger
}

// NewHandlers creates telemetry HTTP handlers
func NewHandlers(engine *Engine, metrics *observability.Metrics, log *logrus.Logger) *Handlers {
	if log == nil {
		log = logrus.New()
	}
	return &Handlers{engine: engine, metrics: metrics, log: log}
}

// RegisterRoutes registers telemetry routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/telemetry/tools", h.recordToolInvocation).Methods("POST")
	router.HandleFunc("/telemetry/apis", h.recordAPIInvocation).Methods("POST")
	router.HandleFunc("/content", h.registerContent).Methods("POST")
	router.HandleFunc("/content/{id}", h.getContent).Methods("GET")
	router.HandleFunc("/content/{id}/interactions", h.recordInteraction).Methods("POST")
	router.HandleFunc("/actors/{id}/history", h.getActorHistory).Methods("GET")
	router.HandleFunc("/metrics/current", h.getCurrentMetrics).Methods("GET")
	router.HandleFunc("/metrics/period/{period}", h.getPeriodMetrics).Methods("GET")
	router.HandleFunc("/alerts", h.getAlerts).Methods("GET")
}

type invocationRequest struct {
	Tool      string  `json:"tool,omitempty"`
	API       string  `json:"api,omitempty"`
	Succeeded bool    `json:"succeeded"`
	LatencyMs float64 `json:"latency_ms"`
}

func (h *Handlers) recordToolInvocation(w http.ResponseWriter, r *http.Request) {
	var req invocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.engine.Recorder().RecordToolInvocation(req.Tool, req.Succeeded, req.LatencyMs)
	h.countIngested(string(EventTool))
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handlers) recordAPIInvocation(w http.ResponseWriter, r *http.Request) {
	var req invocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.engine.Recorder().RecordAPIInvocation(req.API, req.Succeeded, req.LatencyMs)
	h.countIngested(string(EventAPI))
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handlers) registerContent(w http.ResponseWriter, r *http.Request) {
	var desc ContentDescriptor
	if err := json.NewDecoder(r.Body).Decode(&desc); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	item := h.engine.Store().RegisterContent(desc, time.Now())
	if h.metrics != nil {
		h.metrics.ContentItemsTotal.Set(float64(h.engine.Store().ContentCount()))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(item)
}

type interactionRequest struct {
	Action   string            `json:"action"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (h *Handlers) recordInteraction(w http.ResponseWriter, r *http.Request) {
	contentID := mux.Vars(r)["id"]

	var req interactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	actorID := r.Header.Get(actorIDHeader)
	err := h.engine.Recorder().RecordInteraction(contentID, actorID, ActionKind(req.Action), req.Metadata)
	if err != nil {
		if errors.Is(err, ErrInvalidActionKind) {
			if h.metrics != nil {
				h.metrics.EventsRejectedTotal.WithLabelValues("invalid_action_kind").Inc()
			}
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.countIngested(string(EventInteraction))
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handlers) getContent(w http.ResponseWriter, r *http.Request) {
	item, err := h.engine.Store().ContentItem(mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, ErrContentNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(item)
}

func (h *Handlers) getActorHistory(w http.ResponseWriter, r *http.Request) {
	actorID := mux.Vars(r)["id"]
	records := h.engine.Recorder().ActorHistory(actorID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"actor_id": actorID,
		"records":  records,
		"count":    len(records),
	})
}

func (h *Handlers) getCurrentMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.engine.Current())
}

func (h *Handlers) getPeriodMetrics(w http.ResponseWriter, r *http.Request) {
	pm, err := h.engine.MetricsForPeriod(mux.Vars(r)["period"])
	if err != nil {
		if errors.Is(err, ErrUnknownPeriod) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(pm)
}

func (h *Handlers) getAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := h.engine.Evaluator().ActiveAlerts()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

func (h *Handlers) countIngested(kind string) {
	if h.metrics != nil {
		h.metrics.EventsIngestedTotal.WithLabelValues(kind).Inc()
	}
}

// SelfInstrumentation records the engine's own HTTP request latencies
// through the recorder, off the request path. The engine eats its own
// dog food: its API routes show up as API metrics like any upstream.
func SelfInstrumentation(recorder *EventRecorder, log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rw, r)

			latency := float64(time.Since(start).Milliseconds())
			succeeded := rw.status < http.StatusInternalServerError
			async.SafeGoNoError(r.Context(), 5*time.Second, "request telemetry", log, func(context.Context) {
				recorder.RecordAPIInvocation("pulse-api", succeeded, latency)
			})
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}
