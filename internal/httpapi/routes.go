// Package httpapi exposes the summary pipeline and its catalogs over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"qfusion/internal/common/logger"
	"qfusion/internal/common/runlog"
	"qfusion/internal/models"
	summarizeentity "qfusion/internal/workers/insights/summarize-entity"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 200
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

type Options struct {
	Summary    *summarizeentity.Handler
	Translator summarizeentity.Translator
	Insights   summarizeentity.InsightsFetcher
	Recorder   runlog.Recorder
	Checks     map[string]HealthCheck
	Logger     logger.Logger
}

type API struct {
	summary    *summarizeentity.Handler
	translator summarizeentity.Translator
	insights   summarizeentity.InsightsFetcher
	recorder   runlog.Recorder
	checks     map[string]HealthCheck
	logger     logger.Logger
}

func New(opts Options) *API {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &API{
		summary:    opts.Summary,
		translator: opts.Translator,
		insights:   opts.Insights,
		recorder:   opts.Recorder,
		checks:     opts.Checks,
		logger:     log.WithFields(map[string]interface{}{"component": "httpapi"}),
	}
}

// RegisterRoutes wires every route onto r.
func (a *API) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", a.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/ready", a.readyHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/entities", a.entitiesHandler).Methods(http.MethodGet)
	api.HandleFunc("/models", a.modelsHandler).Methods(http.MethodGet)
	api.HandleFunc("/debug/runs", a.runsHandler).Methods(http.MethodGet)
	api.HandleFunc("/{entity}/summary", a.summaryHandler).Methods(http.MethodPost)

	r.HandleFunc("/qloo/genre/{genre}", a.genreHandler).Methods(http.MethodGet)
}

func (a *API) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (a *API) readyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(a.checks))
	for name, check := range a.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}
	writeJSON(w, status, map[string]interface{}{
		"status": state,
		"checks": results,
		"time":   time.Now().Format(time.RFC3339),
	})
}

type entityView struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Endpoint string   `json:"endpoint"`
	Params   []string `json:"params"`
	Required []string `json:"required"`
}

func (a *API) entitiesHandler(w http.ResponseWriter, r *http.Request) {
	descs := models.EntityTypes()
	out := make([]entityView, 0, len(descs))
	for _, d := range descs {
		required := d.RequiredRawParams
		if required == nil {
			required = []string{}
		}
		out = append(out, entityView{
			Key:      d.Key(),
			Label:    d.Label,
			Endpoint: d.Endpoint(),
			Params:   d.Params(),
			Required: required,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) modelsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"default": models.CompletionModels[0],
		"models":  models.CompletionModels,
	})
}

func (a *API) runsHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, failure("limit must be a positive integer", ""))
			return
		}
		limit = min(n, maxRunLimit)
	}

	runs, err := a.recorder.Recent(r.Context(), limit)
	if err != nil {
		a.logger.Error("failed to read run log", map[string]interface{}{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, failure("run log unavailable", ""))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
