// Package httpapi exposes the retrieval engine over HTTP with chi routing: a
// context-build endpoint, cache reset and stats endpoints, and a WebSocket
// endpoint that acknowledges the connection and closes. No benchmark progress
// is streamed over it.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/lerianstudio/memory-retrieval/internal/engine"
	"github.com/lerianstudio/memory-retrieval/internal/logging"
	"github.com/lerianstudio/memory-retrieval/internal/types"
)

// Router wires the retrieval Engine into an http.Handler.
type Router struct {
	mux     *chi.Mux
	engine  *engine.Engine
	log     logging.Logger
	upgrade websocket.Upgrader
}

// NewRouter builds a Router around eng, logging through log.
func NewRouter(eng *engine.Engine, log logging.Logger) *Router {
	r := &Router{
		mux:    chi.NewRouter(),
		engine: eng,
		log:    log.WithComponent("httpapi"),
		upgrade: websocket.Upgrader{
			ReadBufferSize: 1024, WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	r.setupMiddleware()
	r.setupRoutes()
	return r
}

// Handler returns the assembled http.Handler.
func (r *Router) Handler() http.Handler { return r.mux }

func (r *Router) setupMiddleware() {
	r.mux.Use(chimiddleware.Recoverer)
	r.mux.Use(chimiddleware.RequestID)
	r.mux.Use(chimiddleware.Timeout(30 * time.Second))
	r.mux.Use(chimiddleware.Heartbeat("/ping"))
}

func (r *Router) setupRoutes() {
	r.mux.Post("/v1/context", r.handleBuildContext)
	r.mux.Post("/v1/cache/reset", r.handleResetCache)
	r.mux.Get("/v1/cache/stats", r.handleCacheStats)
	r.mux.Get("/v1/benchmark/stream", r.handleBenchmarkStream)
}

type buildContextRequest struct {
	Query            string         `json:"query"`
	TokenBudget      int            `json:"tokenBudget"`
	IncludeCodeGraph bool           `json:"includeCodeGraph"`
	IncludeGraphRAG  bool           `json:"includeGraphRAG"`
	IncludeEvidence  bool           `json:"includeEvidence"`
	Template         string         `json:"template"`
	Filters          types.Filters  `json:"filters"`
}

func (r *Router) handleBuildContext(w http.ResponseWriter, req *http.Request) {
	var body buildContextRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if body.Query == "" {
		writeError(w, http.StatusBadRequest, errMissingQuery)
		return
	}

	input := types.ContextInput{
		Query: body.Query, TokenBudget: body.TokenBudget,
		IncludeCodeGraph: body.IncludeCodeGraph, IncludeGraphRAG: body.IncludeGraphRAG,
		IncludeEvidence: body.IncludeEvidence, Template: types.Template(body.Template),
		Filters: body.Filters, RequestedAt: time.Now(),
	}

	result, err := r.engine.BuildContext(req.Context(), input)
	if err != nil {
		r.log.Error("build context failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (r *Router) handleResetCache(w http.ResponseWriter, req *http.Request) {
	r.engine.ResetCache()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) handleCacheStats(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, r.engine.CacheStats())
}

// handleBenchmarkStream upgrades to a WebSocket, writes a single
// {"status":"connected"} acknowledgement, and closes the connection. No
// benchmark progress is sent; benchmark runs are driven by the benchmark CLI.
func (r *Router) handleBenchmarkStream(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrade.Upgrade(w, req, nil)
	if err != nil {
		r.log.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	_ = conn.WriteJSON(map[string]string{"status": "connected"})
}

var errMissingQuery = jsonError("query is required")

type jsonError string

func (e jsonError) Error() string { return string(e) }

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
