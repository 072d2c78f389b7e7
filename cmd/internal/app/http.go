package app

import (
	"net/http"
	"sort"
	"time"

	authapi "taskflow/cmd/internal/auth/api"
	"taskflow/cmd/internal/httpx"
	"taskflow/cmd/internal/realtime"
	taskapi "taskflow/cmd/internal/tasks/api"
)

const (
	wsPath   = "/ws/tasks"
	docsPath = "/docs"
)

type routes struct {
	log     Logger
	cfg     Config
	db      *Database
	metrics *Metrics
	ws      *realtime.WSGateway
	auth    *authapi.Handler
	tasks   *taskapi.Handler
}

type rootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
	Docs    string `json:"docs"`
}

type docsResponse struct {
	Title   string   `json:"title"`
	Version string   `json:"version"`
	Routes  []string `json:"routes"`
}

// patternRecorder remembers every pattern registered through it so /docs can
// list them. It satisfies httpx.Router.
type patternRecorder struct {
	mux      *http.ServeMux
	patterns []string
}

func (p *patternRecorder) Handle(pattern string, h http.Handler) {
	p.patterns = append(p.patterns, pattern)
	p.mux.Handle(pattern, h)
}

func (p *patternRecorder) HandleFunc(pattern string, h func(http.ResponseWriter, *http.Request)) {
	p.Handle(pattern, http.HandlerFunc(h))
}

func registerHTTP(mux *http.ServeMux, rt routes) {
	rec := &patternRecorder{mux: mux}

	rec.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, rootResponse{
			Message: "Welcome to " + rt.cfg.ProjectName,
			Version: Version,
			Docs:    docsPath,
		})
	})

	rec.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	rec.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	rec.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if rt.cfg.ReadinessRequireDB && rt.db == nil {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}

		if rt.db != nil {
			if err := PingDB(r.Context(), rt.db.Pool, 2*time.Second); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				rt.log.Warn("readyz.db.not_ready", "err", err)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	rec.Handle("GET /metrics", rt.metrics.Handler())
	rec.Handle("GET "+wsPath, rt.ws)

	rt.auth.Register(rec, rt.cfg.APIPrefix)
	rt.tasks.Register(rec, rt.cfg.APIPrefix)

	listed := append([]string{"GET " + docsPath}, rec.patterns...)
	sort.Strings(listed)
	mux.HandleFunc("GET "+docsPath, func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, docsResponse{
			Title:   rt.cfg.ProjectName,
			Version: Version,
			Routes:  listed,
		})
	})
}
