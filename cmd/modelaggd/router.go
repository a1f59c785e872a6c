package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nimbus-labs/model-aggregator/catalog"
	"github.com/nimbus-labs/model-aggregator/internal/clearlimit"
	"github.com/nimbus-labs/model-aggregator/internal/logging"
	"github.com/nimbus-labs/model-aggregator/internal/statsring"
	"github.com/nimbus-labs/model-aggregator/internal/version"
	"github.com/nimbus-labs/model-aggregator/tasks"
	"github.com/nimbus-labs/model-aggregator/web"
)

type server struct {
	store       *catalog.Store
	stats       *statsring.Ring
	manager     *tasks.Manager
	clearLimit  *clearlimit.Limiter
	corsOrigins []string
	staticUI    bool
}

func newRouter(s *server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware)
	r.Use(corsMiddleware(s.corsOrigins...))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("OK"))
	})

	r.Get("/v1/models", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"object": "list",
			"data":   s.store.Snapshot(),
		})
	})

	r.Get("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		q := statsring.Query{}
		if limit := r.URL.Query().Get("limit"); limit != "" {
			if n, err := strconv.Atoi(limit); err == nil {
				q.Limit = n
			}
		}
		writeJSON(w, http.StatusOK, s.stats.List(q))
	})

	r.Post("/api/clear", func(w http.ResponseWriter, r *http.Request) {
		if !s.clearLimit.Allow() {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}
		s.manager.Restart(context.WithoutCancel(r.Context()))
		logging.FromContext(r.Context()).Info("catalog cleared via /api/clear")
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "clearing"})
	})

	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": version.String()})
	})

	r.Handle("/metrics", promhttp.Handler())

	if s.staticUI {
		r.Handle("/*", http.FileServer(http.FS(web.Assets)))
	}

	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

