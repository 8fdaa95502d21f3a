package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-go-golems/cmdbridge/pkg/bridge"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CacheView is the JSON body of GET /cache.
type CacheView struct {
	Keys []string `json:"keys"`
	Len  int      `json:"len"`
}

// ListenersView is the JSON body of GET /channels/{channel}/listeners.
type ListenersView struct {
	Channel   string   `json:"channel"`
	Listeners []string `json:"listeners"`
}

// NewMux exposes health, metrics and read-only views of a bridge.
func NewMux(b *bridge.Bridge, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	// UI webviews read these views from their own origin.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/cache", func(w http.ResponseWriter, r *http.Request) {
		c := b.Cache()
		writeJSON(w, http.StatusOK, CacheView{Keys: c.Keys(), Len: c.Len()})
	})

	r.Get("/cache/{command}", func(w http.ResponseWriter, r *http.Request) {
		ev, ok := b.Cache().Get(bridge.CacheKey(chi.URLParam(r, "command")))
		if !ok {
			writeJSONError(w, http.StatusNotFound, "no cached result")
			return
		}
		writeJSON(w, http.StatusOK, ev)
	})

	r.Get("/channels/{channel}/listeners", func(w http.ResponseWriter, r *http.Request) {
		ch := chi.URLParam(r, "channel")
		writeJSON(w, http.StatusOK, ListenersView{Channel: ch, Listeners: b.Registry().Listeners(ch)})
	})

	if gatherer != nil {
		r.Get("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}).ServeHTTP)
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
		"code":  status,
	})
}
