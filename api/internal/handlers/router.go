package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var defaultAllowedOrigins = []string{
	"http://localhost:5000",
	"http://localhost:3000",
	"http://127.0.0.1:5000",
	"http://127.0.0.1:3000",
}

// NewRouter mounts every endpoint under /api/v1 plus /health and /metrics.
func NewRouter(h *Handlers, allowedOrigins []string, gatherer prometheus.Gatherer) *mux.Router {
	if len(allowedOrigins) == 0 {
		allowedOrigins = defaultAllowedOrigins
	}

	router := mux.NewRouter()
	router.Use(corsMiddleware(allowedOrigins))

	api := router.PathPrefix("/api/v1").Subrouter()

	// Discovery endpoints
	api.HandleFunc("/discovery", h.Discover).Methods("GET").Queries("subnet", "{subnet}")
	api.HandleFunc("/discovery", h.Discover).Methods("POST")
	api.HandleFunc("/discovery", h.GetLastDiscovery).Methods("GET")

	// Traffic endpoints
	api.HandleFunc("/traffic", h.AnalyzeTraffic).Methods("GET")
	api.HandleFunc("/traffic", h.AggregateTraffic).Methods("POST")

	// Anomaly endpoints
	api.HandleFunc("/anomalies/predict", h.PredictAnomaly).Methods("POST")

	// Alerts endpoints
	api.HandleFunc("/stream/alerts", h.StreamAlerts).Methods("GET")
	api.HandleFunc("/alerts", h.GetAlerts).Methods("GET")
	api.HandleFunc("/alerts/{id}", h.GetAlert).Methods("GET")

	// Events and rules
	api.HandleFunc("/events", h.GetEvents).Methods("GET")
	api.HandleFunc("/rules", h.GetRules).Methods("GET")

	// Host diagnostics
	api.HandleFunc("/diagnostics/ping/{host}", h.Ping).Methods("GET")
	api.HandleFunc("/diagnostics/traceroute/{host}", h.Traceroute).Methods("GET")
	api.HandleFunc("/diagnostics/dns/{host}", h.LookupDNS).Methods("GET")
	api.HandleFunc("/diagnostics/host/{host}", h.DiagnoseHost).Methods("GET")

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods("GET", "OPTIONS")

	// CORS preflight for any path
	router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	if gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}

	return router
}

// corsMiddleware echoes the request origin when it is on the allowlist. A "*"
// entry opens the API to any origin without credentials. Unknown origins get
// no CORS headers.
func corsMiddleware(allowedOrigins []string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowOrigin := matchOrigin(allowedOrigins, r.Header.Get("Origin")); allowOrigin != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
				w.Header().Set("Access-Control-Max-Age", "3600")
				w.Header().Add("Vary", "Origin")
				if allowOrigin != "*" {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func matchOrigin(allowedOrigins []string, origin string) string {
	if origin == "" {
		return ""
	}
	for _, allowed := range allowedOrigins {
		switch allowed {
		case origin:
			return origin
		case "*":
			return "*"
		}
	}
	return ""
}
