package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"netinsight/internal/alert"
	"netinsight/internal/classifier"
	"netinsight/internal/discovery"
	"netinsight/internal/hostdiag"
	"netinsight/internal/model"
	"netinsight/internal/pipeline"
	"netinsight/internal/rules"
	"netinsight/internal/storage"
	"netinsight/internal/traffic"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// HostTools runs the single-command diagnostics.
type HostTools interface {
	Ping(ctx context.Context, host string) (*hostdiag.PingResult, error)
	Traceroute(ctx context.Context, host string) (*hostdiag.TracerouteResult, error)
	LookupDNS(ctx context.Context, host string) (*hostdiag.DNSResult, error)
}

type Handlers struct {
	diag     *pipeline.Diagnostics
	alerts   *alert.Engine
	events   *storage.EventLog
	rules    *rules.Engine
	scanner  *discovery.Scanner
	hosts    HostTools
	logger   *logrus.Logger
	upgrader websocket.Upgrader
}

type Options struct {
	Diagnostics *pipeline.Diagnostics
	Alerts      *alert.Engine
	Events      *storage.EventLog
	Rules       *rules.Engine
	Scanner     *discovery.Scanner
	Hosts       HostTools
	Logger      *logrus.Logger
}

func NewHandlers(opts Options) *Handlers {
	logger := opts.Logger
	return &Handlers{
		diag:    opts.Diagnostics,
		alerts:  opts.Alerts,
		events:  opts.Events,
		rules:   opts.Rules,
		scanner: opts.Scanner,
		hosts:   opts.Hosts,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				logger.Debugf("WebSocket origin check: %s", r.Header.Get("Origin"))
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

type discoveryRequest struct {
	Subnet string `json:"subnet"`
}

type trafficRequest struct {
	Text string `json:"text"`
}

// Discovery handlers

// Discover sweeps ?subnet= (GET) or {"subnet": ...} (POST).
func (h *Handlers) Discover(w http.ResponseWriter, r *http.Request) {
	subnet := r.URL.Query().Get("subnet")
	if r.Method == http.MethodPost {
		var req discoveryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		subnet = req.Subnet
	}
	if subnet == "" {
		writeError(w, http.StatusBadRequest, "subnet is required")
		return
	}

	res, err := h.diag.Discover(r.Context(), subnet)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) GetLastDiscovery(w http.ResponseWriter, r *http.Request) {
	report := h.scanner.LastReport()
	if report == nil {
		writeError(w, http.StatusNotFound, "No discovery has completed yet")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Traffic handlers

// AnalyzeTraffic reads the live connection table.
func (h *Handlers) AnalyzeTraffic(w http.ResponseWriter, r *http.Request) {
	res, err := h.diag.AnalyzeTraffic(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// AggregateTraffic aggregates connection-table text posted by the caller.
func (h *Handlers) AggregateTraffic(w http.ResponseWriter, r *http.Request) {
	var req trafficRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.diag.AggregateTraffic(r.Context(), req.Text)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Anomaly handlers
func (h *Handlers) PredictAnomaly(w http.ResponseWriter, r *http.Request) {
	var features model.Features
	if err := json.NewDecoder(r.Body).Decode(&features); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.diag.Predict(r.Context(), features)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Alerts handlers
func (h *Handlers) GetAlerts(w http.ResponseWriter, r *http.Request) {
	list, err := h.alerts.List(r.URL.Query().Get("severity"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handlers) GetAlert(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	a, ok := h.alerts.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Alert not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// StreamAlerts pushes every newly raised alert over a websocket.
// ?severity= and ?source= narrow the stream.
func (h *Handlers) StreamAlerts(w http.ResponseWriter, r *http.Request) {
	var filter storage.AlertFilter
	if s := r.URL.Query().Get("severity"); s != "" {
		sev, ok := model.ParseSeverity(s)
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid severity")
			return
		}
		filter.Severity = sev
	}
	filter.Source = r.URL.Query().Get("source")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	sub := h.alerts.Subscribe(generateID(), filter, 100)
	defer h.alerts.Unsubscribe(sub)
	h.logger.Debugf("Alert stream %s opened from %s", sub.ID, r.RemoteAddr)

	// The read loop only exists to notice the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case a, ok := <-sub.Channel:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(a); err != nil {
				h.logger.Errorf("WebSocket write error: %v", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		case <-closed:
			h.logger.Debugf("Alert stream %s closed", sub.ID)
			return
		}
	}
}

// Events handlers
func (h *Handlers) GetEvents(w http.ResponseWriter, r *http.Request) {
	events := h.events.Snapshot()
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		events = h.events.Recent(limit)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": events,
		"total": len(events),
	})
}

// Rules handlers
func (h *Handlers) GetRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.rules.Rules())
}

// Host diagnostics handlers
func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	res, err := h.hosts.Ping(r.Context(), mux.Vars(r)["host"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) Traceroute(w http.ResponseWriter, r *http.Request) {
	res, err := h.hosts.Traceroute(r.Context(), mux.Vars(r)["host"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) LookupDNS(w http.ResponseWriter, r *http.Request) {
	res, err := h.hosts.LookupDNS(r.Context(), mux.Vars(r)["host"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) DiagnoseHost(w http.ResponseWriter, r *http.Request) {
	res, err := h.diag.DiagnoseHost(r.Context(), mux.Vars(r)["host"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Errorf("Request failed: %v", err)
	} else {
		h.logger.Debugf("Request rejected: %v", err)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, discovery.ErrInvalidSubnet),
		errors.Is(err, discovery.ErrInvalidAddress),
		errors.Is(err, alert.ErrInvalidSeverity),
		errors.Is(err, hostdiag.ErrInvalidHost):
		return http.StatusBadRequest
	case errors.Is(err, traffic.ErrSourceUnavailable),
		errors.Is(err, classifier.ErrClassifierUnavailable),
		errors.Is(err, discovery.ErrResourceExhausted),
		errors.Is(err, discovery.ErrProbeNotPermitted):
		return http.StatusServiceUnavailable
	case errors.Is(err, hostdiag.ErrCommandFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

func generateID() string {
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}
