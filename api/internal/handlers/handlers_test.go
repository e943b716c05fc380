package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"netinsight/internal/app"
	"netinsight/internal/client"
	"netinsight/internal/model"
	"netinsight/internal/utils"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tablePinger map[string]bool

func (p tablePinger) Ping(ctx context.Context, ip string) (bool, error) {
	return p[ip], nil
}

type emptyResolver struct{}

func (emptyResolver) LookupAddr(ctx context.Context, ip string) (string, error) { return "", nil }
func (emptyResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	return []string{"10.0.0.1"}, nil
}

type scriptRunner map[string]string

func (r scriptRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	out, ok := r[name]
	if !ok {
		return "", fmt.Errorf("%s: executable file not found", name)
	}
	return out, nil
}

const connections = "tcp 0 0 10.0.0.5:443 10.0.0.9:51000 ESTABLISHED\n" +
	"tcp 0 0 10.0.0.5:443 10.0.0.9:51000 ESTABLISHED\n" +
	"tcp 0 0 10.0.0.5:443 10.0.0.9:51000 ESTABLISHED\n" +
	"tcp 0 0 10.0.0.6:40022 10.0.0.1:80 SYN_SENT\n"

type deniedPinger struct{}

func (deniedPinger) Ping(ctx context.Context, ip string) (bool, error) {
	return false, fmt.Errorf("socket: %w", syscall.EPERM)
}

func newTestServer(t *testing.T, runner scriptRunner, alive client.Pinger) (*httptest.Server, *app.App) {
	t.Helper()

	config := utils.GetDefaultConfig()
	config.Classifier.ModelPath = filepath.Join(t.TempDir(), "missing.yaml")
	require.NoError(t, config.Validate())

	logger := logrus.New()
	a, err := app.New(config, logger, "netinsight_test", app.Deps{
		Runner:   runner,
		Pinger:   alive,
		Resolver: emptyResolver{},
	})
	require.NoError(t, err)

	h := NewHandlers(Options{
		Diagnostics: a.Diagnostics,
		Alerts:      a.Alerts,
		Events:      a.Events,
		Rules:       a.Rules,
		Scanner:     a.Scanner,
		Hosts:       a.Hosts,
		Logger:      logger,
	})
	srv := httptest.NewServer(NewRouter(h, nil, a.Registry))
	t.Cleanup(srv.Close)
	return srv, a
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func TestDiscoverEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, scriptRunner{}, tablePinger{})

	resp, err := http.Get(srv.URL + "/api/v1/discovery?subnet=10.0.0.0/30")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Result       model.DiscoveryReport `json:"result"`
		AlertsRaised []model.Alert         `json:"alerts_raised"`
	}
	decode(t, resp, &body)
	assert.Equal(t, 2, body.Result.TotalHosts)
	assert.Equal(t, 0, body.Result.DiscoveredHosts)
	assert.Empty(t, body.Result.Devices)
	assert.Empty(t, body.AlertsRaised)

	resp, err = http.Get(srv.URL + "/api/v1/discovery")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestDiscoverPostRaisesAlert(t *testing.T) {
	alive := tablePinger{"10.0.0.1": true, "10.0.0.2": true, "10.0.0.3": true, "10.0.0.4": true}
	srv, _ := newTestServer(t, scriptRunner{}, alive)

	resp := postJSON(t, srv.URL+"/api/v1/discovery", map[string]string{"subnet": "10.0.0.0/29"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		AlertsRaised []model.Alert `json:"alerts_raised"`
	}
	decode(t, resp, &body)
	require.Len(t, body.AlertsRaised, 1)
	assert.Equal(t, model.SeverityMedium, body.AlertsRaised[0].Severity)

	resp, err := http.Get(srv.URL + "/api/v1/alerts/" + body.AlertsRaised[0].ID)
	require.NoError(t, err)
	var got model.Alert
	decode(t, resp, &got)
	assert.Equal(t, body.AlertsRaised[0].ID, got.ID)
}

func TestDiscoverWithoutICMPPermission(t *testing.T) {
	srv, a := newTestServer(t, scriptRunner{}, deniedPinger{})

	resp, err := http.Get(srv.URL + "/api/v1/discovery?subnet=127.0.0.0/29")
	require.NoError(t, err)

	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body["error"], "probe not permitted")
	assert.Nil(t, a.Scanner.LastReport())
	assert.Empty(t, a.Events.Recent(100))
}

func TestErrorMapping(t *testing.T) {
	srv, _ := newTestServer(t, scriptRunner{}, tablePinger{})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"invalid subnet", "GET", "/api/v1/discovery?subnet=banana", "", http.StatusBadRequest},
		{"no discovery yet", "GET", "/api/v1/discovery", "", http.StatusNotFound},
		{"bad body", "POST", "/api/v1/discovery", "{", http.StatusBadRequest},
		{"missing subnet", "POST", "/api/v1/discovery", "{}", http.StatusBadRequest},
		{"traffic source down", "GET", "/api/v1/traffic", "", http.StatusServiceUnavailable},
		{"classifier missing", "POST", "/api/v1/anomalies/predict", `{"avg_rtt":1,"max_rtt":2,"num_hops":3}`, http.StatusServiceUnavailable},
		{"unknown severity", "GET", "/api/v1/alerts?severity=urgent", "", http.StatusBadRequest},
		{"unknown alert", "GET", "/api/v1/alerts/ALERT-999", "", http.StatusNotFound},
		{"bad limit", "GET", "/api/v1/events?limit=zero", "", http.StatusBadRequest},
		{"ping missing binary", "GET", "/api/v1/diagnostics/ping/example.com", "", http.StatusBadGateway},
		{"flag as host", "GET", "/api/v1/diagnostics/traceroute/-n", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)

			var body map[string]string
			decode(t, resp, &body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestTrafficEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, scriptRunner{"netstat": connections}, tablePinger{})

	resp, err := http.Get(srv.URL + "/api/v1/traffic")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Result model.FlowSnapshot `json:"result"`
	}
	decode(t, resp, &body)
	assert.Equal(t, 4, body.Result.Protocols["TCP"])
	assert.Equal(t, model.TalkerCount{IP: "10.0.0.5", Count: 3}, body.Result.TopSources[0])

	resp = postJSON(t, srv.URL+"/api/v1/traffic", map[string]string{"text": strings.Repeat("tcp 0 0 10.0.0.7:1 10.0.0.8:2 ESTABLISHED\n", 51)})
	var posted struct {
		Result       model.FlowSnapshot `json:"result"`
		AlertsRaised []model.Alert      `json:"alerts_raised"`
	}
	decode(t, resp, &posted)
	assert.Equal(t, 51, posted.Result.Protocols["TCP"])
	require.Len(t, posted.AlertsRaised, 1)
	assert.Equal(t, "traffic", posted.AlertsRaised[0].Source)
}

func TestAlertsAndEvents(t *testing.T) {
	srv, a := newTestServer(t, scriptRunner{}, tablePinger{})
	for _, sev := range []string{"high", "low", "high"} {
		_, err := a.Alerts.Raise(sev, "t", "d", "")
		require.NoError(t, err)
	}

	resp, err := http.Get(srv.URL + "/api/v1/alerts?severity=high")
	require.NoError(t, err)
	var list model.AlertList
	decode(t, resp, &list)
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, "ALERT-3", list.Alerts[0].ID)
	assert.Equal(t, 1, list.CountsBySeverity[model.SeverityLow])
	assert.Equal(t, 0, list.CountsBySeverity[model.SeverityCritical])

	resp, err = http.Get(srv.URL + "/api/v1/events?limit=2")
	require.NoError(t, err)
	var events struct {
		Items []model.Event `json:"items"`
		Total int           `json:"total"`
	}
	decode(t, resp, &events)
	assert.Equal(t, 2, events.Total)
	assert.Contains(t, events.Items[1].Text, "ALERT-3")
}

func TestHostDiagnosticsEndpoints(t *testing.T) {
	runner := scriptRunner{
		"ping":       "4 packets transmitted, 4 received, 0% packet loss\nrtt min/avg/max/mdev = 1.0/2.0/3.0/0.5 ms\n",
		"traceroute": "traceroute to example.com\n 1  gw (10.0.0.1)  1.000 ms\n 2  example.com (93.184.216.34)  9.500 ms\n",
	}
	srv, _ := newTestServer(t, runner, tablePinger{})

	resp, err := http.Get(srv.URL + "/api/v1/diagnostics/ping/example.com")
	require.NoError(t, err)
	var ping map[string]interface{}
	decode(t, resp, &ping)
	assert.Equal(t, 2.0, ping["avg_rtt"])

	resp, err = http.Get(srv.URL + "/api/v1/diagnostics/dns/router.lan")
	require.NoError(t, err)
	var dnsRes map[string]interface{}
	decode(t, resp, &dnsRes)
	assert.Equal(t, []interface{}{"10.0.0.1"}, dnsRes["addresses"])

	resp, err = http.Get(srv.URL + "/api/v1/diagnostics/host/example.com")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var diag struct {
		Result struct {
			Features         model.Features `json:"features"`
			ClassifierStatus string         `json:"classifier_status"`
		} `json:"result"`
	}
	decode(t, resp, &diag)
	assert.Equal(t, model.Features{AvgRTT: 2, MaxRTT: 9.5, NumHops: 2}, diag.Result.Features)
	assert.Equal(t, "unavailable", diag.Result.ClassifierStatus)
}

func TestRulesHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t, scriptRunner{}, tablePinger{})

	resp, err := http.Get(srv.URL + "/api/v1/rules")
	require.NoError(t, err)
	var rules []map[string]interface{}
	decode(t, resp, &rules)
	assert.Len(t, rules, 4)

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "go_goroutines")
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, scriptRunner{}, tablePinger{})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/alerts", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))

	req, err = http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/alerts", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestCORSWildcardOrigin(t *testing.T) {
	handler := corsMiddleware([]string{"*"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil)
	req.Header.Set("Origin", "http://dashboard.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestStreamAlerts(t *testing.T) {
	srv, a := newTestServer(t, scriptRunner{}, tablePinger{})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/stream/alerts?severity=high"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The subscription is registered after the upgrade completes, so keep
	// raising until one arrives.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_, _ = a.Alerts.Raise("low", "filtered", "", "test")
				_, _ = a.Alerts.Raise("high", "probe", "", "test")
			}
		}
	}()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var got model.Alert
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, model.SeverityHigh, got.Severity)
	assert.Equal(t, "probe", got.Title)
}
