package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusMetrics struct {
	// Discovery metrics
	ScansTotal     *prometheus.CounterVec
	ScanDuration   prometheus.Histogram
	ProbesTotal    *prometheus.CounterVec
	ProbesInFlight prometheus.Gauge
	DevicesFound   prometheus.Gauge

	// Traffic metrics
	ConnectionsByProtocol *prometheus.GaugeVec
	TrafficCaptures       *prometheus.CounterVec

	// Alerting metrics
	AlertCounter       *prometheus.CounterVec
	EventCounter       prometheus.Counter
	ClassifierVerdicts *prometheus.CounterVec
}

// NewPrometheusMetrics registers every metric with reg. A nil reg builds
// unregistered metrics, which is what tests want.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		ScansTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "netinsight_scans_total",
			Help: "Subnet sweeps by result",
		}, []string{"result"}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "netinsight_scan_duration_seconds",
			Help:    "Wall time of a subnet sweep",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		ProbesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "netinsight_probes_total",
			Help: "Host probes by outcome",
		}, []string{"outcome"}),
		ProbesInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "netinsight_probes_in_flight",
			Help: "Host probes currently waiting for a reply",
		}),
		DevicesFound: factory.NewGauge(prometheus.GaugeOpts{
			Name: "netinsight_devices_discovered",
			Help: "Active devices found by the last sweep",
		}),
		ConnectionsByProtocol: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "netinsight_connections",
			Help: "Counted connections in the last traffic snapshot",
		}, []string{"protocol"}),
		TrafficCaptures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "netinsight_traffic_captures_total",
			Help: "Connection-table captures by result",
		}, []string{"result"}),
		AlertCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "netinsight_alerts_total",
			Help: "Alerts raised by severity and source",
		}, []string{"severity", "source"}),
		EventCounter: factory.NewCounter(prometheus.CounterOpts{
			Name: "netinsight_events_total",
			Help: "Events appended to the event log",
		}),
		ClassifierVerdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "netinsight_classifier_verdicts_total",
			Help: "Anomaly classifier verdicts",
		}, []string{"verdict"}),
	}
}
