package pipeline

import (
	"context"
	"errors"
	"fmt"

	"netinsight/internal/classifier"
	"netinsight/internal/client"
	"netinsight/internal/hostdiag"
	"netinsight/internal/model"
	"netinsight/internal/storage"
	"netinsight/internal/traffic"

	"github.com/sirupsen/logrus"
)

// Result is what every facade operation returns: the component's output
// plus the alerts the rules raised for it.
type Result[T any] struct {
	Result       T             `json:"result"`
	AlertsRaised []model.Alert `json:"alerts_raised"`
}

type Discoverer interface {
	Discover(ctx context.Context, cidr string) (*model.DiscoveryReport, error)
}

type FlowAggregator interface {
	Aggregate(text string) model.FlowSnapshot
}

type HostDiagnoser interface {
	Diagnose(ctx context.Context, host string) (*hostdiag.HostReport, error)
}

// ClassifierStatus values reported by DiagnoseHost.
const (
	ClassifierOK          = "ok"
	ClassifierUnavailable = "unavailable"
)

// HostDiagnosis is a host report plus the classifier's opinion of it. When
// no model is loaded Verdict is nil and ClassifierStatus says so.
type HostDiagnosis struct {
	*hostdiag.HostReport
	Verdict          *model.ClassifierVerdict `json:"verdict,omitempty"`
	ClassifierStatus string                   `json:"classifier_status"`
}

// Diagnostics runs one component call, records an event for it, evaluates
// the rules and returns the outcome. Component errors are returned
// unchanged and nothing is retried.
type Diagnostics struct {
	scanner    Discoverer
	aggregator FlowAggregator
	source     traffic.Source
	classifier classifier.Classifier
	hosts      HostDiagnoser
	processor  *Processor
	events     *storage.EventLog
	metrics    *client.PrometheusMetrics
	logger     *logrus.Logger
}

type Options struct {
	Scanner    Discoverer
	Aggregator FlowAggregator
	Source     traffic.Source
	Classifier classifier.Classifier
	Hosts      HostDiagnoser
	Processor  *Processor
	Events     *storage.EventLog
	Metrics    *client.PrometheusMetrics
	Logger     *logrus.Logger
}

func NewDiagnostics(opts Options) *Diagnostics {
	c := opts.Classifier
	if c == nil {
		c = classifier.Unavailable{Reason: "no model loaded"}
	}
	return &Diagnostics{
		scanner:    opts.Scanner,
		aggregator: opts.Aggregator,
		source:     opts.Source,
		classifier: c,
		hosts:      opts.Hosts,
		processor:  opts.Processor,
		events:     opts.Events,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
	}
}

func (d *Diagnostics) Discover(ctx context.Context, cidr string) (*Result[*model.DiscoveryReport], error) {
	report, err := d.scanner.Discover(ctx, cidr)
	if err != nil {
		return nil, err
	}

	d.record("Network discovery on %s: %d of %d hosts active", report.Subnet, report.DiscoveredHosts, report.TotalHosts)
	return finish(ctx, d, report, &model.Observation{Discovery: report})
}

// AnalyzeTraffic captures the live connection table and aggregates it.
func (d *Diagnostics) AnalyzeTraffic(ctx context.Context) (*Result[model.FlowSnapshot], error) {
	if d.source == nil {
		return nil, fmt.Errorf("%w: no source configured", traffic.ErrSourceUnavailable)
	}
	text, err := d.source.Capture(ctx)
	if err != nil {
		return nil, err
	}
	return d.AggregateTraffic(ctx, text)
}

// AggregateTraffic aggregates connection-table text supplied by the caller.
func (d *Diagnostics) AggregateTraffic(ctx context.Context, text string) (*Result[model.FlowSnapshot], error) {
	snapshot := d.aggregator.Aggregate(text)

	if top, ok := snapshot.TopSource(); ok {
		d.record("Traffic analysis: %d connections, top source %s (%d)", snapshot.TotalConnections(), top.IP, top.Count)
	} else {
		d.record("Traffic analysis: %d connections", snapshot.TotalConnections())
	}
	return finish(ctx, d, snapshot, &model.Observation{Traffic: &snapshot})
}

func (d *Diagnostics) Predict(ctx context.Context, features model.Features) (*Result[model.ClassifierVerdict], error) {
	verdict, err := d.classify(ctx, features)
	if err != nil {
		return nil, err
	}
	return finish(ctx, d, verdict, &model.Observation{Verdict: &verdict})
}

// DiagnoseHost pings and traceroutes host, then classifies the derived
// features. A missing classifier does not fail the diagnosis.
func (d *Diagnostics) DiagnoseHost(ctx context.Context, host string) (*Result[HostDiagnosis], error) {
	report, err := d.hosts.Diagnose(ctx, host)
	if err != nil {
		return nil, err
	}
	d.record("Host diagnosis of %s: %.0f hops, avg rtt %.3f ms, %.0f%% packet loss",
		host, report.Features.NumHops, report.Features.AvgRTT, report.Ping.PacketLoss)

	obs := &model.Observation{Host: &model.HostSample{
		Host:       host,
		AvgRTT:     report.Ping.AvgRTT,
		MaxRTT:     report.Features.MaxRTT,
		PacketLoss: report.Ping.PacketLoss,
	}}
	diagnosis := HostDiagnosis{HostReport: report, ClassifierStatus: ClassifierOK}

	verdict, err := d.classify(ctx, report.Features)
	switch {
	case errors.Is(err, classifier.ErrClassifierUnavailable):
		diagnosis.ClassifierStatus = ClassifierUnavailable
	case err != nil:
		return nil, err
	default:
		diagnosis.Verdict = &verdict
		obs.Verdict = &verdict
	}
	return finish(ctx, d, diagnosis, obs)
}

func (d *Diagnostics) classify(ctx context.Context, features model.Features) (model.ClassifierVerdict, error) {
	v, err := d.classifier.Predict(ctx, features)
	if err != nil {
		return model.ClassifierVerdict{}, err
	}

	verdict := model.NewClassifierVerdict(features, v)
	if d.metrics != nil {
		d.metrics.ClassifierVerdicts.WithLabelValues(v.String()).Inc()
	}
	d.record("Anomaly prediction (avg_rtt=%.3f max_rtt=%.3f num_hops=%.0f): %s",
		features.AvgRTT, features.MaxRTT, features.NumHops, verdict.Result)
	return verdict, nil
}

func (d *Diagnostics) record(format string, args ...interface{}) {
	d.events.Append(fmt.Sprintf(format, args...))
	if d.metrics != nil {
		d.metrics.EventCounter.Inc()
	}
}

func finish[T any](ctx context.Context, d *Diagnostics, result T, obs *model.Observation) (*Result[T], error) {
	raised, err := d.processor.Process(ctx, obs)
	if err != nil {
		return nil, err
	}
	return &Result[T]{Result: result, AlertsRaised: raised}, nil
}
