package builtin

import (
	"context"
	"fmt"

	"netinsight/internal/model"

	"github.com/sirupsen/logrus"
)

// ClassifierAnomalyRule turns an anomalous classifier verdict into an alert.
type ClassifierAnomalyRule struct {
	name     string
	enabled  bool
	severity model.Severity
	logger   *logrus.Logger
}

func NewClassifierAnomalyRule(enabled bool, severity string, logger *logrus.Logger) *ClassifierAnomalyRule {
	return &ClassifierAnomalyRule{
		name:     "classifier_anomaly",
		enabled:  enabled,
		severity: parseSeverity(severity, model.SeverityHigh),
		logger:   logger,
	}
}

func (r *ClassifierAnomalyRule) Name() string {
	return r.name
}

func (r *ClassifierAnomalyRule) IsEnabled() bool {
	return r.enabled
}

func (r *ClassifierAnomalyRule) Severity() model.Severity {
	return r.severity
}

func (r *ClassifierAnomalyRule) Evaluate(ctx context.Context, obs *model.Observation) *model.Finding {
	if !r.enabled || obs == nil || obs.Verdict == nil {
		return nil
	}
	if obs.Verdict.Verdict != model.VerdictAnomalous {
		return nil
	}

	f := obs.Verdict.Features
	return &model.Finding{
		Rule:     r.name,
		Severity: r.severity,
		Title:    "Network anomaly detected",
		Description: fmt.Sprintf("Anomalous metrics: avg RTT %.2fms, max RTT %.2fms, %.0f hops",
			f.AvgRTT, f.MaxRTT, f.NumHops),
		Source: "classifier",
	}
}
