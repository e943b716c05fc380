package builtin

import (
	"context"
	"fmt"

	"netinsight/internal/model"

	"github.com/sirupsen/logrus"
)

// LatencyRule flags a diagnosed host whose average round trip or packet
// loss is above the configured limits.
type LatencyRule struct {
	name       string
	enabled    bool
	severity   model.Severity
	maxAvgRTT  float64
	maxLossPct float64
	logger     *logrus.Logger
}

func NewLatencyRule(enabled bool, severity string, maxAvgRTT, maxLossPct float64, logger *logrus.Logger) *LatencyRule {
	if maxAvgRTT <= 0 {
		maxAvgRTT = 200
	}
	if maxLossPct <= 0 {
		maxLossPct = 50
	}
	return &LatencyRule{
		name:       "high_latency",
		enabled:    enabled,
		severity:   parseSeverity(severity, model.SeverityLow),
		maxAvgRTT:  maxAvgRTT,
		maxLossPct: maxLossPct,
		logger:     logger,
	}
}

func (r *LatencyRule) Name() string {
	return r.name
}

func (r *LatencyRule) IsEnabled() bool {
	return r.enabled
}

func (r *LatencyRule) Severity() model.Severity {
	return r.severity
}

func (r *LatencyRule) Evaluate(ctx context.Context, obs *model.Observation) *model.Finding {
	if !r.enabled || obs == nil || obs.Host == nil {
		return nil
	}
	h := obs.Host

	var description string
	switch {
	case h.PacketLoss > r.maxLossPct:
		description = fmt.Sprintf("Host %s lost %.0f%% of packets (limit %.0f%%)", h.Host, h.PacketLoss, r.maxLossPct)
	case h.AvgRTT > r.maxAvgRTT:
		description = fmt.Sprintf("Host %s average RTT %.2fms exceeds %.2fms", h.Host, h.AvgRTT, r.maxAvgRTT)
	default:
		return nil
	}

	r.logger.Debugf("[Latency] %s", description)

	return &model.Finding{
		Rule:        r.name,
		Severity:    r.severity,
		Title:       "Degraded host reachability",
		Description: description,
		Source:      "diagnostics",
	}
}
