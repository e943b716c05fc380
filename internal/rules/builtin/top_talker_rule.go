package builtin

import (
	"context"
	"fmt"

	"netinsight/internal/model"

	"github.com/sirupsen/logrus"
)

// TopTalkerRule fires when the busiest source holds more connections than
// the threshold.
type TopTalkerRule struct {
	name      string
	enabled   bool
	severity  model.Severity
	threshold int
	logger    *logrus.Logger
}

func NewTopTalkerRule(enabled bool, severity string, threshold int, logger *logrus.Logger) *TopTalkerRule {
	if threshold < 0 {
		threshold = 50
	}
	return &TopTalkerRule{
		name:      "top_talker",
		enabled:   enabled,
		severity:  parseSeverity(severity, model.SeverityMedium),
		threshold: threshold,
		logger:    logger,
	}
}

func (r *TopTalkerRule) Name() string {
	return r.name
}

func (r *TopTalkerRule) IsEnabled() bool {
	return r.enabled
}

func (r *TopTalkerRule) Severity() model.Severity {
	return r.severity
}

func (r *TopTalkerRule) Evaluate(ctx context.Context, obs *model.Observation) *model.Finding {
	if !r.enabled || obs == nil {
		return nil
	}

	top, ok := obs.Traffic.TopSource()
	if !ok || top.Count <= r.threshold {
		return nil
	}

	r.logger.Debugf("[TopTalker] %s holds %d connections (threshold %d)", top.IP, top.Count, r.threshold)

	return &model.Finding{
		Rule:        r.name,
		Severity:    r.severity,
		Title:       "High connection count detected",
		Description: fmt.Sprintf("Source %s has %d active connections", top.IP, top.Count),
		Source:      "traffic",
	}
}
