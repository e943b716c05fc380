package builtin

import (
	"context"
	"fmt"

	"netinsight/internal/model"

	"github.com/sirupsen/logrus"
)

// UnresolvedHostsRule fires when a sweep finds more live hosts without a
// reverse name than the threshold allows.
type UnresolvedHostsRule struct {
	name      string
	enabled   bool
	severity  model.Severity
	threshold int
	logger    *logrus.Logger
}

func NewUnresolvedHostsRule(enabled bool, severity string, threshold int, logger *logrus.Logger) *UnresolvedHostsRule {
	if threshold < 0 {
		threshold = 3
	}
	return &UnresolvedHostsRule{
		name:      "unresolved_hosts",
		enabled:   enabled,
		severity:  parseSeverity(severity, model.SeverityMedium),
		threshold: threshold,
		logger:    logger,
	}
}

func (r *UnresolvedHostsRule) Name() string {
	return r.name
}

func (r *UnresolvedHostsRule) IsEnabled() bool {
	return r.enabled
}

func (r *UnresolvedHostsRule) Severity() model.Severity {
	return r.severity
}

func (r *UnresolvedHostsRule) Evaluate(ctx context.Context, obs *model.Observation) *model.Finding {
	if !r.enabled || obs == nil || obs.Discovery == nil {
		return nil
	}

	unresolved := obs.Discovery.UnresolvedCount()
	if unresolved <= r.threshold {
		return nil
	}

	r.logger.Debugf("[UnresolvedHosts] %s: %d hosts without hostname (threshold %d)",
		obs.Discovery.Subnet, unresolved, r.threshold)

	return &model.Finding{
		Rule:     r.name,
		Severity: r.severity,
		Title:    "Unidentified devices detected",
		Description: fmt.Sprintf("Found %d devices without hostnames in subnet %s",
			unresolved, obs.Discovery.Subnet),
		Source: "discovery",
	}
}
