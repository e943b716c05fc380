package utils

import (
	"netinsight/internal/model"
	"netinsight/internal/rules"
	"netinsight/internal/rules/builtin"

	"github.com/sirupsen/logrus"
)

var builtinRuleNames = []string{"classifier_anomaly", "unresolved_hosts", "top_talker", "high_latency"}

// RegisterBuiltinRules registers every built-in threshold rule. Rules missing
// from the config are registered enabled with their default thresholds.
func RegisterBuiltinRules(engine *rules.Engine, config *Config, logger *logrus.Logger) {
	for _, ruleConfig := range config.Rules {
		if !isBuiltinRule(ruleConfig.Name) {
			logger.Warnf("Unknown rule type: %s", ruleConfig.Name)
		}
	}

	for _, name := range builtinRuleNames {
		ruleConfig, ok := config.GetRuleConfigByName(name)
		if !ok {
			ruleConfig = &model.Rule{Name: name, Enabled: true}
		}

		switch name {
		case "classifier_anomaly":
			engine.RegisterRule(builtin.NewClassifierAnomalyRule(ruleConfig.Enabled, ruleConfig.Severity, logger))

		case "unresolved_hosts":
			threshold := int(rules.Threshold(*ruleConfig, "hosts", 3))
			engine.RegisterRule(builtin.NewUnresolvedHostsRule(ruleConfig.Enabled, ruleConfig.Severity, threshold, logger))
			logger.Debugf("Rule %s threshold: %d unresolved hosts", name, threshold)

		case "top_talker":
			threshold := int(rules.Threshold(*ruleConfig, "connections", 50))
			engine.RegisterRule(builtin.NewTopTalkerRule(ruleConfig.Enabled, ruleConfig.Severity, threshold, logger))
			logger.Debugf("Rule %s threshold: %d connections", name, threshold)

		case "high_latency":
			maxRTT := rules.Threshold(*ruleConfig, "avg_rtt_ms", 200)
			maxLoss := rules.Threshold(*ruleConfig, "packet_loss", 50)
			engine.RegisterRule(builtin.NewLatencyRule(ruleConfig.Enabled, ruleConfig.Severity, maxRTT, maxLoss, logger))
		}
	}
}

func isBuiltinRule(name string) bool {
	for _, n := range builtinRuleNames {
		if n == name {
			return true
		}
	}
	return false
}
