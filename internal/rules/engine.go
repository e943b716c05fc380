package rules

import (
	"context"
	"sync"

	"netinsight/internal/model"

	"github.com/sirupsen/logrus"
)

// Engine holds the threshold rules and evaluates observations against them.
type Engine struct {
	rules  []RuleInterface
	logger *logrus.Logger
	mu     sync.RWMutex
}

type RuleInterface interface {
	Name() string
	IsEnabled() bool
	Severity() model.Severity
	Evaluate(ctx context.Context, obs *model.Observation) *model.Finding
}

// RuleStatus is the read-only view of a registered rule.
type RuleStatus struct {
	Name     string         `json:"name"`
	Enabled  bool           `json:"enabled"`
	Severity model.Severity `json:"severity"`
}

func NewEngine(logger *logrus.Logger) *Engine {
	return &Engine{
		rules:  make([]RuleInterface, 0),
		logger: logger,
	}
}

func (e *Engine) RegisterRule(rule RuleInterface) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, rule)
	e.logger.Infof("Registered rule: %s", rule.Name())
}

// Evaluate runs every enabled rule in registration order.
func (e *Engine) Evaluate(ctx context.Context, obs *model.Observation) []model.Finding {
	if obs == nil {
		return nil
	}

	e.mu.RLock()
	rules := make([]RuleInterface, len(e.rules))
	copy(rules, e.rules)
	e.mu.RUnlock()

	var findings []model.Finding
	for _, rule := range rules {
		if !rule.IsEnabled() {
			continue
		}
		if finding := rule.Evaluate(ctx, obs); finding != nil {
			e.logger.Debugf("Rule %s matched: %s", rule.Name(), finding.Title)
			findings = append(findings, *finding)
		}
	}

	return findings
}

func (e *Engine) Rules() []RuleStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]RuleStatus, 0, len(e.rules))
	for _, r := range e.rules {
		out = append(out, RuleStatus{Name: r.Name(), Enabled: r.IsEnabled(), Severity: r.Severity()})
	}
	return out
}
