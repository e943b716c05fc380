package pipeline

import (
	"context"
	"fmt"

	"netinsight/internal/alert"
	"netinsight/internal/model"
	"netinsight/internal/rules"

	"github.com/sirupsen/logrus"
)

// Processor evaluates an observation against the rules and raises an alert
// per finding.
type Processor struct {
	engine *rules.Engine
	alerts *alert.Engine
	logger *logrus.Logger
}

func NewProcessor(engine *rules.Engine, alerts *alert.Engine, logger *logrus.Logger) *Processor {
	return &Processor{
		engine: engine,
		alerts: alerts,
		logger: logger,
	}
}

// Process returns the alerts raised, in rule registration order. It never
// returns nil so callers can serialize an empty list.
func (p *Processor) Process(ctx context.Context, obs *model.Observation) ([]model.Alert, error) {
	raised := make([]model.Alert, 0)
	if obs == nil {
		return raised, nil
	}

	for _, finding := range p.engine.Evaluate(ctx, obs) {
		a, err := p.alerts.Raise(string(finding.Severity), finding.Title, finding.Description, finding.Source)
		if err != nil {
			return raised, fmt.Errorf("rule %s: %w", finding.Rule, err)
		}
		raised = append(raised, a)
	}

	if len(raised) > 0 {
		p.logger.Infof("Raised %d alert(s)", len(raised))
	}
	return raised, nil
}
