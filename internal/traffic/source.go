package traffic

import (
	"context"
	"errors"
	"fmt"

	"netinsight/internal/client"

	"github.com/sirupsen/logrus"
)

// ErrSourceUnavailable means the connection table could not be read.
var ErrSourceUnavailable = errors.New("traffic source unavailable")

// Source produces connection-table text.
type Source interface {
	Capture(ctx context.Context) (string, error)
}

// CommandSource reads the connection table by running a command, netstat -tn
// unless configured otherwise.
type CommandSource struct {
	runner  client.Runner
	command string
	args    []string
	logger  *logrus.Logger
	metrics *client.PrometheusMetrics
}

func NewCommandSource(runner client.Runner, command string, args []string, logger *logrus.Logger) *CommandSource {
	if command == "" {
		command = "netstat"
		args = []string{"-tn"}
	}
	return &CommandSource{
		runner:  runner,
		command: command,
		args:    args,
		logger:  logger,
	}
}

func (s *CommandSource) SetMetrics(metrics *client.PrometheusMetrics) {
	s.metrics = metrics
}

// Capture runs the command. Any failure yields ErrSourceUnavailable and no
// partial output.
func (s *CommandSource) Capture(ctx context.Context) (string, error) {
	out, err := s.runner.Output(ctx, s.command, s.args...)
	if err != nil {
		s.observe("failed")
		s.logger.Warnf("Failed to read connection table with %s: %v", s.command, err)
		return "", fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	s.observe("ok")
	return out, nil
}

func (s *CommandSource) observe(result string) {
	if s.metrics != nil {
		s.metrics.TrafficCaptures.WithLabelValues(result).Inc()
	}
}
