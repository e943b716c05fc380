package app

import (
	"errors"
	"fmt"

	"netinsight/internal/alert"
	"netinsight/internal/classifier"
	"netinsight/internal/client"
	"netinsight/internal/discovery"
	"netinsight/internal/hostdiag"
	"netinsight/internal/pipeline"
	"netinsight/internal/rules"
	"netinsight/internal/storage"
	"netinsight/internal/traffic"
	"netinsight/internal/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Deps overrides the host-facing collaborators. Nil fields get the real
// implementation.
type Deps struct {
	Runner   client.Runner
	Pinger   client.Pinger
	Resolver client.Resolver
}

// App is the fully wired component graph shared by the API server and the
// CLI.
type App struct {
	Config      *utils.Config
	Logger      *logrus.Logger
	Registry    *prometheus.Registry
	Metrics     *client.PrometheusMetrics
	Events      *storage.EventLog
	Alerts      *alert.Engine
	Rules       *rules.Engine
	Scanner     *discovery.Scanner
	Aggregator  *traffic.Aggregator
	Hosts       *hostdiag.Diagnoser
	Diagnostics *pipeline.Diagnostics
	Telegram    *alert.TelegramNotifier
}

func New(config *utils.Config, logger *logrus.Logger, program string, deps Deps) (*App, error) {
	registry := client.CreateCustomRegistry(program)
	metrics := client.NewPrometheusMetrics(registry)

	runner := deps.Runner
	if runner == nil {
		runner = client.NewOSRunner()
	}
	pinger := deps.Pinger
	if pinger == nil {
		pinger = client.NewICMPPinger(config.ProbeTimeout(), config.Discovery.Privileged)
	}
	resolver := deps.Resolver
	if resolver == nil {
		r, err := client.NewDNSResolver(config.Discovery.DNSServers, config.ResolveTimeout())
		if err != nil {
			logger.Warnf("DNS resolver unavailable, hostnames will be empty: %v", err)
		} else {
			resolver = r
		}
	}

	events := storage.NewEventLog(config.Storage.EventCapacity)
	alerts := alert.NewEngine(events, storage.NewAlertStore(config.Storage.AlertCapacity, logger), logger)
	alerts.SetMetrics(metrics)
	telegram := registerAlertNotifiers(alerts, config, logger)

	ruleEngine := rules.NewEngine(logger)
	utils.RegisterBuiltinRules(ruleEngine, config, logger)

	scanner := discovery.NewScanner(
		discovery.NewHostProbe(pinger, resolver, config.ResolveTimeout(), logger),
		logger,
		discovery.Config{ChunkSize: config.Discovery.ChunkSize, MaxAddresses: config.Discovery.MaxAddresses},
	)
	scanner.SetMetrics(metrics)

	aggregator := traffic.NewAggregator(config.Traffic.TopN, logger)
	aggregator.SetMetrics(metrics)
	source := traffic.NewCommandSource(runner, config.Traffic.Command, config.Traffic.Args, logger)
	source.SetMetrics(metrics)

	hosts := hostdiag.NewDiagnoser(runner, resolver, hostdiag.Config{
		PingCount:      config.Diagnostics.PingCount,
		CommandTimeout: config.CommandTimeout(),
	}, logger)

	clf, err := loadClassifier(config.Classifier.ModelPath, logger)
	if err != nil {
		return nil, err
	}

	diagnostics := pipeline.NewDiagnostics(pipeline.Options{
		Scanner:    scanner,
		Aggregator: aggregator,
		Source:     source,
		Classifier: clf,
		Hosts:      hosts,
		Processor:  pipeline.NewProcessor(ruleEngine, alerts, logger),
		Events:     events,
		Metrics:    metrics,
		Logger:     logger,
	})

	return &App{
		Config:      config,
		Logger:      logger,
		Registry:    registry,
		Metrics:     metrics,
		Events:      events,
		Alerts:      alerts,
		Rules:       ruleEngine,
		Scanner:     scanner,
		Aggregator:  aggregator,
		Hosts:       hosts,
		Diagnostics: diagnostics,
		Telegram:    telegram,
	}, nil
}

// loadClassifier returns the configured model, or an Unavailable stand-in
// when no model file exists. A model file that exists but cannot be parsed
// is a configuration error.
func loadClassifier(path string, logger *logrus.Logger) (classifier.Classifier, error) {
	m, err := classifier.LoadModel(path, logger)
	switch {
	case errors.Is(err, classifier.ErrClassifierUnavailable):
		logger.Warnf("Anomaly classifier disabled: %v", err)
		return classifier.Unavailable{Reason: err.Error()}, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load classifier: %w", err)
	}
	return m, nil
}

func registerAlertNotifiers(engine *alert.Engine, config *utils.Config, logger *logrus.Logger) *alert.TelegramNotifier {
	if config.Alerting.Channels.Log {
		engine.AddNotifier(alert.NewLogAlertNotifier(logger))
	}

	if !config.Alerting.Channels.Telegram {
		return nil
	}
	telegram := alert.NewTelegramNotifier(alert.TelegramOptions{
		BotToken:  config.Alerting.Telegram.BotToken,
		ChatID:    config.Alerting.Telegram.ChatID,
		ParseMode: config.Alerting.Telegram.ParseMode,
		Enabled:   config.Alerting.Telegram.Enabled,
		Template:  config.Alerting.Telegram.MessageTemplate,
	}, logger)
	if telegram.IsEnabled() {
		engine.AddNotifier(telegram)
	}
	return telegram
}
