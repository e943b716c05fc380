package alert

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"netinsight/internal/client"
	"netinsight/internal/model"
	"netinsight/internal/storage"

	"github.com/sirupsen/logrus"
)

// ErrInvalidSeverity is returned by Raise for a severity outside
// critical/high/medium/low.
var ErrInvalidSeverity = errors.New("invalid severity")

// DefaultSource is used when an alert is raised without a source.
const DefaultSource = "system"

// Engine raises alerts into a bounded store and records one event per
// alert. Id allocation, the event append and the alert append happen under
// a single lock so concurrent raises never interleave.
type Engine struct {
	events    *storage.EventLog
	alerts    *storage.AlertStore
	notifiers []Notifier
	metrics   *client.PrometheusMetrics
	logger    *logrus.Logger
	now       func() time.Time

	mu     sync.Mutex
	nextID int
}

func NewEngine(events *storage.EventLog, alerts *storage.AlertStore, logger *logrus.Logger) *Engine {
	return &Engine{
		events: events,
		alerts: alerts,
		logger: logger,
		now:    time.Now,
		nextID: 1,
	}
}

// AddNotifier registers a notifier called after every raised alert.
func (e *Engine) AddNotifier(n Notifier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notifiers = append(e.notifiers, n)
}

func (e *Engine) SetMetrics(metrics *client.PrometheusMetrics) {
	e.metrics = metrics
}

// Raise creates an alert with status "new". Severity is case-insensitive.
func (e *Engine) Raise(severity, title, description, source string) (model.Alert, error) {
	sev, ok := model.ParseSeverity(severity)
	if !ok {
		return model.Alert{}, fmt.Errorf("%w: %q", ErrInvalidSeverity, severity)
	}
	if source == "" {
		source = DefaultSource
	}

	e.mu.Lock()
	alert := model.Alert{
		ID:          fmt.Sprintf("ALERT-%d", e.nextID),
		Timestamp:   e.now(),
		Severity:    sev,
		Title:       title,
		Description: description,
		Source:      source,
		Status:      model.AlertStatusNew,
	}
	e.nextID++
	e.events.Append(fmt.Sprintf("Alert %s [%s] from %s: %s", alert.ID, alert.Severity, alert.Source, alert.Title))
	e.alerts.Append(alert)
	notifiers := append([]Notifier(nil), e.notifiers...)
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.AlertCounter.WithLabelValues(string(alert.Severity), alert.Source).Inc()
		e.metrics.EventCounter.Inc()
	}

	for _, n := range notifiers {
		if err := n.SendAlert(alert); err != nil {
			e.logger.Errorf("Failed to send alert %s: %v", alert.ID, err)
		}
	}

	return alert, nil
}

// List returns stored alerts newest first, optionally filtered by severity.
// Total is the number of alerts returned; CountsBySeverity always covers the
// whole store.
func (e *Engine) List(severity string) (model.AlertList, error) {
	var filter model.Severity
	if severity != "" {
		sev, ok := model.ParseSeverity(severity)
		if !ok {
			return model.AlertList{}, fmt.Errorf("%w: %q", ErrInvalidSeverity, severity)
		}
		filter = sev
	}

	stored := e.alerts.Snapshot()
	counts := make(map[model.Severity]int, len(model.Severities))
	for _, sev := range model.Severities {
		counts[sev] = 0
	}

	alerts := make([]model.Alert, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		a := stored[i]
		counts[a.Severity]++
		if filter == "" || a.Severity == filter {
			alerts = append(alerts, a)
		}
	}

	return model.AlertList{
		Alerts:           alerts,
		Total:            len(alerts),
		CountsBySeverity: counts,
	}, nil
}

func (e *Engine) Get(id string) (model.Alert, bool) {
	return e.alerts.Get(id)
}

// Events exposes the event log the engine writes through to.
func (e *Engine) Events() *storage.EventLog {
	return e.events
}

// Subscribe registers a live listener. The returned subscriber's channel is
// closed by Unsubscribe.
func (e *Engine) Subscribe(id string, filter storage.AlertFilter, buffer int) *storage.AlertSubscriber {
	if buffer <= 0 {
		buffer = 16
	}
	sub := &storage.AlertSubscriber{
		ID:      id,
		Channel: make(chan model.Alert, buffer),
		Filter:  filter,
	}
	e.alerts.Subscribe(sub)
	return sub
}

func (e *Engine) Unsubscribe(sub *storage.AlertSubscriber) {
	e.alerts.Unsubscribe(sub)
}
