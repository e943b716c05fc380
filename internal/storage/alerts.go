package storage

import (
	"sync"

	"netinsight/internal/model"

	"github.com/sirupsen/logrus"
)

// AlertStore is the bounded FIFO of raised alerts. It also fans new alerts
// out to live subscribers.
type AlertStore struct {
	mu     sync.RWMutex
	alerts *ring[model.Alert]
	logger *logrus.Logger

	subsMu sync.RWMutex
	subs   map[*AlertSubscriber]bool
}

type AlertSubscriber struct {
	ID      string
	Channel chan model.Alert
	Filter  AlertFilter
}

type AlertFilter struct {
	Severity model.Severity
	Source   string
}

func (f AlertFilter) Match(a model.Alert) bool {
	if f.Severity != "" && a.Severity != f.Severity {
		return false
	}
	if f.Source != "" && a.Source != f.Source {
		return false
	}
	return true
}

func NewAlertStore(capacity int, logger *logrus.Logger) *AlertStore {
	return &AlertStore{
		alerts: newRing[model.Alert](capacity),
		logger: logger,
		subs:   make(map[*AlertSubscriber]bool),
	}
}

// Append stores the alert, evicting the oldest when full, then notifies
// subscribers without blocking.
func (s *AlertStore) Append(alert model.Alert) {
	s.mu.Lock()
	s.alerts.push(alert)
	s.mu.Unlock()

	s.notifySubscribers(alert)
}

// Snapshot returns every stored alert, oldest first.
func (s *AlertStore) Snapshot() []model.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alerts.all()
}

func (s *AlertStore) Get(id string) (model.Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.alerts.all() {
		if a.ID == id {
			return a, true
		}
	}
	return model.Alert{}, false
}

func (s *AlertStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alerts.len()
}

func (s *AlertStore) Capacity() int {
	return s.alerts.capacity()
}

func (s *AlertStore) Subscribe(sub *AlertSubscriber) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.subs[sub] = true
}

func (s *AlertStore) Unsubscribe(sub *AlertSubscriber) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if s.subs[sub] {
		delete(s.subs, sub)
		close(sub.Channel)
	}
}

func (s *AlertStore) notifySubscribers(alert model.Alert) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()

	for sub := range s.subs {
		if !sub.Filter.Match(alert) {
			continue
		}
		select {
		case sub.Channel <- alert:
		default:
			if s.logger != nil {
				s.logger.Debugf("Alert subscriber %s is slow, dropping %s", sub.ID, alert.ID)
			}
		}
	}
}
