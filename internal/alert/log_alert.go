package alert

import (
	"netinsight/internal/model"

	"github.com/sirupsen/logrus"
)

// LogAlertNotifier sends alerts to local logs
type LogAlertNotifier struct {
	logger *logrus.Logger
}

func NewLogAlertNotifier(logger *logrus.Logger) *LogAlertNotifier {
	return &LogAlertNotifier{
		logger: logger,
	}
}

func (ln *LogAlertNotifier) SendAlert(alert model.Alert) error {
	ln.logger.WithFields(logrus.Fields{
		"id":     alert.ID,
		"source": alert.Source,
	}).Warnf("ALERT [%s] %s: %s", alert.Severity, alert.Title, alert.Description)
	return nil
}
