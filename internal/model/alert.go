package model

import (
	"strings"
	"time"
)

// Severity of an alert.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Severities lists every severity, most severe first.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// ParseSeverity accepts any casing ("HIGH", "high").
func ParseSeverity(s string) (Severity, bool) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	switch sev {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return sev, true
	}
	return "", false
}

const AlertStatusNew = "new"

type Alert struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Severity    Severity  `json:"severity"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
	Status      string    `json:"status"`
}

// AlertList is the read model returned to the request layer.
type AlertList struct {
	Alerts           []Alert          `json:"alerts"`
	Total            int              `json:"total"`
	CountsBySeverity map[Severity]int `json:"counts_by_severity"`
}

type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
}
