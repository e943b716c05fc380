package builtin

import "netinsight/internal/model"

func parseSeverity(s string, fallback model.Severity) model.Severity {
	if sev, ok := model.ParseSeverity(s); ok {
		return sev
	}
	return fallback
}
