package model

// Rule is the YAML/JSON configuration of one threshold rule.
type Rule struct {
	Name        string                 `yaml:"name" json:"name"`
	Enabled     bool                   `yaml:"enabled" json:"enabled"`
	Severity    string                 `yaml:"severity" json:"severity"`
	Description string                 `yaml:"description" json:"description"`
	Thresholds  map[string]interface{} `yaml:"thresholds,omitempty" json:"thresholds,omitempty"`
}

// Observation is what a rule gets to look at after one diagnostics operation.
// Only the fields the operation produced are set.
type Observation struct {
	Discovery *DiscoveryReport
	Traffic   *FlowSnapshot
	Verdict   *ClassifierVerdict
	Host      *HostSample
}

// HostSample is the reachability summary of a single host diagnosis.
type HostSample struct {
	Host       string
	AvgRTT     float64
	MaxRTT     float64
	PacketLoss float64
}

// Finding is a rule match that should become an alert.
type Finding struct {
	Rule        string
	Severity    Severity
	Title       string
	Description string
	Source      string
}
