package model

// Features is the input vector of the anomaly classifier.
type Features struct {
	AvgRTT  float64 `json:"avg_rtt" yaml:"avg_rtt"`
	MaxRTT  float64 `json:"max_rtt" yaml:"max_rtt"`
	NumHops float64 `json:"num_hops" yaml:"num_hops"`
}

// Vector returns the features in model order.
func (f Features) Vector() []float64 {
	return []float64{f.AvgRTT, f.MaxRTT, f.NumHops}
}

// Verdict follows the isolation-forest convention: -1 anomalous, 1 normal.
type Verdict int

const (
	VerdictAnomalous Verdict = -1
	VerdictNormal    Verdict = 1
)

func (v Verdict) String() string {
	if v == VerdictAnomalous {
		return "anomalous"
	}
	return "normal"
}

// ClassifierVerdict pairs a verdict with the features that produced it.
type ClassifierVerdict struct {
	Features Features `json:"features"`
	Verdict  Verdict  `json:"verdict"`
	Result   string   `json:"result"`
}

// NewClassifierVerdict fills the human readable result.
func NewClassifierVerdict(f Features, v Verdict) ClassifierVerdict {
	result := "Normal traffic"
	if v == VerdictAnomalous {
		result = "Anomaly detected!"
	}
	return ClassifierVerdict{Features: f, Verdict: v, Result: result}
}
