package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"netinsight/internal/model"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultThreshold is the z-score above which a feature counts as an outlier.
const DefaultThreshold = 3.0

// FeatureStats is the fitted distribution of one feature.
type FeatureStats struct {
	Mean   float64 `yaml:"mean" json:"mean"`
	StdDev float64 `yaml:"stddev" json:"stddev"`
}

// ModelFile is the on-disk YAML artifact.
type ModelFile struct {
	Name      string       `yaml:"name"`
	Threshold float64      `yaml:"threshold"`
	AvgRTT    FeatureStats `yaml:"avg_rtt"`
	MaxRTT    FeatureStats `yaml:"max_rtt"`
	NumHops   FeatureStats `yaml:"num_hops"`
}

func (m *ModelFile) Validate() error {
	if m.Threshold == 0 {
		m.Threshold = DefaultThreshold
	}
	if m.Threshold < 0 {
		return fmt.Errorf("threshold must be positive, got %v", m.Threshold)
	}
	for name, stats := range map[string]FeatureStats{"avg_rtt": m.AvgRTT, "max_rtt": m.MaxRTT, "num_hops": m.NumHops} {
		if stats.StdDev < 0 {
			return fmt.Errorf("feature %s has negative stddev", name)
		}
	}
	return nil
}

// ZScoreModel flags a sample as anomalous when any feature lies more than
// Threshold standard deviations away from its fitted mean.
type ZScoreModel struct {
	file   ModelFile
	logger *logrus.Logger
}

func NewZScoreModel(file ModelFile, logger *logrus.Logger) (*ZScoreModel, error) {
	if err := file.Validate(); err != nil {
		return nil, fmt.Errorf("invalid classifier model: %w", err)
	}
	return &ZScoreModel{file: file, logger: logger}, nil
}

// LoadModel reads a YAML model artifact. A missing file yields
// ErrClassifierUnavailable.
func LoadModel(path string, logger *logrus.Logger) (*ZScoreModel, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no model path configured", ErrClassifierUnavailable)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: model file not found: %s", ErrClassifierUnavailable, path)
		}
		return nil, fmt.Errorf("failed to read classifier model: %w", err)
	}

	var file ModelFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse classifier model: %w", err)
	}

	m, err := NewZScoreModel(file, logger)
	if err != nil {
		return nil, err
	}
	logger.Infof("Loaded classifier model %q from %s (threshold %.2f)", file.Name, path, file.Threshold)
	return m, nil
}

func (m *ZScoreModel) Predict(ctx context.Context, features model.Features) (model.Verdict, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	stats := []FeatureStats{m.file.AvgRTT, m.file.MaxRTT, m.file.NumHops}
	for i, x := range features.Vector() {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, fmt.Errorf("feature %d is not a finite number", i)
		}
		if z := zscore(x, stats[i]); z > m.file.Threshold {
			m.logger.Debugf("Feature %d scored z=%.2f above threshold %.2f", i, z, m.file.Threshold)
			return model.VerdictAnomalous, nil
		}
	}
	return model.VerdictNormal, nil
}

func zscore(x float64, s FeatureStats) float64 {
	if s.StdDev == 0 {
		if x == s.Mean {
			return 0
		}
		return math.Inf(1)
	}
	return math.Abs(x-s.Mean) / s.StdDev
}
