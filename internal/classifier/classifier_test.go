package classifier

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"netinsight/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modelYAML = `name: lan-baseline
threshold: 3
avg_rtt:
  mean: 20
  stddev: 5
max_rtt:
  mean: 40
  stddev: 10
num_hops:
  mean: 8
  stddev: 2
`

func writeModel(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadModelAndPredict(t *testing.T) {
	m, err := LoadModel(writeModel(t, modelYAML), logrus.New())
	require.NoError(t, err)

	verdict, err := m.Predict(context.Background(), model.Features{AvgRTT: 22, MaxRTT: 45, NumHops: 9})
	require.NoError(t, err)
	assert.Equal(t, model.VerdictNormal, verdict)

	verdict, err = m.Predict(context.Background(), model.Features{AvgRTT: 22, MaxRTT: 400, NumHops: 9})
	require.NoError(t, err)
	assert.Equal(t, model.VerdictAnomalous, verdict)
}

func TestLoadModelMissingFile(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "absent.yaml"), logrus.New())
	assert.ErrorIs(t, err, ErrClassifierUnavailable)

	_, err = LoadModel("", logrus.New())
	assert.ErrorIs(t, err, ErrClassifierUnavailable)
}

func TestLoadModelRejectsBadFiles(t *testing.T) {
	_, err := LoadModel(writeModel(t, "avg_rtt: [unclosed"), logrus.New())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrClassifierUnavailable)

	_, err = LoadModel(writeModel(t, "avg_rtt:\n  mean: 1\n  stddev: -1\n"), logrus.New())
	assert.Error(t, err)
}

func TestDefaultThreshold(t *testing.T) {
	m, err := NewZScoreModel(ModelFile{AvgRTT: FeatureStats{Mean: 10, StdDev: 1}}, logrus.New())
	require.NoError(t, err)
	assert.Equal(t, DefaultThreshold, m.file.Threshold)
}

func TestZeroStdDevOnlyAcceptsMean(t *testing.T) {
	m, err := NewZScoreModel(ModelFile{Threshold: 3}, logrus.New())
	require.NoError(t, err)

	verdict, err := m.Predict(context.Background(), model.Features{})
	require.NoError(t, err)
	assert.Equal(t, model.VerdictNormal, verdict)

	verdict, err = m.Predict(context.Background(), model.Features{NumHops: 1})
	require.NoError(t, err)
	assert.Equal(t, model.VerdictAnomalous, verdict)
}

func TestUnavailable(t *testing.T) {
	_, err := Unavailable{}.Predict(context.Background(), model.Features{})
	assert.ErrorIs(t, err, ErrClassifierUnavailable)

	_, err = Unavailable{Reason: "model file not found"}.Predict(context.Background(), model.Features{})
	assert.ErrorIs(t, err, ErrClassifierUnavailable)
	assert.Contains(t, err.Error(), "model file not found")
}

func TestShippedModel(t *testing.T) {
	m, err := LoadModel("../../configs/model.yaml", logrus.New())
	require.NoError(t, err)

	verdict, err := m.Predict(context.Background(), model.Features{AvgRTT: 30, MaxRTT: 80, NumHops: 11})
	require.NoError(t, err)
	assert.Equal(t, model.VerdictNormal, verdict)
}
