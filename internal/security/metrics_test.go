package security

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestParseMetricsLabels(t *testing.T) {
	labels, err := ParseMetricsLabels("")
	require.NoError(t, err)
	require.Nil(t, labels)

	labels, err = ParseMetricsLabels("env=prod,region=us-east-1")
	require.NoError(t, err)
	require.Equal(t, prometheus.Labels{"env": "prod", "region": "us-east-1"}, labels)

	// values may carry '=' after the first one
	labels, err = ParseMetricsLabels("query=a=b")
	require.NoError(t, err)
	require.Equal(t, prometheus.Labels{"query": "a=b"}, labels)

	_, err = ParseMetricsLabels("justakey")
	require.Error(t, err)

	_, err = ParseMetricsLabels("bad-key=1")
	require.Error(t, err)
}

func TestParseMetricsLabelsExpandsEnv(t *testing.T) {
	t.Setenv("TEST_REGION", "eu-west-1")
	labels, err := ParseMetricsLabels("region=${TEST_REGION}")
	require.NoError(t, err)
	require.Equal(t, prometheus.Labels{"region": "eu-west-1"}, labels)
}
