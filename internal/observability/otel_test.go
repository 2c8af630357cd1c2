package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupTracingWithoutEndpoint(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), TracingConfig{ServiceName: "eventrental"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Reserved(context.Background(), "material", 3)
		m.Released(context.Background(), "material", 3)
		m.EventClosed(context.Background())
	})

	m, err := NewMetrics()
	require.NoError(t, err)
	m.Reserved(context.Background(), "rental", 1)
}
