package tracing

import (
	"context"
	"testing"

	"github.com/aziham/memento/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_DisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), config.TelemetryConfig{Enabled: false})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInit_EnabledBuildsProvider(t *testing.T) {
	shutdown, err := Init(context.Background(), config.TelemetryConfig{Enabled: true, ServiceName: "memento-test"})
	require.NoError(t, err)
	defer shutdown(context.Background())

	ctx, span := StartPhase(context.Background(), "LAND")
	assert.NotNil(t, span)
	span.End()
	_ = ctx
}
