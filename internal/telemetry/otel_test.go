package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnmchuo/ai-core/config"
	"github.com/vnmchuo/ai-core/internal/logger"
)

func TestInitTracer_None(t *testing.T) {
	shutdown, err := InitTracer("ai-core", &config.Config{OTELExporterType: ExporterNone}, logger.Nop())
	require.NoError(t, err)
	shutdown()
}

func TestInitTracer_Stdout(t *testing.T) {
	shutdown, err := InitTracer("ai-core", &config.Config{OTELExporterType: ExporterStdout}, logger.Nop())
	require.NoError(t, err)
	shutdown()
}

func TestInitTracer_Unknown(t *testing.T) {
	_, err := InitTracer("ai-core", &config.Config{OTELExporterType: "jaeger"}, logger.Nop())
	assert.Error(t, err)
}
