package trace

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestInit_None(t *testing.T) {
	shutdown, err := Init(context.Background(), DefaultConfig())
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_UnknownExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Exporter = "zipkin"
	_, err := Init(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown exporter")
}

func TestInit_Stdout(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Exporter = "stdout"
	cfg.Writer = &buf

	shutdown, err := Init(context.Background(), cfg)
	require.NoError(t, err)

	_, span := Start(context.Background(), "detector.cycle", attribute.String("label", "tabby cat"))
	End(span, errors.New("classify failed"))

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "detector.cycle")
	assert.Contains(t, buf.String(), "tabby cat")
}
