package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-catcam/internal/config"
	"github.com/teslashibe/go-catcam/pkg/media"
)

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("CLASSIFIER", "magic")
	t.Setenv("DETECTION_INTERVAL", "250")

	cfg, err := loadConfig([]string{"-classifier", "MOCK", "-port", "9000"})
	require.NoError(t, err)

	assert.Equal(t, config.ClassifierMock, cfg.Classifier)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.DetectionInterval)
}

func TestLoadConfig_InvalidAfterFlags(t *testing.T) {
	_, err := loadConfig([]string{"-classifier", "magic"})
	assert.ErrorContains(t, err, "unknown classifier")

	_, err = loadConfig([]string{"-interval", "0s"})
	assert.ErrorContains(t, err, "detection interval")
}

func TestLoadConfig_BadFlag(t *testing.T) {
	_, err := loadConfig([]string{"-nope"})
	assert.Error(t, err)
}

func TestDemoMockCycles(t *testing.T) {
	m := demoMock()
	var labels []string
	for i := 0; i < 5; i++ {
		res, err := m.Classify(t.Context(), media.Frame{})
		require.NoError(t, err)
		labels = append(labels, res.Top().ClassName)
	}
	assert.Equal(t, "window screen", labels[0])
	assert.Equal(t, "tabby cat", labels[1])
	assert.Equal(t, labels[0], labels[4])
}
