package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

var keys = []string{
	"YOLODET_MODEL", "YOLODET_LABELS", "YOLODET_OUTPUT_DIR", "YOLODET_CAMERA_INDEX",
	"YOLODET_CONFIDENCE", "YOLODET_NMS", "YOLODET_TIMEOUT", "YOLODET_SAVE",
	"YOLODET_RECURSIVE", "YOLODET_DEBUG",
}

// clearEnv blanks every YOLODET_ variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := FromEnv()
	assert.Equal(t, "yolov8n.onnx", cfg.ModelPath)
	assert.Equal(t, "", cfg.LabelsPath)
	assert.Equal(t, "results", cfg.OutputDir)
	assert.Equal(t, 0, cfg.CameraIndex)
	assert.Equal(t, 0.25, cfg.Confidence)
	assert.Equal(t, 0.45, cfg.NMS)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.True(t, cfg.Save)
	assert.False(t, cfg.Recursive)
	assert.False(t, cfg.Debug)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("YOLODET_MODEL", "models/yolov8s.onnx")
	t.Setenv("YOLODET_OUTPUT_DIR", "out")
	t.Setenv("YOLODET_CAMERA_INDEX", "2")
	t.Setenv("YOLODET_CONFIDENCE", "0.6")
	t.Setenv("YOLODET_TIMEOUT", "45")
	t.Setenv("YOLODET_SAVE", "false")
	t.Setenv("YOLODET_DEBUG", "1")

	cfg := FromEnv()
	assert.Equal(t, "models/yolov8s.onnx", cfg.ModelPath)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, 2, cfg.CameraIndex)
	assert.Equal(t, 0.6, cfg.Confidence)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.False(t, cfg.Save)
	assert.True(t, cfg.Debug)
}

func TestConfig_InvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("YOLODET_CAMERA_INDEX", "front")
	t.Setenv("YOLODET_TIMEOUT", "soon")
	t.Setenv("YOLODET_SAVE", "maybe")

	cfg := FromEnv()
	assert.Equal(t, 0, cfg.CameraIndex)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.True(t, cfg.Save)
}

func TestConfig_Validate(t *testing.T) {
	clearEnv(t)
	cfg := FromEnv()
	cfg.Confidence = 1.5
	cfg.NMS = -0.1
	cfg.Timeout = 0
	cfg.CameraIndex = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "confidence")
	assert.Contains(t, err.Error(), "nms")
	assert.Contains(t, err.Error(), "timeout")
	assert.Contains(t, err.Error(), "camera index")
	assert.Len(t, multierr.Errors(err), 4)
}

func TestConfig_LoadFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("YOLODET_OUTPUT_DIR")
	os.Unsetenv("YOLODET_CONFIDENCE")

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("YOLODET_OUTPUT_DIR=annotated\nYOLODET_CONFIDENCE=0.4\n"), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "annotated", cfg.OutputDir)
	assert.Equal(t, 0.4, cfg.Confidence)

	// godotenv does not override, so drop what the file set for the other tests.
	os.Unsetenv("YOLODET_OUTPUT_DIR")
	os.Unsetenv("YOLODET_CONFIDENCE")

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
