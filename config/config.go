// Package config resolves the default settings of the CLI from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

// Config holds the settings the command line flags fall back to.
type Config struct {
	ModelPath   string
	LabelsPath  string
	OutputDir   string
	CameraIndex int
	Confidence  float64
	NMS         float64
	Timeout     time.Duration
	Save        bool
	Recursive   bool
	Debug       bool
}

// Load reads an optional .env file from the working directory and builds the
// Config from YOLODET_* variables. Variables already set in the process
// environment win over the .env file.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// LoadFile is like Load but reads the named env files; missing files are an error.
func LoadFile(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		return nil, fmt.Errorf("unable to load env file: %w", err)
	}
	return FromEnv(), nil
}

// FromEnv builds the Config from the current process environment only.
func FromEnv() *Config {
	return &Config{
		ModelPath:   getEnv("YOLODET_MODEL", "yolov8n.onnx"),
		LabelsPath:  getEnv("YOLODET_LABELS", ""),
		OutputDir:   getEnv("YOLODET_OUTPUT_DIR", "results"),
		CameraIndex: getEnvAsInt("YOLODET_CAMERA_INDEX", 0),
		Confidence:  getEnvAsFloat("YOLODET_CONFIDENCE", 0.25),
		NMS:         getEnvAsFloat("YOLODET_NMS", 0.45),
		Timeout:     getEnvAsDuration("YOLODET_TIMEOUT", 30*time.Second),
		Save:        getEnvAsBool("YOLODET_SAVE", true),
		Recursive:   getEnvAsBool("YOLODET_RECURSIVE", false),
		Debug:       getEnvAsBool("YOLODET_DEBUG", false),
	}
}

// Validate checks the numeric ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.ModelPath == "" {
		errs = append(errs, errors.New("model path must not be empty"))
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		errs = append(errs, fmt.Errorf("confidence threshold %v out of range [0, 1]", c.Confidence))
	}
	if c.NMS < 0 || c.NMS > 1 {
		errs = append(errs, fmt.Errorf("nms threshold %v out of range [0, 1]", c.NMS))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("download timeout must be positive, got %v", c.Timeout))
	}
	if c.CameraIndex < 0 {
		errs = append(errs, fmt.Errorf("camera index must not be negative, got %d", c.CameraIndex))
	}
	return multierr.Combine(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("45s") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
