// Package config provides configuration helpers for go-catcam commands.
//
// Values come from the environment, optionally seeded from a .env file in
// the working directory. Command line flags in cmd/catcam override them.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default configuration values.
const (
	DefaultPort              = "8080"
	DefaultLogLevel          = "info"
	DefaultCameraDevice      = "0"
	DefaultViewportWidth     = 1280
	DefaultViewportHeight    = 720
	DefaultClassifier        = "dnn"
	DefaultModelPath         = "models/mobilenet_v2.onnx"
	DefaultLabelsPath        = "models/imagenet_labels.txt"
	DefaultDetectionInterval = 1000 * time.Millisecond
	DefaultCueDir            = "web/audio"
	DefaultCuePlayer         = "paplay"
	DefaultWebDir            = "./web"
	DefaultTraceExporter     = "none"
)

// Classifier backends.
const (
	ClassifierDNN         = "dnn"
	ClassifierCloudVision = "cloudvision"
	ClassifierMock        = "mock"
)

// Config holds all configuration for the catcam service.
type Config struct {
	Port     string
	LogLevel string

	// Camera
	CameraDevice     string // gocv device index, file or URL
	CameraRearDevice string // used for facing mode "environment" when set
	ViewportWidth    int
	ViewportHeight   int

	// Classifier
	Classifier   string
	ModelPath    string
	LabelsPath   string
	GoogleAPIKey string

	DetectionInterval time.Duration

	// Audio cues
	CueDir    string
	CuePlayer string // external command; empty disables local playback

	WebDir        string
	TraceExporter string
}

// Default returns a Config populated with defaults only.
func Default() Config {
	return Config{
		Port:              DefaultPort,
		LogLevel:          DefaultLogLevel,
		CameraDevice:      DefaultCameraDevice,
		ViewportWidth:     DefaultViewportWidth,
		ViewportHeight:    DefaultViewportHeight,
		Classifier:        DefaultClassifier,
		ModelPath:         DefaultModelPath,
		LabelsPath:        DefaultLabelsPath,
		DetectionInterval: DefaultDetectionInterval,
		CueDir:            DefaultCueDir,
		CuePlayer:         DefaultCuePlayer,
		WebDir:            DefaultWebDir,
		TraceExporter:     DefaultTraceExporter,
	}
}

// Load reads .env (if present) and the environment on top of defaults.
// Only malformed numbers and durations fail here; call Validate once any
// command line overrides have been applied.
func Load() (Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := Default()
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.CameraDevice = getEnv("CAMERA_DEVICE", cfg.CameraDevice)
	cfg.CameraRearDevice = getEnv("CAMERA_REAR_DEVICE", cfg.CameraRearDevice)
	cfg.Classifier = getEnv("CLASSIFIER", cfg.Classifier)
	cfg.ModelPath = getEnv("MODEL_PATH", cfg.ModelPath)
	cfg.LabelsPath = getEnv("LABELS_PATH", cfg.LabelsPath)
	cfg.GoogleAPIKey = os.Getenv("GOOGLE_API_KEY")
	cfg.CueDir = getEnv("CUE_DIR", cfg.CueDir)
	cfg.CuePlayer = getEnv("CUE_PLAYER", cfg.CuePlayer)
	cfg.WebDir = getEnv("WEB_DIR", cfg.WebDir)
	cfg.TraceExporter = getEnv("TRACE_EXPORTER", cfg.TraceExporter)

	var err error
	if cfg.ViewportWidth, err = getInt("VIEWPORT_WIDTH", cfg.ViewportWidth); err != nil {
		return cfg, err
	}
	if cfg.ViewportHeight, err = getInt("VIEWPORT_HEIGHT", cfg.ViewportHeight); err != nil {
		return cfg, err
	}
	if cfg.DetectionInterval, err = getDuration("DETECTION_INTERVAL", cfg.DetectionInterval); err != nil {
		return cfg, err
	}

	cfg.Normalize()
	return cfg, nil
}

// Normalize lowercases the enumerated settings so "MOCK" and "mock" match.
func (c *Config) Normalize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.Classifier = strings.ToLower(strings.TrimSpace(c.Classifier))
	c.TraceExporter = strings.ToLower(strings.TrimSpace(c.TraceExporter))
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		errs = append(errs, fmt.Errorf("viewport must be positive, got %dx%d", c.ViewportWidth, c.ViewportHeight))
	}
	if c.DetectionInterval <= 0 {
		errs = append(errs, fmt.Errorf("detection interval must be positive, got %v", c.DetectionInterval))
	}

	switch c.Classifier {
	case ClassifierDNN:
		if c.ModelPath == "" {
			errs = append(errs, errors.New("model path is required for the dnn classifier"))
		}
	case ClassifierCloudVision, ClassifierMock:
	default:
		errs = append(errs, fmt.Errorf("unknown classifier %q (want dnn, cloudvision or mock)", c.Classifier))
	}

	switch c.TraceExporter {
	case "none", "stdout":
	default:
		errs = append(errs, fmt.Errorf("unknown trace exporter %q", c.TraceExporter))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

// getDuration accepts Go durations ("750ms") or bare milliseconds ("750").
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
