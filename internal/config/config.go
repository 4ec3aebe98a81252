package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Camera profiles. Mobile devices frequently reject fixed resolutions, so the
// mobile profile leaves the device unconstrained.
const (
	ProfileDesktop = "desktop"
	ProfileMobile  = "mobile"
)

// Feature extractors selectable with FEATURE_EXTRACTOR.
const (
	ExtractorPixel = "pixel"
	ExtractorDNN   = "dnn"
	ExtractorONNX  = "onnx"
)

type Config struct {
	Port       int
	Password   string // empty disables authentication
	StaticDir  string
	NumClasses int
	TopK       int
	ClassNames []string

	CameraDevice        string
	CameraProfile       string
	CameraWidth         int
	CameraHeight        int
	CameraWarmupTimeout int // milliseconds

	TickInterval    int // milliseconds between render ticks
	PreviewInterval int // publish a preview every N ticks (0 = never)

	FeatureExtractor string
	FeatureSize      int
	ModelPath        string
	ModelConfigPath  string
	ModelOutputLayer string
	ONNXInputName    string
	ONNXOutputName   string
	ONNXInputSize    int
	ONNXOutputSize   int
	ONNXLibraryPath  string

	DatabasePath    string // empty keeps examples for the session only
	RestoreExamples bool

	SnapshotDirectory     string // empty disables snapshots
	SnapshotLimit         int
	SnapshotFlushInterval int // seconds

	LogDirectory string
	LogLevel     string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present; real environment
// variables win over it.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:       getEnvAsInt("PORT", 8080),
		Password:   getEnv("PASSWORD", ""),
		StaticDir:  getEnv("STATIC_DIR", "static"),
		NumClasses: getEnvAsInt("NUM_CLASSES", 3),
		TopK:       getEnvAsInt("TOPK", 10),
		ClassNames: getEnvAsList("CLASS_NAMES"),

		CameraDevice:        getEnv("CAMERA_DEVICE", "0"),
		CameraProfile:       getEnv("CAMERA_PROFILE", ProfileDesktop),
		CameraWidth:         getEnvAsInt("CAMERA_WIDTH", 227),
		CameraHeight:        getEnvAsInt("CAMERA_HEIGHT", 227),
		CameraWarmupTimeout: getEnvAsInt("CAMERA_WARMUP_TIMEOUT_MS", 5000),

		TickInterval:    getEnvAsInt("TICK_INTERVAL_MS", 16), // ~60 Hz display refresh
		PreviewInterval: getEnvAsInt("PREVIEW_INTERVAL", 3),

		FeatureExtractor: getEnv("FEATURE_EXTRACTOR", ExtractorPixel),
		FeatureSize:      getEnvAsInt("FEATURE_SIZE", 32),
		ModelPath:        getEnv("MODEL_PATH", filepath.Join(".", "models", "squeezenet.onnx")),
		ModelConfigPath:  getEnv("MODEL_CONFIG_PATH", ""),
		ModelOutputLayer: getEnv("MODEL_OUTPUT_LAYER", ""),
		ONNXInputName:    getEnv("ONNX_INPUT_NAME", "input"),
		ONNXOutputName:   getEnv("ONNX_OUTPUT_NAME", "output"),
		ONNXInputSize:    getEnvAsInt("ONNX_INPUT_SIZE", 227),
		ONNXOutputSize:   getEnvAsInt("ONNX_OUTPUT_SIZE", 1000),
		ONNXLibraryPath:  getEnv("ONNX_LIBRARY_PATH", ""),

		DatabasePath:    getEnv("DB_PATH", ""),
		RestoreExamples: getEnvAsBool("RESTORE_EXAMPLES", false),

		SnapshotDirectory:     getEnv("SNAPSHOT_DIR", ""),
		SnapshotLimit:         getEnvAsInt("SNAPSHOT_LIMIT", 20),
		SnapshotFlushInterval: getEnvAsInt("SNAPSHOT_FLUSH_INTERVAL", 30),

		LogDirectory: getEnv("LOG_DIR", filepath.Join(".", "logs")),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping empty entries.
func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
