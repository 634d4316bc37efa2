package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"skeleton-viewer/internal/types"
)

type AppConfig struct {
	Cameras        int
	Endpoints      []string
	FrameSource    string
	SkeletonSource string
	Codec          string

	FrameWidth    int
	FrameHeight   int
	Scale         float64
	LineThickness int
	LabelFrames   bool

	Window      bool
	WindowTitle string
	Port        int
	Workers     int

	GatewayURL        string
	GatewayAPIVersion string
	GatewayPoll       time.Duration
	SamplingHz        float64
	ColorSpace        string

	RawLogEnabled  bool
	RawLogDir      string
	IngestLogEvery int

	Debug     bool
	DebugRate float64
}

// Load reads an optional .env file from the working directory and returns the
// configuration defaults taken from the environment.
func Load() AppConfig {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "ignoring .env: %v\n", err)
	}
	return FromEnv()
}

func FromEnv() AppConfig {
	return AppConfig{
		Cameras:           getEnvAsInt("VIEWER_CAMERAS", 4),
		Endpoints:         getEnvAsList("VIEWER_ENDPOINTS", []string{"tcp://localhost:5556"}),
		FrameSource:       getEnv("VIEWER_FRAME_SOURCE", "CameraGateway"),
		SkeletonSource:    getEnv("VIEWER_SKELETON_SOURCE", "OpenPose"),
		Codec:             getEnv("VIEWER_CODEC", "cbor"),
		FrameWidth:        getEnvAsInt("VIEWER_FRAME_WIDTH", 1288),
		FrameHeight:       getEnvAsInt("VIEWER_FRAME_HEIGHT", 728),
		Scale:             getEnvAsFloat("VIEWER_SCALE", 0.5),
		LineThickness:     getEnvAsInt("VIEWER_LINE_THICKNESS", 6),
		LabelFrames:       getEnvAsBool("VIEWER_LABEL_FRAMES", true),
		Window:            getEnvAsBool("VIEWER_WINDOW", true),
		WindowTitle:       getEnv("VIEWER_WINDOW_TITLE", "skeleton viewer"),
		Port:              getEnvAsInt("VIEWER_PORT", 8888),
		Workers:           getEnvAsInt("VIEWER_WORKERS", 4),
		GatewayURL:        getEnv("VIEWER_GATEWAY_URL", ""),
		GatewayAPIVersion: getEnv("VIEWER_GATEWAY_API_VERSION", "1.0.0"),
		GatewayPoll:       getEnvAsDuration("VIEWER_GATEWAY_POLL", 5*time.Second),
		SamplingHz:        getEnvAsFloat("VIEWER_SAMPLING_HZ", 5),
		ColorSpace:        getEnv("VIEWER_COLOR_SPACE", "RGB"),
		RawLogEnabled:     getEnvAsBool("VIEWER_RAW_LOG", false),
		RawLogDir:         getEnv("VIEWER_RAW_LOG_DIR", "rawlog"),
		IngestLogEvery:    getEnvAsInt("VIEWER_INGEST_LOG_EVERY", 100),
		Debug:             getEnvAsBool("VIEWER_DEBUG", false),
		DebugRate:         getEnvAsFloat("VIEWER_DEBUG_RATE", 10),
	}
}

// Validate rejects values the viewer cannot start with. The grid shape itself is
// checked by the compositor.
func (c AppConfig) Validate() error {
	switch {
	case c.Cameras < 1:
		return fmt.Errorf("cameras must be positive, got %d", c.Cameras)
	case c.FrameWidth < 1 || c.FrameHeight < 1:
		return fmt.Errorf("frame size must be positive, got %dx%d", c.FrameWidth, c.FrameHeight)
	case c.Scale <= 0:
		return fmt.Errorf("scale must be positive, got %g", c.Scale)
	case c.LineThickness < 1:
		return fmt.Errorf("line thickness must be positive, got %d", c.LineThickness)
	case c.Port < 0 || c.Port > 65535:
		return fmt.Errorf("invalid port %d", c.Port)
	case c.FrameSource == "" || c.SkeletonSource == "":
		return errors.New("frame and skeleton sources must be set")
	case strings.Contains(c.FrameSource, ".") || strings.Contains(c.SkeletonSource, "."):
		return errors.New("sources must not contain '.'")
	case !c.Debug && len(c.Endpoints) == 0:
		return errors.New("at least one endpoint is required")
	case c.SamplingHz <= 0:
		return fmt.Errorf("sampling frequency must be positive, got %g", c.SamplingHz)
	}
	if _, err := types.ParseColorSpace(c.ColorSpace); err != nil {
		return err
	}
	return nil
}

// CameraConfig is the request body sent to the camera gateway at startup.
func (c AppConfig) CameraConfig() types.CameraConfig {
	space, _ := types.ParseColorSpace(c.ColorSpace)
	var cfg types.CameraConfig
	cfg.Sampling.Frequency = c.SamplingHz
	cfg.Image.ColorSpace = space
	return cfg
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
