package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvRenderer              = "ORRERY_RENDERER"
	EnvCatalog               = "ORRERY_CATALOG"
	EnvTextureDir            = "ORRERY_TEXTURE_DIR"
	EnvWidth                 = "ORRERY_WIDTH"
	EnvHeight                = "ORRERY_HEIGHT"
	EnvFullscreen            = "ORRERY_FULLSCREEN"
	EnvTargetFPS             = "ORRERY_TARGET_FPS"
	EnvMaxFrames             = "ORRERY_MAX_FRAMES"
	EnvAssetBreakerFails     = "ORRERY_ASSET_BREAKER_FAILS"
	EnvAssetBreakerTimeout   = "ORRERY_ASSET_BREAKER_TIMEOUT"
	EnvAssetBreakerInterval  = "ORRERY_ASSET_BREAKER_INTERVAL"
	EnvMaxMemoryMB           = "ORRERY_MAX_MEMORY_MB"
	EnvMaxLoaderGoroutines   = "ORRERY_MAX_LOADER_GOROUTINES"
	EnvShutdownTimeout       = "ORRERY_SHUTDOWN_TIMEOUT"
	EnvResourceCheckInterval = "ORRERY_RESOURCE_CHECK_INTERVAL"
)

// EnvironmentConfig holds process-level settings read from the environment.
type EnvironmentConfig struct {
	// Asset loader circuit breaker
	AssetBreakerMaxConsecutiveFails int
	AssetBreakerTimeout             time.Duration
	AssetBreakerInterval            time.Duration

	// Resource management
	MaxMemoryMB           int64
	MaxLoaderGoroutines   int
	ShutdownTimeout       time.Duration
	ResourceCheckInterval time.Duration
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none are given)
// into the process environment. Variables already set win. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// LoadConfigFromEnv reads the EnvironmentConfig, applying defaults for unset variables.
func LoadConfigFromEnv() (*EnvironmentConfig, error) {
	config := &EnvironmentConfig{
		AssetBreakerMaxConsecutiveFails: getEnvAsIntOrDefault(EnvAssetBreakerFails, 3),
		AssetBreakerTimeout:             getEnvAsDurationOrDefault(EnvAssetBreakerTimeout, 30*time.Second),
		AssetBreakerInterval:            getEnvAsDurationOrDefault(EnvAssetBreakerInterval, 60*time.Second),
		MaxMemoryMB:                     int64(getEnvAsIntOrDefault(EnvMaxMemoryMB, 1024)),
		MaxLoaderGoroutines:             getEnvAsIntOrDefault(EnvMaxLoaderGoroutines, 16),
		ShutdownTimeout:                 getEnvAsDurationOrDefault(EnvShutdownTimeout, 10*time.Second),
		ResourceCheckInterval:           getEnvAsDurationOrDefault(EnvResourceCheckInterval, 10*time.Second),
	}

	if err := validateEnvironmentConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func validateEnvironmentConfig(c *EnvironmentConfig) error {
	if c.AssetBreakerMaxConsecutiveFails < 1 {
		return &ValidationError{Field: "AssetBreakerMaxConsecutiveFails", Reason: "must be at least 1"}
	}
	if c.AssetBreakerTimeout < time.Second {
		return &ValidationError{Field: "AssetBreakerTimeout", Reason: "must be at least 1s"}
	}
	if c.AssetBreakerInterval < time.Second {
		return &ValidationError{Field: "AssetBreakerInterval", Reason: "must be at least 1s"}
	}
	if c.MaxMemoryMB < 64 {
		return &ValidationError{Field: "MaxMemoryMB", Reason: "must be at least 64"}
	}
	if c.MaxLoaderGoroutines < 1 || c.MaxLoaderGoroutines > 1024 {
		return &ValidationError{Field: "MaxLoaderGoroutines", Reason: "must be between 1 and 1024"}
	}
	if c.ShutdownTimeout < time.Second {
		return &ValidationError{Field: "ShutdownTimeout", Reason: "must be at least 1s"}
	}
	if c.ResourceCheckInterval < 100*time.Millisecond {
		return &ValidationError{Field: "ResourceCheckInterval", Reason: "must be at least 100ms"}
	}
	return nil
}

// ApplyEnvironmentOverrides overwrites scene settings whose variables are set,
// then validates the result.
func ApplyEnvironmentOverrides(config *SceneConfig) error {
	if config == nil {
		return fmt.Errorf("cannot apply overrides to nil config")
	}

	config.Renderer = getEnvOrDefault(EnvRenderer, config.Renderer)
	config.CatalogPath = getEnvOrDefault(EnvCatalog, config.CatalogPath)
	config.Assets.TextureDir = getEnvOrDefault(EnvTextureDir, config.Assets.TextureDir)
	config.Window.Width = getEnvAsIntOrDefault(EnvWidth, config.Window.Width)
	config.Window.Height = getEnvAsIntOrDefault(EnvHeight, config.Window.Height)
	config.Window.Fullscreen = getEnvAsBoolOrDefault(EnvFullscreen, config.Window.Fullscreen)
	config.Loop.TargetFPS = getEnvAsFloatOrDefault(EnvTargetFPS, config.Loop.TargetFPS)
	config.Loop.MaxFrames = uint64(getEnvAsIntOrDefault(EnvMaxFrames, int(config.Loop.MaxFrames)))

	return config.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}
