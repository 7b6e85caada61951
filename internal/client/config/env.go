package config

import (
	"github.com/caarlos0/env/v11"
)

// envConfig is a DTO used exclusively for environment parsing. Pointer fields
// distinguish unset variables from explicit zero values, matching the JSON
// overlay behavior.
type envConfig struct {
	ServerEndpointAddr   *string  `env:"TRACKER_SERVER_ADDR"`
	DatabasePath         *string  `env:"TRACKER_DATABASE_PATH"`
	DownloadsDir         *string  `env:"TRACKER_DOWNLOADS_DIR"`
	CaptureDevice        *string  `env:"TRACKER_CAPTURE_DEVICE"`
	CaptureInterval      *string  `env:"TRACKER_CAPTURE_INTERVAL"`
	ReconnectDelay       *string  `env:"TRACKER_RECONNECT_DELAY"`
	ReconnectBackoff     *float64 `env:"TRACKER_RECONNECT_BACKOFF"`
	ReconnectMaxAttempts *int     `env:"TRACKER_RECONNECT_MAX_ATTEMPTS"`
	HealthCheckInterval  *string  `env:"TRACKER_HEALTH_CHECK_INTERVAL"`
	MetricsAddr          *string  `env:"TRACKER_METRICS_ADDR"`
	DefaultColor         *string  `env:"TRACKER_COLOR"`
	DefaultConfidence    *float64 `env:"TRACKER_CONFIDENCE"`
}

// parseEnv overlays Config with values from TRACKER_* environment variables.
// Interval variables accept time.Duration strings ("1s", "750ms"). Invalid
// values panic, consistent with parseJson.
func parseEnv(cfg *Config) {
	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		panic(err)
	}

	if ec.ServerEndpointAddr != nil {
		cfg.ServerEndpointAddr = *ec.ServerEndpointAddr
	}
	if ec.DatabasePath != nil {
		cfg.DatabasePath = *ec.DatabasePath
	}
	if ec.DownloadsDir != nil {
		cfg.DownloadsDir = *ec.DownloadsDir
	}
	if ec.CaptureDevice != nil {
		cfg.CaptureDevice = *ec.CaptureDevice
	}
	if ec.CaptureInterval != nil {
		cfg.CaptureInterval = mustParseDuration(*ec.CaptureInterval)
	}
	if ec.ReconnectDelay != nil {
		cfg.ReconnectDelay = mustParseDuration(*ec.ReconnectDelay)
	}
	if ec.ReconnectBackoff != nil {
		cfg.ReconnectBackoff = *ec.ReconnectBackoff
	}
	if ec.ReconnectMaxAttempts != nil {
		cfg.ReconnectMaxAttempts = *ec.ReconnectMaxAttempts
	}
	if ec.HealthCheckInterval != nil {
		cfg.HealthCheckInterval = mustParseDuration(*ec.HealthCheckInterval)
	}
	if ec.MetricsAddr != nil {
		cfg.MetricsAddr = *ec.MetricsAddr
	}
	if ec.DefaultColor != nil {
		cfg.DefaultColor = *ec.DefaultColor
	}
	if ec.DefaultConfidence != nil {
		cfg.DefaultConfidence = *ec.DefaultConfidence
	}
}
