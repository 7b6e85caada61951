package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/trackerctl/internal/flagx"
	"github.com/dmitrijs2005/trackerctl/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "1s"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config (which uses time.Duration).
//
// Pointer fields distinguish "absent" from "zero" so a JSON file only
// overrides the keys it actually sets.
type JsonConfig struct {
	ServerEndpointAddr   *string         `json:"server_endpoint_addr"`
	DatabasePath         *string         `json:"database_path"`
	DownloadsDir         *string         `json:"downloads_dir"`
	CaptureDevice        *string         `json:"capture_device"`
	CaptureInterval      *timex.Duration `json:"capture_interval"`
	ReconnectDelay       *timex.Duration `json:"reconnect_delay"`
	ReconnectBackoff     *float64        `json:"reconnect_backoff"`
	ReconnectMaxAttempts *int            `json:"reconnect_max_attempts"`
	HealthCheckInterval  *timex.Duration `json:"health_check_interval"`
	MetricsAddr          *string         `json:"metrics_addr"`
	DefaultColor         *string         `json:"default_color"`
	DefaultConfidence    *float64        `json:"default_confidence"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c or -config) via flagx.JsonConfigFlags().
//  2. If empty, no JSON is loaded and the function returns.
//
// Intended usage is: defaults -> parseJson -> parseEnv -> parseFlags, where
// later stages override earlier ones. Panics on read or unmarshal errors
// (caller should recover if desired).
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != nil {
		cfg.ServerEndpointAddr = *jc.ServerEndpointAddr
	}
	if jc.DatabasePath != nil {
		cfg.DatabasePath = *jc.DatabasePath
	}
	if jc.DownloadsDir != nil {
		cfg.DownloadsDir = *jc.DownloadsDir
	}
	if jc.CaptureDevice != nil {
		cfg.CaptureDevice = *jc.CaptureDevice
	}
	if jc.CaptureInterval != nil {
		cfg.CaptureInterval = jc.CaptureInterval.Duration
	}
	if jc.ReconnectDelay != nil {
		cfg.ReconnectDelay = jc.ReconnectDelay.Duration
	}
	if jc.ReconnectBackoff != nil {
		cfg.ReconnectBackoff = *jc.ReconnectBackoff
	}
	if jc.ReconnectMaxAttempts != nil {
		cfg.ReconnectMaxAttempts = *jc.ReconnectMaxAttempts
	}
	if jc.HealthCheckInterval != nil {
		cfg.HealthCheckInterval = jc.HealthCheckInterval.Duration
	}
	if jc.MetricsAddr != nil {
		cfg.MetricsAddr = *jc.MetricsAddr
	}
	if jc.DefaultColor != nil {
		cfg.DefaultColor = *jc.DefaultColor
	}
	if jc.DefaultConfidence != nil {
		cfg.DefaultConfidence = *jc.DefaultConfidence
	}
}
