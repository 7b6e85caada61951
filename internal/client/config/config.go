package config

import "time"

// Config holds runtime settings for the trackerctl CLI.
//
// Fields:
//   - ServerEndpointAddr: base http(s) URL of the detection service; the
//     websocket URL is derived from it (http→ws, https→wss) plus "/ws".
//   - DatabasePath: location of the local SQLite database.
//   - DownloadsDir: where annotated outputs are written.
//   - CaptureDevice: camera device handed to the capture source.
//   - CaptureInterval: period of the frame-capture tick (~30 fps default).
//   - ReconnectDelay / ReconnectBackoff / ReconnectMaxAttempts: streaming
//     reconnect policy. Backoff 1.0 keeps the delay fixed; max attempts 0
//     retries forever.
//   - HealthCheckInterval: how often the client probes server reachability.
//   - MetricsAddr: optional listen address for Prometheus metrics; empty
//     disables the listener.
//   - DefaultColor / DefaultConfidence: initial detection settings.
type Config struct {
	ServerEndpointAddr   string
	DatabasePath         string
	DownloadsDir         string
	CaptureDevice        string
	CaptureInterval      time.Duration
	ReconnectDelay       time.Duration
	ReconnectBackoff     float64
	ReconnectMaxAttempts int
	HealthCheckInterval  time.Duration
	MetricsAddr          string
	DefaultColor         string
	DefaultConfidence    float64
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8000"
	c.DatabasePath = "tracker.db"
	c.DownloadsDir = "downloads"
	c.CaptureDevice = "/dev/video0"
	c.CaptureInterval = 33 * time.Millisecond
	c.ReconnectDelay = time.Second
	c.ReconnectBackoff = 1.0
	c.ReconnectMaxAttempts = 0
	c.HealthCheckInterval = 3 * time.Second
	c.MetricsAddr = ""
	c.DefaultColor = "red"
	c.DefaultConfidence = 0.35
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), environment variables, and command-line flags. Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
