package cli

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"

	"github.com/dmitrijs2005/trackerctl/internal/client/capture"
	"github.com/dmitrijs2005/trackerctl/internal/client/stream"
	"github.com/dmitrijs2005/trackerctl/internal/common"
	"github.com/dmitrijs2005/trackerctl/internal/filex"
)

// liveFrameName is the file under the downloads directory that always holds
// the most recent annotated frame.
const liveFrameName = "live.jpg"

// colorChoices are the target colors the detection service understands.
var colorChoices = map[string]bool{"red": true, "green": true, "blue": true}

// newSource builds the camera source named in the configuration. The
// special device name "pattern" selects the synthetic test pattern, anything
// else is treated as a V4L2 device path.
func newSource(device string) (capture.Source, error) {
	if device == "pattern" {
		return capture.NewPatternSource(), nil
	}
	return capture.NewFFmpegSource(device)
}

// Stream starts the live detection stream. It requires a logged-in session,
// opens the camera, and launches the websocket session; annotated frames
// are continuously written to <downloads>/live.jpg. A second invocation
// while a stream is running is rejected.
func (a *App) Stream(ctx context.Context) error {
	if _, err := a.sessionService.RequireSession(ctx); err != nil {
		if errors.Is(err, common.ErrNoSession) {
			printlnFn("Please login first")
			return nil
		}
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stream != nil {
		printlnFn("Stream already running, use 'stop' first")
		return nil
	}

	wsURL, err := a.apiClient.WebsocketURL()
	if err != nil {
		return err
	}

	dir, err := filex.EnsureDir(a.config.DownloadsDir)
	if err != nil {
		return err
	}
	framePath := filepath.Join(dir, liveFrameName)

	source, err := newSource(a.config.CaptureDevice)
	if err != nil {
		a.log.Error(ctx, "opening camera failed", "device", a.config.CaptureDevice, "error", err)
		return err
	}

	s, err := stream.NewSession(stream.Options{
		URL:             wsURL,
		Origin:          a.config.ServerEndpointAddr,
		Source:          source,
		CaptureInterval: a.config.CaptureInterval,
		Policy: stream.ReconnectPolicy{
			Delay:       a.config.ReconnectDelay,
			Backoff:     a.config.ReconnectBackoff,
			MaxAttempts: a.config.ReconnectMaxAttempts,
		},
		Color:      a.color,
		Confidence: a.conf,
		Log:        a.log,
		Metrics:    a.metrics,
		Sink: func(frame []byte) {
			if err := filex.WriteAtomic(framePath, frame); err != nil {
				a.log.Warn(ctx, "writing live frame failed", "path", framePath, "error", err)
			}
		},
	})
	if err != nil {
		source.Close()
		return err
	}

	if err := s.Start(ctx); err != nil {
		return err
	}

	a.stream = s
	printlnFn("Streaming started, annotated frames at", framePath)
	return nil
}

// Stop terminates the live stream, if one is running.
func (a *App) Stop(ctx context.Context) error {
	if !a.stopStream() {
		printlnFn("No stream is running")
		return nil
	}
	printlnFn("Streaming stopped")
	return nil
}

// stopStream closes the current stream session. It reports whether there
// was one to close.
func (a *App) stopStream() bool {
	a.mu.Lock()
	s := a.stream
	a.stream = nil
	a.mu.Unlock()

	if s == nil {
		return false
	}
	_ = s.Close()
	return true
}

// Color sets the target color. The new value applies to subsequent image
// and video submissions and is pushed to a live stream immediately.
func (a *App) Color(ctx context.Context, value string) error {
	if !colorChoices[value] {
		printlnFn("Unknown color:", value, "(choose red, green or blue)")
		return common.ErrValidation
	}

	a.mu.Lock()
	a.color = value
	s := a.stream
	a.mu.Unlock()

	if s != nil {
		s.SetColor(value)
	}
	printlnFn("Color set to", value)
	return nil
}

// Confidence sets the detection confidence threshold from its string form.
// Values outside (0, 1] are rejected.
func (a *App) Confidence(ctx context.Context, value string) error {
	conf, err := strconv.ParseFloat(value, 64)
	if err != nil || conf <= 0 || conf > 1 {
		printlnFn("Invalid confidence:", value, "(expected a number between 0 and 1)")
		return common.ErrValidation
	}

	a.mu.Lock()
	a.conf = conf
	s := a.stream
	a.mu.Unlock()

	if s != nil {
		s.SetConfidence(conf)
	}
	printlnFn("Confidence set to", value)
	return nil
}
