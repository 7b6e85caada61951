// This file defines the batch detection service: one-shot image and video
// processing flows over the remote service, with a single-flight guard per
// flow so a job cannot be submitted twice while one is still running.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dmitrijs2005/trackerctl/internal/client/client"
	"github.com/dmitrijs2005/trackerctl/internal/client/metrics"
	"github.com/dmitrijs2005/trackerctl/internal/common"
	"github.com/dmitrijs2005/trackerctl/internal/filex"
	"github.com/dmitrijs2005/trackerctl/internal/logging"
)

// ErrBusy is returned when a flow already has a job in flight.
var ErrBusy = errors.New("processing already in progress")

// VideoOutcome describes where the artifacts of a video job were written.
type VideoOutcome struct {
	VideoPath string
	PlotPath  string
	Filename  string
	Stats     string
}

// DetectionService defines the one-shot processing flows.
//
// Contract:
//   - ProcessImage: uploads the image at path, writes the annotated result
//     to the downloads dir as "<base>_annotated.jpg", returns that path.
//   - ProcessVideo: uploads the video at path, downloads the annotated video
//     and analysis plot, returns their locations plus formatted statistics.
//   - Ping: proxies the liveness probe.
//
// A missing input file is a validation error (common.ErrValidation); no
// request is made. Each flow rejects overlapping submissions with ErrBusy
// and always releases its guard, whatever the outcome.
type DetectionService interface {
	ProcessImage(ctx context.Context, path string, s client.Settings) (string, error)
	ProcessVideo(ctx context.Context, path string, s client.Settings) (*VideoOutcome, error)
	Ping(ctx context.Context) error
}

type detectionService struct {
	client       client.Client
	downloadsDir string
	log          logging.Logger
	metrics      *metrics.Metrics

	imageMu sync.Mutex
	videoMu sync.Mutex
}

// NewDetectionService constructs a DetectionService bound to the given API
// client. Downloads are written under downloadsDir, which is created on
// first use.
func NewDetectionService(c client.Client, downloadsDir string, log logging.Logger, m *metrics.Metrics) DetectionService {
	return &detectionService{client: c, downloadsDir: downloadsDir, log: log, metrics: m}
}

func (d *detectionService) Ping(ctx context.Context) error {
	return d.client.Ping(ctx)
}

// openInput validates that path names a readable regular file before any
// network traffic happens.
func openInput(path string) (*os.File, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: no file selected", common.ErrValidation)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrValidation, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", common.ErrValidation, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrValidation, path, err)
	}
	return f, nil
}

func (d *detectionService) outcome(kind string, err error) {
	if d.metrics == nil {
		return
	}
	label := "ok"
	switch {
	case errors.Is(err, common.ErrValidation):
		label = "validation"
	case err != nil:
		label = "error"
	}
	d.metrics.BatchRequests.WithLabelValues(kind, label).Inc()
}

func (d *detectionService) ProcessImage(ctx context.Context, path string, s client.Settings) (outPath string, err error) {
	if !d.imageMu.TryLock() {
		return "", ErrBusy
	}
	defer d.imageMu.Unlock()
	defer func() { d.outcome("image", err) }()

	f, err := openInput(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	annotated, err := d.client.ProcessImage(ctx, filepath.Base(path), f, s)
	if err != nil {
		return "", err
	}

	dir, err := filex.EnsureDir(d.downloadsDir)
	if err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outPath = filepath.Join(dir, base+"_annotated.jpg")
	if err := os.WriteFile(outPath, annotated, 0o660); err != nil {
		return "", fmt.Errorf("write annotated image: %w", err)
	}

	d.log.Info(ctx, "image processed", "input", path, "output", outPath)
	return outPath, nil
}

func (d *detectionService) ProcessVideo(ctx context.Context, path string, s client.Settings) (out *VideoOutcome, err error) {
	if !d.videoMu.TryLock() {
		return nil, ErrBusy
	}
	defer d.videoMu.Unlock()
	defer func() { d.outcome("video", err) }()

	f, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	result, err := d.client.ProcessVideo(ctx, filepath.Base(path), f, s)
	if err != nil {
		return nil, err
	}

	dir, err := filex.EnsureDir(d.downloadsDir)
	if err != nil {
		return nil, err
	}

	video, err := d.client.Fetch(ctx, result.VideoURL)
	if err != nil {
		return nil, fmt.Errorf("download annotated video: %w", err)
	}
	videoPath := filepath.Join(dir, result.Filename)
	if err := os.WriteFile(videoPath, video, 0o660); err != nil {
		return nil, fmt.Errorf("write annotated video: %w", err)
	}

	plot, err := d.client.Fetch(ctx, result.PlotURL)
	if err != nil {
		return nil, fmt.Errorf("download analysis plot: %w", err)
	}
	plotName := strings.TrimSuffix(result.Filename, filepath.Ext(result.Filename)) + "_analysis.png"
	plotPath := filepath.Join(dir, plotName)
	if err := os.WriteFile(plotPath, plot, 0o660); err != nil {
		return nil, fmt.Errorf("write analysis plot: %w", err)
	}

	d.log.Info(ctx, "video processed", "input", path, "video", videoPath, "plot", plotPath, "job_id", result.JobID)

	return &VideoOutcome{
		VideoPath: videoPath,
		PlotPath:  plotPath,
		Filename:  result.Filename,
		Stats:     formatStats(result.Stats),
	}, nil
}

// formatStats pretty-prints the statistics payload for display. The payload
// shape is service-defined; anything that is not valid JSON is shown as-is.
func formatStats(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
