package client

import (
	"context"
	"encoding/json"
	"io"
)

// Settings carries the two detection parameters sent with every request.
type Settings struct {
	Color      string
	Confidence float64
}

// VideoResult is the validated outcome of a whole-video processing job.
// VideoURL and PlotURL are absolute, already resolved against the service
// base address.
type VideoResult struct {
	JobID    string
	VideoURL string
	PlotURL  string
	Filename string
	Stats    json.RawMessage
}

// Client defines the batch operations of the detection service.
//
// Contract:
//   - ProcessImage: submit one image, receive the annotated image bytes.
//   - ProcessVideo: submit one video, receive a validated VideoResult.
//   - ProcessVideoDirect: legacy route returning the annotated video bytes
//     directly, with no statistics.
//   - Fetch: download a resource previously referenced by a VideoResult.
//   - Ping: liveness probe.
//
// All methods honor context cancellation. Transport failures map to
// ErrUnavailable, non-2xx statuses to ErrServerFailure, and shape violations
// to ErrBadResponse.
type Client interface {
	Close() error
	Ping(ctx context.Context) error
	ProcessImage(ctx context.Context, filename string, file io.Reader, s Settings) ([]byte, error)
	ProcessVideo(ctx context.Context, filename string, file io.Reader, s Settings) (*VideoResult, error)
	ProcessVideoDirect(ctx context.Context, filename string, file io.Reader, s Settings) ([]byte, error)
	Fetch(ctx context.Context, url string) ([]byte, error)
	WebsocketURL() (string, error)
}
