package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/trackerctl/internal/client/client"
	"github.com/dmitrijs2005/trackerctl/internal/client/metrics"
	"github.com/dmitrijs2005/trackerctl/internal/common"
	"github.com/stretchr/testify/require"
)

// ---- fake client ----

// fakeClient implements client.Client for DetectionService unit tests.
type fakeClient struct {
	ImageRet []byte
	ImageErr error

	VideoRet *client.VideoResult
	VideoErr error

	FetchRet map[string][]byte
	FetchErr error

	PingErr error

	// Block, when non-nil, is closed by the test to release an in-flight
	// ProcessImage/ProcessVideo call.
	Block chan struct{}

	mu    sync.Mutex
	calls []string
}

func (f *fakeClient) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeClient) Close() error { return nil }

func (f *fakeClient) Ping(ctx context.Context) error {
	f.record("ping")
	return f.PingErr
}

func (f *fakeClient) ProcessImage(ctx context.Context, filename string, file io.Reader, s client.Settings) ([]byte, error) {
	f.record("image:" + filename)
	if f.Block != nil {
		<-f.Block
	}
	return f.ImageRet, f.ImageErr
}

func (f *fakeClient) ProcessVideo(ctx context.Context, filename string, file io.Reader, s client.Settings) (*client.VideoResult, error) {
	f.record("video:" + filename)
	if f.Block != nil {
		<-f.Block
	}
	return f.VideoRet, f.VideoErr
}

func (f *fakeClient) ProcessVideoDirect(ctx context.Context, filename string, file io.Reader, s client.Settings) ([]byte, error) {
	f.record("videodirect:" + filename)
	return nil, nil
}

func (f *fakeClient) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.record("fetch:" + url)
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	return f.FetchRet[url], nil
}

func (f *fakeClient) WebsocketURL() (string, error) { return "ws://example/ws", nil }

// ---- helpers ----

func newDetect(t *testing.T, fc *fakeClient) (DetectionService, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "downloads")
	return NewDetectionService(fc, dir, nopLogger(), metrics.New()), dir
}

func writeInput(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("input-bytes"), 0o600))
	return path
}

// ---- tests ----

func TestProcessImage_ValidationNoNetworkCall(t *testing.T) {
	fc := &fakeClient{}
	svc, _ := newDetect(t, fc)
	ctx := context.Background()

	_, err := svc.ProcessImage(ctx, "", client.Settings{})
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = svc.ProcessImage(ctx, "/nonexistent/cat.jpg", client.Settings{})
	require.ErrorIs(t, err, common.ErrValidation)

	require.Empty(t, fc.calls)
}

func TestProcessImage_WritesAnnotatedOutput(t *testing.T) {
	fc := &fakeClient{ImageRet: []byte("annotated")}
	svc, dir := newDetect(t, fc)

	in := writeInput(t, "cat.jpg")
	out, err := svc.ProcessImage(context.Background(), in, client.Settings{Color: "red", Confidence: 0.35})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "cat_annotated.jpg"), out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "annotated", string(data))
}

func TestProcessImage_ServerErrorReleasesGuard(t *testing.T) {
	fc := &fakeClient{ImageErr: client.ErrServerFailure}
	svc, _ := newDetect(t, fc)
	in := writeInput(t, "cat.jpg")

	_, err := svc.ProcessImage(context.Background(), in, client.Settings{})
	require.ErrorIs(t, err, client.ErrServerFailure)

	// Guard must be free again: the next submission reaches the client.
	fc.ImageErr = nil
	fc.ImageRet = []byte("ok")
	_, err = svc.ProcessImage(context.Background(), in, client.Settings{})
	require.NoError(t, err)
}

func TestProcessImage_RejectsOverlappingSubmission(t *testing.T) {
	fc := &fakeClient{ImageRet: []byte("ok"), Block: make(chan struct{})}
	svc, _ := newDetect(t, fc)
	in := writeInput(t, "cat.jpg")

	done := make(chan error, 1)
	go func() {
		_, err := svc.ProcessImage(context.Background(), in, client.Settings{})
		done <- err
	}()

	// Wait until the first call is inside the client.
	require.Eventually(t, func() bool { return fc.callCount() == 1 }, time.Second, time.Millisecond)

	_, err := svc.ProcessImage(context.Background(), in, client.Settings{})
	require.ErrorIs(t, err, ErrBusy)

	close(fc.Block)
	require.NoError(t, <-done)
}

func TestProcessVideo_DownloadsArtifactsAndFormatsStats(t *testing.T) {
	fc := &fakeClient{
		VideoRet: &client.VideoResult{
			JobID:    "j1",
			VideoURL: "http://srv/videos/a.mp4",
			PlotURL:  "http://srv/plots/a.png",
			Filename: "a_annotated.mp4",
			Stats:    json.RawMessage(`{"count":3}`),
		},
		FetchRet: map[string][]byte{
			"http://srv/videos/a.mp4": []byte("video-bytes"),
			"http://srv/plots/a.png":  []byte("plot-bytes"),
		},
	}
	svc, dir := newDetect(t, fc)
	in := writeInput(t, "a.mp4")

	out, err := svc.ProcessVideo(context.Background(), in, client.Settings{Color: "red", Confidence: 0.35})
	require.NoError(t, err)

	require.Equal(t, filepath.Join(dir, "a_annotated.mp4"), out.VideoPath)
	require.Equal(t, filepath.Join(dir, "a_annotated_analysis.png"), out.PlotPath)
	require.Equal(t, "a_annotated.mp4", out.Filename)
	require.JSONEq(t, `{"count": 3}`, out.Stats)
	require.Contains(t, out.Stats, "\n") // pretty-printed, not a single line

	video, err := os.ReadFile(out.VideoPath)
	require.NoError(t, err)
	require.Equal(t, "video-bytes", string(video))

	plot, err := os.ReadFile(out.PlotPath)
	require.NoError(t, err)
	require.Equal(t, "plot-bytes", string(plot))
}

func TestProcessVideo_FetchErrorPropagates(t *testing.T) {
	fc := &fakeClient{
		VideoRet: &client.VideoResult{
			VideoURL: "http://srv/videos/a.mp4",
			PlotURL:  "http://srv/plots/a.png",
			Filename: "a_annotated.mp4",
			Stats:    json.RawMessage(`{}`),
		},
		FetchErr: client.ErrServerFailure,
	}
	svc, _ := newDetect(t, fc)
	in := writeInput(t, "a.mp4")

	_, err := svc.ProcessVideo(context.Background(), in, client.Settings{})
	require.ErrorIs(t, err, client.ErrServerFailure)
}

func TestProcessVideo_ValidationNoNetworkCall(t *testing.T) {
	fc := &fakeClient{}
	svc, _ := newDetect(t, fc)

	_, err := svc.ProcessVideo(context.Background(), "/nonexistent/a.mp4", client.Settings{})
	require.ErrorIs(t, err, common.ErrValidation)
	require.Empty(t, fc.calls)
}

func TestPing_Proxies(t *testing.T) {
	boom := errors.New("down")
	fc := &fakeClient{PingErr: boom}
	svc, _ := newDetect(t, fc)

	require.ErrorIs(t, svc.Ping(context.Background()), boom)
}
