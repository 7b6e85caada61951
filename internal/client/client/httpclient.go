package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// HTTPClient is the concrete Client speaking the detection service's HTTP
// API. Batch submissions carry an X-Job-ID header so a request can be
// correlated with server-side logs.
type HTTPClient struct {
	base *url.URL
	http *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds a client for the given base URL, e.g.
// "http://127.0.0.1:8000". Only http and https schemes are accepted.
func NewHTTPClient(baseURL string) (*HTTPClient, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q in base url %q", base.Scheme, baseURL)
	}

	return &HTTPClient{
		base: base,
		http: &http.Client{},
	}, nil
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// Ping probes GET /health.
func (c *HTTPClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve("/health"), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health returned %s", ErrServerFailure, resp.Status)
	}
	return nil
}

// ProcessImage submits one image frame for annotation and returns the raw
// annotated image bytes.
func (c *HTTPClient) ProcessImage(ctx context.Context, filename string, file io.Reader, s Settings) ([]byte, error) {
	return c.postFile(ctx, "/api/process", "file", filename, file, s)
}

// ProcessVideoDirect submits a video on the legacy route and returns the
// annotated video bytes directly.
func (c *HTTPClient) ProcessVideoDirect(ctx context.Context, filename string, file io.Reader, s Settings) ([]byte, error) {
	return c.postFile(ctx, "/api/process_video", "video", filename, file, s)
}

// videoResponse is a DTO for the /api/process_video2 JSON body. Pointer
// fields let validation distinguish a missing key from an empty value.
type videoResponse struct {
	JobID    *string         `json:"job_id"`
	VideoURL *string         `json:"video_url"`
	PlotURL  *string         `json:"plot_url"`
	Filename *string         `json:"filename"`
	Stats    json.RawMessage `json:"stats"`
}

// ProcessVideo submits a video for whole-file processing and validates the
// structured response at the boundary. Missing or empty required fields are
// reported as ErrBadResponse rather than propagated into the UI.
func (c *HTTPClient) ProcessVideo(ctx context.Context, filename string, file io.Reader, s Settings) (*VideoResult, error) {
	body, err := c.postFile(ctx, "/api/process_video2", "video", filename, file, s)
	if err != nil {
		return nil, err
	}

	var vr videoResponse
	if err := json.Unmarshal(body, &vr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	missing := func(field string) error {
		return fmt.Errorf("%w: missing or empty field %q", ErrBadResponse, field)
	}
	if vr.VideoURL == nil || *vr.VideoURL == "" {
		return nil, missing("video_url")
	}
	if vr.PlotURL == nil || *vr.PlotURL == "" {
		return nil, missing("plot_url")
	}
	if vr.Filename == nil || *vr.Filename == "" {
		return nil, missing("filename")
	}
	if len(vr.Stats) == 0 || string(vr.Stats) == "null" {
		return nil, missing("stats")
	}

	result := &VideoResult{
		VideoURL: c.resolve(*vr.VideoURL),
		PlotURL:  c.resolve(*vr.PlotURL),
		Filename: *vr.Filename,
		Stats:    vr.Stats,
	}
	if vr.JobID != nil {
		result.JobID = *vr.JobID
	}
	return result, nil
}

// Fetch downloads a resource addressed by a VideoResult URL. Relative URLs
// are resolved against the base address.
func (c *HTTPClient) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(rawURL), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %s", ErrServerFailure, rawURL, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// WebsocketURL derives the streaming endpoint from the base address: the
// scheme mirrors the HTTP scheme (http→ws, https→wss) and the path is /ws.
func (c *HTTPClient) WebsocketURL() (string, error) {
	ws := *c.base
	switch c.base.Scheme {
	case "http":
		ws.Scheme = "ws"
	case "https":
		ws.Scheme = "wss"
	default:
		return "", fmt.Errorf("cannot derive websocket url from scheme %q", c.base.Scheme)
	}
	ws.Path = "/ws"
	return ws.String(), nil
}

// postFile sends one multipart request with the file under fieldName plus
// the color/conf form fields, and returns the raw response body.
func (c *HTTPClient) postFile(ctx context.Context, path, fieldName, filename string, file io.Reader, s Settings) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile(fieldName, filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copy file: %w", err)
	}
	if err := mw.WriteField("color", s.Color); err != nil {
		return nil, fmt.Errorf("write color field: %w", err)
	}
	if err := mw.WriteField("conf", strconv.FormatFloat(s.Confidence, 'g', -1, 64)); err != nil {
		return nil, fmt.Errorf("write conf field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(path), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Job-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if msg := serverErrorMessage(body); msg != "" {
			return nil, fmt.Errorf("%w: %s", ErrServerFailure, msg)
		}
		return nil, fmt.Errorf("%w: %s returned %s", ErrServerFailure, path, resp.Status)
	}
	return body, nil
}

// serverErrorMessage extracts the "error" field from a JSON failure body,
// the shape the backend uses for processing errors.
func serverErrorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	return strings.TrimSpace(e.Error)
}

// resolve turns a possibly relative URL into an absolute one against the
// base address. Already absolute URLs pass through unchanged.
func (c *HTTPClient) resolve(rawURL string) string {
	ref, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return c.base.ResolveReference(ref).String()
}
