package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*HTTPClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewHTTPClient(srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, srv
}

func TestNewHTTPClient_RejectsBadScheme(t *testing.T) {
	_, err := NewHTTPClient("ftp://example.com")
	require.Error(t, err)
}

func TestPing(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.Write([]byte(`{"ok": true}`))
	}))

	require.NoError(t, c.Ping(context.Background()))
}

func TestPing_ServerError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	require.ErrorIs(t, c.Ping(context.Background()), ErrServerFailure)
}

func TestPing_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c, err := NewHTTPClient(srv.URL)
	require.NoError(t, err)
	srv.Close()

	require.ErrorIs(t, c.Ping(context.Background()), ErrUnavailable)
}

func TestProcessImage_SendsMultipartAndReturnsBody(t *testing.T) {
	annotated := []byte{0xff, 0xd8, 0xff, 0xe0, 0x01, 0x02}

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/process", r.URL.Path)
		require.NotEmpty(t, r.Header.Get("X-Job-ID"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "red", r.FormValue("color"))
		require.Equal(t, "0.35", r.FormValue("conf"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "cat.jpg", header.Filename)

		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(annotated)
	}))

	got, err := c.ProcessImage(context.Background(), "cat.jpg", strings.NewReader("fake-jpeg"), Settings{Color: "red", Confidence: 0.35})
	require.NoError(t, err)
	require.Equal(t, annotated, got)
}

func TestProcessImage_ServerErrorWithMessage(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "could not decode image"}`))
	}))

	_, err := c.ProcessImage(context.Background(), "cat.jpg", strings.NewReader("junk"), Settings{Color: "red", Confidence: 0.35})
	require.ErrorIs(t, err, ErrServerFailure)
	require.Contains(t, err.Error(), "could not decode image")
}

func TestProcessVideo_ValidResponse(t *testing.T) {
	c, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/process_video2", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, _, err := r.FormFile("video")
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"job_id": "j1",
			"video_url": "/videos/a.mp4",
			"plot_url": "/plots/a.png",
			"stats": {"count": 3},
			"filename": "a_annotated.mp4"
		}`))
	}))

	res, err := c.ProcessVideo(context.Background(), "a.mp4", strings.NewReader("fake-mp4"), Settings{Color: "blue", Confidence: 0.5})
	require.NoError(t, err)
	require.Equal(t, "j1", res.JobID)
	require.Equal(t, srv.URL+"/videos/a.mp4", res.VideoURL)
	require.Equal(t, srv.URL+"/plots/a.png", res.PlotURL)
	require.Equal(t, "a_annotated.mp4", res.Filename)
	require.JSONEq(t, `{"count": 3}`, string(res.Stats))
}

func TestProcessVideo_MissingFields(t *testing.T) {
	bodies := map[string]string{
		"video_url": `{"plot_url": "/p", "stats": {}, "filename": "f"}`,
		"plot_url":  `{"video_url": "/v", "stats": {}, "filename": "f"}`,
		"filename":  `{"video_url": "/v", "plot_url": "/p", "stats": {}}`,
		"stats":     `{"video_url": "/v", "plot_url": "/p", "filename": "f"}`,
	}

	for field, body := range bodies {
		t.Run(field, func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))

			_, err := c.ProcessVideo(context.Background(), "a.mp4", strings.NewReader("x"), Settings{})
			require.ErrorIs(t, err, ErrBadResponse)
			require.Contains(t, err.Error(), field)
		})
	}
}

func TestProcessVideo_NotJSON(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>oops</html>"))
	}))

	_, err := c.ProcessVideo(context.Background(), "a.mp4", strings.NewReader("x"), Settings{})
	require.ErrorIs(t, err, ErrBadResponse)
}

func TestProcessVideoDirect(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/process_video", r.URL.Path)
		w.Write([]byte("annotated-mp4"))
	}))

	got, err := c.ProcessVideoDirect(context.Background(), "a.mp4", strings.NewReader("x"), Settings{Color: "red"})
	require.NoError(t, err)
	require.Equal(t, []byte("annotated-mp4"), got)
}

func TestFetch_ResolvesRelative(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/download/j1", r.URL.Path)
		w.Write([]byte("payload"))
	}))

	got, err := c.Fetch(context.Background(), "/api/download/j1")
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), got)
}

func TestFetch_NotFound(t *testing.T) {
	c, _ := newTestClient(t, http.NotFoundHandler())

	_, err := c.Fetch(context.Background(), "/api/download/missing")
	require.ErrorIs(t, err, ErrServerFailure)
}

func TestWebsocketURL(t *testing.T) {
	c, err := NewHTTPClient("http://example.com:8000")
	require.NoError(t, err)
	u, err := c.WebsocketURL()
	require.NoError(t, err)
	require.Equal(t, "ws://example.com:8000/ws", u)

	c, err = NewHTTPClient("https://example.com:8000")
	require.NoError(t, err)
	u, err = c.WebsocketURL()
	require.NoError(t, err)
	require.Equal(t, "wss://example.com:8000/ws", u)
}
