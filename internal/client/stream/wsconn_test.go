package stream

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/trackerctl/internal/client/capture"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

// echoDetector mimics the detection service end of the protocol: settings
// messages get ACKed, binary frames come back with a marker prefix.
func echoDetector(ws *websocket.Conn) {
	for {
		var f rawFrame
		if err := envelopeCodec.Receive(ws, &f); err != nil {
			return
		}
		if f.payloadType == websocket.BinaryFrame {
			annotated := append([]byte("annotated:"), f.data...)
			if err := websocket.Message.Send(ws, annotated); err != nil {
				return
			}
			continue
		}
		text := string(f.data)
		var reply string
		switch {
		case strings.HasPrefix(text, "color=") || strings.HasPrefix(text, "conf="):
			reply = "ACK:" + text
		default:
			reply = "ACK"
		}
		if err := websocket.Message.Send(ws, reply); err != nil {
			return
		}
	}
}

func startDetectorServer(t *testing.T, h websocket.Handler) (wsURL, origin string) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), srv.URL
}

func TestWSConn_PreservesPayloadType(t *testing.T) {
	wsURL, origin := startDetectorServer(t, websocket.Handler(echoDetector))

	conn, err := dialWebsocket(wsURL, origin)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SendText("color=blue"))
	msg, err := conn.Receive()
	require.NoError(t, err)
	require.Equal(t, KindAck, msg.Kind)
	require.Equal(t, "ACK:color=blue", msg.Text)

	require.NoError(t, conn.SendBinary([]byte{0xff, 0xd8, 0x01}))
	msg, err = conn.Receive()
	require.NoError(t, err)
	require.Equal(t, KindFrame, msg.Kind)
	require.Equal(t, append([]byte("annotated:"), 0xff, 0xd8, 0x01), msg.Frame)
}

func TestWSConn_ReceiveAfterServerClose(t *testing.T) {
	wsURL, origin := startDetectorServer(t, websocket.Handler(func(ws *websocket.Conn) {
		ws.Close()
	}))

	conn, err := dialWebsocket(wsURL, origin)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Receive()
	require.ErrorIs(t, err, io.EOF)
}

func TestSession_AgainstRealWebsocket(t *testing.T) {
	wsURL, origin := startDetectorServer(t, websocket.Handler(echoDetector))

	var mu sync.Mutex
	var frames [][]byte

	s, err := NewSession(Options{
		URL:    wsURL,
		Origin: origin,
		Source: capture.NewPatternSource(),
		Sink: func(f []byte) {
			mu.Lock()
			frames = append(frames, f)
			mu.Unlock()
		},
		CaptureInterval: 10 * time.Millisecond,
		Policy:          ReconnectPolicy{Delay: 10 * time.Millisecond, Backoff: 1},
		Color:           "green",
		Confidence:      0.4,
		Log:             testLogger(),
	})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Start(context.Background()))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(frames) >= 2
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	// Every annotated frame wraps a JPEG produced by the encoder.
	for _, f := range frames {
		require.True(t, bytes.HasPrefix(f, []byte("annotated:")))
		require.True(t, bytes.HasPrefix(f[len("annotated:"):], []byte{0xff, 0xd8}))
	}
}
