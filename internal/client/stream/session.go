// Package stream implements the live detection path: a websocket session
// that continuously transmits camera frames to the detection service and
// hands annotated frames back to a sink.
//
// The design keeps the invariants of the original client while fixing its
// flagged weaknesses: connection state and the in-flight guard live on an
// explicit session object instead of ambient globals, the reconnect loop is
// policy-driven and cancellable, and inbound messages are decoded into a
// tagged envelope at the boundary.
package stream

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/trackerctl/internal/client/capture"
	"github.com/dmitrijs2005/trackerctl/internal/client/metrics"
	"github.com/dmitrijs2005/trackerctl/internal/logging"
)

// State is the connection state of a session.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// FrameSink consumes annotated frames in receipt order.
type FrameSink func(frame []byte)

// Options configures a Session.
type Options struct {
	// URL is the websocket endpoint; Origin is the HTTP base address.
	URL    string
	Origin string

	// Source supplies camera frames. The session takes ownership and
	// releases it on Close.
	Source capture.Source

	// Sink receives annotated frames. Required.
	Sink FrameSink

	// CaptureInterval is the frame tick period.
	CaptureInterval time.Duration

	// Policy governs reconnects after any close.
	Policy ReconnectPolicy

	// Color and Confidence are the initial detection settings, pushed on
	// every (re)connect.
	Color      string
	Confidence float64

	Log     logging.Logger
	Metrics *metrics.Metrics

	// dialer is a test seam; nil means the real websocket dialer.
	dialer Dialer
}

// Session owns one streaming conversation: the connection state machine,
// the capture loop with its single-slot in-flight guard, and the reconnect
// policy. Construct with NewSession, start with Start, stop with Close.
type Session struct {
	opts    Options
	dial    Dialer
	log     logging.Logger
	metrics *metrics.Metrics

	encoder capture.Encoder

	state    atomic.Int32
	inFlight atomic.Bool

	mu      sync.Mutex
	conn    Conn
	color   string
	conf    float64
	cancel  context.CancelFunc
	started bool

	wg sync.WaitGroup
}

// NewSession validates opts and builds a stopped session.
func NewSession(opts Options) (*Session, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("stream: websocket url is required")
	}
	if opts.Source == nil {
		return nil, fmt.Errorf("stream: frame source is required")
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("stream: frame sink is required")
	}
	if opts.CaptureInterval <= 0 {
		opts.CaptureInterval = 33 * time.Millisecond
	}
	if opts.Policy.Delay <= 0 {
		opts.Policy = DefaultReconnectPolicy()
	}

	dial := opts.dialer
	if dial == nil {
		dial = dialWebsocket
	}

	s := &Session{
		opts:    opts,
		dial:    dial,
		log:     opts.Log,
		metrics: opts.Metrics,
		color:   opts.Color,
		conf:    opts.Confidence,
	}
	s.state.Store(int32(StateDisconnected))
	return s, nil
}

// State returns the current connection state.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
	if s.metrics != nil {
		if st == StateOpen {
			s.metrics.ConnectionOpen.Set(1)
		} else {
			s.metrics.ConnectionOpen.Set(0)
		}
	}
}

// Start launches the session's connect/reconnect loop. It returns
// immediately; Close stops everything.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("stream: session already started")
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
	return nil
}

// Close cancels the reconnect loop, closes the connection, waits for all
// session goroutines, and releases the frame source.
func (s *Session) Close() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	conn := s.conn
	s.mu.Unlock()

	cancel()
	if conn != nil {
		_ = conn.Close()
	}
	s.wg.Wait()

	s.setState(StateDisconnected)
	return s.opts.Source.Close()
}

// run is the connection state machine: dial, serve, and on any close
// schedule exactly one reconnect per the policy.
func (s *Session) run(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		s.setState(StateConnecting)
		conn, err := s.dial(s.opts.URL, s.opts.Origin)
		if err != nil {
			s.log.Warn(ctx, "websocket connect failed", "url", s.opts.URL, "error", err)
		} else {
			attempt = 0
			s.serve(ctx, conn)
		}
		s.setState(StateClosed)

		attempt++
		if s.opts.Policy.Exhausted(attempt) {
			s.log.Error(ctx, "reconnect attempts exhausted", "attempts", attempt-1)
			s.setState(StateDisconnected)
			return
		}

		delay := s.opts.Policy.NextDelay(attempt)
		s.log.Info(ctx, "reconnecting", "attempt", attempt, "delay", delay)
		if s.metrics != nil {
			s.metrics.Reconnects.Inc()
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

// serve drives one established connection: pushes the current settings,
// starts the capture ticker, and reads inbound messages until the
// connection dies.
func (s *Session) serve(ctx context.Context, conn Conn) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	connCtx, cancelConn := context.WithCancel(ctx)
	captureDone := make(chan struct{})

	defer func() {
		cancelConn()
		_ = conn.Close()
		<-captureDone
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
	}()

	s.setState(StateOpen)
	s.log.Info(ctx, "websocket connected", "url", s.opts.URL)

	s.pushSettings(ctx, conn)

	go func() {
		defer close(captureDone)
		s.captureLoop(connCtx, conn)
	}()

	for {
		msg, err := conn.Receive()
		if err != nil {
			if ctx.Err() == nil {
				s.log.Warn(ctx, "websocket closed", "error", err)
			}
			return
		}
		s.handleMessage(ctx, msg)
	}
}

// captureLoop ticks at the capture interval and transmits one frame per
// tick, subject to the preconditions of sendFrame. Missed ticks coalesce.
func (s *Session) captureLoop(ctx context.Context, conn Conn) {
	ticker := time.NewTicker(s.opts.CaptureInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sendFrame(ctx, conn)
		}
	}
}

// sendFrame performs one encode+send cycle. Preconditions: the source has a
// frame, the connection is open, and no other cycle is in flight. The
// in-flight guard is set before encoding starts and cleared unconditionally
// once the send attempt resolves, so at most one cycle ever runs at a time;
// while one is running, further ticks are no-ops. That is the client's
// entire backpressure mechanism: frames are dropped at the source rather
// than queued.
func (s *Session) sendFrame(ctx context.Context, conn Conn) {
	if !s.opts.Source.Ready() || s.State() != StateOpen {
		return
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		if s.metrics != nil {
			s.metrics.FramesSkipped.Inc()
		}
		return
	}
	defer s.inFlight.Store(false)

	img, err := s.opts.Source.Grab()
	if err != nil {
		s.log.Warn(ctx, "frame grab failed", "error", err)
		return
	}

	data, err := s.encoder.Encode(img)
	if err != nil {
		s.log.Warn(ctx, "frame encode failed", "error", err)
		return
	}

	// The connection may have died during the encode.
	if s.State() != StateOpen {
		return
	}

	if err := conn.SendBinary(data); err != nil {
		s.log.Warn(ctx, "frame send failed", "error", err)
		return
	}
	if s.metrics != nil {
		s.metrics.FramesSent.Inc()
	}
}

func (s *Session) handleMessage(ctx context.Context, msg Message) {
	switch msg.Kind {
	case KindFrame:
		if s.metrics != nil {
			s.metrics.FramesReceived.Inc()
		}
		s.opts.Sink(msg.Frame)
	case KindError:
		if s.metrics != nil {
			s.metrics.StreamErrors.Inc()
		}
		s.log.Warn(ctx, "service reported error", "message", msg.Text)
	case KindAck:
		s.log.Debug(ctx, "service ack", "message", msg.Text)
	default:
		s.log.Debug(ctx, "ignoring unexpected text message", "message", msg.Text)
	}
}

// pushSettings emits both current settings as control messages. Called on
// every (re)establish before any frame is sent.
func (s *Session) pushSettings(ctx context.Context, conn Conn) {
	s.mu.Lock()
	color, conf := s.color, s.conf
	s.mu.Unlock()

	if err := conn.SendText("color=" + color); err != nil {
		s.log.Warn(ctx, "settings push failed", "setting", "color", "error", err)
		return
	}
	if err := conn.SendText("conf=" + formatConf(conf)); err != nil {
		s.log.Warn(ctx, "settings push failed", "setting", "conf", "error", err)
	}
}

// SetColor updates the color setting, pushing one control message
// immediately when the connection is open. No acknowledgment is awaited.
func (s *Session) SetColor(color string) {
	s.mu.Lock()
	s.color = color
	conn := s.conn
	s.mu.Unlock()

	if conn != nil && s.State() == StateOpen {
		_ = conn.SendText("color=" + color)
	}
}

// SetConfidence updates the confidence threshold, pushing one control
// message immediately when the connection is open.
func (s *Session) SetConfidence(conf float64) {
	s.mu.Lock()
	s.conf = conf
	conn := s.conn
	s.mu.Unlock()

	if conn != nil && s.State() == StateOpen {
		_ = conn.SendText("conf=" + formatConf(conf))
	}
}

func formatConf(conf float64) string {
	return strconv.FormatFloat(conf, 'g', -1, 64)
}
