package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/trackerctl/internal/client/client"
	"github.com/dmitrijs2005/trackerctl/internal/client/config"
	"github.com/dmitrijs2005/trackerctl/internal/client/metrics"
	"github.com/dmitrijs2005/trackerctl/internal/client/services"
	"github.com/dmitrijs2005/trackerctl/internal/client/stream"
	"github.com/dmitrijs2005/trackerctl/internal/logging"

	_ "modernc.org/sqlite"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
	ModeUnknown Mode = "unknown"
)

type App struct {
	config  *config.Config
	log     logging.Logger
	metrics *metrics.Metrics

	apiClient      client.Client
	sessionService services.SessionService
	detectService  services.DetectionService

	userName string
	Mode     Mode

	// mu guards the live stream session and the detection settings.
	mu     sync.Mutex
	stream *stream.Session
	color  string
	conf   float64

	reader *bufio.Reader
}

func NewApp(c *config.Config, log logging.Logger) (*App, error) {

	ctx := context.Background()

	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	apiClient, err := client.NewHTTPClient(c.ServerEndpointAddr)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	ss := services.NewSessionService(db, log)
	ds := services.NewDetectionService(apiClient, c.DownloadsDir, log, m)

	return &App{
		config:         c,
		log:            log,
		metrics:        m,
		apiClient:      apiClient,
		sessionService: ss,
		detectService:  ds,
		Mode:           ModeUnknown,
		color:          c.DefaultColor,
		conf:           c.DefaultConfidence,
		reader:         bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	if a.Mode != mode {
		a.Mode = mode
		a.log.Info(ctx, "connectivity changed", "mode", mode)
	}
}

// Run restores a previously persisted session, starts the background
// watchers, and hands control to the REPL. It blocks until the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.apiClient.Close()
	defer a.stopStream()

	if user, err := a.sessionService.CurrentUser(ctx); err == nil {
		a.userName = user
		a.log.Info(ctx, "session restored", "user", user)
	}

	go a.StartOnlineStatusWatcher(ctx, a.config.HealthCheckInterval)

	if a.config.MetricsAddr != "" {
		go func() {
			if err := a.metrics.Serve(a.config.MetricsAddr); err != nil {
				a.log.Warn(ctx, "metrics listener stopped", "error", err)
			}
		}()
	}

	printlnFn("Welcome to tracker CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}

func (a *App) isLoggedIn() bool {
	return a.userName != ""
}

// getStatus renders the prompt decoration: user name, stream state when a
// stream is running, and connectivity mode.
func (a *App) getStatus() string {
	s := ""
	if a.userName != "" {
		s = a.userName + " "
	}
	a.mu.Lock()
	if a.stream != nil {
		s = s + a.stream.State().String() + " "
	}
	a.mu.Unlock()
	if a.Mode != "" {
		s = s + string(a.Mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// StartOnlineStatusWatcher polls the service health endpoint on the given
// interval and flips the Mode between online and offline accordingly.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err := a.detectService.Ping(pingCtx)
			cancel()

			if err != nil {
				if a.Mode != ModeOffline {
					a.setMode(ctx, ModeOffline)
				}
			} else {
				if a.Mode != ModeOnline {
					a.setMode(ctx, ModeOnline)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

// settings returns a snapshot of the current detection settings.
func (a *App) settings() client.Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return client.Settings{Color: a.color, Confidence: a.conf}
}
