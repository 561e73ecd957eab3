package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/jmylchreest/volctrld/internal/config"
	"github.com/jmylchreest/volctrld/internal/control"
	"github.com/jmylchreest/volctrld/internal/display"
	"github.com/jmylchreest/volctrld/internal/events"
	"github.com/jmylchreest/volctrld/internal/http/handlers"
	"github.com/jmylchreest/volctrld/internal/http/mw"
	"github.com/jmylchreest/volctrld/internal/http/routes"
	"github.com/jmylchreest/volctrld/internal/input"
	"github.com/jmylchreest/volctrld/internal/mqtt"
	"github.com/jmylchreest/volctrld/internal/utils"
	"github.com/jmylchreest/volctrld/internal/ws"
	"github.com/jmylchreest/volctrld/pkg/companion"
	"github.com/jmylchreest/volctrld/pkg/speaker"
)

// Speaker is the monitor protocol client the daemon drives.
type Speaker interface {
	control.Speaker
	StandbySetter
}

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// Server manages the volctrld daemon: the control loop and the socket,
// HTTP, MQTT and evdev surfaces around it.
type Server struct {
	logger     *slog.Logger
	level      *slog.LevelVar
	cfg        *config.Config
	info       BuildInfo
	eventBus   *events.Bus
	loop       *Loop
	socketPath string
	listener   net.Listener
	shutdown   chan struct{}
	wg         sync.WaitGroup
	rootCtx    context.Context
	rootCancel context.CancelFunc
	httpServer *http.Server
	httpAddr   net.Addr

	dialMQTT func(config.MQTTConfig, *slog.Logger) (mqtt.Conn, error)
}

// New wires the registry, the controller and the loop from cfg. level is the
// handler level shared with the logger so it can be changed at runtime.
func New(logger *slog.Logger, level *slog.LevelVar, cfg *config.Config, spk Speaker, info BuildInfo) (*Server, error) {
	registry := speaker.NewRegistry()
	for _, d := range cfg.Devices {
		if _, err := registry.Register(d.Address, d.Name); err != nil {
			return nil, fmt.Errorf("register device %s: %w", d.Address, err)
		}
	}

	var comp *companion.Device
	if cfg.Companion.Enabled {
		api := companion.NewHTTPAPI(cfg.Companion.Address, cfg.Companion.HTTPTimeout, logger)
		upnp := companion.NewUPnP(cfg.Companion.Address, companion.DefaultDescriptionPorts, cfg.Companion.SOAPTimeout, logger)
		comp = companion.NewDevice(cfg.Companion.Address, api, upnp, cfg.Companion.RetryInterval, logger)
	}

	eventBus := events.NewBus()
	ctrl := control.New(controlConfig(cfg), registry, spk, display.NewBusDisplay(eventBus), comp, logger)

	rootCtx, rootCancel := context.WithCancel(context.Background())

	loop := NewLoop(ctrl, spk, cfg.Control.TickInterval, logger)
	if comp != nil {
		comp.SetClock(func() time.Time { return loop.clock() })
	}

	return &Server{
		logger:     logger,
		level:      level,
		cfg:        cfg,
		info:       info,
		eventBus:   eventBus,
		loop:       loop,
		socketPath: cfg.Server.SocketPath,
		shutdown:   make(chan struct{}),
		rootCtx:    rootCtx,
		rootCancel: rootCancel,
		dialMQTT:   mqtt.Dial,
	}, nil
}

// controlConfig maps the daemon configuration onto controller timings.
func controlConfig(cfg *config.Config) control.Config {
	cc := control.DefaultConfig()
	cc.PollInterval = cfg.Control.PollInterval
	cc.QuietPeriod = cfg.Control.QuietPeriod
	cc.MinCommandInterval = cfg.Control.MinCommandInterval
	cc.LongPress = cfg.Control.LongPress
	cc.MenuGuard = cfg.Control.MenuGuard
	cc.VolumeStep = cfg.Speaker.VolumeStep
	cc.MaxVolume = cfg.Speaker.MaxVolume
	return cc
}

// Loop returns the control loop.
func (s *Server) Loop() *Loop { return s.loop }

// HTTPAddr returns the bound API address, or nil when the API is off.
func (s *Server) HTTPAddr() net.Addr { return s.httpAddr }

// EventBus returns the bus the control loop publishes on.
func (s *Server) EventBus() *events.Bus { return s.eventBus }

// Start runs the control loop and opens every configured surface.
func (s *Server) Start() error {
	s.logger.Info("Starting volctrld server", "version", s.info.Version, "devices", len(s.cfg.Devices))

	s.goSafe("control loop", func() { s.loop.Run(s.rootCtx) })

	// Ensure socket directory exists
	sockDir := filepath.Dir(s.socketPath)
	if err := os.MkdirAll(sockDir, 0755); err != nil {
		return fmt.Errorf("failed to create socket directory %s: %w", sockDir, err)
	}

	// Remove a stale socket left by a previous run
	if _, err := os.Stat(s.socketPath); err == nil {
		if err := os.Remove(s.socketPath); err != nil {
			return fmt.Errorf("failed to remove existing socket file %s: %w", s.socketPath, err)
		}
	}

	var err error
	s.listener, err = net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket %s: %w", s.socketPath, err)
	}
	s.logger.Info("Listening on Unix socket", "path", s.socketPath)

	s.wg.Add(1)
	go s.acceptConnections()

	if s.cfg.API.Enabled && s.cfg.API.ListenAddress != "" {
		if err := s.startHTTP(); err != nil {
			return err
		}
	}

	if s.cfg.MQTT.Enabled {
		s.goSafe("MQTT bridge", s.runMQTT)
	}

	if s.cfg.Input.Enabled && s.cfg.Input.Device != "" {
		reader := input.NewReader(s.cfg.Input.Device, s.loop, s.logger)
		s.goSafe("input reader", func() { reader.Run(s.rootCtx) })
	}

	return nil
}

func (s *Server) startHTTP() error {
	listener, err := net.Listen("tcp", s.cfg.API.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.API.ListenAddress, err)
	}
	s.httpAddr = listener.Addr()
	s.logger.Info("Starting HTTP API server", "address", s.httpAddr.String())

	s.httpServer = &http.Server{
		Handler:      s.router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.goSafe("HTTP server", func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server failed", "error", err)
		}
		s.logger.Info("HTTP server stopped")
	})
	return nil
}

// router builds the chi router with the Huma API and the WebSocket route.
// Rate limiting runs before auth to slow down key guessing.
func (s *Server) router() http.Handler {
	router := chi.NewRouter()
	router.Use(mw.RequestLogging(s.logger))
	router.Use(mw.RateLimitByIP(s.logger, s.cfg.API.RateLimit))

	api := humachi.New(router, routes.NewHumaConfig(s.info.Version, ""))
	api.UseMiddleware(mw.HumaAuth(api, s.logger, s.cfg.API.Key))

	version := &handlers.VersionHandler{Version: s.info.Version, Commit: s.info.Commit, BuildDate: s.info.BuildDate}
	routes.Register(api, &routes.Handlers{
		HealthCheck:  handlers.HealthCheck,
		VersionCheck: version.GetVersion,
		Control:      &handlers.ControlHandler{Control: s.loop},
		Companion:    &handlers.CompanionHandler{Control: s.loop},
		Logging:      &handlers.LoggingHandler{Logger: s.logger, Level: s.level},
	})

	hub := ws.NewHub(s.logger, s.eventBus, func() any { return s.loop.Snapshot() })
	s.goSafe("WebSocket hub", func() { hub.Run(s.rootCtx) })
	router.With(mw.APIKeyAuth(s.logger, s.cfg.API.Key)).Get("/api/v1/ws", ws.Handler(hub, s.logger))

	return router
}

func (s *Server) runMQTT() {
	conn, err := s.dialMQTT(s.cfg.MQTT, s.logger)
	if err != nil {
		s.logger.Error("MQTT bridge disabled", "broker", s.cfg.MQTT.Broker, "error", err)
		return
	}
	bridge := mqtt.NewBridge(conn, s.cfg.MQTT, s.loop, s.eventBus, s.logger)
	if err := bridge.Run(s.rootCtx); err != nil {
		s.logger.Error("MQTT bridge failed", "error", err)
	}
}

// ApplyConfig applies the parts of a reloaded configuration that can change
// at runtime: log level and control timings. Device, listener and bridge
// changes need a restart.
func (s *Server) ApplyConfig(ctx context.Context, cfg *config.Config) error {
	if s.level != nil {
		s.level.Set(utils.GetLogLevel(cfg.Logging.Level))
	}
	if err := s.loop.Reconfigure(ctx, controlConfig(cfg), cfg.Control.TickInterval); err != nil {
		return err
	}
	s.logger.Info("Configuration reloaded", "log_level", cfg.Logging.Level, "tick", cfg.Control.TickInterval)
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() {
	s.logger.Info("Shutting down volctrld server")
	s.rootCancel()
	close(s.shutdown)

	if s.listener != nil {
		s.logger.Info("Closing Unix socket listener")
		s.listener.Close()
	}

	if s.httpServer != nil {
		s.logger.Info("Shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown failed", "error", err)
		}
	}

	s.logger.Info("Waiting for services to stop...")
	s.wg.Wait()
	_ = os.Remove(s.socketPath)
	s.logger.Info("volctrld server shut down gracefully")
}

// goSafe runs fn on the server's wait group, logging instead of crashing on
// panic.
func (s *Server) goSafe(name string, fn func()) {
	s.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic in "+name, "recover", r)
			}
		}()
		fn()
	})
}
