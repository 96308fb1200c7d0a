package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"sponsorama/internal/config"
	"sponsorama/internal/dataprocessing"
	apierrors "sponsorama/internal/errors"
	"sponsorama/internal/infrastructure"
	customMiddleware "sponsorama/internal/middleware"
	"sponsorama/internal/services"
	"sponsorama/internal/session"
	handlers "sponsorama/internal/transport/http"
	"sponsorama/internal/validation"
	ws "sponsorama/internal/websocket"
	"sponsorama/pkg/contracts"
)

const AppName = "Sponsorama"

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders

	Session      *session.Session
	Campaigns    *services.CampaignService
	Health       *services.HealthService
	WebSocketHub *ws.Hub

	validator    *validation.RequestValidator
	errorHandler *apierrors.ErrorHandler

	mu         sync.Mutex
	listener   net.Listener
	hubCancel  context.CancelFunc
	hubDone    chan struct{}
	serveErr   chan error
	stopOnce   sync.Once
	stopResult error
}

// NewApplication wires every component from cfg. Nothing listens until Start.
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.String("address", cfg.Server.Address()))

	otelProviders, err := infrastructure.InitializeOTel(cfg.Telemetry, contracts.Version, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		errorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Level == "debug"),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	if err := app.setupRouter(); err != nil {
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	cfg := a.Config

	tracer, err := dataprocessing.NewIngestionTracer(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create ingestion instruments: %w", err)
	}
	pipeline := dataprocessing.NewPipeline(a.Logger, tracer, dataprocessing.PipelineOptions{
		Concurrency: cfg.Ingestion.Concurrency,
		Reader:      dataprocessing.ReaderOptions{MaxEntryBytes: cfg.Ingestion.MaxEntryBytes},
	})

	a.Session = session.New(a.Logger)
	a.Campaigns = services.NewCampaignService(pipeline, a.Session, a.Logger)

	wsMetrics, err := ws.NewMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create WebSocket instruments: %w", err)
	}
	a.WebSocketHub = ws.NewHub(a.Logger, ws.WithGreeting(a.Campaigns.Greeting), ws.WithMetrics(wsMetrics))
	a.Campaigns.PublishTo(a.WebSocketHub)

	a.Health = services.NewHealthService(a.Campaigns, a.WebSocketHub, a.Logger)

	a.validator, err = validation.NewRequestValidator(validation.UploadLimits{
		MaxFiles:     cfg.Ingestion.MaxFiles,
		MaxFileBytes: cfg.Ingestion.MaxUploadBytes,
	})
	if err != nil {
		return err
	}
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() error {
	r := chi.NewRouter()
	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	// Order: RequestID → RealIP → Logger → Recoverer → OTel → headers
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(apierrors.RecoveryMiddleware(a.errorHandler))

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
	if err != nil {
		return fmt.Errorf("failed to create OpenTelemetry middleware: %w", err)
	}
	r.Use(otelMiddleware.Handler)
	r.Use(customMiddleware.SecurityHeaders)

	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
			AllowedOrigins: a.Config.Security.AllowedOrigins,
			ExposedHeaders: []string{customMiddleware.RequestIDHeader, "Content-Disposition", "X-Record-Count"},
			Logger:         a.Logger,
		}))
	}

	// Long-lived: no timeout, no rate limit.
	r.Handle("/ws", ws.NewHandler(a.WebSocketHub, a.Config.WebSocket, a.Config.Security.AllowedOrigins, a.Logger))

	if a.OTelProviders.MetricsHandler != nil {
		r.Handle("/metrics", a.OTelProviders.MetricsHandler)
	}

	r.Route("/api", a.setupAPIRoutes)

	a.Router = r
	return nil
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	if rl := a.Config.Security.RateLimit; rl.Enabled {
		r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger, a.errorHandler).Handler)
	}
	r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))
	r.Use(render.SetContentType(render.ContentTypeJSON))

	handlers.NewHealthHandler(a.Health, a.Logger).RegisterRoutes(r)

	campaignHandler := handlers.NewCampaignHandler(
		a.Campaigns,
		a.validator,
		a.Config.Ingestion.MaxUploadBytes,
		a.Logger,
		a.errorHandler,
	)
	r.Mount("/campaigns", campaignHandler.Routes())
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Address(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(a.Logger.Handler(), slog.LevelWarn),
	}
}

// Start binds the listener, then serves in the background.
func (a *Application) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	a.mu.Lock()
	a.listener = ln
	a.mu.Unlock()

	hubCtx, cancel := context.WithCancel(context.Background())
	a.hubCancel = cancel
	a.hubDone = make(chan struct{})
	go func() {
		defer close(a.hubDone)
		a.WebSocketHub.Run(hubCtx)
	}()

	a.serveErr = make(chan error, 1)
	go func() {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			a.serveErr <- err
		}
		close(a.serveErr)
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", "http://"+ln.Addr().String()),
		slog.String("level", a.Config.Logging.Level))
	return nil
}

// Addr returns the bound address once Start has returned.
func (a *Application) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Stop gracefully stops the application. Later calls return the first result.
func (a *Application) Stop(ctx context.Context) error {
	a.stopOnce.Do(func() {
		a.stopResult = a.stop(ctx)
	})
	return a.stopResult
}

func (a *Application) stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	a.Campaigns.Close()
	a.WebSocketHub.Stop()
	if a.hubCancel != nil {
		a.hubCancel()
		<-a.hubDone
	}

	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

// Run starts the application and blocks until ctx is done or the server fails,
// then shuts down.
func (a *Application) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}

	var serveErr error
	select {
	case <-ctx.Done():
		a.Logger.Info("Received shutdown signal")
	case serveErr = <-a.serveErr:
	}

	stopErr := a.Stop(context.Background())
	return errors.Join(serveErr, stopErr)
}
