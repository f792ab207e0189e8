package api

import (
	"context"
	"fmt"
	"time"

	"github.com/go-monolith/mono"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/realtime-chat-server/config"
	"github.com/example/realtime-chat-server/modules/broadcast"
	"github.com/example/realtime-chat-server/modules/history"
	"github.com/example/realtime-chat-server/modules/session"
)

// Module is the HTTP/WebSocket front of the chat server.
type Module struct {
	app      *fiber.App
	handlers *Handlers
	cfg      config.Config
	sessions *session.Module
	hub      *broadcast.Hub
	store    *history.Module
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new API module.
func NewModule(cfg config.Config) *Module {
	return &Module{cfg: cfg}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "api"
}

// SetSession sets the session module (called from main).
func (m *Module) SetSession(sessions *session.Module) {
	m.sessions = sessions
}

// SetHub sets the broadcast hub (called from main).
func (m *Module) SetHub(hub *broadcast.Hub) {
	m.hub = hub
}

// SetHistory sets the history module (called from main).
func (m *Module) SetHistory(store *history.Module) {
	m.store = store
}

// Start initializes and starts the HTTP server.
func (m *Module) Start(_ context.Context) error {
	app, err := m.buildApp()
	if err != nil {
		return err
	}
	m.app = app

	// Start server in goroutine with startup error detection
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(":" + m.cfg.Port); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
		// Server started successfully
	}

	m.handlers.logger.Info("HTTP server started", "port", m.cfg.Port)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (m *Module) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	if err := m.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"port":              m.cfg.Port,
			"connected_clients": m.hub.ClientCount(),
		},
	}
}

// buildApp constructs the Fiber application with all routes registered.
func (m *Module) buildApp() (*fiber.App, error) {
	if m.sessions == nil {
		return nil, fmt.Errorf("session module dependency not set")
	}
	if m.hub == nil {
		return nil, fmt.Errorf("broadcast hub dependency not set")
	}
	if m.store == nil {
		return nil, fmt.Errorf("history module dependency not set")
	}

	app := fiber.New(fiber.Config{
		AppName:               "Realtime Chat Server",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: m.cfg.AllowOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	m.handlers = NewHandlers(m.sessions.Coordinator(), m.hub, m.store)
	m.registerRoutes(app)
	return app, nil
}

// registerRoutes sets up all HTTP and WebSocket routes.
func (m *Module) registerRoutes(app *fiber.App) {
	app.Get("/", m.handlers.Root)
	app.Get("/health", m.handlers.HealthCheck)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(m.handlers.HandleWebSocket))

	api := app.Group("/api")
	api.Get("/messages", m.handlers.ListMessages)
	api.Get("/users", m.handlers.ListUsers)
}

// errorHandler handles errors globally.
func (m *Module) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}
