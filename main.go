package main

import (
	"context"
	"log"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/realtime-chat-server/config"
	"github.com/example/realtime-chat-server/modules/api"
	"github.com/example/realtime-chat-server/modules/broadcast"
	"github.com/example/realtime-chat-server/modules/history"
	"github.com/example/realtime-chat-server/modules/session"
)

func main() {
	log.Println("=== Realtime Chat Server ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	historyModule := history.NewModule(cfg.DBPath)
	sessionModule := session.NewModule(historyModule, cfg.HistoryLimit)
	broadcastModule := broadcast.NewModule()
	apiModule := api.NewModule(cfg)

	// Manual wiring for dependencies not exposed via ServiceContainer
	apiModule.SetSession(sessionModule)
	apiModule.SetHub(broadcastModule.GetHub())
	apiModule.SetHistory(historyModule)

	// Register modules with the framework.
	// Order: storage first, then the coordinator, then the fanout
	// consumer, then the outward-facing server.
	app.Register(historyModule)   // Durable message store
	app.Register(sessionModule)   // Session coordinator + event emitter
	app.Register(broadcastModule) // WebSocket hub + event consumer
	app.Register(apiModule)       // HTTP/WebSocket API

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(cfg config.Config) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("HTTP Endpoints (http://localhost:%s):", cfg.Port)
	log.Println("  GET  /health        - Health check")
	log.Println("  GET  /api/messages  - All persisted messages, oldest first")
	log.Println("  GET  /api/users     - Current roster snapshot")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws):", cfg.Port)
	log.Println("  Client events: user_join, send_message, typing, private_message")
	log.Println("  Server events: user_list, user_joined, user_left, historical_messages,")
	log.Println("                 receive_message, typing_users, private_message, error")
	log.Println("")
	log.Printf("Message store: %s (newest %d replayed on join)", cfg.DBPath, cfg.HistoryLimit)
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
