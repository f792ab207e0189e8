package broadcast

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/realtime-chat-server/modules/session"
)

// Module is an EventConsumerModule that forwards session fanout events
// to connected WebSocket clients.
type Module struct {
	hub       *Hub
	cancelHub context.CancelFunc
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new broadcast module.
func NewModule() *Module {
	return &Module{
		hub: NewHub(),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "broadcast"
}

// Start initializes the module and starts the hub.
func (m *Module) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	log.Println("[broadcast] Module started - WebSocket hub running")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	clientCount := m.hub.ClientCount()
	if m.cancelHub != nil {
		m.cancelHub()
		m.hub.Wait()
	}
	log.Printf("[broadcast] Module stopped - %d clients were connected", clientCount)
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
		},
	}
}

// RegisterEventConsumers registers event handlers.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, session.RoomEventV1, m.handleRoomEvent, m,
	); err != nil {
		return fmt.Errorf("failed to register RoomEvent consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, session.DirectEventV1, m.handleDirectEvent, m,
	); err != nil {
		return fmt.Errorf("failed to register DirectEvent consumer: %w", err)
	}

	log.Println("[broadcast] Registered event consumers: RoomEvent, DirectEvent")
	return nil
}

func (m *Module) handleRoomEvent(_ context.Context, event session.RoomEvent, _ *mono.Msg) error {
	m.hub.BroadcastAll(event.Event, event.Payload)
	return nil
}

func (m *Module) handleDirectEvent(_ context.Context, event session.DirectEvent, _ *mono.Msg) error {
	m.hub.SendTo(event.ConnID, event.Event, event.Payload)
	return nil
}

// GetHub returns the WebSocket hub for the API module to use.
func (m *Module) GetHub() *Hub {
	return m.hub
}
