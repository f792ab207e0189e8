package session

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/go-monolith/mono"
)

// Module wraps the Coordinator as a mono module and implements
// EventSink by publishing fanout events on the application event bus.
type Module struct {
	coord    *Coordinator
	eventBus mono.EventBus
	logger   *slog.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module              = (*Module)(nil)
	_ mono.EventBusAwareModule = (*Module)(nil)
	_ mono.EventEmitterModule  = (*Module)(nil)
	_ EventSink                = (*Module)(nil)
)

// NewModule creates the session module. The store is typically the
// history module; historyLimit caps the per-join snapshot.
func NewModule(store MessageStore, historyLimit int) *Module {
	m := &Module{logger: slog.Default()}
	m.coord = NewCoordinator(store, m, historyLimit, m.logger)
	return m
}

// Name returns the module name.
func (m *Module) Name() string {
	return "session"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		RoomEventV1.ToBase(),
		DirectEventV1.ToBase(),
	}
}

// Start marks the module ready.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("session module started", "historyLimit", m.coord.historyLimit)
	return nil
}

// Stop shuts the module down.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("session module stopped")
	return nil
}

// Coordinator returns the session coordinator for the API module.
func (m *Module) Coordinator() *Coordinator {
	return m.coord
}

// Broadcast publishes an event for every connected client.
func (m *Module) Broadcast(event string, payload any) {
	if m.eventBus == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		m.logger.Error("failed to marshal broadcast payload", "event", event, "error", err)
		return
	}
	if err := RoomEventV1.Publish(m.eventBus, RoomEvent{Event: event, Payload: data}, nil); err != nil {
		m.logger.Warn("failed to publish room event", "event", event, "error", err)
	}
}

// Direct publishes an event for exactly one connection.
func (m *Module) Direct(connID, event string, payload any) {
	if m.eventBus == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		m.logger.Error("failed to marshal direct payload", "event", event, "error", err)
		return
	}
	if err := DirectEventV1.Publish(m.eventBus, DirectEvent{ConnID: connID, Event: event, Payload: data}, nil); err != nil {
		m.logger.Warn("failed to publish direct event", "event", event, "connID", connID, "error", err)
	}
}
