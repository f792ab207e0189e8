package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/realtime-chat-server/config"
	"github.com/example/realtime-chat-server/modules/broadcast"
	"github.com/example/realtime-chat-server/modules/history"
	"github.com/example/realtime-chat-server/modules/session"
)

// newTestModule wires an API module against an in-memory store.
func newTestModule(t *testing.T) (*Module, *session.Module, *history.Module) {
	t.Helper()

	store := history.NewModule(":memory:")
	if err := store.Start(context.Background()); err != nil {
		t.Fatalf("failed to start history module: %v", err)
	}
	t.Cleanup(func() { _ = store.Stop(context.Background()) })

	sessions := session.NewModule(store, 100)
	m := NewModule(config.Config{Port: "0", AllowOrigins: "http://localhost:5173"})
	m.SetSession(sessions)
	m.SetHub(broadcast.NewModule().GetHub())
	m.SetHistory(store)
	return m, sessions, store
}

func testApp(t *testing.T, m *Module) *fiber.App {
	t.Helper()
	app, err := m.buildApp()
	if err != nil {
		t.Fatalf("buildApp() error = %v", err)
	}
	return app
}

func TestHandlers_Root(t *testing.T) {
	m, _, _ := newTestModule(t)
	app := testApp(t, m)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "Chat server is running" {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestHandlers_HealthCheck(t *testing.T) {
	m, _, _ := newTestModule(t)
	app := testApp(t, m)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestHandlers_ListUsers(t *testing.T) {
	m, sessions, _ := newTestModule(t)
	app := testApp(t, m)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/users", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var users []session.Participant
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(users) != 0 {
		t.Errorf("expected empty roster, got %d users", len(users))
	}

	sessions.Coordinator().Join(context.Background(), "conn-1", "alice")

	resp, err = app.Test(httptest.NewRequest("GET", "/api/users", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(users) != 1 || users[0].DisplayName != "alice" {
		t.Errorf("unexpected roster: %+v", users)
	}
}

func TestHandlers_ListMessages(t *testing.T) {
	m, _, store := newTestModule(t)
	app := testApp(t, m)

	base := time.Now().Add(-time.Hour)
	for i, body := range []string{"first", "second", "third"} {
		msg := session.Message{
			ID:        int64(i + 1),
			Sender:    "alice",
			SenderID:  "conn-1",
			Body:      body,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Insert(context.Background(), msg); err != nil {
			t.Fatalf("failed to seed message: %v", err)
		}
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/api/messages", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var messages []session.Message
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	for i, want := range []string{"first", "second", "third"} {
		if messages[i].Body != want {
			t.Errorf("messages[%d].Body = %q, want %q", i, messages[i].Body, want)
		}
	}
}

func TestHandlers_WebSocketUpgradeRequired(t *testing.T) {
	m, _, _ := newTestModule(t)
	app := testApp(t, m)

	resp, err := app.Test(httptest.NewRequest("GET", "/ws", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusUpgradeRequired {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusUpgradeRequired)
	}
}
