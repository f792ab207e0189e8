package session

import (
	"context"
	"time"
)

// AnonymousSender is used when a connection sends before joining.
const AnonymousSender = "Anonymous"

// Server-to-client event names.
const (
	EventUserList       = "user_list"
	EventUserJoined     = "user_joined"
	EventUserLeft       = "user_left"
	EventHistory        = "historical_messages"
	EventReceiveMessage = "receive_message"
	EventTypingUsers    = "typing_users"
	EventPrivateMessage = "private_message"
	EventError          = "error"
)

// Participant is one joined connection. It lives only in the presence
// roster and is gone once the connection disconnects.
type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Message is a chat message record. Sender is a denormalized copy of the
// display name at send time; SenderID is the connection identity at send
// time and goes stale once that connection disconnects.
type Message struct {
	ID        int64     `json:"id"`
	Sender    string    `json:"sender"`
	SenderID  string    `json:"senderId"`
	Body      string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	IsPrivate bool      `json:"isPrivate"`
}

// MessageStore is the durable message collection the coordinator writes
// to. Insert must fail on a duplicate ID. Recent returns up to limit of
// the newest records, re-ordered ascending by ID.
type MessageStore interface {
	Insert(ctx context.Context, msg Message) error
	Recent(ctx context.Context, limit int) ([]Message, error)
}

// EventSink delivers coordinator events to connected clients, either to
// every connection or to exactly one. Delivery is best-effort; an
// unknown connection id is a silent drop.
type EventSink interface {
	Broadcast(event string, payload any)
	Direct(connID, event string, payload any)
}
