package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// historyFetchTimeout bounds the per-join history load so a slow store
// cannot pin goroutines forever.
const historyFetchTimeout = 10 * time.Second

// Coordinator mediates all per-connection state transitions: join,
// send, typing, private message, disconnect. It owns the presence
// roster and the typing set and drives fanout through an EventSink.
type Coordinator struct {
	store        MessageStore
	sink         EventSink
	historyLimit int
	logger       *slog.Logger

	mu     sync.RWMutex
	roster map[string]Participant
	typing map[string]string // connID -> display name

	idMu   sync.Mutex
	lastID int64
}

// NewCoordinator creates a coordinator backed by the given store and sink.
func NewCoordinator(store MessageStore, sink EventSink, historyLimit int, logger *slog.Logger) *Coordinator {
	if historyLimit <= 0 {
		historyLimit = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:        store,
		sink:         sink,
		historyLimit: historyLimit,
		logger:       logger,
		roster:       make(map[string]Participant),
		typing:       make(map[string]string),
	}
}

// Join moves a connection into the joined state. The display name is
// taken as-is: empty and duplicate names are accepted. The full roster
// and a discrete join notice go to everyone; the history snapshot goes
// to the joining connection alone, asynchronously.
func (c *Coordinator) Join(_ context.Context, connID, displayName string) {
	p := Participant{ID: connID, DisplayName: displayName}

	c.mu.Lock()
	c.roster[connID] = p
	roster := c.rosterSnapshotLocked()
	c.mu.Unlock()

	c.sink.Broadcast(EventUserList, roster)
	c.sink.Broadcast(EventUserJoined, p)
	c.logger.Info("user joined", "connID", connID, "displayName", displayName)

	go c.loadHistory(connID)
}

// loadHistory delivers the newest historyLimit messages, oldest first,
// to a single connection. A fetch failure is reported to that
// connection only; the join itself already succeeded.
func (c *Coordinator) loadHistory(connID string) {
	ctx, cancel := context.WithTimeout(context.Background(), historyFetchTimeout)
	defer cancel()

	messages, err := c.store.Recent(ctx, c.historyLimit)
	if err != nil {
		c.logger.Error("history fetch failed", "connID", connID, "error", err)
		c.sink.Direct(connID, EventError, "Failed to load chat history.")
		return
	}
	if messages == nil {
		messages = []Message{}
	}
	c.sink.Direct(connID, EventHistory, messages)
}

// Send persists a message and, only after the durable write succeeded,
// broadcasts the stored record to every connection including the
// sender. A failed write is reported to the sender alone and never
// becomes visible to anyone else.
func (c *Coordinator) Send(ctx context.Context, connID, body string) (Message, error) {
	msg := Message{
		ID:        c.nextID(),
		Sender:    c.senderName(connID),
		SenderID:  connID,
		Body:      body,
		Timestamp: time.Now(),
	}

	if err := c.store.Insert(ctx, msg); err != nil {
		c.logger.Error("message persist failed", "connID", connID, "messageID", msg.ID, "error", err)
		c.sink.Direct(connID, EventError, "Message failed to save.")
		return Message{}, err
	}

	c.sink.Broadcast(EventReceiveMessage, msg)
	return msg, nil
}

// SetTyping toggles the connection's typing-set membership and
// broadcasts the full current name list. Connections that never joined
// are ignored. There is no server-side expiry: only an explicit
// typing=false or a disconnect removes an entry.
func (c *Coordinator) SetTyping(connID string, isTyping bool) {
	c.mu.Lock()
	p, joined := c.roster[connID]
	if !joined {
		c.mu.Unlock()
		return
	}
	if isTyping {
		c.typing[connID] = p.DisplayName
	} else {
		delete(c.typing, connID)
	}
	names := c.typingSnapshotLocked()
	c.mu.Unlock()

	c.sink.Broadcast(EventTypingUsers, names)
}

// SendPrivate delivers a message-shaped record to the target connection
// and echoes it back to the sender. The record is never persisted. An
// unknown target is a silent no-op for the recipient side; the echo
// still happens.
func (c *Coordinator) SendPrivate(connID, targetID, body string) Message {
	msg := Message{
		ID:        c.nextID(),
		Sender:    c.senderName(connID),
		SenderID:  connID,
		Body:      body,
		Timestamp: time.Now(),
		IsPrivate: true,
	}

	c.sink.Direct(targetID, EventPrivateMessage, msg)
	c.sink.Direct(connID, EventPrivateMessage, msg)
	return msg
}

// Disconnect removes the connection from the roster and the typing set.
// If the connection had joined, the remaining connections get a
// departure notice and refreshed roster/typing snapshots; otherwise the
// cleanup is silent.
func (c *Coordinator) Disconnect(connID string) {
	c.mu.Lock()
	p, joined := c.roster[connID]
	delete(c.roster, connID)
	delete(c.typing, connID)
	roster := c.rosterSnapshotLocked()
	names := c.typingSnapshotLocked()
	c.mu.Unlock()

	if !joined {
		return
	}

	c.sink.Broadcast(EventUserLeft, p)
	c.sink.Broadcast(EventUserList, roster)
	c.sink.Broadcast(EventTypingUsers, names)
	c.logger.Info("user left", "connID", connID, "displayName", p.DisplayName)
}

// Roster returns the current presence roster.
func (c *Coordinator) Roster() []Participant {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rosterSnapshotLocked()
}

// TypingNames returns the display names currently marked as typing.
func (c *Coordinator) TypingNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.typingSnapshotLocked()
}

func (c *Coordinator) senderName(connID string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if p, ok := c.roster[connID]; ok {
		return p.DisplayName
	}
	return AnonymousSender
}

func (c *Coordinator) rosterSnapshotLocked() []Participant {
	roster := make([]Participant, 0, len(c.roster))
	for _, p := range c.roster {
		roster = append(roster, p)
	}
	sort.Slice(roster, func(i, j int) bool {
		if roster[i].DisplayName != roster[j].DisplayName {
			return roster[i].DisplayName < roster[j].DisplayName
		}
		return roster[i].ID < roster[j].ID
	})
	return roster
}

func (c *Coordinator) typingSnapshotLocked() []string {
	names := make([]string, 0, len(c.typing))
	for _, name := range c.typing {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// nextID assigns a millisecond-clock message id, bumped past the last
// assigned value so two sends in the same millisecond never collide.
func (c *Coordinator) nextID() int64 {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	id := time.Now().UnixMilli()
	if id <= c.lastID {
		id = c.lastID + 1
	}
	c.lastID = id
	return id
}
