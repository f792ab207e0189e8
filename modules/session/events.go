package session

import (
	"encoding/json"

	"github.com/go-monolith/mono/pkg/helper"
)

// RoomEvent fans out to every connected client.
type RoomEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// DirectEvent targets exactly one connection.
type DirectEvent struct {
	ConnID  string          `json:"conn_id"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Event definitions for the session module. All fanout rides on two
// subjects so same-path events keep their publish order.
var (
	// RoomEventV1 is published for events every connection should see.
	RoomEventV1 = helper.EventDefinition[RoomEvent](
		"session",
		"RoomEvent",
		"v1",
	)

	// DirectEventV1 is published for events aimed at one connection.
	DirectEventV1 = helper.EventDefinition[DirectEvent](
		"session",
		"DirectEvent",
		"v1",
	)
)
