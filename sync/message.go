package sync

import (
	"encoding/json"
	"time"
)

// Realtime channel event names.
const (
	EventJoinTeam    = "join-team"
	EventDataUpdate  = "data-update"
	EventDataUpdated = "data-updated"
)

// Message is a broadcast sync notification. It is ephemeral: it only exists
// in transit between the gateway and connected channel clients.
type Message struct {
	Field        Field
	Payload      json.RawMessage
	OriginUserID uint
	// OriginClientID distinguishes connections of the same user. Echo
	// filtering currently keys on OriginUserID only; the client id rides
	// along so multi-tab sessions can be told apart without a wire change.
	OriginClientID string
	Timestamp      time.Time
}

// Envelope is the JSON wire format for channel traffic in both directions.
// Inbound events are join-team and data-update; the server emits data-updated.
type Envelope struct {
	Event          string          `json:"event"`
	TeamID         uint            `json:"team_id,omitempty"`
	DataType       string          `json:"data_type,omitempty"`
	Data           json.RawMessage `json:"data,omitempty"`
	OriginUserID   uint            `json:"origin_user_id,omitempty"`
	OriginClientID string          `json:"origin_client_id,omitempty"`
	Timestamp      *time.Time      `json:"timestamp,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// Envelope converts a broadcast message to its wire representation.
func (m Message) Envelope() Envelope {
	ts := m.Timestamp
	return Envelope{
		Event:          EventDataUpdated,
		DataType:       m.Field.String(),
		Data:           m.Payload,
		OriginUserID:   m.OriginUserID,
		OriginClientID: m.OriginClientID,
		Timestamp:      &ts,
	}
}
