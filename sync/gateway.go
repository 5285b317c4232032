package sync

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"teamtask/models"
)

// ErrInvalidPayload is returned when a write body is not a JSON array.
var ErrInvalidPayload = fmt.Errorf("payload must be a JSON array")

// Gateway bridges write requests into persisted state and fans the change out
// to the team's channel room. HTTP and websocket writes share the same path.
type Gateway struct {
	store Store
	hub   *Hub
	log   *logrus.Logger
}

func NewGateway(store Store, hub *Hub, log *logrus.Logger) *Gateway {
	return &Gateway{store: store, hub: hub, log: log}
}

// HandleWrite validates the field name, replaces the stored bucket and
// broadcasts the new value to every session in the team room, including other
// sessions of the originating user. Nothing is broadcast if the store write
// fails.
func (g *Gateway) HandleWrite(teamID uint, dataType string, payload json.RawMessage, originUserID uint, originClientID string) error {
	field, err := ParseField(dataType)
	if err != nil {
		return err
	}
	if err := validateArray(payload); err != nil {
		return err
	}

	if err := g.store.UpsertField(teamID, field, models.JSONArray(payload)); err != nil {
		sentry.CaptureException(err)
		g.log.WithFields(logrus.Fields{
			"team_id": teamID,
			"field":   field.String(),
			"origin":  originUserID,
		}).WithError(err).Error("bucket write failed")
		return err
	}

	g.hub.Broadcast(teamID, Message{
		Field:          field,
		Payload:        payload,
		OriginUserID:   originUserID,
		OriginClientID: originClientID,
		Timestamp:      time.Now(),
	})

	g.log.WithFields(logrus.Fields{
		"team_id": teamID,
		"field":   field.String(),
		"origin":  originUserID,
		"room":    g.hub.RoomSize(teamID),
	}).Debug("bucket updated and broadcast")
	return nil
}

// HandleRead returns the stored bucket, defaulting to "[]" for teams with no
// row. "No data yet" is a normal state, never an error.
func (g *Gateway) HandleRead(teamID uint, dataType string) (models.JSONArray, error) {
	field, err := ParseField(dataType)
	if err != nil {
		return nil, err
	}
	return g.store.ReadBucket(teamID, field)
}

// HandleReadAll returns the aggregate subset of buckets keyed by canonical
// field name.
func (g *Gateway) HandleReadAll(teamID uint) (map[string]models.JSONArray, error) {
	row, err := g.store.ReadAll(teamID)
	if err != nil {
		return nil, err
	}

	out := make(map[string]models.JSONArray, len(AggregateFields()))
	for _, f := range AggregateFields() {
		value, _ := row.Bucket(f.Column())
		if len(value) == 0 {
			value = models.EmptyArray
		}
		out[f.String()] = value
	}
	return out, nil
}

func validateArray(payload json.RawMessage) error {
	var seq []json.RawMessage
	if err := json.Unmarshal(payload, &seq); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	// A JSON null unmarshals into a nil slice without error; buckets must
	// always hold a sequence.
	if seq == nil {
		return fmt.Errorf("%w: got null", ErrInvalidPayload)
	}
	return nil
}
