package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	syncengine "teamtask/sync"
)

const (
	reconnectInitialDelay = 1 * time.Second
	reconnectMaxDelay     = 5 * time.Second
)

// ConnManager owns the single realtime channel connection for a client
// process. It is constructed once at the application's root scope and passed
// to controllers; there is no package-level connection state.
//
// The channel is best effort: messages can be lost while disconnected and are
// not replayed on reconnect, so consumers keep a polling fallback. Room
// membership does not survive a reconnect; the manager re-joins its team
// after every successful dial.
type ConnManager struct {
	wsURL    string
	token    string
	clientID string
	log      *logrus.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	teamID   uint
	handlers map[string][]*handlerEntry
	nextID   uint64
	started  bool
}

type handlerEntry struct {
	id uint64
	fn func(syncengine.Message)
}

// NewConnManager creates a manager for the given server base URL. The
// connection is not dialed until Start.
func NewConnManager(baseURL, token string, log *logrus.Logger) *ConnManager {
	return &ConnManager{
		wsURL:    baseURL,
		token:    token,
		clientID: uuid.NewString(),
		log:      log,
		handlers: make(map[string][]*handlerEntry),
	}
}

// ClientID identifies this connection in write requests and broadcasts.
func (cm *ConnManager) ClientID() string {
	return cm.clientID
}

// Start dials the channel for the given team and keeps it alive until ctx is
// cancelled, reconnecting with capped exponential backoff and re-joining the
// team room after each reconnect.
func (cm *ConnManager) Start(ctx context.Context, teamID uint) {
	cm.mu.Lock()
	cm.teamID = teamID
	if cm.started {
		cm.mu.Unlock()
		return
	}
	cm.started = true
	cm.mu.Unlock()

	go cm.run(ctx)
}

func (cm *ConnManager) run(ctx context.Context) {
	delay := reconnectInitialDelay

	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := cm.dial()
		if err != nil {
			cm.log.WithError(err).Warn("channel dial failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > reconnectMaxDelay {
				delay = reconnectMaxDelay
			}
			continue
		}

		delay = reconnectInitialDelay
		cm.mu.Lock()
		cm.conn = conn
		teamID := cm.teamID
		cm.mu.Unlock()

		// Membership did not survive the reconnect; join again.
		if err := cm.JoinTeam(teamID); err != nil {
			cm.log.WithError(err).Warn("channel join failed")
		} else {
			cm.log.WithField("team_id", teamID).Info("channel connected")
		}

		cm.readLoop(ctx, conn)

		cm.mu.Lock()
		if cm.conn == conn {
			cm.conn = nil
		}
		cm.mu.Unlock()
		conn.Close()
	}
}

func (cm *ConnManager) dial() (*websocket.Conn, error) {
	u, err := url.Parse(cm.wsURL)
	if err != nil {
		return nil, fmt.Errorf("parse channel url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/api/sync"
	q := u.Query()
	q.Set("token", cm.token)
	q.Set("client_id", cm.clientID)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (cm *ConnManager) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var env syncengine.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() == nil {
				cm.log.WithError(err).Warn("channel read failed, reconnecting")
			}
			return
		}

		switch env.Event {
		case syncengine.EventDataUpdated:
			cm.dispatch(env)
		case "error":
			cm.log.WithField("server_error", env.Error).Warn("channel error event")
		}
	}
}

func (cm *ConnManager) dispatch(env syncengine.Envelope) {
	field, err := syncengine.ParseField(env.DataType)
	if err != nil {
		cm.log.WithField("data_type", env.DataType).Warn("broadcast for unknown field")
		return
	}

	msg := syncengine.Message{
		Field:          field,
		Payload:        env.Data,
		OriginUserID:   env.OriginUserID,
		OriginClientID: env.OriginClientID,
	}
	if env.Timestamp != nil {
		msg.Timestamp = *env.Timestamp
	}

	cm.mu.Lock()
	entries := append([]*handlerEntry(nil), cm.handlers[field.String()]...)
	cm.mu.Unlock()

	for _, e := range entries {
		e.fn(msg)
	}
}

// Subscribe registers a handler for broadcasts of one bucket. The returned
// function removes the handler.
func (cm *ConnManager) Subscribe(dataType string, fn func(syncengine.Message)) (func(), error) {
	field, err := syncengine.ParseField(dataType)
	if err != nil {
		return nil, err
	}
	key := field.String()

	cm.mu.Lock()
	cm.nextID++
	entry := &handlerEntry{id: cm.nextID, fn: fn}
	cm.handlers[key] = append(cm.handlers[key], entry)
	cm.mu.Unlock()

	return func() {
		cm.mu.Lock()
		defer cm.mu.Unlock()
		entries := cm.handlers[key]
		for i, e := range entries {
			if e.id == entry.id {
				cm.handlers[key] = append(entries[:i], entries[i+1:]...)
				break
			}
		}
	}, nil
}

// JoinTeam joins the team-scoped room. Broadcast delivery starts only after
// the join is processed server-side.
func (cm *ConnManager) JoinTeam(teamID uint) error {
	// Write under the lock: gorilla connections allow one writer at a time.
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.teamID = teamID
	if cm.conn == nil {
		return fmt.Errorf("channel not connected")
	}
	return cm.conn.WriteJSON(syncengine.Envelope{
		Event:  syncengine.EventJoinTeam,
		TeamID: teamID,
	})
}

// SendDataUpdate emits a write over the channel instead of HTTP. The server
// applies the same validate, persist and broadcast path for both transports.
func (cm *ConnManager) SendDataUpdate(teamID uint, dataType string, payload json.RawMessage) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.conn == nil {
		return fmt.Errorf("channel not connected")
	}
	return cm.conn.WriteJSON(syncengine.Envelope{
		Event:    syncengine.EventDataUpdate,
		TeamID:   teamID,
		DataType: dataType,
		Data:     payload,
	})
}

// Connected reports whether the channel currently has a live connection.
func (cm *ConnManager) Connected() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.conn != nil
}
