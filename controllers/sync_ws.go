package controller

import (
	"log"
	"sync"

	"github.com/gofiber/websocket/v2"

	"teamtask/models"
	syncengine "teamtask/sync"
)

// SyncWSController handles the realtime channel. Each connection becomes a
// hub session; the client must send join-team before it receives broadcasts,
// and must re-join after every reconnect.
type SyncWSController struct {
	hub     *syncengine.Hub
	gateway *syncengine.Gateway
	logger  *log.Logger
}

func NewSyncWSController(hub *syncengine.Hub, gateway *syncengine.Gateway, logger *log.Logger) *SyncWSController {
	return &SyncWSController{hub: hub, gateway: gateway, logger: logger}
}

// HandleConnection runs for the lifetime of one websocket connection.
func (sc *SyncWSController) HandleConnection(c *websocket.Conn) {
	user, ok := c.Locals("user").(*models.User)
	if !ok {
		sc.logger.Printf("websocket connection without authenticated user")
		c.Close()
		return
	}

	clientID := c.Query("client_id")
	session := sc.hub.NewSession(user.ID, clientID)
	defer sc.hub.Leave(session)

	// One writer mutex per connection: broadcasts and inline error replies
	// must not interleave on the socket.
	var writeMu sync.Mutex
	writeJSON := func(v interface{}) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return c.WriteJSON(v)
	}

	// Writer: drains hub broadcasts onto the socket. Exits when Leave
	// closes the session channel.
	go func() {
		for msg := range session.C() {
			if err := writeJSON(msg.Envelope()); err != nil {
				sc.logger.Printf("websocket write failed for user %d: %v", user.ID, err)
				c.Close()
				return
			}
		}
	}()

	// Reader: join-team and data-update events until the peer disconnects.
	for {
		var env syncengine.Envelope
		if err := c.ReadJSON(&env); err != nil {
			return
		}

		switch env.Event {
		case syncengine.EventJoinTeam:
			if !sc.canJoin(user, env.TeamID) {
				sc.writeError(writeJSON, "not a member of that team")
				continue
			}
			sc.hub.Join(session, env.TeamID)

		case syncengine.EventDataUpdate:
			teamID := env.TeamID
			if teamID == 0 {
				teamID = session.TeamID()
			}
			if !sc.canJoin(user, teamID) {
				sc.writeError(writeJSON, "not a member of that team")
				continue
			}
			if err := sc.gateway.HandleWrite(teamID, env.DataType, env.Data, user.ID, clientID); err != nil {
				sc.writeError(writeJSON, err.Error())
			}

		default:
			sc.writeError(writeJSON, "unknown event")
		}
	}
}

// canJoin restricts channel access to the user's own team.
func (sc *SyncWSController) canJoin(user *models.User, teamID uint) bool {
	return teamID != 0 && user.TeamID != nil && *user.TeamID == teamID
}

func (sc *SyncWSController) writeError(write func(interface{}) error, msg string) {
	if err := write(syncengine.Envelope{Event: "error", Error: msg}); err != nil {
		sc.logger.Printf("websocket error write failed: %v", err)
	}
}
