package sync

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Session is one connected channel client. A session belongs to at most one
// team room at a time; membership does not survive a reconnect, so clients
// re-join after every connect.
type Session struct {
	UserID   uint
	ClientID string

	hub    *Hub
	teamID uint
	joined bool
	send   chan Message
	done   chan struct{}
	closed bool
	mu     sync.Mutex
}

// C returns the channel delivering broadcasts for the joined team.
func (s *Session) C() <-chan Message {
	return s.send
}

// TeamID returns the currently joined team, or 0 when not joined.
func (s *Session) TeamID() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.joined {
		return 0
	}
	return s.teamID
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	close(s.send)
}

// Hub manages team-scoped broadcast rooms. Messages fan out to every session
// joined to the room, including other sessions of the originating user; the
// origin filters its own echo client-side.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uint]map[*Session]struct{}

	bufferSize int
	log        *logrus.Logger
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		rooms:      make(map[uint]map[*Session]struct{}),
		bufferSize: 64,
		log:        log,
	}
}

// NewSession registers a connection with the hub. The session delivers
// nothing until it joins a team.
func (h *Hub) NewSession(userID uint, clientID string) *Session {
	return &Session{
		UserID:   userID,
		ClientID: clientID,
		hub:      h,
		send:     make(chan Message, h.bufferSize),
		done:     make(chan struct{}),
	}
}

// Join subscribes a session to a team room, leaving any previous room first.
func (h *Hub) Join(s *Session, teamID uint) {
	h.mu.Lock()
	h.leaveLocked(s)

	room, ok := h.rooms[teamID]
	if !ok {
		room = make(map[*Session]struct{})
		h.rooms[teamID] = room
	}
	room[s] = struct{}{}

	s.mu.Lock()
	s.teamID = teamID
	s.joined = true
	s.mu.Unlock()
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{
		"user_id": s.UserID,
		"team_id": teamID,
	}).Debug("session joined team room")
}

// Leave unsubscribes the session and closes its delivery channel. No messages
// are delivered after Leave returns.
func (h *Hub) Leave(s *Session) {
	h.mu.Lock()
	h.leaveLocked(s)
	h.mu.Unlock()
	s.close()
}

func (h *Hub) leaveLocked(s *Session) {
	s.mu.Lock()
	joined, teamID := s.joined, s.teamID
	s.joined = false
	s.mu.Unlock()

	if !joined {
		return
	}
	if room, ok := h.rooms[teamID]; ok {
		delete(room, s)
		if len(room) == 0 {
			delete(h.rooms, teamID)
		}
	}
}

// Broadcast fans a message out to every session in the team room. Delivery is
// best effort: a session with a full buffer drops the message and relies on
// its polling fallback to reconcile.
func (h *Hub) Broadcast(teamID uint, m Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.rooms[teamID] {
		select {
		case s.send <- m:
		case <-s.done:
		default:
			h.log.WithFields(logrus.Fields{
				"user_id": s.UserID,
				"team_id": teamID,
				"field":   m.Field.String(),
			}).Warn("session buffer full, dropping broadcast")
		}
	}
}

// RoomSize reports the number of sessions joined to a team room.
func (h *Hub) RoomSize(teamID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[teamID])
}
