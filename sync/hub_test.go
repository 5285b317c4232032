package sync

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func recvMessage(t *testing.T, s *Session) Message {
	t.Helper()
	select {
	case m, ok := <-s.C():
		require.True(t, ok, "session channel closed")
		return m
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
		return Message{}
	}
}

func assertNoMessage(t *testing.T, s *Session) {
	t.Helper()
	select {
	case m, ok := <-s.C():
		if ok {
			t.Fatalf("unexpected message for field %s", m.Field)
		}
	default:
	}
}

func TestHubBroadcastReachesWholeRoom(t *testing.T) {
	hub := NewHub(testLogger())

	// Two sessions of user 1 plus one of user 2, all on team 7. The hub
	// sends to everyone, origin included; echo filtering is client-side.
	a1 := hub.NewSession(1, "tab-a")
	a2 := hub.NewSession(1, "tab-b")
	b := hub.NewSession(2, "tab-c")
	hub.Join(a1, 7)
	hub.Join(a2, 7)
	hub.Join(b, 7)

	hub.Broadcast(7, Message{Field: FieldTasks, Payload: json.RawMessage(`[{"id":"t1"}]`), OriginUserID: 1})

	for _, s := range []*Session{a1, a2, b} {
		m := recvMessage(t, s)
		assert.Equal(t, FieldTasks, m.Field)
		assert.Equal(t, uint(1), m.OriginUserID)
	}
}

func TestHubRoomScoping(t *testing.T) {
	hub := NewHub(testLogger())

	a := hub.NewSession(1, "")
	b := hub.NewSession(2, "")
	hub.Join(a, 7)
	hub.Join(b, 8)

	hub.Broadcast(7, Message{Field: FieldLeads, Payload: json.RawMessage(`[]`)})

	recvMessage(t, a)
	assertNoMessage(t, b)
}

func TestHubUnjoinedSessionGetsNothing(t *testing.T) {
	hub := NewHub(testLogger())

	s := hub.NewSession(1, "")
	hub.Broadcast(7, Message{Field: FieldTasks, Payload: json.RawMessage(`[]`)})
	assertNoMessage(t, s)
	assert.Equal(t, uint(0), s.TeamID())
}

func TestHubRejoinMovesRooms(t *testing.T) {
	hub := NewHub(testLogger())

	s := hub.NewSession(1, "")
	hub.Join(s, 7)
	hub.Join(s, 8)

	assert.Equal(t, 0, hub.RoomSize(7))
	assert.Equal(t, 1, hub.RoomSize(8))
	assert.Equal(t, uint(8), s.TeamID())

	hub.Broadcast(7, Message{Field: FieldTasks, Payload: json.RawMessage(`[]`)})
	assertNoMessage(t, s)

	hub.Broadcast(8, Message{Field: FieldTasks, Payload: json.RawMessage(`[]`)})
	recvMessage(t, s)
}

func TestHubLeaveStopsDelivery(t *testing.T) {
	hub := NewHub(testLogger())

	s := hub.NewSession(1, "")
	hub.Join(s, 7)
	hub.Leave(s)

	assert.Equal(t, 0, hub.RoomSize(7))
	hub.Broadcast(7, Message{Field: FieldTasks, Payload: json.RawMessage(`[]`)})

	// Channel is closed after Leave; nothing must be delivered.
	_, ok := <-s.C()
	assert.False(t, ok)
}
