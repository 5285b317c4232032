package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncengine "teamtask/sync"
)

type fakeAPI struct {
	mu      sync.Mutex
	data    map[string]json.RawMessage
	getErr  error
	saveErr error
	saved   chan json.RawMessage
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		data:  make(map[string]json.RawMessage),
		saved: make(chan json.RawMessage, 8),
	}
}

func (f *fakeAPI) GetData(dataType string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if v, ok := f.data[dataType]; ok {
		return v, nil
	}
	return json.RawMessage("[]"), nil
}

func (f *fakeAPI) SaveData(dataType string, payload json.RawMessage) error {
	f.mu.Lock()
	err := f.saveErr
	if err == nil {
		f.data[dataType] = payload
	}
	f.mu.Unlock()
	f.saved <- payload
	return err
}

type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (f *fakeCache) Get(key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeCache) Set(key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

type fakeChannel struct {
	mu       sync.Mutex
	handlers map[string][]func(syncengine.Message)
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{handlers: make(map[string][]func(syncengine.Message))}
}

func (f *fakeChannel) Subscribe(dataType string, fn func(syncengine.Message)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[dataType] = append(f.handlers[dataType], fn)
	return func() {}, nil
}

func (f *fakeChannel) deliver(msg syncengine.Message) {
	f.mu.Lock()
	handlers := append(([]func(syncengine.Message))(nil), f.handlers[msg.Field.String()]...)
	f.mu.Unlock()
	for _, fn := range handlers {
		fn(msg)
	}
}

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestController(t *testing.T, api *fakeAPI, cache *fakeCache, ch *fakeChannel, userID uint) *SyncController {
	t.Helper()
	c, err := NewSyncController("tasks", api, cache, ch, userID, quietLog())
	require.NoError(t, err)
	return c
}

func startController(t *testing.T, c *SyncController) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, c.Start(ctx))
}

func awaitSave(t *testing.T, api *fakeAPI) json.RawMessage {
	t.Helper()
	select {
	case p := <-api.saved:
		return p
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for async save")
		return nil
	}
}

func TestControllerRejectsUnknownField(t *testing.T) {
	_, err := NewSyncController("bogus", newFakeAPI(), newFakeCache(), newFakeChannel(), 1, quietLog())
	assert.ErrorIs(t, err, syncengine.ErrUnknownField)
}

func TestControllerLoadOverwritesStateAndCache(t *testing.T) {
	api := newFakeAPI()
	api.data["tasks"] = json.RawMessage(`[{"id":"t1"}]`)
	cache := newFakeCache()
	c := newTestController(t, api, cache, newFakeChannel(), 1)

	assert.Equal(t, StateUninitialized, c.State())
	c.Load()

	assert.Equal(t, StateReady, c.State())
	assert.JSONEq(t, `[{"id":"t1"}]`, string(c.Data()))
	assert.NoError(t, c.Err())

	cached, ok, _ := cache.Get("tasks")
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":"t1"}]`, string(cached))
}

func TestControllerEmptyServerResultReplacesCache(t *testing.T) {
	// The server is authoritative: an empty result reflects real deletions
	// and must displace a non-empty cache.
	api := newFakeAPI()
	cache := newFakeCache()
	cache.Set("tasks", []byte(`[{"id":"stale"}]`))
	c := newTestController(t, api, cache, newFakeChannel(), 1)

	c.Load()

	assert.Equal(t, StateReady, c.State())
	assert.JSONEq(t, `[]`, string(c.Data()))

	cached, _, _ := cache.Get("tasks")
	assert.JSONEq(t, `[]`, string(cached))
}

func TestControllerFallsBackToCacheOnReadFailure(t *testing.T) {
	api := newFakeAPI()
	api.getErr = errors.New("server unreachable")
	cache := newFakeCache()
	cache.Set("tasks", []byte(`[{"id":"p1"}]`))
	c := newTestController(t, api, cache, newFakeChannel(), 1)

	c.Load()

	assert.Equal(t, StateFallback, c.State())
	assert.JSONEq(t, `[{"id":"p1"}]`, string(c.Data()))
}

func TestControllerFallsBackToEmptyWithoutCache(t *testing.T) {
	api := newFakeAPI()
	api.getErr = errors.New("server unreachable")
	c := newTestController(t, api, newFakeCache(), newFakeChannel(), 1)

	c.Load()

	assert.Equal(t, StateFallback, c.State())
	assert.JSONEq(t, `[]`, string(c.Data()))
}

func TestControllerSaveIsOptimistic(t *testing.T) {
	api := newFakeAPI()
	cache := newFakeCache()
	c := newTestController(t, api, cache, newFakeChannel(), 1)
	c.Load()

	c.Save(json.RawMessage(`[{"id":"t1"}]`))

	// Local state and cache update before the server write completes.
	assert.JSONEq(t, `[{"id":"t1"}]`, string(c.Data()))
	cached, _, _ := cache.Get("tasks")
	assert.JSONEq(t, `[{"id":"t1"}]`, string(cached))

	sent := awaitSave(t, api)
	assert.JSONEq(t, `[{"id":"t1"}]`, string(sent))
}

func TestControllerSaveFailureKeepsLocalState(t *testing.T) {
	api := newFakeAPI()
	api.saveErr = errors.New("write rejected")
	c := newTestController(t, api, newFakeCache(), newFakeChannel(), 1)
	c.Load()

	c.Save(json.RawMessage(`[{"id":"t1"}]`))
	awaitSave(t, api)

	// No rollback: the optimistic value stays until the next sync cycle.
	assert.JSONEq(t, `[{"id":"t1"}]`, string(c.Data()))
}

func TestControllerDiscardsOwnEcho(t *testing.T) {
	api := newFakeAPI()
	cache := newFakeCache()
	ch := newFakeChannel()
	c := newTestController(t, api, cache, ch, 1)
	startController(t, c)

	c.Save(json.RawMessage(`[{"id":"t1"}]`))
	awaitSave(t, api)

	// The broadcast comes back to this user's own session and is dropped.
	ch.deliver(syncengine.Message{
		Field:        syncengine.FieldTasks,
		Payload:      json.RawMessage(`[{"id":"stale-echo"}]`),
		OriginUserID: 1,
	})

	assert.JSONEq(t, `[{"id":"t1"}]`, string(c.Data()))
}

func TestControllerAppliesPeerUpdates(t *testing.T) {
	api := newFakeAPI()
	cache := newFakeCache()
	ch := newFakeChannel()
	c := newTestController(t, api, cache, ch, 2)
	startController(t, c)

	ch.deliver(syncengine.Message{
		Field:        syncengine.FieldTasks,
		Payload:      json.RawMessage(`[{"id":"t1"}]`),
		OriginUserID: 1,
	})

	assert.JSONEq(t, `[{"id":"t1"}]`, string(c.Data()))
	cached, ok, _ := cache.Get("tasks")
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":"t1"}]`, string(cached))
}

func TestControllerPeerUpdateKeepsFallbackState(t *testing.T) {
	api := newFakeAPI()
	api.getErr = errors.New("server unreachable")
	ch := newFakeChannel()
	c := newTestController(t, api, newFakeCache(), ch, 2)
	startController(t, c)
	require.Equal(t, StateFallback, c.State())

	ch.deliver(syncengine.Message{
		Field:        syncengine.FieldTasks,
		Payload:      json.RawMessage(`[{"id":"t1"}]`),
		OriginUserID: 1,
	})

	// The payload is applied but only a successful server read leaves
	// fallback.
	assert.JSONEq(t, `[{"id":"t1"}]`, string(c.Data()))
	assert.Equal(t, StateFallback, c.State())
}

func TestControllerPeerUpdateIsIdempotent(t *testing.T) {
	ch := newFakeChannel()
	c := newTestController(t, newFakeAPI(), newFakeCache(), ch, 2)
	startController(t, c)

	msg := syncengine.Message{
		Field:        syncengine.FieldTasks,
		Payload:      json.RawMessage(`[{"id":"t1"}]`),
		OriginUserID: 1,
	}
	ch.deliver(msg)
	ch.deliver(msg)

	assert.JSONEq(t, `[{"id":"t1"}]`, string(c.Data()))
}

func TestControllerPollingReconciles(t *testing.T) {
	api := newFakeAPI()
	ch := newFakeChannel()
	c, err := NewSyncController("tasks", api, newFakeCache(), ch, 1, quietLog(),
		WithPollInterval(20*time.Millisecond))
	require.NoError(t, err)
	startController(t, c)

	// A peer write the channel failed to deliver shows up on the next poll.
	api.mu.Lock()
	api.data["tasks"] = json.RawMessage(`[{"id":"missed"}]`)
	api.mu.Unlock()

	assert.Eventually(t, func() bool {
		var got []struct{ ID string }
		if err := json.Unmarshal(c.Data(), &got); err != nil {
			return false
		}
		return len(got) == 1 && got[0].ID == "missed"
	}, time.Second, 10*time.Millisecond)
}

func TestControllerUpdateCallback(t *testing.T) {
	api := newFakeAPI()
	api.data["tasks"] = json.RawMessage(`[{"id":"t1"}]`)

	var mu sync.Mutex
	var seen []string
	c, err := NewSyncController("tasks", api, newFakeCache(), newFakeChannel(), 1, quietLog(),
		WithUpdateFunc(func(data json.RawMessage) {
			mu.Lock()
			seen = append(seen, string(data))
			mu.Unlock()
		}))
	require.NoError(t, err)

	c.Load()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1)
	assert.JSONEq(t, `[{"id":"t1"}]`, seen[0])
}
