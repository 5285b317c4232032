package client

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	syncengine "teamtask/sync"
)

// DefaultPollInterval bounds staleness when the channel silently drops
// messages: every tick re-fetches the authoritative value.
const DefaultPollInterval = 30 * time.Second

// State is the lifecycle of one bucket controller.
type State int

const (
	// StateUninitialized: no load attempted yet.
	StateUninitialized State = iota
	// StateLoading: a server read is in flight.
	StateLoading
	// StateReady: local state mirrors the last successful server read.
	StateReady
	// StateFallback: the server was unreachable; local state comes from the
	// cache (or defaults to empty).
	StateFallback
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFallback:
		return "fallback"
	}
	return "unknown"
}

// DataAPI is the subset of the HTTP client the controller needs.
type DataAPI interface {
	GetData(dataType string) (json.RawMessage, error)
	SaveData(dataType string, payload json.RawMessage) error
}

// BucketCache is the durable local store used for fallback and optimistic
// staging.
type BucketCache interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
}

// Channel delivers peer broadcasts for a bucket.
type Channel interface {
	Subscribe(dataType string, fn func(syncengine.Message)) (func(), error)
}

// SyncController keeps one bucket synchronized for one client: server reads
// with cache fallback, optimistic writes, peer broadcast application with
// self-echo filtering, and interval polling as the consistency backstop.
type SyncController struct {
	field  syncengine.Field
	api    DataAPI
	cache  BucketCache
	ch     Channel
	userID uint

	pollInterval time.Duration
	onUpdate     func(json.RawMessage)
	log          *logrus.Entry

	mu      sync.RWMutex
	state   State
	data    json.RawMessage
	lastErr error
}

// ControllerOption customizes a SyncController.
type ControllerOption func(*SyncController)

// WithPollInterval overrides the degraded-mode polling interval.
func WithPollInterval(d time.Duration) ControllerOption {
	return func(c *SyncController) { c.pollInterval = d }
}

// WithUpdateFunc registers a callback invoked whenever local state changes
// from a load, a save or a peer broadcast.
func WithUpdateFunc(fn func(json.RawMessage)) ControllerOption {
	return func(c *SyncController) { c.onUpdate = fn }
}

// NewSyncController creates a controller for one bucket. dataType must be a
// recognized field name.
func NewSyncController(dataType string, api DataAPI, cache BucketCache, ch Channel, userID uint, log *logrus.Logger, opts ...ControllerOption) (*SyncController, error) {
	field, err := syncengine.ParseField(dataType)
	if err != nil {
		return nil, err
	}

	c := &SyncController{
		field:        field,
		api:          api,
		cache:        cache,
		ch:           ch,
		userID:       userID,
		pollInterval: DefaultPollInterval,
		state:        StateUninitialized,
		data:         json.RawMessage("[]"),
		log: log.WithFields(logrus.Fields{
			"field":   field.String(),
			"user_id": userID,
		}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start performs the initial load, subscribes to peer broadcasts and runs the
// polling loop until ctx is cancelled.
func (c *SyncController) Start(ctx context.Context) error {
	unsubscribe, err := c.ch.Subscribe(c.field.String(), c.handleRemote)
	if err != nil {
		return err
	}

	c.Load()

	go func() {
		defer unsubscribe()

		ticker := time.NewTicker(c.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// The channel may have dropped broadcasts; reconcile
				// against the authoritative value.
				c.Load()
			}
		}
	}()
	return nil
}

// Load fetches the bucket from the server. On success the result overwrites
// local state and cache unconditionally, empty or not: an empty server value
// reflects real deletions and must replace a stale cache. On failure the
// cached value (or an empty array) is served instead and no error reaches
// callers; Err exposes the last failure for diagnostics.
func (c *SyncController) Load() {
	c.setState(StateLoading)

	data, err := c.api.GetData(c.field.String())
	if err != nil {
		c.log.WithError(err).Warn("server read failed, falling back to cache")
		c.fallbackToCache(err)
		return
	}

	c.mu.Lock()
	c.state = StateReady
	c.data = data
	c.lastErr = nil
	c.mu.Unlock()

	if err := c.cache.Set(c.field.String(), data); err != nil {
		c.log.WithError(err).Warn("cache write failed")
	}
	c.notify(data)
}

// Save applies newValue locally and to the cache immediately, then sends the
// write to the server. A failed send is logged and recorded but the
// optimistic local value is not rolled back; the next successful write or
// poll re-converges with the server.
func (c *SyncController) Save(newValue json.RawMessage) {
	c.mu.Lock()
	c.data = newValue
	if c.state == StateUninitialized || c.state == StateLoading {
		c.state = StateReady
	}
	c.mu.Unlock()

	if err := c.cache.Set(c.field.String(), newValue); err != nil {
		c.log.WithError(err).Warn("cache write failed")
	}
	c.notify(newValue)

	go func() {
		if err := c.api.SaveData(c.field.String(), newValue); err != nil {
			c.log.WithError(err).Error("server write failed, local state kept")
			c.mu.Lock()
			c.lastErr = err
			c.mu.Unlock()
		}
	}()
}

// Refresh re-runs Load.
func (c *SyncController) Refresh() {
	c.Load()
}

// Data returns the current local value.
func (c *SyncController) Data() json.RawMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data
}

// State returns the controller lifecycle state.
func (c *SyncController) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Err returns the most recent load or save failure, nil after a successful
// load.
func (c *SyncController) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// handleRemote applies a peer broadcast. Messages originating from this
// user's own id are discarded: the local optimistic state is assumed newer.
// That heuristic misfires when the same user has a second session open; the
// second session stays stale until its next poll tick.
// The lifecycle state is left untouched: only a successful server read
// moves the controller out of fallback.
func (c *SyncController) handleRemote(msg syncengine.Message) {
	if msg.OriginUserID == c.userID {
		c.log.Debug("discarding own echo")
		return
	}

	payload := msg.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("[]")
	}

	c.mu.Lock()
	c.data = payload
	c.mu.Unlock()

	if err := c.cache.Set(c.field.String(), payload); err != nil {
		c.log.WithError(err).Warn("cache write failed")
	}
	c.notify(payload)
}

func (c *SyncController) fallbackToCache(cause error) {
	data := json.RawMessage("[]")
	if cached, ok, err := c.cache.Get(c.field.String()); err != nil {
		c.log.WithError(err).Warn("cache read failed")
	} else if ok {
		data = cached
	}

	c.mu.Lock()
	c.state = StateFallback
	c.data = data
	c.lastErr = cause
	c.mu.Unlock()
	c.notify(data)
}

func (c *SyncController) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *SyncController) notify(data json.RawMessage) {
	if c.onUpdate != nil {
		c.onUpdate(data)
	}
}
