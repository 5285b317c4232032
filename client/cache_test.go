package client

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheRoundTrip(t *testing.T) {
	cache, err := OpenCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer cache.Close()

	_, ok, err := cache.Get("tasks")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set("tasks", []byte(`[{"id":"t1"}]`)))

	got, ok, err := cache.Get("tasks")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[{"id":"t1"}]`, string(got))

	// Replace, not append.
	require.NoError(t, cache.Set("tasks", []byte(`[]`)))
	got, ok, err = cache.Get("tasks")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[]`, string(got))
}

func TestCacheSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	cache, err := OpenCache(path)
	require.NoError(t, err)
	require.NoError(t, cache.Set("projects", []byte(`[{"id":"p1"}]`)))
	require.NoError(t, cache.Close())

	cache, err = OpenCache(path)
	require.NoError(t, err)
	defer cache.Close()

	got, ok, err := cache.Get("projects")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[{"id":"p1"}]`, string(got))
}

func TestCacheDelete(t *testing.T) {
	cache, err := OpenCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer cache.Close()

	require.NoError(t, cache.Set("leads", []byte(`[1]`)))
	require.NoError(t, cache.Delete("leads"))

	_, ok, err := cache.Get("leads")
	require.NoError(t, err)
	assert.False(t, ok)
}
