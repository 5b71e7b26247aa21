package ws_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"chatcore/internal/ws"
)

func TestHubSingleSessionPerUser(t *testing.T) {
	hub := ws.NewHub()
	h1 := ws.NewClient("s1", "alice", nil)
	h2 := ws.NewClient("s2", "alice", nil)

	assert.Nil(t, hub.Register("alice", h1))

	got, ok := hub.Lookup("alice")
	assert.True(t, ok)
	assert.Same(t, h1, got)

	// Reconnect replaces the session and hands back the displaced handle.
	displaced := hub.Register("alice", h2)
	assert.Same(t, h1, displaced)
	got, _ = hub.Lookup("alice")
	assert.Same(t, h2, got)

	// A stale disconnect must not evict the newer session.
	assert.False(t, hub.Unregister("alice", h1))
	got, ok = hub.Lookup("alice")
	assert.True(t, ok)
	assert.Same(t, h2, got)

	assert.True(t, hub.Unregister("alice", h2))
	_, ok = hub.Lookup("alice")
	assert.False(t, ok)
}

func TestHubLookupAbsent(t *testing.T) {
	hub := ws.NewHub()
	_, ok := hub.Lookup("ghost")
	assert.False(t, ok)
}
