package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Client is the handle for one live connection. Writes are serialized with a
// mutex because broadcasts and send acknowledgments come from different
// goroutines and gorilla/websocket allows only one concurrent writer.
type Client struct {
	ID     string
	UserID string

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewClient(id, userID string, conn *websocket.Conn) *Client {
	return &Client{ID: id, UserID: userID, conn: conn}
}

// Send writes a JSON event to the connection. Writing to a closed
// connection returns an error the caller may ignore; delivery to a gone
// client is a no-op by contract.
func (c *Client) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Hub is the online-session registry: at most one live connection per user.
// It is built on sync.Map so every operation is per-key atomic; no global
// lock serializes unrelated users' connects and disconnects.
type Hub struct {
	sessions sync.Map // userID -> *Client
}

func NewHub() *Hub {
	return &Hub{}
}

// Register stores the client as the user's active session, unconditionally
// replacing any previous one. The displaced client, if any, is returned so
// the caller can close it.
func (h *Hub) Register(userID string, c *Client) *Client {
	prev, loaded := h.sessions.Swap(userID, c)
	if !loaded {
		return nil
	}
	return prev.(*Client)
}

// Unregister removes the user's session only if it still is this client.
// The compare-and-delete guards against a slow disconnect evicting a newer
// session registered in the meantime. Reports whether an entry was removed.
func (h *Hub) Unregister(userID string, c *Client) bool {
	return h.sessions.CompareAndDelete(userID, c)
}

// Lookup returns the user's active session, if any.
func (h *Hub) Lookup(userID string) (*Client, bool) {
	v, ok := h.sessions.Load(userID)
	if !ok {
		return nil, false
	}
	return v.(*Client), true
}

// Broadcast sends the event to every active session. Failed writes are left
// for the owning connection's read loop to clean up.
func (h *Hub) Broadcast(v any) {
	h.sessions.Range(func(_, value any) bool {
		_ = value.(*Client).Send(v)
		return true
	})
}
