package core

import (
	"sync"

	"github.com/google/uuid"
)

type ClientID string

type ClientState string

const (
	StateNone   ClientState = ""
	StateJoined ClientState = "joined"
	StateExited ClientState = "exited"
)

// Client is the server-side view of one connection: the transport handle plus
// display name and protocol state.
type Client struct {
	id      ClientID
	conn    Conn
	address string

	mu    sync.RWMutex
	name  string
	state ClientState
}

// NewClient names the client after its remote address.
func NewClient(conn Conn) *Client {
	addr := conn.RemoteAddr()
	return &Client{
		id:      ClientID(uuid.NewString()),
		conn:    conn,
		address: addr,
		name:    addr,
	}
}

func (c *Client) ID() ClientID    { return c.id }
func (c *Client) Conn() Conn      { return c.conn }
func (c *Client) Address() string { return c.address }

func (c *Client) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

func (c *Client) SetName(name string) {
	c.mu.Lock()
	c.name = name
	c.mu.Unlock()
}

func (c *Client) State() ClientState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) SetState(s ClientState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) SendText(text string) error { return c.conn.SendText(text) }

func (c *Client) Close() error { return c.conn.Close() }
