package core

import "github.com/dkeye/quizhub/internal/protocol"

// Conn abstracts a text transport endpoint.
// Owned by the adapter; the adapter must Close() it.
type Conn interface {
	// RemoteAddr is the "ip:port" identity of the peer.
	RemoteAddr() string
	SendText(text string) error
	Close() error
}

// TransportHandler receives inbound transport events. Events of one Conn arrive in order;
// Connected is always the first and Closed the last.
type TransportHandler interface {
	ClientConnected(conn Conn)
	ClientText(conn Conn, text string)
	ClientClosed(conn Conn, code int, reason string)
	ClientError(conn Conn, err error)
}

// Transport accepts connections on a port and reports them to a TransportHandler.
type Transport interface {
	// Listen binds port (0 picks an ephemeral one) and returns the bound port.
	Listen(port int, h TransportHandler) (int, error)
	Close() error
}

// Dispatcher consumes commands parsed out of client text.
type Dispatcher interface {
	Dispatch(c *Client, cmd protocol.Command)
}

type DispatcherFunc func(c *Client, cmd protocol.Command)

func (f DispatcherFunc) Dispatch(c *Client, cmd protocol.Command) { f(c, cmd) }
