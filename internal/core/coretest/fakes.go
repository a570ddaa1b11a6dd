// Package coretest provides in-memory transport fakes for tests.
package coretest

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dkeye/quizhub/internal/core"
)

var (
	ErrClosed    = errors.New("fake connection closed")
	ErrPortInUse = errors.New("fake port in use")
)

// Conn records everything sent to it. Close only marks it closed; tests deliver
// the matching ClientClosed event themselves.
type Conn struct {
	addr string

	mu     sync.Mutex
	texts  []string
	closed bool
}

func NewConn(addr string) *Conn { return &Conn{addr: addr} }

// NewConnN builds a loopback connection on port 40000+n.
func NewConnN(n int) *Conn { return NewConn(fmt.Sprintf("127.0.0.1:%d", 40000+n)) }

func (c *Conn) RemoteAddr() string { return c.addr }

func (c *Conn) SendText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.texts = append(c.texts, text)
	return nil
}

func (c *Conn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Texts returns a copy of what has been sent so far.
func (c *Conn) Texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.texts...)
}

func (c *Conn) Reset() {
	c.mu.Lock()
	c.texts = nil
	c.mu.Unlock()
}

// Transport hands back the handler it was given so tests can drive it.
type Transport struct {
	mu        sync.Mutex
	Handler   core.TransportHandler
	BoundPort int
	ListenErr error
	// BusyPorts fail to bind with ErrPortInUse.
	BusyPorts []int
	closed    bool
	listens   []int
}

// NewTransport reports boundPort for ephemeral (port 0) listens.
func NewTransport(boundPort int) *Transport { return &Transport{BoundPort: boundPort} }

func (t *Transport) Listen(port int, h core.TransportHandler) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listens = append(t.listens, port)
	if t.ListenErr != nil {
		return 0, t.ListenErr
	}
	if slices.Contains(t.BusyPorts, port) {
		return 0, ErrPortInUse
	}
	t.Handler = h
	if port != 0 {
		return port, nil
	}
	return t.BoundPort, nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return nil
}

func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Listens returns every port Listen was asked for.
func (t *Transport) Listens() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]int(nil), t.listens...)
}
