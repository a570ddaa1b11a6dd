package core

import (
	"sync"

	"github.com/dkeye/quizhub/internal/protocol"
	"github.com/rs/zerolog/log"
)

type subscription struct {
	client   *Client
	listener func(text string)
}

// Registry binds clients to one shared Dispatcher. Text listeners live in the
// registry's side table, never on the client, so Remove cannot leak them.
type Registry struct {
	mu         sync.RWMutex
	order      []ClientID
	subs       map[ClientID]*subscription
	dispatcher Dispatcher
}

func NewRegistry(d Dispatcher) *Registry {
	return &Registry{
		subs:       make(map[ClientID]*subscription),
		dispatcher: d,
	}
}

// Add subscribes c. It reports false if c was already registered.
func (r *Registry) Add(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[c.ID()]; ok {
		return false
	}
	r.subs[c.ID()] = &subscription{
		client:   c,
		listener: func(text string) { r.dispatch(c, text) },
	}
	r.order = append(r.order, c.ID())
	log.Debug().Str("module", "core.registry").Str("client", string(c.ID())).Msg("client added")
	return true
}

// Remove unsubscribes c. It reports false if c was not registered.
func (r *Registry) Remove(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[c.ID()]; !ok {
		return false
	}
	delete(r.subs, c.ID())
	for i, id := range r.order {
		if id == c.ID() {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	log.Debug().Str("module", "core.registry").Str("client", string(c.ID())).Msg("client removed")
	return true
}

// Receive runs the listener installed for c. Text from unregistered clients is dropped
// and Receive reports false.
func (r *Registry) Receive(c *Client, text string) bool {
	r.mu.RLock()
	sub, ok := r.subs[c.ID()]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	sub.listener(text)
	return true
}

func (r *Registry) Has(c *Client) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.subs[c.ID()]
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Clients returns the registered clients in registration order.
func (r *Registry) Clients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.subs[id].client)
	}
	return out
}

// dispatch emits one command per non-empty phrase, synchronously and in order.
func (r *Registry) dispatch(c *Client, text string) {
	if r.dispatcher == nil {
		return
	}
	for _, cmd := range protocol.Parse(text) {
		r.dispatcher.Dispatch(c, cmd)
	}
}
