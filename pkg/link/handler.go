package link

import (
	"context"
	"sync"

	"github.com/golang/glog"
)

// MessageHandler is called when a message is decoded.
type MessageHandler interface {
	HandleMessage(context.Context, *Message)
}

// HandleMessageFunc is func type of MessageHandler.
type HandleMessageFunc func(context.Context, *Message)

// HandleMessage implements MessageHandler.
func (f HandleMessageFunc) HandleMessage(ctx context.Context, msg *Message) {
	f(ctx, msg)
}

// Mux dispatches messages by type.
// Messages of unregistered types are logged and ignored.
type Mux struct {
	// Unknown is optionally called for unregistered types.
	Unknown MessageHandler

	handlers map[string]MessageHandler
	lock     sync.RWMutex
}

// NewMux creates a Mux.
func NewMux() *Mux {
	return &Mux{handlers: make(map[string]MessageHandler)}
}

// Handle registers the handler for a message type.
func (m *Mux) Handle(typ string, h MessageHandler) *Mux {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.handlers == nil {
		m.handlers = make(map[string]MessageHandler)
	}
	m.handlers[typ] = h
	return m
}

// HandleFunc registers a func for a message type.
func (m *Mux) HandleFunc(typ string, fn func(context.Context, *Message)) *Mux {
	return m.Handle(typ, HandleMessageFunc(fn))
}

// HandleMessage implements MessageHandler.
func (m *Mux) HandleMessage(ctx context.Context, msg *Message) {
	m.lock.RLock()
	h := m.handlers[msg.Type]
	m.lock.RUnlock()
	if h != nil {
		h.HandleMessage(ctx, msg)
		return
	}
	glog.Warningf("unknown packet type: %q", msg.Type)
	if u := m.Unknown; u != nil {
		u.HandleMessage(ctx, msg)
	}
}

// LogInfo returns a handler only logging the message data.
func LogInfo(label string) MessageHandler {
	return HandleMessageFunc(func(ctx context.Context, msg *Message) {
		glog.Infof("%s: %s", label, msg.Data)
	})
}

// LogError returns a handler logging the message data as an error.
func LogError(label string) MessageHandler {
	return HandleMessageFunc(func(ctx context.Context, msg *Message) {
		glog.Errorf("%s: %s", label, msg.Data)
	})
}
