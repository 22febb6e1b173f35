// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package event

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
)

// Handler is one registered callback.
type Handler struct {
	Priority      Priority
	SkipConsumed  bool
	SkipCancelled bool

	name   string
	typ    reflect.Type
	invoke func(Event) (handled bool, err error)
}

// HandlerOption adjusts a Handler built by On.
type HandlerOption func(*Handler)

// SkipConsumed makes the handler ignore events already consumed.
func SkipConsumed() HandlerOption {
	return func(h *Handler) { h.SkipConsumed = true }
}

// SkipCancelled makes the handler ignore cancelled events.
func SkipCancelled() HandlerOption {
	return func(h *Handler) { h.SkipCancelled = true }
}

// Named labels the handler for logs and Describe.
func Named(name string) HandlerOption {
	return func(h *Handler) { h.name = name }
}

// On builds a handler for events of type E. Events of other types are
// skipped.
func On[E Event](priority Priority, fn func(E) error, opts ...HandlerOption) Handler {
	h := Handler{
		Priority: priority,
		typ:      reflect.TypeOf((*E)(nil)).Elem(),
		invoke: func(ev Event) (bool, error) {
			typed, ok := ev.(E)
			if !ok {
				return false, nil
			}
			return true, fn(typed)
		},
	}
	for _, opt := range opts {
		opt(&h)
	}
	if h.name == "" {
		h.name = h.typ.String()
	}
	return h
}

// Listener groups the handlers of one module.
type Listener interface {
	Handlers() []Handler
}

type registration struct {
	owner   Listener
	handler Handler
}

// Manager dispatches events to registered handlers. It is safe for
// concurrent use. Call works on a snapshot of the registry, so handlers may
// register, unregister or broadcast nested events.
type Manager struct {
	mu        sync.Mutex
	listeners map[Priority][]registration
	log       *slog.Logger
}

// NewManager creates an empty registry. A nil logger uses slog.Default().
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		listeners: make(map[Priority][]registration, len(priorities)),
		log:       logger,
	}
}

// Register adds every handler of listener. A listener with no handlers is
// registered with a warning. Listeners must be comparable (typically a
// pointer) so that Unregister can find them, and every handler needs a
// known priority.
func (m *Manager) Register(listener Listener) error {
	if listener == nil {
		return fmt.Errorf("listener may not be nil")
	}
	if !reflect.TypeOf(listener).Comparable() {
		return fmt.Errorf("listener %T is not comparable", listener)
	}

	handlers := listener.Handlers()
	if len(handlers) == 0 {
		m.log.Warn("event listener has no handlers", "listener", fmt.Sprintf("%T", listener))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range handlers {
		if h.invoke == nil {
			return fmt.Errorf("handler %q of %T was not built with On", h.name, listener)
		}
		if !h.Priority.valid() {
			return fmt.Errorf("handler %q of %T has unknown priority %d", h.name, listener, int(h.Priority))
		}
	}
	for _, h := range handlers {
		m.listeners[h.Priority] = append(m.listeners[h.Priority], registration{owner: listener, handler: h})
	}
	return nil
}

// Unregister removes every handler of listener. It reports whether any
// handler was removed.
func (m *Manager) Unregister(listener Listener) bool {
	if listener == nil || !reflect.TypeOf(listener).Comparable() {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := false
	for p, regs := range m.listeners {
		kept := regs[:0]
		for _, r := range regs {
			if r.owner == listener {
				removed = true
				continue
			}
			kept = append(kept, r)
		}
		m.listeners[p] = kept
	}
	return removed
}

// Call broadcasts ev. Handler errors and panics are logged and never stop
// the remaining handlers.
func (m *Manager) Call(ev Event) {
	if ev == nil {
		panic("event may not be nil")
	}

	m.mu.Lock()
	snapshot := make([][]registration, len(priorities))
	for i, p := range priorities {
		snapshot[i] = append([]registration(nil), m.listeners[p]...)
	}
	m.mu.Unlock()

	cancellable, isCancellable := ev.(Cancellable)
	for _, regs := range snapshot {
		for _, r := range regs {
			h := r.handler
			if h.SkipConsumed && ev.Consumed() {
				continue
			}
			if h.SkipCancelled && isCancellable && cancellable.Cancelled() {
				continue
			}
			m.dispatch(h, ev)
		}
	}
}

func (m *Manager) dispatch(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("event handler panicked", "handler", h.name, "event", fmt.Sprintf("%T", ev), "panic", r)
		}
	}()
	if handled, err := h.invoke(ev); handled && err != nil {
		m.log.Error("event handler failed", "handler", h.name, "event", fmt.Sprintf("%T", ev), "error", err)
	}
}

// Describe lists registered handlers per tier, for debugging.
func (m *Manager) Describe() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sb strings.Builder
	for _, p := range priorities {
		sb.WriteString("<=== " + p.String() + " ===>\n")
		for _, r := range m.listeners[p] {
			sb.WriteString("---> " + describeHandler(r) + "\n")
		}
	}
	return sb.String()
}

func describeHandler(r registration) string {
	return fmt.Sprintf("%T: %s", r.owner, r.handler.name)
}
