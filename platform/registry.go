// Package platform connects windows to the render backends drawing into
// them.
package platform

import (
	"log/slog"
	"sync"

	"github.com/andewx/osrevk/hal"
)

// ResizeListener is notified when the framebuffer of its window changes.
type ResizeListener interface {
	Resize(x, y, width, height int) error
}

// Registry maps windows to the listener that renders into them. Windowing
// callbacks look the listener up here instead of through global state.
type Registry struct {
	mu        sync.RWMutex
	listeners map[hal.Window]ResizeListener
	log       *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		listeners: make(map[hal.Window]ResizeListener),
		log:       log.With("component", "platform"),
	}
}

// Register binds l to w, replacing any previous listener.
func (r *Registry) Register(w hal.Window, l ResizeListener) {
	r.mu.Lock()
	r.listeners[w] = l
	r.mu.Unlock()
}

func (r *Registry) Unregister(w hal.Window) {
	r.mu.Lock()
	delete(r.listeners, w)
	r.mu.Unlock()
}

// Lookup returns the listener bound to w.
func (r *Registry) Lookup(w hal.Window) (ResizeListener, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.listeners[w]
	return l, ok
}

// Len returns the number of registered windows.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}

// Notify forwards a resize of w to its listener. Windows without a listener
// are ignored.
func (r *Registry) Notify(w hal.Window, x, y, width, height int) error {
	l, ok := r.Lookup(w)
	if !ok {
		r.log.Debug("resize for unregistered window", "width", width, "height", height)
		return nil
	}
	if err := l.Resize(x, y, width, height); err != nil {
		r.log.Error("resize failed", "width", width, "height", height, "err", err)
		return err
	}
	return nil
}
