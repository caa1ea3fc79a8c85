package registry

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	applogger "StratTick/pkg/logger"
)

// Holder publishes the current registry. Reloads replace it as a whole, so a
// cycle that already took a snapshot keeps seeing the registry it started with.
type Holder struct {
	current atomic.Pointer[Registry]

	mu      sync.Mutex
	path    string
	base    time.Duration
	builder Builder
	l       *applogger.Logger
}

// NewHolder wraps a fixed registry. Reload is unavailable.
func NewHolder(r *Registry) *Holder {
	h := &Holder{l: applogger.Nop()}
	h.current.Store(r)
	return h
}

// NewFileHolder loads path and keeps it reloadable.
func NewFileHolder(path string, base time.Duration, builder Builder, l *applogger.Logger) (*Holder, error) {
	r, err := Load(path, base, builder)
	if err != nil {
		return nil, err
	}
	if l == nil {
		l = applogger.Nop()
	}
	h := &Holder{path: path, base: base, builder: builder, l: l}
	h.current.Store(r)
	l.Info("registry loaded",
		applogger.String("path", path),
		applogger.Int("strategies", r.Len()),
		applogger.Int("enabled", r.EnabledCount()),
	)
	return h, nil
}

// Current returns the registry snapshot to use for one cycle.
func (h *Holder) Current() *Registry { return h.current.Load() }

// Swap installs r and returns the previous registry.
func (h *Holder) Swap(r *Registry) *Registry { return h.current.Swap(r) }

// Reload re-reads the registry file. On error the current registry stays.
func (h *Holder) Reload() (*Registry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.path == "" {
		return nil, fmt.Errorf("registry is not file backed")
	}
	r, err := Load(h.path, h.base, h.builder)
	if err != nil {
		h.l.Error("registry reload failed", applogger.String("path", h.path), applogger.Error(err))
		return nil, err
	}
	h.current.Store(r)
	h.l.Info("registry reloaded",
		applogger.String("path", h.path),
		applogger.Int("strategies", r.Len()),
		applogger.Int("enabled", r.EnabledCount()),
	)
	return r, nil
}
