// Package conn memoizes the single store connection of the process.
//
// The first Acquire dials. Callers arriving while that dial is in flight wait
// for the same attempt and share its result. A successful handle is kept
// until Close; a failed attempt is reported to everyone who waited on it and
// forgotten, so the next Acquire dials again.
package conn

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"fintrack/internal/core"
)

// DefaultTimeout bounds a single connection attempt.
const DefaultTimeout = 10 * time.Second

// DialFunc opens a handle for dsn. It must honor ctx cancellation.
type DialFunc[H any] func(ctx context.Context, dsn string) (H, error)

// CloseFunc releases a handle previously returned by a DialFunc.
type CloseFunc[H any] func(H) error

// Options configures a Manager.
type Options[H any] struct {
	// Backend names the store in errors and logs.
	Backend string
	DSN     string
	Timeout time.Duration
	Dial    DialFunc[H]
	Close   CloseFunc[H]
}

// Manager lazily establishes and caches one handle.
type Manager[H any] struct {
	backend string
	dsn     string
	timeout time.Duration
	dial    DialFunc[H]
	close   CloseFunc[H]

	group singleflight.Group

	mu     sync.Mutex
	handle H
	ready  bool
	closed bool
}

// New builds a Manager. It does not dial.
//
// An empty DSN is reported here as a *core.ConfigurationError so that a
// misconfigured process fails at startup.
func New[H any](opts Options[H]) (*Manager[H], error) {
	if opts.DSN == "" {
		return nil, &core.ConfigurationError{
			Problems: []string{"DATABASE_URL is required for the " + opts.Backend + " backend"},
			Err:      core.ErrMissingConnection,
		}
	}
	if opts.Dial == nil {
		return nil, fmt.Errorf("conn: dial function is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Manager[H]{
		backend: opts.Backend,
		dsn:     opts.DSN,
		timeout: opts.Timeout,
		dial:    opts.Dial,
		close:   opts.Close,
	}, nil
}

// Acquire returns the cached handle, dialing on first use.
//
// When ctx ends before the shared attempt resolves, Acquire returns ctx.Err()
// while the attempt keeps running for the other waiters.
func (m *Manager[H]) Acquire(ctx context.Context) (H, error) {
	var zero H

	m.mu.Lock()
	switch {
	case m.closed:
		m.mu.Unlock()
		return zero, core.ErrConnectionClosed
	case m.ready:
		h := m.handle
		m.mu.Unlock()
		return h, nil
	}
	m.mu.Unlock()

	ch := m.group.DoChan("connect", func() (any, error) {
		return m.connect(ctx)
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		h, _ := res.Val.(H)
		return h, nil
	}
}

func (m *Manager[H]) connect(ctx context.Context) (H, error) {
	var zero H

	// An attempt can start right after another one resolved.
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return zero, core.ErrConnectionClosed
	}
	if m.ready {
		h := m.handle
		m.mu.Unlock()
		return h, nil
	}
	m.mu.Unlock()

	// The attempt is shared, so one caller giving up must not cancel it.
	dialCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()

	h, err := m.dial(dialCtx, m.dsn)
	if err != nil {
		timedOut := errors.Is(err, context.DeadlineExceeded) || errors.Is(dialCtx.Err(), context.DeadlineExceeded)
		return zero, &core.ConnectivityError{Backend: m.backend, Timeout: timedOut, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		if m.close != nil {
			_ = m.close(h)
		}
		return zero, core.ErrConnectionClosed
	}
	m.handle = h
	m.ready = true
	return h, nil
}

// Ready reports whether a handle is currently cached.
func (m *Manager[H]) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

// Close releases the cached handle. Later Acquire calls fail with
// core.ErrConnectionClosed. Close is idempotent.
func (m *Manager[H]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	if !m.ready {
		return nil
	}
	h := m.handle
	var zero H
	m.handle = zero
	m.ready = false
	if m.close != nil {
		if err := m.close(h); err != nil {
			return fmt.Errorf("close %s connection: %w", m.backend, err)
		}
	}
	return nil
}
