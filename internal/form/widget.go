package form

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrWidgetUnavailable is returned by Widget.Render while the challenge
// widget cannot be shown yet.
var ErrWidgetUnavailable = errors.New("challenge widget not available")

// Callbacks are the signals a challenge widget raises.
type Callbacks struct {
	OnToken  func(token string)
	OnExpire func()
	OnError  func()
}

// Widget is a challenge widget. Render either shows it and wires cb, or
// reports ErrWidgetUnavailable so the caller can try again later.
type Widget interface {
	Render(cb Callbacks) error
	Reset()
	Remove()
}

// PollOptions bound the wait for a widget to become available.
type PollOptions struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultPollOptions gives the widget 50 tries 200ms apart.
var DefaultPollOptions = PollOptions{MaxAttempts: 50, Delay: 200 * time.Millisecond}

// Mount is a widget being acquired or already shown.
type Mount struct {
	widget Widget
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	mounted bool
	closed  bool
}

// MountWidget polls w in the background until Render succeeds, the attempt
// ceiling is reached, or ctx is canceled. Giving up is silent: the widget
// simply never mounts and no token ever arrives.
func MountWidget(ctx context.Context, w Widget, cb Callbacks, opts PollOptions) *Mount {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultPollOptions.MaxAttempts
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultPollOptions.Delay
	}

	ctx, cancel := context.WithCancel(ctx)
	m := &Mount{widget: w, cancel: cancel, done: make(chan struct{})}
	go m.poll(ctx, cb, opts)
	return m
}

func (m *Mount) poll(ctx context.Context, cb Callbacks, opts PollOptions) {
	defer close(m.done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return
		}
		err := m.widget.Render(cb)
		if err == nil {
			m.mounted = true
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()

		timer.Reset(opts.Delay)
	}
}

// Done is closed once polling has finished, mounted or not.
func (m *Mount) Done() <-chan struct{} { return m.done }

// Mounted reports whether the widget was rendered.
func (m *Mount) Mounted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mounted
}

// Reset asks a mounted widget for a fresh challenge.
func (m *Mount) Reset() {
	m.mu.Lock()
	mounted := m.mounted && !m.closed
	m.mu.Unlock()
	if mounted {
		m.widget.Reset()
	}
}

// Close stops polling and removes the widget if it was rendered. It waits
// for the poller to exit and is safe to call more than once.
func (m *Mount) Close() {
	m.cancel()
	<-m.done

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	mounted := m.mounted
	m.mu.Unlock()

	if mounted {
		m.widget.Remove()
	}
}

// StaticWidget hands out a fixed, pre-obtained token. It stands in for the
// browser widget in terminal clients, e.g. with Turnstile's test tokens.
type StaticWidget struct {
	Token string

	mu sync.Mutex
	cb Callbacks
}

// Render issues the token right away. An empty token never becomes available.
func (s *StaticWidget) Render(cb Callbacks) error {
	if s.Token == "" {
		return ErrWidgetUnavailable
	}
	s.mu.Lock()
	s.cb = cb
	s.mu.Unlock()
	if cb.OnToken != nil {
		cb.OnToken(s.Token)
	}
	return nil
}

// Reset issues the token again.
func (s *StaticWidget) Reset() {
	s.mu.Lock()
	cb := s.cb
	s.mu.Unlock()
	if cb.OnToken != nil {
		cb.OnToken(s.Token)
	}
}

// Remove forgets the callbacks.
func (s *StaticWidget) Remove() {
	s.mu.Lock()
	s.cb = Callbacks{}
	s.mu.Unlock()
}
