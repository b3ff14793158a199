package component

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
)

// Background adapts a blocking loop into a Component. Start runs fn in a
// goroutine with a context that Stop cancels; Stop waits for fn to return.
type Background struct {
	name string
	desc Description
	fn   func(ctx context.Context) error

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// NewBackground wraps fn. fn should return when ctx is done.
func NewBackground(name string, desc Description, fn func(ctx context.Context) error) *Background {
	return &Background{name: name, desc: desc, fn: fn}
}

var (
	_ Component   = (*Background)(nil)
	_ Describable = (*Background)(nil)
)

// Name returns the component name.
func (b *Background) Name() string { return b.name }

// Start launches the loop. The loop's context is detached from ctx, which
// only scopes startup.
func (b *Background) Start(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done != nil {
		return fmt.Errorf("%s already running", b.name)
	}
	runCtx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.done = make(chan struct{})
	b.err = nil
	go func(done chan struct{}) {
		err := b.fn(runCtx)
		b.mu.Lock()
		b.err = err
		b.mu.Unlock()
		close(done)
	}(b.done)
	return nil
}

// Stop cancels the loop and waits for it, up to ctx.
func (b *Background) Stop(ctx context.Context) error {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.mu.Unlock()
	if done == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", b.name, ctx.Err())
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancel, b.done = nil, nil
	if b.err != nil && !stderrors.Is(b.err, context.Canceled) {
		return b.err
	}
	return nil
}

// Health is unhealthy once the loop has exited on its own.
func (b *Background) Health(_ context.Context) Health {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done == nil {
		return Health{Name: b.name, Status: StatusUnhealthy, Message: "not running"}
	}
	select {
	case <-b.done:
		msg := "stopped"
		if b.err != nil {
			msg = b.err.Error()
		}
		return Health{Name: b.name, Status: StatusUnhealthy, Message: msg}
	default:
		return Health{Name: b.name, Status: StatusHealthy}
	}
}

// Describe returns the description given at construction.
func (b *Background) Describe() Description { return b.desc }
