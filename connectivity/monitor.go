package connectivity

import (
	"sync"
	"time"

	"github.com/kbukum/artcache/logger"
)

// State is the reachability of the catalog.
type State int

const (
	Connected State = iota
	Disconnected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// Transition is an edge between two different states.
type Transition struct {
	From State     `json:"from"`
	To   State     `json:"to"`
	At   time.Time `json:"at"`
}

// Reconnected reports whether t is a Disconnected -> Connected edge.
func (t Transition) Reconnected() bool {
	return t.From == Disconnected && t.To == Connected
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithMonitorClock replaces time.Now for transition timestamps.
func WithMonitorClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) { m.now = now }
}

// Monitor holds the current connectivity state and broadcasts each change
// to its subscribers. It starts Connected. Observing the state it already
// has is a no-op, so subscribers only ever see edges.
type Monitor struct {
	log *logger.Logger
	now func() time.Time

	mu     sync.Mutex
	state  State
	since  time.Time
	subs   map[*Subscription]struct{}
	closed bool
}

// NewMonitor creates a Monitor in the Connected state.
func NewMonitor(log *logger.Logger, opts ...MonitorOption) *Monitor {
	if log == nil {
		log = logger.Nop()
	}
	m := &Monitor{
		log:  log.WithComponent("connectivity").WithCategory(logger.CategoryNetwork),
		now:  time.Now,
		subs: make(map[*Subscription]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.since = m.now()
	return m
}

// Observe applies a reachability sample. It returns true when the sample
// changed the state. Delivery to subscribers never blocks.
func (m *Monitor) Observe(connected bool) bool {
	next := Disconnected
	if connected {
		next = Connected
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || next == m.state {
		return false
	}

	tr := Transition{From: m.state, To: next, At: m.now()}
	m.state = next
	m.since = tr.At
	for sub := range m.subs {
		sub.push(tr)
	}

	level := logger.LevelInfo
	if next == Disconnected {
		level = logger.LevelWarn
	}
	m.log.Log("connectivity changed", logger.CategoryNetwork, level,
		logger.Fields("from", tr.From.String(), "to", tr.To.String(), "subscribers", len(m.subs)))
	return true
}

// Connected returns the current snapshot.
func (m *Monitor) Connected() bool {
	return m.State() == Connected
}

// State returns the current state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Since returns when the current state began.
func (m *Monitor) Since() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.since
}

// Subscribe registers a new subscriber. It receives every transition
// observed after this call, exactly once and in order. Subscribing to a
// closed Monitor returns an already-closed subscription.
func (m *Monitor) Subscribe() *Subscription {
	sub := newSubscription(m)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		sub.close()
		return sub
	}
	m.subs[sub] = struct{}{}
	return sub
}

func (m *Monitor) unsubscribe(sub *Subscription) {
	m.mu.Lock()
	delete(m.subs, sub)
	m.mu.Unlock()
	sub.close()
}

// Subscribers returns the number of active subscriptions.
func (m *Monitor) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// Close ends every subscription. Later observations are ignored.
func (m *Monitor) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	subs := m.subs
	m.subs = make(map[*Subscription]struct{})
	m.mu.Unlock()

	for sub := range subs {
		sub.close()
	}
}
