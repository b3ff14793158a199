package connectivity

import "sync"

// Subscription receives transitions from a Monitor. Each subscription has
// its own unbounded mailbox drained by a goroutine, so a slow reader only
// delays itself.
type Subscription struct {
	m   *Monitor
	out chan Transition

	mu      sync.Mutex
	pending []Transition
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

func newSubscription(m *Monitor) *Subscription {
	s := &Subscription{
		m:    m,
		out:  make(chan Transition),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go s.pump()
	return s
}

// Events returns the delivery channel. It is closed after Unsubscribe or
// Monitor.Close; transitions still in the mailbox at that point are
// dropped.
func (s *Subscription) Events() <-chan Transition {
	return s.out
}

// Unsubscribe detaches from the Monitor. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.m.unsubscribe(s)
}

func (s *Subscription) push(tr Transition) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending = append(s.pending, tr)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.pending = nil
	close(s.done)
}

func (s *Subscription) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		if len(s.pending) == 0 {
			s.mu.Unlock()
			select {
			case <-s.wake:
			case <-s.done:
				return
			}
			continue
		}
		next := s.pending[0]
		s.pending[0] = Transition{}
		s.pending = s.pending[1:]
		s.mu.Unlock()

		select {
		case s.out <- next:
		case <-s.done:
			return
		}
	}
}
