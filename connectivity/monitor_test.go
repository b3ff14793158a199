package connectivity

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/artcache/logger"
)

func recv(t *testing.T, sub *Subscription) Transition {
	t.Helper()
	select {
	case tr, ok := <-sub.Events():
		if !ok {
			t.Fatal("events channel closed")
		}
		return tr
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for transition")
	}
	return Transition{}
}

func expectNone(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case tr := <-sub.Events():
		t.Fatalf("unexpected transition %+v", tr)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestMonitorStartsConnected(t *testing.T) {
	m := NewMonitor(logger.Nop())
	if !m.Connected() || m.State() != Connected {
		t.Error("monitor should start optimistic")
	}
}

func TestObserveIsEdgeTriggered(t *testing.T) {
	m := NewMonitor(logger.Nop())
	sub := m.Subscribe()
	defer sub.Unsubscribe()

	if m.Observe(true) {
		t.Error("repeating the initial state must not be a change")
	}
	expectNone(t, sub)

	samples := []bool{false, false, false, true, true, false, true}
	changes := 0
	for _, s := range samples {
		if m.Observe(s) {
			changes++
		}
	}
	if changes != 4 {
		t.Errorf("changes = %d, want 4", changes)
	}

	want := []Transition{
		{From: Connected, To: Disconnected},
		{From: Disconnected, To: Connected},
		{From: Connected, To: Disconnected},
		{From: Disconnected, To: Connected},
	}
	for i, w := range want {
		got := recv(t, sub)
		if got.From != w.From || got.To != w.To {
			t.Errorf("transition %d = %v->%v, want %v->%v", i, got.From, got.To, w.From, w.To)
		}
	}
	expectNone(t, sub)
}

func TestTransitionTimestampsAndSince(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMonitor(logger.Nop(), WithMonitorClock(func() time.Time { return now }))
	sub := m.Subscribe()
	defer sub.Unsubscribe()

	now = now.Add(time.Minute)
	m.Observe(false)
	tr := recv(t, sub)
	if !tr.At.Equal(now) || !m.Since().Equal(now) {
		t.Errorf("At = %v, Since = %v, want %v", tr.At, m.Since(), now)
	}
	if tr.Reconnected() {
		t.Error("going offline is not a reconnect")
	}
	m.Observe(true)
	if !recv(t, sub).Reconnected() {
		t.Error("expected reconnect edge")
	}
}

func TestSlowSubscriberDoesNotBlockBroadcast(t *testing.T) {
	m := NewMonitor(logger.Nop())
	slow := m.Subscribe()
	defer slow.Unsubscribe()
	fast := m.Subscribe()
	defer fast.Unsubscribe()

	const n = 1000
	done := make(chan struct{})
	go func() {
		for i := 0; i < n; i++ {
			m.Observe(i%2 == 1)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Observe blocked on an unread subscriber")
	}

	for i := 0; i < n; i++ {
		tr := recv(t, fast)
		wantTo := Disconnected
		if i%2 == 1 {
			wantTo = Connected
		}
		if tr.To != wantTo {
			t.Fatalf("fast transition %d = %v, want %v", i, tr.To, wantTo)
		}
	}
	for i := 0; i < n; i++ {
		tr := recv(t, slow)
		if (tr.To == Connected) != (i%2 == 1) {
			t.Fatalf("slow transition %d out of order", i)
		}
	}
}

func TestConcurrentObserversProduceAlternatingStream(t *testing.T) {
	m := NewMonitor(logger.Nop())
	sub := m.Subscribe()
	defer sub.Unsubscribe()

	var changes atomic.Int64
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if m.Observe((g+i)%2 == 0) {
					changes.Add(1)
				}
			}
		}(g)
	}
	wg.Wait()

	prev := Connected
	for i := int64(0); i < changes.Load(); i++ {
		tr := recv(t, sub)
		if tr.From != prev || tr.To == tr.From {
			t.Fatalf("transition %d = %v->%v after %v", i, tr.From, tr.To, prev)
		}
		prev = tr.To
	}
	if prev != m.State() {
		t.Errorf("stream ends at %v, monitor at %v", prev, m.State())
	}
}

func TestSubscribeOnlySeesLaterTransitions(t *testing.T) {
	m := NewMonitor(logger.Nop())
	m.Observe(false)
	sub := m.Subscribe()
	defer sub.Unsubscribe()
	expectNone(t, sub)
	m.Observe(true)
	if tr := recv(t, sub); tr.To != Connected {
		t.Errorf("got %+v", tr)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	m := NewMonitor(logger.Nop())
	sub := m.Subscribe()
	other := m.Subscribe()
	defer other.Unsubscribe()
	if m.Subscribers() != 2 {
		t.Fatalf("subscribers = %d", m.Subscribers())
	}

	sub.Unsubscribe()
	sub.Unsubscribe()
	if m.Subscribers() != 1 {
		t.Errorf("subscribers after unsubscribe = %d", m.Subscribers())
	}
	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}

	m.Observe(false)
	if tr := recv(t, other); tr.To != Disconnected {
		t.Errorf("remaining subscriber got %+v", tr)
	}
}

func TestCloseEndsAllSubscriptions(t *testing.T) {
	m := NewMonitor(logger.Nop())
	subs := []*Subscription{m.Subscribe(), m.Subscribe()}
	m.Close()
	m.Close()
	for _, s := range subs {
		for range s.Events() {
		}
	}
	if m.Observe(false) {
		t.Error("closed monitor must ignore observations")
	}
	late := m.Subscribe()
	if _, ok := <-late.Events(); ok {
		t.Error("subscription to closed monitor should be closed")
	}
}

func TestProberDrivesMonitor(t *testing.T) {
	m := NewMonitor(logger.Nop())
	sub := m.Subscribe()
	defer sub.Unsubscribe()

	var reachable atomic.Bool
	p := NewProber(m, func(context.Context) bool { return reachable.Load() }, 5*time.Millisecond, time.Second, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- p.Run(ctx) }()

	if tr := recv(t, sub); tr.To != Disconnected {
		t.Fatalf("first probe should report offline, got %+v", tr)
	}
	reachable.Store(true)
	if tr := recv(t, sub); tr.To != Connected {
		t.Fatalf("expected reconnect, got %+v", tr)
	}
	expectNone(t, sub)

	cancel()
	if err := <-errc; err != context.Canceled {
		t.Errorf("Run returned %v", err)
	}
}

func TestProberRejectsZeroInterval(t *testing.T) {
	p := NewProber(NewMonitor(nil), func(context.Context) bool { return true }, 0, time.Second, nil)
	if err := p.Run(context.Background()); err == nil {
		t.Error("expected interval error")
	}
}

func TestProberConfigDefaults(t *testing.T) {
	var cfg ProberConfig
	cfg.ApplyDefaults()
	if cfg.Address != "api.artic.edu:443" || cfg.Interval != 10*time.Second || cfg.Timeout != 3*time.Second {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}
