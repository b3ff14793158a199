package resilience

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/kbukum/artcache/errors"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastRetry(3), func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.ServerStatus(503)
		}
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("got %q, %v", got, err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_StopsOnNonRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"client status", errors.ServerStatus(404)},
		{"decoding", errors.Decoding(stderrors.New("bad json"))},
		{"plain error", stderrors.New("boom")},
		{"canceled", context.Canceled},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			_, err := Retry(context.Background(), fastRetry(5), func() (int, error) {
				calls++
				return 0, tc.err
			})
			if !stderrors.Is(err, tc.err) {
				t.Errorf("expected original error, got %v", err)
			}
			if calls != 1 {
				t.Errorf("expected a single call, got %d", calls)
			}
		})
	}
}

func TestRetry_ReturnsLastErrorWhenExhausted(t *testing.T) {
	calls := 0
	var retries []int
	cfg := fastRetry(3)
	cfg.OnRetry = func(attempt int, _ error, _ time.Duration) { retries = append(retries, attempt) }

	_, err := Retry(context.Background(), cfg, func() (int, error) {
		calls++
		return 0, errors.Transport(stderrors.New("connection reset"))
	})
	if errors.CodeOf(err) != errors.ErrCodeTransport {
		t.Errorf("expected TRANSPORT, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if len(retries) != 2 || retries[0] != 1 || retries[1] != 2 {
		t.Errorf("unexpected OnRetry attempts %v", retries)
	}
}

func TestRetry_ZeroConfigMeansSingleAttempt(t *testing.T) {
	calls := 0
	_, _ = Retry(context.Background(), RetryConfig{}, func() (int, error) {
		calls++
		return 0, errors.ServerStatus(500)
	})
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetry_RespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 5, InitialBackoff: time.Second, MaxBackoff: time.Second}
	calls := 0
	_, err := Retry(ctx, cfg, func() (int, error) {
		calls++
		cancel()
		return 0, errors.ServerStatus(503)
	})
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestScheduleIsCapped(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond, BackoffFactor: 2}
	schedule := newSchedule(cfg)
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond}
	for i, w := range want {
		if got := schedule.NextBackOff(); got != w {
			t.Errorf("retry %d: got %v, want %v", i+1, got, w)
		}
	}
}

func TestScheduleJitterStaysInRange(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second, BackoffFactor: 1, Jitter: 0.5}
	schedule := newSchedule(cfg)
	for range 20 {
		got := schedule.NextBackOff()
		if got < 50*time.Millisecond || got > 150*time.Millisecond {
			t.Fatalf("jittered wait %v outside [50ms, 150ms]", got)
		}
	}
}

func TestRetry_ReportsBackoff(t *testing.T) {
	var waits []time.Duration
	cfg := RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		BackoffFactor:  2,
		RetryIf:        func(error) bool { return true },
		OnRetry:        func(_ int, _ error, d time.Duration) { waits = append(waits, d) },
	}
	_, _ = Retry(context.Background(), cfg, func() (int, error) { return 0, stderrors.New("boom") })
	if len(waits) != 2 || waits[0] != time.Millisecond || waits[1] != 2*time.Millisecond {
		t.Errorf("waits = %v", waits)
	}
}
