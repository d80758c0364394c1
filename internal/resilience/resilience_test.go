package resilience

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// Breaker Tests
// =============================================================================

func TestDefaultBreakerConfig(t *testing.T) {
	cfg := DefaultBreakerConfig()
	if cfg.FailureThreshold != 5 {
		t.Errorf("FailureThreshold = %d, want 5", cfg.FailureThreshold)
	}
	if cfg.SuccessThreshold != 2 {
		t.Errorf("SuccessThreshold = %d, want 2", cfg.SuccessThreshold)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 3, SuccessThreshold: 1, Timeout: time.Minute})

	for i := 0; i < 3; i++ {
		if err := b.Allow(); err != nil {
			t.Fatalf("attempt %d: unexpected %v", i, err)
		}
		b.RecordFailure(errors.New("down"))
	}

	if b.State() != Open {
		t.Fatalf("state = %v, want open", b.State())
	}
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Fatalf("Allow() = %v, want ErrOpen", err)
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	var transitions []string
	b := NewBreaker(BreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          time.Second,
		OnStateChange: func(from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	now := time.Now()
	b.now = func() time.Time { return now }

	b.RecordFailure(errors.New("down"))
	now = now.Add(2 * time.Second)

	if err := b.Allow(); err != nil {
		t.Fatalf("Allow() after timeout = %v", err)
	}
	if b.State() != HalfOpen {
		t.Fatalf("state = %v, want half-open", b.State())
	}
	b.RecordSuccess()
	b.RecordSuccess()
	if b.State() != Closed {
		t.Fatalf("state = %v, want closed", b.State())
	}

	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestBreakerExecuteIgnoresBusinessErrors(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1})
	business := errors.New("insufficient funds")
	transient := errors.New("connection reset")
	isTransient := func(err error) bool { return errors.Is(err, transient) }

	if err := b.Execute(func() error { return business }, isTransient); !errors.Is(err, business) {
		t.Fatalf("Execute() = %v", err)
	}
	if b.State() != Closed {
		t.Fatal("business error must not open the circuit")
	}

	_ = b.Execute(func() error { return transient }, isTransient)
	if b.State() != Open {
		t.Fatal("transient error should open the circuit")
	}
	if !errors.Is(b.LastError(), transient) {
		t.Fatalf("LastError() = %v", b.LastError())
	}
}

// =============================================================================
// Transport Tests
// =============================================================================

func fastRetry() RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 2 * time.Millisecond
	return cfg
}

func TestTransportRetriesSafeRequests(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewTransport(nil, fastRetry(), nil)}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestTransportDoesNotRetryWrites(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewTransport(nil, fastRetry(), nil)}
	resp, err := client.Post(srv.URL, "application/json", nil)
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	resp.Body.Close()

	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("calls = %d, want exactly 1", calls)
	}
}
