package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
	gate   chan struct{} // when non-nil, Deliver waits on it
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Deliver(_ context.Context, ev Event) error {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type warnCounter struct {
	mu    sync.Mutex
	warns int
}

func (l *warnCounter) Debug(string, ...any) {}
func (l *warnCounter) Warn(string, ...any) {
	l.mu.Lock()
	l.warns++
	l.mu.Unlock()
}

func startBroadcaster(t *testing.T, b *Broadcaster) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestNotifyDeviceChanged_NeverBlocks(t *testing.T) {
	b := New() // not running: nobody drains the channel

	finished := make(chan struct{})
	go func() {
		for range 1000 {
			b.NotifyDeviceChanged()
		}
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("NotifyDeviceChanged blocked without a running broadcaster")
	}
}

func TestBroadcaster_DeliversToEverySink(t *testing.T) {
	a, c := &recordingSink{}, &recordingSink{}
	b := New(a)
	b.AddSink(c)
	startBroadcaster(t, b)

	b.NotifyDeviceChanged()

	require.Eventually(t, func() bool { return a.count() == 1 && c.count() == 1 },
		2*time.Second, 10*time.Millisecond)
	assert.Equal(t, EventRefreshDevices, a.events[0].Name)
	assert.False(t, a.events[0].Timestamp.IsZero())
}

func TestBroadcaster_CoalescesBursts(t *testing.T) {
	sink := &recordingSink{gate: make(chan struct{})}
	b := New(sink)
	startBroadcaster(t, b)

	// First signal is picked up and blocks in Deliver; the rest coalesce
	// into one pending signal.
	b.NotifyDeviceChanged()
	time.Sleep(50 * time.Millisecond)
	for range 10 {
		b.NotifyDeviceChanged()
	}
	close(sink.gate)

	require.Eventually(t, func() bool { return sink.count() == 2 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, sink.count())
}

func TestBroadcaster_SinkErrorIsLoggedOnly(t *testing.T) {
	failing := &recordingSink{err: errors.New("broker down")}
	healthy := &recordingSink{}
	logger := &warnCounter{}

	b := New(failing, healthy)
	b.SetLogger(logger)
	startBroadcaster(t, b)

	b.NotifyDeviceChanged()

	require.Eventually(t, func() bool { return healthy.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	logger.mu.Lock()
	defer logger.mu.Unlock()
	assert.Equal(t, 1, logger.warns)
}

func TestBroadcaster_RunStopsOnCancel(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
