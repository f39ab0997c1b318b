// Package notify fans device-change signals out to observers.
//
// Producers call NotifyDeviceChanged, which never blocks. Signals raised
// while a delivery is pending coalesce into one, so a burst of changes
// produces a single RefreshDevices event per sink. Events carry no device
// data; observers re-read what they need.
package notify

import (
	"context"
	"sync"
	"time"
)

// EventRefreshDevices tells observers to reload their device lists.
const EventRefreshDevices = "RefreshDevices"

// deliveryTimeout bounds a single sink delivery.
const deliveryTimeout = 5 * time.Second

// Event is what sinks receive.
type Event struct {
	Name      string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink delivers events to one kind of observer.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, ev Event) error
}

// Logger is the logging surface the broadcaster needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Broadcaster coalesces change signals and delivers them to its sinks from
// a single goroutine started with Run.
type Broadcaster struct {
	signal chan struct{}

	mu     sync.RWMutex
	sinks  []Sink
	logger Logger
}

// New creates a broadcaster delivering to sinks.
func New(sinks ...Sink) *Broadcaster {
	return &Broadcaster{
		signal: make(chan struct{}, 1),
		sinks:  sinks,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger used for delivery failures.
func (b *Broadcaster) SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	b.mu.Lock()
	b.logger = logger
	b.mu.Unlock()
}

// AddSink registers another sink. Safe to call while Run is active.
func (b *Broadcaster) AddSink(s Sink) {
	b.mu.Lock()
	b.sinks = append(b.sinks, s)
	b.mu.Unlock()
}

// NotifyDeviceChanged records that some device changed. It returns
// immediately; if a signal is already pending this one merges with it.
func (b *Broadcaster) NotifyDeviceChanged() {
	select {
	case b.signal <- struct{}{}:
	default:
	}
}

// Run delivers pending signals until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.signal:
			b.deliver(ctx, Event{Name: EventRefreshDevices, Timestamp: time.Now().UTC()})
		}
	}
}

func (b *Broadcaster) deliver(ctx context.Context, ev Event) {
	b.mu.RLock()
	sinks := make([]Sink, len(b.sinks))
	copy(sinks, b.sinks)
	logger := b.logger
	b.mu.RUnlock()

	for _, s := range sinks {
		dctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
		err := s.Deliver(dctx, ev)
		cancel()
		if err != nil {
			logger.Warn("event delivery failed", "sink", s.Name(), "event", ev.Name, "error", err)
			continue
		}
		logger.Debug("event delivered", "sink", s.Name(), "event", ev.Name)
	}
}
