// Package telemetry ingests sensor readings published over MQTT.
//
// Sensors publish JSON to smarthome/device/{segment}/temp:
//
//	{"temperature": 21.5, "timestamp": "2026-03-01T09:00:00Z"}
//
// When the segment is the UUID of a registered temperature sensor the
// reading is stored on that device. Readings for anything else (a location
// name such as "livingroom", or an unknown ID) still refresh observers.
// Every valid reading is written to the time-series store when one is set.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/smarthome-core/internal/device"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/mqtt"
)

// handleTimeout bounds the work done for a single message.
const handleTimeout = 5 * time.Second

// Subscriber is the MQTT surface the listener needs. *mqtt.Client satisfies it.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// ReadingRecorder stores sensor readings. *device.Service satisfies it.
type ReadingRecorder interface {
	RecordReading(ctx context.Context, id string, celsius float64) error
}

// Notifier refreshes observers. *notify.Broadcaster satisfies it.
type Notifier interface {
	NotifyDeviceChanged()
}

// TemperatureWriter persists readings as time series. *influxdb.Client satisfies it.
type TemperatureWriter interface {
	WriteTemperature(deviceID string, celsius float64, at time.Time)
}

// Logger is the logging surface the listener needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Reading is the payload sensors publish.
type Reading struct {
	Temperature *float64  `json:"temperature"`
	Timestamp   time.Time `json:"timestamp"`
}

// ErrMalformedReading is returned for payloads that are not a reading.
var ErrMalformedReading = errors.New("telemetry: malformed reading")

// Config selects the subscription.
type Config struct {
	// Topic must contain exactly one "+" wildcard for the device segment.
	Topic string
	QoS   byte
}

// Listener subscribes to temperature topics and routes readings.
type Listener struct {
	cfg      Config
	sub      Subscriber
	devices  ReadingRecorder
	notifier Notifier
	metrics  TemperatureWriter
	logger   Logger

	mu  sync.Mutex
	ctx context.Context
}

// NewListener creates a listener. metrics may be nil.
func NewListener(cfg Config, sub Subscriber, devices ReadingRecorder, notifier Notifier, metrics TemperatureWriter) *Listener {
	return &Listener{
		cfg:      cfg,
		sub:      sub,
		devices:  devices,
		notifier: notifier,
		metrics:  metrics,
		logger:   noopLogger{},
		ctx:      context.Background(),
	}
}

// SetLogger sets the listener logger.
func (l *Listener) SetLogger(logger Logger) {
	if logger != nil {
		l.logger = logger
	}
}

// Start subscribes to the configured topic. Message handling uses ctx as
// its parent, so cancelling ctx aborts in-flight storage calls.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	l.ctx = ctx
	l.mu.Unlock()

	if err := l.sub.Subscribe(l.cfg.Topic, l.cfg.QoS, l.handle); err != nil {
		return fmt.Errorf("subscribing to %s: %w", l.cfg.Topic, err)
	}
	return nil
}

// Stop removes the subscription.
func (l *Listener) Stop() error {
	return l.sub.Unsubscribe(l.cfg.Topic)
}

func (l *Listener) handle(topic string, payload []byte) error {
	values, ok := mqtt.WildcardValues(l.cfg.Topic, topic)
	if !ok || len(values) != 1 || values[0] == "" {
		l.logger.Warn("reading on unexpected topic", "topic", topic)
		return nil
	}
	segment := values[0]

	reading, err := ParseReading(payload)
	if err != nil {
		l.logger.Warn("dropping reading", "topic", topic, "error", err)
		return nil
	}
	celsius := *reading.Temperature
	at := reading.Timestamp
	if at.IsZero() {
		at = time.Now()
	}

	if l.metrics != nil {
		l.metrics.WriteTemperature(segment, celsius, at)
	}

	l.mu.Lock()
	parent := l.ctx
	l.mu.Unlock()
	ctx, cancel := context.WithTimeout(parent, handleTimeout)
	defer cancel()

	if id, err := uuid.Parse(segment); err == nil {
		err := l.devices.RecordReading(ctx, id.String(), celsius)
		switch {
		case err == nil:
			l.logger.Debug("reading recorded", "device_id", id.String(), "celsius", celsius)
			return nil
		case errors.Is(err, device.ErrDeviceNotFound), errors.Is(err, device.ErrNotSensor):
			// fall through to a plain refresh
		default:
			l.logger.Error("recording reading failed", "device_id", id.String(), "error", err)
			return err
		}
	}

	l.logger.Debug("reading without sensor", "segment", segment, "celsius", celsius)
	l.notifier.NotifyDeviceChanged()
	return nil
}

// ParseReading decodes a sensor payload. The temperature is required and
// the timestamp optional.
func ParseReading(payload []byte) (*Reading, error) {
	var r Reading
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedReading, err)
	}
	if r.Temperature == nil {
		return nil, fmt.Errorf("%w: missing temperature", ErrMalformedReading)
	}
	return &r, nil
}
