package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/nerrad567/smarthome-core/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "smarthome-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
	errs  []string
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errs = append(l.errs, msg)
	l.mu.Unlock()
}

func TestBrokerURL(t *testing.T) {
	cfg := testConfig()
	if got := BrokerURL(cfg); got != "tcp://127.0.0.1:1883" {
		t.Errorf("BrokerURL() = %q", got)
	}
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883
	if got := BrokerURL(cfg); got != "ssl://127.0.0.1:8883" {
		t.Errorf("BrokerURL() TLS = %q", got)
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "user"
	cfg.Auth.Password = "pass"

	opts := buildClientOptions(cfg)

	if opts.ClientID != "smarthome-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "user" || opts.Password != "pass" {
		t.Errorf("credentials = %q/%q", opts.Username, opts.Password)
	}
	if !opts.AutoReconnect || !opts.CleanSession {
		t.Error("expected auto-reconnect and clean session")
	}
	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig())
	configureLWT(opts, "smarthome-test")

	if !opts.WillEnabled || !opts.WillRetained {
		t.Fatal("LWT should be enabled and retained")
	}
	if opts.WillTopic != (Topics{}).SystemStatus() {
		t.Errorf("WillTopic = %q", opts.WillTopic)
	}

	var msg statusMessage
	if err := json.Unmarshal(opts.WillPayload, &msg); err != nil {
		t.Fatalf("will payload not JSON: %v", err)
	}
	if msg.Status != "offline" || msg.Reason != "unexpected_disconnect" || msg.ClientID != "smarthome-test" {
		t.Errorf("will payload = %+v", msg)
	}
}

func TestDisconnectedClientRejectsOperations(t *testing.T) {
	c := newClient(testConfig())
	handler := func(string, []byte) error { return nil }

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"publish empty topic", func() error { return c.Publish("", nil, 1, false) }, ErrInvalidTopic},
		{"publish bad qos", func() error { return c.Publish("t", nil, 3, false) }, ErrInvalidQoS},
		{"publish oversize", func() error { return c.Publish("t", make([]byte, maxPayloadSize+1), 1, false) }, ErrPublishFailed},
		{"publish disconnected", func() error { return c.Publish("t", []byte("x"), 1, false) }, ErrNotConnected},
		{"publish json disconnected", func() error { return c.PublishJSON("t", map[string]int{"a": 1}, false) }, ErrNotConnected},
		{"publish json unencodable", func() error { return c.PublishJSON("t", make(chan int), false) }, ErrPublishFailed},
		{"subscribe empty topic", func() error { return c.Subscribe("", 1, handler) }, ErrInvalidTopic},
		{"subscribe bad qos", func() error { return c.Subscribe("t", 5, handler) }, ErrInvalidQoS},
		{"subscribe nil handler", func() error { return c.Subscribe("t", 1, nil) }, ErrSubscribeFailed},
		{"subscribe disconnected", func() error { return c.Subscribe("t", 1, handler) }, ErrNotConnected},
		{"unsubscribe disconnected", func() error { return c.Unsubscribe("t") }, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	if c.IsConnected() {
		t.Error("IsConnected() = true for unconnected client")
	}
	if c.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", c.SubscriptionCount())
	}
}

func TestDispatchRecoversAndLogs(t *testing.T) {
	c := newClient(testConfig())
	logger := &recordingLogger{}
	c.SetLogger(logger)

	c.dispatch(func(string, []byte) error { return fmt.Errorf("bad payload") }, "t", nil)
	c.dispatch(func(string, []byte) error { panic("boom") }, "t", nil)
	c.dispatch(func(string, []byte) error { return nil }, "t", nil)

	if len(logger.warns) != 1 {
		t.Errorf("warns = %v, want 1 entry", logger.warns)
	}
	if len(logger.errs) != 1 {
		t.Errorf("errors = %v, want 1 entry", logger.errs)
	}
}

func TestTopics(t *testing.T) {
	topics := Topics{}
	tests := []struct {
		got, want string
	}{
		{topics.DeviceTemperature("livingroom"), "smarthome/device/livingroom/temp"},
		{topics.AllDeviceTemperatures(), "smarthome/device/+/temp"},
		{topics.DeviceEvents(), "smarthome/events/devices"},
		{topics.SystemStatus(), "smarthome/system/status"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("topic = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestWildcardValues(t *testing.T) {
	tests := []struct {
		pattern, topic string
		want           []string
		ok             bool
	}{
		{"smarthome/device/+/temp", "smarthome/device/abc/temp", []string{"abc"}, true},
		{"smarthome/device/+/temp", "smarthome/device/abc/humidity", nil, false},
		{"smarthome/device/+/temp", "smarthome/device/abc", nil, false},
		{"smarthome/device/+/temp", "smarthome/device/abc/temp/extra", nil, false},
		{"home/+/+/reading", "home/kitchen/s1/reading", []string{"kitchen", "s1"}, true},
		{"smarthome/#", "smarthome/device/x/temp", nil, true},
		{"smarthome/device/livingroom/temp", "smarthome/device/livingroom/temp", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"|"+tt.topic, func(t *testing.T) {
			got, ok := WildcardValues(tt.pattern, tt.topic)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("values = %v, want %v", got, tt.want)
			}
		})
	}
}
