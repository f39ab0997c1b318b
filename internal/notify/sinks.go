package notify

import "context"

// Hub broadcasts to connected push clients. *api.Hub satisfies it.
type Hub interface {
	Broadcast(event string, payload any)
}

// HubSink forwards events to a WebSocket hub.
type HubSink struct {
	hub Hub
}

// NewHubSink creates a sink for hub.
func NewHubSink(hub Hub) *HubSink {
	return &HubSink{hub: hub}
}

// Name implements Sink.
func (s *HubSink) Name() string { return "websocket" }

// Deliver implements Sink.
func (s *HubSink) Deliver(_ context.Context, ev Event) error {
	s.hub.Broadcast(ev.Name, nil)
	return nil
}

// Publisher publishes JSON messages. *mqtt.Client satisfies it.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// MQTTSink publishes events to a broker topic.
type MQTTSink struct {
	pub   Publisher
	topic string
}

// NewMQTTSink creates a sink publishing to topic.
func NewMQTTSink(pub Publisher, topic string) *MQTTSink {
	return &MQTTSink{pub: pub, topic: topic}
}

// Name implements Sink.
func (s *MQTTSink) Name() string { return "mqtt" }

// Deliver implements Sink. The publish itself is bounded by the client's
// own timeout; ctx is only checked before publishing.
func (s *MQTTSink) Deliver(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.pub.PublishJSON(s.topic, ev, false)
}
