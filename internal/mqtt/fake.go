package mqtt

import (
	"strings"
	"sync"
)

// Published is one message recorded by FakeClient.
type Published struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// FakeClient records published messages for test assertions and lets tests
// deliver inbound messages to subscribers.
type FakeClient struct {
	mu sync.Mutex

	// Published contains every successful publish.
	Published []Published

	// Subscriptions maps filters to their handlers.
	Subscriptions map[string]func(Message)

	// Connected controls IsConnected. While false, Publish returns
	// ErrNotConnected.
	Connected bool

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeClient creates a connected FakeClient.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		Subscriptions: make(map[string]func(Message)),
		Connected:     true,
	}
}

// Publish records the message.
func (f *FakeClient) Publish(topic string, payload []byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.Connected {
		return ErrNotConnected
	}
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Published = append(f.Published, Published{Topic: topic, Payload: payload, Retained: retained})
	return nil
}

// Subscribe records the handler.
func (f *FakeClient) Subscribe(filter string, handler func(Message)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Subscriptions[filter] = handler
	return nil
}

// IsConnected reports whether the fake is "connected".
func (f *FakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// SetConnected changes the connection state.
func (f *FakeClient) SetConnected(connected bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Connected = connected
}

// Close marks the client as closed.
func (f *FakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Deliver calls every handler whose filter matches topic.
func (f *FakeClient) Deliver(topic string, payload []byte) {
	f.mu.Lock()
	var handlers []func(Message)
	for filter, h := range f.Subscriptions {
		if filterMatches(filter, topic) {
			handlers = append(handlers, h)
		}
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(Message{Topic: topic, Payload: payload})
	}
}

// OnTopic returns the messages published to topic.
func (f *FakeClient) OnTopic(topic string) []Published {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Published
	for _, p := range f.Published {
		if p.Topic == topic {
			out = append(out, p)
		}
	}
	return out
}

// Reset clears recorded messages.
func (f *FakeClient) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Published = nil
	f.PublishError = nil
}

// filterMatches implements MQTT '+' and '#' wildcard matching.
func filterMatches(filter, topic string) bool {
	fs := strings.Split(filter, "/")
	ts := strings.Split(topic, "/")
	for i, f := range fs {
		if f == "#" {
			return true
		}
		if i >= len(ts) {
			return false
		}
		if f != "+" && f != ts[i] {
			return false
		}
	}
	return len(fs) == len(ts)
}
