// Package mqtt connects the device to a broker: retained telemetry and
// status out, remote configuration commands in.
package mqtt

import (
	"errors"
	"strings"
)

// ErrNotConnected is returned by Publish while the broker is unreachable.
var ErrNotConnected = errors.New("mqtt: not connected")

// AllDevices is the command topic segment addressing every device.
const AllDevices = "all"

// Availability payloads.
const (
	Online  = "online"
	Offline = "offline"
)

// Message is an inbound message.
type Message struct {
	Topic   string
	Payload []byte
}

// Client is the messaging channel used by the device.
type Client interface {
	// Publish sends payload to topic. It fails fast with ErrNotConnected
	// when there is no broker session.
	Publish(topic string, payload []byte, retained bool) error

	// Subscribe registers handler for filter. Subscriptions survive
	// reconnects. handler runs on a client goroutine.
	Subscribe(filter string, handler func(Message)) error

	// IsConnected reports whether a broker session is open.
	IsConnected() bool

	// Close announces the device offline and disconnects.
	Close() error
}

// Topics builds topic names under a namespace.
type Topics struct {
	Namespace string
}

// Telemetry is where readings for deviceID are published.
func (t Topics) Telemetry(deviceID string) string {
	return t.join("data", deviceID)
}

// Status is where calibration progress for deviceID is published.
func (t Topics) Status(deviceID string) string {
	return t.join("status", deviceID)
}

// Availability carries the retained online/offline flag for deviceID.
func (t Topics) Availability(deviceID string) string {
	return t.join("availability", deviceID)
}

// Command is the command topic addressing deviceID, or every device when
// deviceID is AllDevices.
func (t Topics) Command(deviceID string) string {
	return t.join("command", deviceID)
}

// CommandFilter is the subscription covering all command topics.
func (t Topics) CommandFilter() string {
	return t.join("command", "#")
}

// MatchCommand reports whether topic is a command addressed to deviceID,
// either directly or through the "all" segment.
func (t Topics) MatchCommand(topic, deviceID string) bool {
	rest, ok := strings.CutPrefix(topic, t.join("command", ""))
	if !ok {
		return false
	}
	return rest == deviceID || rest == AllDevices
}

func (t Topics) join(kind, leaf string) string {
	return t.Namespace + "/" + kind + "/" + leaf
}
