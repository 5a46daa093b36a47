package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const (
	subscribeTimeout = 5 * time.Second
	closeTimeout     = 2 * time.Second
	retryInterval    = 5 * time.Second
)

// Options configures a RealClient.
type Options struct {
	// Broker is the broker URL, e.g. tcp://localhost:1883.
	Broker string

	// ClientIDPrefix is followed by a random suffix so restarts do not
	// collide with a stale session.
	ClientIDPrefix string

	Username string
	Password string

	// AvailabilityTopic receives a retained "online" on every connect and
	// is the last-will topic carrying "offline".
	AvailabilityTopic string

	// OutboxSize bounds non-retained messages held while disconnected.
	// Zero means DefaultOutboxSize.
	OutboxSize int
}

// RealClient talks to an actual broker. Connecting and reconnecting happen
// in the background; no method waits for a connection.
type RealClient struct {
	client paho.Client
	opts   Options

	mu     sync.Mutex
	subs   map[string]func(Message)
	outbox *outbox
	closed bool
}

// NewRealClient starts connecting to the broker and returns immediately.
func NewRealClient(opts Options) *RealClient {
	if opts.ClientIDPrefix == "" {
		opts.ClientIDPrefix = "co2-sensor"
	}
	c := &RealClient{
		opts:   opts,
		subs:   make(map[string]func(Message)),
		outbox: newOutbox(opts.OutboxSize),
	}

	po := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientIDPrefix + "-" + uuid.NewString()[:8]).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(retryInterval).
		SetMaxReconnectInterval(time.Minute).
		SetOrderMatters(false).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})
	if opts.AvailabilityTopic != "" {
		po.SetWill(opts.AvailabilityTopic, Offline, 1, true)
	}

	c.client = paho.NewClient(po)
	c.client.Connect()
	log.Printf("mqtt: connecting to %s", opts.Broker)
	return c
}

// onConnect runs on a paho goroutine after every successful (re)connect.
func (c *RealClient) onConnect(pc paho.Client) {
	log.Printf("mqtt: connected to %s", c.opts.Broker)

	if c.opts.AvailabilityTopic != "" {
		pc.Publish(c.opts.AvailabilityTopic, 1, true, Online)
	}

	c.mu.Lock()
	subs := make(map[string]func(Message), len(c.subs))
	for f, h := range c.subs {
		subs[f] = h
	}
	held := c.outbox.take()
	c.mu.Unlock()

	for filter, handler := range subs {
		if err := c.subscribe(pc, filter, handler); err != nil {
			log.Printf("mqtt: %v", err)
		}
	}
	for _, p := range held {
		pc.Publish(p.topic, 1, p.retained, p.payload)
	}
	if len(held) > 0 {
		log.Printf("mqtt: sent %d held messages", len(held))
	}
}

// Publish queues payload at QoS 0 for retained messages and QoS 1 otherwise
// and returns without waiting for delivery; late failures are logged.
// While disconnected non-retained messages are held for the next connect.
func (c *RealClient) Publish(topic string, payload []byte, retained bool) error {
	if !c.client.IsConnectionOpen() {
		if !retained {
			c.mu.Lock()
			c.outbox.add(pending{topic: topic, payload: payload, retained: retained})
			c.mu.Unlock()
		}
		return ErrNotConnected
	}

	qos := byte(1)
	if retained {
		qos = 0
	}
	token := c.client.Publish(topic, qos, retained, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
	default:
		go func() {
			<-token.Done()
			if err := token.Error(); err != nil {
				log.Printf("mqtt: publish %s: %v", topic, err)
			}
		}()
	}
	return nil
}

// Subscribe remembers the subscription and subscribes now if connected.
func (c *RealClient) Subscribe(filter string, handler func(Message)) error {
	c.mu.Lock()
	c.subs[filter] = handler
	c.mu.Unlock()

	if !c.client.IsConnectionOpen() {
		return nil
	}
	return c.subscribe(c.client, filter, handler)
}

func (c *RealClient) subscribe(pc paho.Client, filter string, handler func(Message)) error {
	token := pc.Subscribe(filter, 1, func(_ paho.Client, m paho.Message) {
		handler(Message{Topic: m.Topic(), Payload: m.Payload()})
	})
	if !token.WaitTimeout(subscribeTimeout) {
		return fmt.Errorf("subscribe %s: timeout", filter)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", filter, err)
	}
	return nil
}

// IsConnected reports whether a broker session is currently open.
func (c *RealClient) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Close publishes the retained offline flag and disconnects.
func (c *RealClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if c.opts.AvailabilityTopic != "" && c.client.IsConnectionOpen() {
		token := c.client.Publish(c.opts.AvailabilityTopic, 1, true, Offline)
		if !token.WaitTimeout(closeTimeout) {
			log.Printf("mqtt: offline publish timed out")
		} else if err := token.Error(); err != nil {
			log.Printf("mqtt: offline publish: %v", err)
		}
	}
	c.client.Disconnect(uint(closeTimeout / time.Millisecond))
	return nil
}
