package mqtt

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Default timeouts for broker operations.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultPublishTimeout = 5 * time.Second
)

// Options configures a RealPublisher.
type Options struct {
	Broker         string // e.g. tcp://test.mosquitto.org:1883
	ClientID       string
	Username       string
	Password       string
	Namespace      string
	QueueLen       int // offline queue capacity
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client         paho.Client
	topics         Topics
	connectTimeout time.Duration
	publishTimeout time.Duration

	mu        sync.Mutex
	queue     *outbox
	connected bool // set after the first successful connect
}

// NewRealPublisher creates a publisher for the given broker. It does not
// connect; call Connect. After the first successful connect the client
// reconnects on its own.
func NewRealPublisher(opts Options) *RealPublisher {
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = DefaultPublishTimeout
	}

	p := &RealPublisher{
		topics:         NewTopics(opts.Namespace),
		connectTimeout: opts.ConnectTimeout,
		publishTimeout: opts.PublishTimeout,
		queue:          newOutbox(opts.QueueLen),
	}

	clientOpts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(false).
		SetConnectTimeout(opts.ConnectTimeout).
		SetMaxReconnectInterval(30*time.Second).
		SetKeepAlive(30*time.Second).
		SetWill(p.topics.System, string(WillPayload()), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost).
		SetReconnectingHandler(p.onReconnecting)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}

	p.client = paho.NewClient(clientOpts)
	return p
}

// Connect makes a single connection attempt bounded by the connect timeout
// and ctx. Callers wrap it in their own retry policy.
func (p *RealPublisher) Connect(ctx context.Context) error {
	token := p.client.Connect()
	select {
	case <-token.Done():
	case <-time.After(p.connectTimeout):
		return fmt.Errorf("connect to broker: timeout after %v", p.connectTimeout)
	case <-ctx.Done():
		return fmt.Errorf("connect to broker: %w", ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	return nil
}

// Topics returns the topic set this publisher writes to.
func (p *RealPublisher) Topics() Topics {
	return p.topics
}

// Publish sends one value and waits for the broker's acknowledgement.
// While disconnected the message is queued and ErrNotConnected returned.
func (p *RealPublisher) Publish(topic, payload string, qos byte) error {
	return p.publish(pending{topic: topic, payload: []byte(payload), qos: qos})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	return p.publish(pending{topic: p.topics.System, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) publish(msg pending) error {
	if p.queueIfOffline(msg) {
		return fmt.Errorf("publish %s: %w", msg.topic, ErrNotConnected)
	}
	return p.send(msg)
}

// queueIfOffline checks the connection and queues msg under one lock, so a
// message cannot land in the queue after onConnect has already drained it.
func (p *RealPublisher) queueIfOffline(msg pending) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client.IsConnectionOpen() {
		return false
	}
	p.queue.add(msg)
	return true
}

func (p *RealPublisher) send(msg pending) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(p.publishTimeout) {
		return fmt.Errorf("publish %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// IsConnected reports whether the broker connection is currently open.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.len()
}

// Dropped returns how many queued messages were evicted because the
// offline queue was full.
func (p *RealPublisher) Dropped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.dropped()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	if p.client.IsConnected() {
		p.client.Disconnect(1000) // 1 second timeout
	}
	return nil
}

// onConnect runs on its own goroutine for every (re)connect. It replays
// queued messages in order and announces reconnections.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	queued, lost := p.queue.take()
	reconnect := p.connected
	p.connected = true
	p.mu.Unlock()

	if reconnect {
		log.Printf("mqtt: reconnected")
	} else {
		log.Printf("mqtt: connected")
	}

	for _, msg := range queued {
		if err := p.send(msg); err != nil {
			log.Printf("mqtt: replay %s: %v", msg.topic, err)
		}
	}
	if len(queued) > 0 || lost > 0 {
		log.Printf("mqtt: replayed %d queued messages, %d dropped while offline", len(queued), lost)
	}

	if reconnect {
		ev := SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED", Retained: true}
		if err := p.PublishSystem(ev); err != nil {
			log.Printf("mqtt: publish reconnected event: %v", err)
		}
	}
}

func (p *RealPublisher) onConnectionLost(c paho.Client, err error) {
	log.Printf("mqtt: connection lost: %v", err)
}

func (p *RealPublisher) onReconnecting(c paho.Client, opts *paho.ClientOptions) {
	log.Printf("mqtt: reconnecting")
}
