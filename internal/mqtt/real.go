package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/apophisnow/icemaker/internal/logger"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	retryInterval  = 5 * time.Second
	disconnectMs   = 1000
)

// Options configure the broker connection.
type Options struct {
	Broker   string // e.g. tcp://homeassistant.local:1883
	ClientID string
	Username string
	Password string
	Prefix   string
	QoS      byte
}

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client paho.Client
	qos    byte
	log    *logger.Logger

	mu   sync.Mutex
	subs map[string]MessageHandler
}

// NewRealPublisher connects to the broker. The availability topic carries
// "online" while connected and "offline" as the last will.
func NewRealPublisher(o Options, log *logger.Logger) (*RealPublisher, error) {
	if log == nil {
		log = logger.Nop()
	}
	if o.ClientID == "" {
		o.ClientID = "icemaker"
	}
	availability := Topic(o.Prefix, TopicAvailability)

	p := &RealPublisher{qos: o.QoS, log: log, subs: make(map[string]MessageHandler)}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(retryInterval).
		SetWill(availability, AvailabilityOffline, 1, true).
		SetOnConnectHandler(func(c paho.Client) {
			log.Infow("mqtt_connected", "broker", o.Broker)
			c.Publish(availability, 1, true, AvailabilityOnline)
			p.resubscribe(c)
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warnw("mqtt_connection_lost", "err", err)
		})
	if o.Username != "" {
		opts.SetUsername(o.Username).SetPassword(o.Password)
	}

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

// Publish sends payload with the configured QoS.
func (p *RealPublisher) Publish(topic string, payload []byte, retained bool) error {
	token := p.client.Publish(topic, p.qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe registers handler and subscribes now if connected; the
// subscription is renewed on every reconnect.
func (p *RealPublisher) Subscribe(topic string, handler MessageHandler) error {
	p.mu.Lock()
	p.subs[topic] = handler
	p.mu.Unlock()

	if !p.client.IsConnectionOpen() {
		return nil
	}
	return p.subscribe(p.client, topic, handler)
}

func (p *RealPublisher) subscribe(c paho.Client, topic string, handler MessageHandler) error {
	token := c.Subscribe(topic, 1, func(_ paho.Client, m paho.Message) {
		handler(m.Topic(), m.Payload())
	})
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("subscribe %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

// resubscribe runs on paho's connect callback, so it must not wait on tokens.
func (p *RealPublisher) resubscribe(c paho.Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for topic, handler := range p.subs {
		c.Subscribe(topic, 1, func(_ paho.Client, m paho.Message) {
			handler(m.Topic(), m.Payload())
		})
	}
}

// IsConnected reports whether the client currently holds a connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(disconnectMs)
	return nil
}
