// Package mqtt publishes door status changes and alerts to an MQTT broker.
//
// The current record is published retained on {prefix}/status so new
// subscribers see it immediately. Motion requests and warnings go to
// {prefix}/alert without the retain flag.
package mqtt

import (
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"coop-door-backend/config"
)

// pahoClient is the subset of pahomqtt.Client the publisher needs.
type pahoClient interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Disconnect(quiesce uint)
}

// Client wraps paho.mqtt.golang for publishing door events.
// All methods are safe for concurrent use.
type Client struct {
	client pahoClient
	cfg    config.MQTTConfig
	topics Topics
	log    *zap.Logger

	connected bool
	connMu    sync.RWMutex
}

// Connect establishes a connection to the broker described by cfg.
func Connect(cfg config.MQTTConfig, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts := buildClientOptions(cfg)

	c := &Client{
		cfg:    cfg,
		topics: Topics{Prefix: cfg.TopicPrefix},
		log:    log.Named("mqtt"),
	}

	opts.SetOnConnectHandler(func(pc pahomqtt.Client) {
		c.setConnected(true)
		pc.Publish(c.topics.Presence(), byte(c.cfg.QoS), true, presencePayload(c.cfg.ClientID, "online"))
		c.log.Info("Connected to MQTT broker", zap.String("broker", brokerURL(cfg)))
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.setConnected(false)
		c.log.Warn("MQTT connection lost", zap.Error(err))
	})

	pc := pahomqtt.NewClient(opts)
	token := pc.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c.client = pc
	c.setConnected(true)
	return c, nil
}

// newClient wraps an existing paho client.
func newClient(pc pahoClient, cfg config.MQTTConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		client:    pc,
		cfg:       cfg,
		topics:    Topics{Prefix: cfg.TopicPrefix},
		log:       log.Named("mqtt"),
		connected: pc != nil,
	}
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected && c.client != nil && c.client.IsConnected()
}

// Close publishes a graceful offline presence and disconnects.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	if c.IsConnected() {
		token := c.client.Publish(c.topics.Presence(), byte(c.cfg.QoS), true, presencePayload(c.cfg.ClientID, "offline"))
		token.WaitTimeout(defaultPublishTimeout)
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	c.setConnected(false)
	return nil
}

func (c *Client) setConnected(v bool) {
	c.connMu.Lock()
	c.connected = v
	c.connMu.Unlock()
}
