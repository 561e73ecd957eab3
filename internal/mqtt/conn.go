package mqtt

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jmylchreest/volctrld/internal/config"
	"github.com/jmylchreest/volctrld/internal/errors"
)

const publishTimeout = 5 * time.Second

// MessageHandler handles one inbound message. Returned errors are logged.
type MessageHandler func(topic string, payload []byte) error

// Conn is the broker connection the bridge publishes and subscribes through.
type Conn interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Subscribe(topic string, qos byte, handler MessageHandler) error
	Close()
}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// pahoConn is a Conn backed by paho. Subscriptions are restored after every
// reconnect because the session is clean.
type pahoConn struct {
	client pahomqtt.Client
	topics Topics
	qos    byte
	logger *slog.Logger

	mu   sync.Mutex
	subs map[string]subscription
}

// Dial connects to the broker described by cfg.
func Dial(cfg config.MQTTConfig, logger *slog.Logger) (Conn, error) {
	c := &pahoConn{
		topics: Topics{Prefix: cfg.TopicPrefix},
		qos:    cfg.QoS,
		logger: logger,
		subs:   make(map[string]subscription),
	}

	opts := buildClientOptions(cfg)
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) { c.onConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		logger.Warn("MQTT connection lost", "broker", cfg.Broker, "error", err)
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		c.client.Disconnect(0)
		return nil, errors.Transportf("mqtt connect to %s: timeout after %v", cfg.Broker, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: mqtt connect to %s: %w", errors.ErrTransport, cfg.Broker, err)
	}
	logger.Info("Connected to MQTT broker", "broker", cfg.Broker, "client_id", cfg.ClientID)
	return c, nil
}

func (c *pahoConn) onConnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for topic, sub := range c.subs {
		c.client.Subscribe(topic, sub.qos, c.wrap(sub.handler))
	}
	c.client.Publish(c.topics.Status(), c.qos, true, payloadOnline)
}

func (c *pahoConn) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if !c.client.IsConnected() {
		return errors.DeviceUnavailablef("mqtt not connected")
	}
	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.Transportf("mqtt publish %s: timeout after %v", topic, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: mqtt publish %s: %w", errors.ErrTransport, topic, err)
	}
	return nil
}

func (c *pahoConn) Subscribe(topic string, qos byte, handler MessageHandler) error {
	c.mu.Lock()
	c.subs[topic] = subscription{qos: qos, handler: handler}
	c.mu.Unlock()

	token := c.client.Subscribe(topic, qos, c.wrap(handler))
	if !token.WaitTimeout(publishTimeout) {
		return errors.Transportf("mqtt subscribe %s: timeout after %v", topic, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: mqtt subscribe %s: %w", errors.ErrTransport, topic, err)
	}
	return nil
}

func (c *pahoConn) Close() {
	if c.client.IsConnected() {
		token := c.client.Publish(c.topics.Status(), c.qos, true, payloadOffline)
		token.WaitTimeout(publishTimeout)
	}
	c.client.Disconnect(disconnectQuiesce)
}

func (c *pahoConn) wrap(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("panic in MQTT handler", "topic", msg.Topic(), "recover", r)
			}
		}()
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.logger.Warn("MQTT command failed", "topic", msg.Topic(), "error", err)
		}
	}
}
