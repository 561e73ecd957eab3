package mqtt

import (
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jmylchreest/volctrld/internal/config"
)

const (
	connectTimeout    = 10 * time.Second
	keepAlive         = 60 * time.Second
	maxReconnect      = time.Minute
	disconnectQuiesce = 250 // milliseconds

	payloadOnline  = "online"
	payloadOffline = "offline"
)

// buildClientOptions maps the bridge configuration onto paho options. The
// will marks the bridge offline if the connection drops without a clean
// disconnect.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	topics := Topics{Prefix: cfg.TopicPrefix}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetMaxReconnectInterval(maxReconnect)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(keepAlive)
	opts.SetWill(topics.Status(), payloadOffline, cfg.QoS, true)
	return opts
}
