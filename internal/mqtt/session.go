// Package mqtt owns the single long-lived broker session shared by the
// ingestion listener and the command dispatcher.
package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"incubator-backend/internal/logger"
)

// ErrNotConnected is returned by Publish while the broker is unreachable.
var ErrNotConnected = errors.New("mqtt: not connected")

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	keepAlive      = 30 * time.Second
	disconnectMs   = 250
)

// MessageHandler receives one inbound frame.
type MessageHandler func(topic string, payload []byte)

// Config holds broker connection settings.
type Config struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	QoS       byte
}

// Session wraps one paho client with an explicit start/stop lifecycle.
// Subscriptions registered through Subscribe are re-established after every
// reconnect, so a broker outage heals without a process restart.
type Session struct {
	cfg    Config
	client paho.Client
	log    *logger.Logger

	mu   sync.Mutex
	subs map[string]MessageHandler
}

func NewSession(cfg Config, log *logger.Logger) *Session {
	return &Session{
		cfg:  cfg,
		log:  log,
		subs: make(map[string]MessageHandler),
	}
}

// Start connects to the broker. Paho retries both the initial connect and
// any lost connection in the background.
func (s *Session) Start() error {
	opts := paho.NewClientOptions()
	opts.AddBroker(s.cfg.BrokerURL)
	opts.SetClientID(s.cfg.ClientID)
	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
		opts.SetPassword(s.cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetKeepAlive(keepAlive)

	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		s.logw().Warnw("mqtt_connection_lost", "err", err)
	})
	opts.SetOnConnectHandler(func(client paho.Client) {
		s.logw().Infow("mqtt_connected", "broker", s.cfg.BrokerURL)
		s.resubscribe(client)
	})

	s.client = paho.NewClient(opts)
	token := s.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		// Still retrying in the background; callers treat the session as
		// started and publishes fail until the connection is up.
		s.logw().Warnw("mqtt_connect_pending", "broker", s.cfg.BrokerURL)
		return nil
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to broker %s: %w", s.cfg.BrokerURL, err)
	}
	return nil
}

// Stop disconnects from the broker, letting in-flight work finish.
func (s *Session) Stop() {
	if s.client != nil {
		s.client.Disconnect(disconnectMs)
	}
}

func (s *Session) IsConnected() bool {
	return s.client != nil && s.client.IsConnectionOpen()
}

// Publish sends one message and waits for broker confirmation at the
// configured QoS.
func (s *Session) Publish(topic string, payload []byte) error {
	if !s.IsConnected() {
		return ErrNotConnected
	}
	token := s.client.Publish(topic, s.cfg.QoS, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s: %w", topic, ErrNotConnected)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe registers a handler for a topic filter for the lifetime of the
// session. Handlers for one filter run sequentially in paho's delivery
// order, which preserves per-device commit order for the listener.
func (s *Session) Subscribe(filter string, handler MessageHandler) error {
	s.mu.Lock()
	s.subs[filter] = handler
	s.mu.Unlock()

	if s.IsConnected() {
		return s.subscribe(s.client, filter, handler)
	}
	// Deferred until the connect handler fires.
	return nil
}

func (s *Session) subscribe(client paho.Client, filter string, handler MessageHandler) error {
	token := client.Subscribe(filter, s.cfg.QoS, func(_ paho.Client, msg paho.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("subscribe to %s: %w", filter, ErrNotConnected)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", filter, err)
	}
	return nil
}

func (s *Session) resubscribe(client paho.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for filter, handler := range s.subs {
		if err := s.subscribe(client, filter, handler); err != nil {
			s.logw().Errorw("mqtt_resubscribe_failed", "filter", filter, "err", err)
		}
	}
}

func (s *Session) logw() *logger.Logger {
	if s.log == nil {
		s.log = logger.Get(logger.InfoLevel)
	}
	return s.log
}
