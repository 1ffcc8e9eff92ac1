// Package mqtt carries sensor telemetry over an MQTT broker. Subscriber hands
// each valid reading to a handler; Publisher sends telemetry from the
// simulator.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"thermograph/internal/config"
	"thermograph/internal/modules/store/types"
)

// ErrStopped is returned by Connect after Disconnect.
var ErrStopped = errors.New("mqtt: client stopped")

// ErrNotConnected is returned by Publish while the broker is unreachable.
var ErrNotConnected = errors.New("mqtt: client not connected")

// Handler processes one validated reading.
type Handler func(ctx context.Context, reading types.Reading) error

// HandlerSetter is what feature modules need to attach to the subscriber.
type HandlerSetter interface {
	SetMessageHandler(handler Handler)
}

type Subscriber struct {
	client    paho.Client
	broker    string
	topic     string
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool
	handler   Handler

	// resubscribe is set while paho auto-reconnects; clean sessions drop
	// subscriptions, so the on-connect callback subscribes again.
	resubscribe atomic.Bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

// SetMessageHandler must be called before Connect; the broker may deliver
// queued messages right after CONNACK.
func (s *Subscriber) SetMessageHandler(handler Handler) {
	s.mu.Lock()
	s.handler = handler
	s.mu.Unlock()
}

func NewSubscriber(cfg config.DevAPIConfig, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Subscriber{
		broker: fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort),
		topic:  cfg.MQTTTopic,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(s.broker)
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(c paho.Client) {
		s.setConnected(true)
		logger.Info("mqtt connected", "broker", s.broker)
		if !s.resubscribe.Swap(false) {
			return
		}
		if err := s.subscribe(c); err != nil {
			logger.Error("mqtt resubscribe failed", "topic", s.topic, "error", err)
		}
	})
	opts.SetReconnectingHandler(func(paho.Client, *paho.ClientOptions) {
		s.resubscribe.Store(true)
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		s.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	s.client = paho.NewClient(opts)
	return s
}

// Connect connects and subscribes to the configured topic. It returns early
// when ctx is done or the subscriber is stopped.
func (s *Subscriber) Connect(ctx context.Context) error {
	select {
	case <-s.stopCh:
		return ErrStopped
	default:
	}

	if s.IsConnected() {
		return nil
	}

	if err := waitConnect(ctx, s.client, s.stopCh); err != nil {
		return err
	}

	if err := s.subscribe(s.client); err != nil {
		s.client.Disconnect(0)
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

// waitConnect starts a connect attempt and waits for it while watching ctx and
// stop. With ConnectRetry set, paho keeps retrying until one of them fires.
func waitConnect(ctx context.Context, c paho.Client, stop <-chan struct{}) error {
	token := c.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			c.Disconnect(0)
			return ctx.Err()
		case <-stop:
			c.Disconnect(0)
			return ErrStopped
		default:
		}
	}
}

func (s *Subscriber) subscribe(c paho.Client) error {
	const qos = byte(1)

	token := c.Subscribe(s.topic, qos, func(_ paho.Client, msg paho.Message) {
		_ = s.handleMessage(context.Background(), msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", s.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.topic, err)
	}

	s.logger.Info("subscribed to mqtt topic", "topic", s.topic, "qos", qos)
	return nil
}

// handleMessage decodes and validates payload. Invalid messages are logged and
// dropped. The returned error is for tests; paho ignores it.
func (s *Subscriber) handleMessage(ctx context.Context, topic string, payload []byte) error {
	s.logger.Debug("received mqtt message", "topic", topic, "size", len(payload))

	var telemetry types.Telemetry
	if err := json.Unmarshal(payload, &telemetry); err != nil {
		s.logger.Warn("failed to parse telemetry message",
			"topic", topic,
			"error", err,
			"payload", string(payload),
		)
		return fmt.Errorf("decode telemetry: %w", err)
	}

	reading, err := telemetry.Reading()
	if err != nil {
		s.logger.Warn("invalid telemetry message",
			"topic", topic,
			"timestamp", telemetry.Timestamp,
			"error", err,
		)
		return fmt.Errorf("invalid telemetry: %w", err)
	}

	s.mu.RLock()
	handler := s.handler
	s.mu.RUnlock()
	if handler == nil {
		return nil
	}
	if err := handler(ctx, reading); err != nil {
		s.logger.Error("message handler failed",
			"topic", topic,
			"timestamp", reading.Timestamp,
			"error", err,
		)
		return err
	}
	s.logger.Debug("processed telemetry message", "timestamp", reading.Timestamp)
	return nil
}

func (s *Subscriber) IsConnected() bool {
	s.mu.RLock()
	connected := s.connected
	s.mu.RUnlock()
	return connected && s.client.IsConnected()
}

// Disconnect stops the subscriber and closes the connection. Safe to call
// more than once.
func (s *Subscriber) Disconnect() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	if s.IsConnected() {
		token := s.client.Unsubscribe(s.topic)
		token.WaitTimeout(2 * time.Second)
	}
	s.client.Disconnect(250)

	s.setConnected(false)
	s.logger.Info("mqtt subscriber disconnected")
}

func (s *Subscriber) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}
