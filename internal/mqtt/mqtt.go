package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"weather-api/internal/config"
	"weather-api/internal/modules/weather/types"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

var ErrNotConnected = errors.New("mqtt publisher not connected")

// Publisher announces newly stored readings on <topic>/<city>.
type Publisher struct {
	client    mqtt.Client
	topic     string
	broker    string
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewPublisher(cfg config.Config, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{
		topic:  cfg.MQTTTopic,
		broker: fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort),
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(p.broker)
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetWriteTimeout(5 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		p.setConnected(true)
		logger.Info("mqtt connected", "broker", p.broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	p.client = mqtt.NewClient(opts)
	return p
}

// Connect waits for the broker connection until ctx is done.
func (p *Publisher) Connect(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return fmt.Errorf("publisher stopped")
	default:
	}

	if p.IsConnected() {
		return nil
	}

	token := p.client.Connect()

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
			p.client.Disconnect(0)
			return ctx.Err()
		case <-p.stopCh:
			p.client.Disconnect(0)
			return fmt.Errorf("publisher stopped")
		default:
		}
	}
}

// PublishReading sends r as JSON with QoS 1 and waits for the broker ack
// or ctx, whichever comes first.
func (p *Publisher) PublishReading(ctx context.Context, r types.Reading) error {
	if !p.IsConnected() {
		return ErrNotConnected
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode reading: %w", err)
	}

	topic := topicFor(p.topic, r.City)
	token := p.client.Publish(topic, 1, false, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish to %s: %w", topic, err)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	p.logger.Debug("published reading", "topic", topic, "size", len(payload))
	return nil
}

// topicFor strips MQTT wildcard and separator characters from the city so
// one reading maps to exactly one topic level.
func topicFor(base, city string) string {
	level := strings.Map(func(r rune) rune {
		switch r {
		case '/', '+', '#':
			return '_'
		}
		return r
	}, strings.TrimSpace(city))
	return base + "/" + level
}

func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	connected := p.connected
	p.mu.RUnlock()
	return connected && p.client.IsConnected()
}

// Disconnect is idempotent.
func (p *Publisher) Disconnect() {
	p.stopOnce.Do(func() { close(p.stopCh) })

	if p.client != nil {
		p.client.Disconnect(250)
	}

	p.setConnected(false)
	p.logger.Info("mqtt publisher disconnected")
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}
