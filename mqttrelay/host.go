// Package mqttrelay republishes codec payloads to an MQTT broker instead
// of (or alongside) a serial Bus, as an alternate transport collaborator
// for setups where the panel driver lives behind a message broker rather
// than a direct serial link. Relay targets a full-featured broker client;
// EmbeddedRelay (embedded.go) targets a bare TCP/TLS conn with no broker
// client dependency, for constrained runtimes.
package mqttrelay

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// ErrPublishTimeout is returned when a connect, publish or subscribe token
// does not complete within the configured wait.
var ErrPublishTimeout = xerrors.New("mqttrelay: publish timed out")

// Config configures a Relay.
type Config struct {
	BrokerURL string
	ClientID  string
	Topic     string
	QoS       byte
	Retained  bool
	Timeout   time.Duration
}

// Relay publishes batches of wire payloads to a single MQTT topic, one
// message per payload, using paho's synchronous client.
type Relay struct {
	cfg    Config
	client mqtt.Client
}

// NewRelay builds a Relay and its underlying paho client, but does not
// connect yet.
func NewRelay(cfg Config) *Relay {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true)
	return &Relay{cfg: cfg, client: mqtt.NewClient(opts)}
}

// Connect opens the broker connection.
func (r *Relay) Connect() error {
	token := r.client.Connect()
	if !token.WaitTimeout(r.cfg.Timeout) {
		return ErrPublishTimeout
	}
	return token.Error()
}

// Close disconnects from the broker, waiting up to quiesce milliseconds
// for in-flight work to drain.
func (r *Relay) Close(quiesce uint) {
	r.client.Disconnect(quiesce)
}

// PublishBatch publishes each payload to Topic as its own message,
// running the publishes concurrently via an errgroup and returning the
// first error encountered (if any) after all have been attempted.
func (r *Relay) PublishBatch(ctx context.Context, payloads [][]byte) error {
	g, ctx := errgroup.WithContext(ctx)
	for i, payload := range payloads {
		i, payload := i, payload
		g.Go(func() error {
			return r.publishOne(ctx, i, payload)
		})
	}
	return g.Wait()
}

func (r *Relay) publishOne(ctx context.Context, index int, payload []byte) error {
	token := r.client.Publish(r.cfg.Topic, r.cfg.QoS, r.cfg.Retained, payload)
	done := make(chan struct{})
	go func() {
		token.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		if err := token.Error(); err != nil {
			return xerrors.Errorf("mqttrelay: publish %d: %w", index, err)
		}
		return nil
	case <-time.After(r.cfg.Timeout):
		return xerrors.Errorf("mqttrelay: publish %d: %w", index, ErrPublishTimeout)
	}
}

// Subscribe attaches handler to Topic, delivering each message payload as
// received.
func (r *Relay) Subscribe(handler func(payload []byte)) error {
	token := r.client.Subscribe(r.cfg.Topic, r.cfg.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Payload())
	})
	if !token.WaitTimeout(r.cfg.Timeout) {
		return ErrPublishTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqttrelay: subscribe: %w", err)
	}
	return nil
}
