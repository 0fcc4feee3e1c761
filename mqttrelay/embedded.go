package mqttrelay

import (
	"context"
	"io"
	"time"

	mqtt "github.com/soypat/natiu-mqtt"
	"golang.org/x/xerrors"
)

// EmbeddedRelay publishes wire payloads over a raw connection using
// natiu-mqtt's allocation-conscious packet encoder, for the constrained
// side of the relay (an onboard modem or microcontroller) that cannot
// carry a full broker client. Decoding of inbound traffic is handled by
// a fixed user buffer sized for one PUBACK at a time.
type EmbeddedRelay struct {
	conn   io.ReadWriteCloser
	client *mqtt.Client
	topic  string
	qos    mqtt.QoSLevel
}

// NewEmbeddedRelay wraps conn (already connected to the broker's TCP/TLS
// endpoint) with a natiu-mqtt client publishing to topic at QoS 0. conn
// must be a closer: the client's transport contract expects to be able to
// tear the connection down itself, not just read and write it.
func NewEmbeddedRelay(conn io.ReadWriteCloser, topic string) *EmbeddedRelay {
	client := mqtt.NewClient(mqtt.ClientConfig{
		Decoder: mqtt.DecoderNoAlloc{UserBuffer: make([]byte, 256)},
	})
	return &EmbeddedRelay{conn: conn, client: client, topic: topic, qos: mqtt.QoS0}
}

// Connect performs the MQTT CONNECT/CONNACK handshake over conn.
func (r *EmbeddedRelay) Connect(ctx context.Context, clientID string) error {
	varConn := mqtt.VariablesConnect{
		ClientID:     []byte(clientID),
		CleanSession: true,
		KeepAlive:    30,
	}
	if err := r.client.Connect(ctx, r.conn, &varConn); err != nil {
		return xerrors.Errorf("mqttrelay: embedded connect: %w", err)
	}
	return nil
}

// PublishBatch writes each payload as its own PUBLISH packet in sequence
// (the embedded side has no goroutine budget for concurrent publishes).
func (r *EmbeddedRelay) PublishBatch(ctx context.Context, payloads [][]byte) error {
	for i, payload := range payloads {
		varPub := mqtt.VariablesPublish{
			TopicName:        []byte(r.topic),
			PacketIdentifier: uint16(i + 1),
		}
		header := mqtt.Header{Flags: mqtt.NewPublishFlags(r.qos, false, false)}
		if err := r.client.PublishPayload(ctx, header, varPub, payload); err != nil {
			return xerrors.Errorf("mqttrelay: embedded publish %d: %w", i, err)
		}
	}
	return nil
}

// Ping sends an MQTT PINGREQ to keep the session alive, to be called
// periodically by the caller's own scheduling loop (no timers are owned
// here to keep this usable on a bare-metal target).
func (r *EmbeddedRelay) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}

// Disconnect sends a clean MQTT DISCONNECT.
func (r *EmbeddedRelay) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}
