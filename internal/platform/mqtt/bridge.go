// Package mqtt bridges device vital readings published over MQTT into
// the vitals ingest path. The bridge is optional: it only runs when a
// broker is configured, and the API works fully without it.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Reading is the payload a device publishes on twin/vitals/<user_id>.
type Reading struct {
	DeviceID   string    `json:"device_id"`
	VitalType  string    `json:"vital_type"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Ingester receives decoded readings. The vitals service implements
// this; the bridge stays unaware of the domain packages.
type Ingester interface {
	Ingest(ctx context.Context, userID uuid.UUID, reading Reading) error
}

type Bridge struct {
	client   mqtt.Client
	topic    string
	ingester Ingester
	logger   zerolog.Logger
}

func NewBridge(brokerURL, clientID, topic string, ingester Ingester, logger zerolog.Logger) *Bridge {
	b := &Bridge{
		topic:    topic,
		ingester: ingester,
		logger:   logger.With().Str("component", "mqtt_bridge").Logger(),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		if token := client.Subscribe(topic, 1, b.onMessage); token.Wait() && token.Error() != nil {
			b.logger.Error().Err(token.Error()).Str("topic", topic).Msg("subscribe failed")
		}
	})

	b.client = mqtt.NewClient(opts)
	return b
}

// Start connects to the broker. Subscription happens in the connect
// handler so it is re-established after reconnects.
func (b *Bridge) Start() error {
	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connecting to broker: %w", token.Error())
	}
	b.logger.Info().Str("topic", b.topic).Msg("vitals bridge connected")
	return nil
}

// Stop disconnects from the broker, allowing in-flight handlers a
// short grace period.
func (b *Bridge) Stop() {
	b.client.Disconnect(250)
}

func (b *Bridge) onMessage(_ mqtt.Client, msg mqtt.Message) {
	if err := b.handle(msg.Topic(), msg.Payload()); err != nil {
		// A bad message is dropped and logged; the subscription lives on.
		b.logger.Warn().Err(err).Str("topic", msg.Topic()).Msg("dropping reading")
	}
}

// handle decodes one published message and feeds it to the ingester.
// The owning user is the final topic segment.
func (b *Bridge) handle(topic string, payload []byte) error {
	segments := strings.Split(topic, "/")
	userID, err := uuid.Parse(segments[len(segments)-1])
	if err != nil {
		return fmt.Errorf("topic %q has no user id: %w", topic, err)
	}

	var reading Reading
	if err := json.Unmarshal(payload, &reading); err != nil {
		return fmt.Errorf("decoding reading: %w", err)
	}
	if reading.VitalType == "" {
		return fmt.Errorf("reading missing vital_type")
	}
	if reading.RecordedAt.IsZero() {
		reading.RecordedAt = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := b.ingester.Ingest(ctx, userID, reading); err != nil {
		return fmt.Errorf("ingesting reading: %w", err)
	}
	return nil
}
