package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/shankar379/medivoice/internal/config"
)

const publishTimeout = 10 * time.Second

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTNotifier publishes due reminders as JSON to a per-patient topic so a
// bedside device can speak or display them.
type MQTTNotifier struct {
	client publisher
	topic  string
	qos    byte
	logger *zap.Logger
	close  func()
}

var _ Notifier = (*MQTTNotifier)(nil)

// NewMQTTNotifier connects to the configured broker.
func NewMQTTNotifier(cfg config.MQTTConfig, logger *zap.Logger) (*MQTTNotifier, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)

	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	n := newMQTTNotifier(client, cfg.Topic, byte(cfg.QoS), logger)
	n.close = func() { client.Disconnect(250) }
	return n, nil
}

func newMQTTNotifier(client publisher, topic string, qos byte, logger *zap.Logger) *MQTTNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MQTTNotifier{
		client: client,
		topic:  topic,
		qos:    qos,
		logger: logger,
	}
}

func (m *MQTTNotifier) Name() string {
	return "mqtt"
}

// Topic returns the topic for a patient. A "%s" in the configured topic is
// replaced by the patient id.
func (m *MQTTNotifier) Topic(patientID string) string {
	if strings.Contains(m.topic, "%s") {
		return fmt.Sprintf(m.topic, patientID)
	}
	return m.topic
}

// Notify publishes the notification and waits for the broker to accept it.
func (m *MQTTNotifier) Notify(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n.payload())
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	topic := m.Topic(n.Reminder.PatientID)
	token := m.client.Publish(topic, m.qos, false, data)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishTimeout):
		return fmt.Errorf("timed out publishing to topic %s", topic)
	}

	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}

	m.logger.Debug("reminder published", zap.String("topic", topic), zap.String("reminder_id", n.Reminder.ID))
	return nil
}

// Close disconnects from the broker.
func (m *MQTTNotifier) Close() {
	if m.close != nil {
		m.close()
	}
}
