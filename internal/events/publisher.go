// Package events publishes dispense run events to an MQTT broker so that
// caregivers and dashboards can follow a run.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/samraisbeck/MEDS/internal/dispense"
)

const defaultTopicPrefix = "meds"

// Client is the subset of the paho client used by Publisher.
type Client interface {
	IsConnected() bool
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Config configures the MQTT connection.
type Config struct {
	Broker         string
	ClientID       string
	TopicPrefix    string
	QoS            byte
	PublishTimeout time.Duration
}

// Connect dials the broker and returns a connected client.
func Connect(cfg Config) (Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, token.Error())
	}
	return client, nil
}

// Publisher forwards run milestones to MQTT. State changes are not published;
// run start, each pill and the run result are.
type Publisher struct {
	client  Client
	prefix  string
	qos     byte
	timeout time.Duration
	logger  *zap.Logger
}

var _ dispense.Observer = (*Publisher)(nil)

// NewPublisher creates a Publisher on an already connected client.
func NewPublisher(client Client, cfg Config, logger *zap.Logger) *Publisher {
	prefix := cfg.TopicPrefix
	if prefix == "" {
		prefix = defaultTopicPrefix
	}
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		client:  client,
		prefix:  prefix,
		qos:     cfg.QoS,
		timeout: timeout,
		logger:  logger,
	}
}

// Message is the JSON payload of every published event.
type Message struct {
	RunID               string    `json:"runId"`
	Kind                string    `json:"kind"`
	Time                time.Time `json:"time"`
	State               string    `json:"state"`
	Completed           int       `json:"completed"`
	TotalExpected       int       `json:"totalExpected"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	Pill                *PillInfo `json:"pill,omitempty"`
	Outcome             string    `json:"outcome,omitempty"`
	Error               string    `json:"error,omitempty"`
}

// PillInfo describes a processed pill in a Message.
type PillInfo struct {
	Seq     int    `json:"seq"`
	Color   string `json:"color"`
	Outcome string `json:"outcome"`
	Day     string `json:"day,omitempty"`
}

// Observe publishes e. Broker failures are logged and never interrupt the run.
func (p *Publisher) Observe(e dispense.Event) {
	if e.Kind == dispense.EventStateChanged {
		return
	}

	msg := newMessage(e)
	payload, err := json.Marshal(msg)
	if err != nil {
		p.logger.Warn("encode event", zap.Error(err))
		return
	}

	topic := Topic(p.prefix, e.RunID, e.Kind)
	token := p.client.Publish(topic, p.qos, e.Kind == dispense.EventRunFinished, payload)
	if !token.WaitTimeout(p.timeout) {
		p.logger.Warn("publish timed out", zap.String("topic", topic))
		return
	}
	if err := token.Error(); err != nil {
		p.logger.Warn("publish failed", zap.String("topic", topic), zap.Error(err))
	}
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

// Topic builds the topic for an event: <prefix>/runs/<run id>/<kind>.
func Topic(prefix, runID string, kind dispense.EventKind) string {
	return fmt.Sprintf("%s/runs/%s/%s", prefix, runID, kind)
}

func newMessage(e dispense.Event) Message {
	msg := Message{
		RunID:               e.RunID,
		Kind:                string(e.Kind),
		Time:                e.Time,
		State:               e.State.String(),
		Completed:           e.Run.Completed,
		TotalExpected:       e.Run.TotalExpected,
		ConsecutiveFailures: e.Run.ConsecutiveFailures,
	}
	if e.Pill != nil {
		msg.Pill = &PillInfo{
			Seq:     e.Pill.Seq,
			Color:   e.Pill.Color.String(),
			Outcome: e.Pill.Outcome.String(),
		}
		if e.Pill.Outcome == dispense.OutcomeRouted {
			msg.Pill.Day = e.Pill.Day.String()
		}
	}
	if e.Result != nil {
		msg.Outcome = "success"
		if e.Result.Failed {
			msg.Outcome = "failure"
		}
		if e.Result.Err != nil {
			msg.Error = e.Result.Err.Error()
		}
	}
	return msg
}
